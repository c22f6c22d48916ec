// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dtensor

import (
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/weft-ml/weft/internal/tensor"
)

// Device executes tensor construction against a mesh. It decorates a
// compute backend with placement: values produced under a layout are fanned
// out to every mesh device as replicas or shards.
//
// A Device is owned by the goroutine building a model; it is not safe for
// concurrent use.
type Device[B tensor.Backend] struct {
	backend B
	mesh    *Mesh
	target  *Layout // ambient layout during RunWithLayout
}

// New creates a device over a backend and a mesh.
func New[B tensor.Backend](backend B, mesh *Mesh) *Device[B] {
	return &Device[B]{backend: backend, mesh: mesh}
}

// Backend returns the wrapped compute backend.
func (d *Device[B]) Backend() B {
	return d.backend
}

// Mesh returns the mesh this device places values on.
func (d *Device[B]) Mesh() *Mesh {
	return d.mesh
}

// CurrentLayout returns the ambient layout target, if a RunWithLayout call
// is in progress.
func (d *Device[B]) CurrentLayout() (Layout, bool) {
	if d.target == nil {
		return Layout{}, false
	}
	return *d.target, true
}

// RunWithLayout invokes f with l as the ambient layout target, so tensors f
// constructs are built for that placement, and restores the previous target
// afterwards even if f fails.
func (d *Device[B]) RunWithLayout(l Layout, f func() (*tensor.Tensor[float32, B], error)) (*tensor.Tensor[float32, B], error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("run with layout: invalid layout")
	}
	prev := d.target
	d.target = &l
	defer func() { d.target = prev }()
	return f()
}

// CopyToMesh deep-copies a host tensor onto the mesh under the given
// layout. The values are preserved exactly; only placement changes.
func (d *Device[B]) CopyToMesh(raw *tensor.RawTensor, l Layout) (*DTensor, error) {
	return d.Distribute(raw.Copy(), l)
}

// Distribute fans a tensor out across the mesh devices per the layout.
// Replicated dimensions produce full copies; a layout sharded on the first
// tensor dimension splits rows across the corresponding mesh dimension.
// Copies to the individual devices run concurrently.
func (d *Device[B]) Distribute(raw *tensor.RawTensor, l Layout) (*DTensor, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("distribute: invalid layout")
	}
	if l.Mesh() != d.mesh {
		return nil, fmt.Errorf("distribute: layout mesh %s does not match device mesh %s", l.Mesh(), d.mesh)
	}
	if l.Rank() != raw.Shape().Rank() {
		return nil, fmt.Errorf("distribute: layout rank %d does not match tensor shape %v", l.Rank(), raw.Shape())
	}
	for dim, s := range l.sharding {
		if dim > 0 && s != Unsharded {
			return nil, fmt.Errorf("distribute: sharding on tensor dimension %d is not supported", dim)
		}
	}

	n := d.mesh.NumDevices()
	replicas := make([]*tensor.RawTensor, n)
	var g errgroup.Group

	if l.Rank() > 0 && l.sharding[0] != Unsharded {
		shards := d.mesh.DimSize(l.sharding[0])
		rows := raw.Shape()[0]
		if rows%shards != 0 {
			return nil, fmt.Errorf("distribute: dimension 0 of shape %v not divisible by mesh dimension %q (size %d)",
				raw.Shape(), l.sharding[0], shards)
		}
		shardRows := rows / shards
		for i := 0; i < n; i++ {
			i := i
			g.Go(func() error {
				shard := d.mesh.Coordinates(i)[d.shardAxis(l.sharding[0])]
				s, err := sliceRows(raw, shard*shardRows, shardRows)
				if err != nil {
					return err
				}
				replicas[i] = s
				return nil
			})
		}
	} else {
		for i := 0; i < n; i++ {
			i := i
			g.Go(func() error {
				replicas[i] = raw.Copy()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("distributed tensor", "shape", raw.Shape(), "layout", l.String(), "devices", n)
	return &DTensor{layout: l, replicas: replicas}, nil
}

// NewTensor builds a tensor on the wrapped backend. When an ambient layout
// target is active the shape must be rank-compatible with it.
func (d *Device[B]) NewTensor(shape tensor.Shape) (*tensor.Tensor[float32, B], error) {
	if d.target != nil && d.target.Rank() != shape.Rank() {
		return nil, fmt.Errorf("new tensor: shape %v incompatible with ambient layout %s", shape, *d.target)
	}
	return tensor.Zeros[float32](shape, d.backend), nil
}

// shardAxis returns the index of the mesh dimension with the given name.
func (d *Device[B]) shardAxis(name string) int {
	for i, dim := range d.mesh.dims {
		if dim.Name == name {
			return i
		}
	}
	return -1
}

// sliceRows copies rows [start, start+count) of a row-major tensor into a
// new tensor.
func sliceRows(raw *tensor.RawTensor, start, count int) (*tensor.RawTensor, error) {
	shape := raw.Shape().Clone()
	shape[0] = count
	out, err := tensor.NewRaw(shape, raw.DType(), raw.Device())
	if err != nil {
		return nil, err
	}
	rowBytes := raw.ByteSize() / raw.Shape()[0]
	copy(out.Data(), raw.Data()[start*rowBytes:(start+count)*rowBytes])
	return out, nil
}
