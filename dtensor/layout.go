// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dtensor

import (
	"fmt"
	"strings"
)

// Unsharded marks a tensor dimension that is not split across any mesh
// dimension: every device holds the full extent.
const Unsharded = "unsharded"

// Layout is a sharding specification binding each dimension of a tensor of
// a fixed rank to a mesh dimension (or to Unsharded). Layout is a value
// type; the zero Layout is invalid.
type Layout struct {
	mesh     *Mesh
	sharding []string
}

// NewLayout creates a layout over mesh with one sharding entry per tensor
// dimension. Each entry must be Unsharded or the name of a mesh dimension,
// and a mesh dimension may be used at most once.
func NewLayout(mesh *Mesh, sharding ...string) (Layout, error) {
	if mesh == nil {
		return Layout{}, fmt.Errorf("layout requires a mesh")
	}
	used := make(map[string]bool, len(sharding))
	for i, s := range sharding {
		if s == Unsharded {
			continue
		}
		if !mesh.HasDim(s) {
			return Layout{}, fmt.Errorf("layout dimension %d refers to unknown mesh dimension %q on %s",
				i, s, mesh)
		}
		if used[s] {
			return Layout{}, fmt.Errorf("mesh dimension %q used more than once", s)
		}
		used[s] = true
	}
	return Layout{
		mesh:     mesh,
		sharding: append([]string(nil), sharding...),
	}, nil
}

// Replicated creates a fully replicated layout of the given rank: every
// device holds a complete copy of the tensor.
func Replicated(mesh *Mesh, rank int) (Layout, error) {
	if mesh == nil {
		return Layout{}, fmt.Errorf("replicated layout requires a mesh")
	}
	if rank < 0 {
		return Layout{}, fmt.Errorf("replicated layout requires a non-negative rank, got %d", rank)
	}
	sharding := make([]string, rank)
	for i := range sharding {
		sharding[i] = Unsharded
	}
	return Layout{mesh: mesh, sharding: sharding}, nil
}

// Mesh returns the mesh this layout places tensors on, or nil for the zero
// Layout.
func (l Layout) Mesh() *Mesh {
	return l.mesh
}

// Rank returns the tensor rank this layout describes.
func (l Layout) Rank() int {
	return len(l.sharding)
}

// Sharding returns the per-dimension sharding spec.
func (l Layout) Sharding() []string {
	return append([]string(nil), l.sharding...)
}

// IsValid reports whether the layout was produced by a constructor.
func (l Layout) IsValid() bool {
	return l.mesh != nil
}

// IsReplicated reports whether no tensor dimension is sharded.
func (l Layout) IsReplicated() bool {
	for _, s := range l.sharding {
		if s != Unsharded {
			return false
		}
	}
	return true
}

// Equal compares mesh identity and sharding.
func (l Layout) Equal(other Layout) bool {
	if l.mesh != other.mesh || len(l.sharding) != len(other.sharding) {
		return false
	}
	for i := range l.sharding {
		if l.sharding[i] != other.sharding[i] {
			return false
		}
	}
	return true
}

// String returns a description like "training[model,unsharded]".
func (l Layout) String() string {
	if l.mesh == nil {
		return "<invalid layout>"
	}
	return fmt.Sprintf("%s[%s]", l.mesh.Name(), strings.Join(l.sharding, ","))
}
