// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dtensor models meshes of logical compute devices and the layouts
// that bind tensor dimensions to them. It is the placement runtime the
// layout package materializes variables against.
package dtensor

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MeshDim is one named dimension of a device mesh.
type MeshDim struct {
	Name string
	Size int
}

// Mesh is a named multi-dimensional arrangement of logical compute devices.
//
// The product of the dimension sizes must equal the number of devices.
// A Mesh is immutable after construction and safe for concurrent use.
//
// Example:
//
//	mesh, err := dtensor.NewMesh("training",
//	    []dtensor.MeshDim{{Name: "batch", Size: 2}, {Name: "model", Size: 2}},
//	    []string{"cpu:0", "cpu:1", "cpu:2", "cpu:3"})
type Mesh struct {
	name    string
	id      uuid.UUID
	dims    []MeshDim
	devices []string
}

// NewMesh creates a mesh from named dimensions and a device list.
func NewMesh(name string, dims []MeshDim, devices []string) (*Mesh, error) {
	if name == "" {
		return nil, fmt.Errorf("mesh name must not be empty")
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("mesh %q must have at least one dimension", name)
	}
	total := 1
	seen := make(map[string]bool, len(dims))
	for _, d := range dims {
		if d.Name == "" {
			return nil, fmt.Errorf("mesh %q has a dimension with an empty name", name)
		}
		if d.Size <= 0 {
			return nil, fmt.Errorf("mesh %q dimension %q has invalid size %d", name, d.Name, d.Size)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("mesh %q has duplicate dimension %q", name, d.Name)
		}
		seen[d.Name] = true
		total *= d.Size
	}
	if total != len(devices) {
		return nil, fmt.Errorf("mesh %q needs %d devices for dims %v, got %d",
			name, total, dims, len(devices))
	}

	return &Mesh{
		name:    name,
		id:      uuid.New(),
		dims:    append([]MeshDim(nil), dims...),
		devices: append([]string(nil), devices...),
	}, nil
}

// Name returns the mesh name.
func (m *Mesh) Name() string {
	return m.name
}

// ID returns the unique mesh identifier.
func (m *Mesh) ID() uuid.UUID {
	return m.id
}

// Dims returns the mesh dimensions in order.
func (m *Mesh) Dims() []MeshDim {
	return append([]MeshDim(nil), m.dims...)
}

// DimSize returns the size of the named dimension, or 0 if absent.
func (m *Mesh) DimSize(name string) int {
	for _, d := range m.dims {
		if d.Name == name {
			return d.Size
		}
	}
	return 0
}

// HasDim reports whether the mesh has a dimension with the given name.
func (m *Mesh) HasDim(name string) bool {
	return m.DimSize(name) > 0
}

// NumDevices returns the number of devices in the mesh.
func (m *Mesh) NumDevices() int {
	return len(m.devices)
}

// Devices returns the device list in mesh order.
func (m *Mesh) Devices() []string {
	return append([]string(nil), m.devices...)
}

// Coordinates returns the per-dimension coordinates of device i.
func (m *Mesh) Coordinates(i int) []int {
	coords := make([]int, len(m.dims))
	rem := i
	for d := len(m.dims) - 1; d >= 0; d-- {
		coords[d] = rem % m.dims[d].Size
		rem /= m.dims[d].Size
	}
	return coords
}

// String returns a compact description like "training(batch=2,model=2)".
func (m *Mesh) String() string {
	parts := make([]string, len(m.dims))
	for i, d := range m.dims {
		parts[i] = fmt.Sprintf("%s=%d", d.Name, d.Size)
	}
	return fmt.Sprintf("%s(%s)", m.name, strings.Join(parts, ","))
}
