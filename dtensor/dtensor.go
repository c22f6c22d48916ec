// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dtensor

import (
	"fmt"

	"github.com/weft-ml/weft/internal/tensor"
)

// DTensor is a tensor value distributed over a mesh according to a Layout:
// one RawTensor per mesh device, either a full replica or a shard.
type DTensor struct {
	layout   Layout
	replicas []*tensor.RawTensor
}

// Layout returns the layout the value is distributed under.
func (t *DTensor) Layout() Layout {
	return t.layout
}

// NumReplicas returns the number of per-device values.
func (t *DTensor) NumReplicas() int {
	return len(t.replicas)
}

// Replica returns the value held by mesh device i.
func (t *DTensor) Replica(i int) *tensor.RawTensor {
	return t.replicas[i]
}

// Local returns the value held by the first mesh device. For a replicated
// layout this is a full copy of the tensor.
func (t *DTensor) Local() *tensor.RawTensor {
	return t.replicas[0]
}

// GlobalShape returns the logical (unsharded) shape of the value.
func (t *DTensor) GlobalShape() tensor.Shape {
	local := t.replicas[0].Shape().Clone()
	for dim, s := range t.layout.sharding {
		if s != Unsharded {
			local[dim] *= t.layout.mesh.DimSize(s)
		}
	}
	return local
}

// String describes the distribution, e.g. "DTensor([8 4] on training[model,unsharded])".
func (t *DTensor) String() string {
	return fmt.Sprintf("DTensor(%v on %s)", t.GlobalShape(), t.layout)
}
