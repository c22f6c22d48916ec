// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn implements the model components of the weft framework.
//
// Layers create their weights through the variable package, so building a
// model inside a layout scope defers weight creation until layouts are
// resolved. Every layer exposes its attribute tree through the track.Node
// capability, which is what the layout materializer walks.
package nn

import (
	"fmt"

	"github.com/weft-ml/weft/internal/tensor"
	"github.com/weft-ml/weft/internal/track"
	"github.com/weft-ml/weft/internal/variable"
)

// Layer is the base interface for network components that map a float32
// tensor to a float32 tensor. Layers also expose their attribute tree for
// traversal.
type Layer[B tensor.Backend] interface {
	// Name returns the layer's unique name.
	Name() string

	// Forward computes the output of the layer given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	track.Node
}

// varSlice exposes a layer's variable slice as a traversable, writable
// sequence: children are index-segment edges, and assignment writes
// through to the owning layer's slice.
type varSlice[B tensor.Backend] struct {
	items *[]variable.Variable[B]
}

func (s varSlice[B]) Children() []track.Edge {
	edges := make([]track.Edge, len(*s.items))
	for i, v := range *s.items {
		edges[i] = track.Edge{Seg: track.Index(i), Value: v}
	}
	return edges
}

func (s varSlice[B]) SetChild(seg track.Segment, v any) error {
	if !seg.IsIndex() {
		return fmt.Errorf("%w: variable sequence addressed by name %q", track.ErrUnsupportedLeaf, seg)
	}
	if seg.Idx() < 0 || seg.Idx() >= len(*s.items) {
		return fmt.Errorf("%w: index %d out of range", track.ErrUnsupportedLeaf, seg.Idx())
	}
	dv, ok := v.(variable.Variable[B])
	if !ok {
		return fmt.Errorf("%w: %T is not a variable", track.ErrUnsupportedLeaf, v)
	}
	(*s.items)[seg.Idx()] = dv
	return nil
}
