// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/weft-ml/weft/internal/tensor"
	"github.com/weft-ml/weft/internal/track"
	"github.com/weft-ml/weft/layout"
)

// Sequential stacks layers and applies them in order.
//
// The layers inside a Sequential are not assigned to meaningful attribute
// slots, so for layout resolution they are addressed by their unique layer
// names: Sequential implements layout.NamedComponents and variable paths
// take the form "<layer name>.<attribute path>".
type Sequential[B tensor.Backend] struct {
	name   string
	layers []Layer[B]

	// trackedLayers is the container's cache of its sub-layers; the
	// layout walk skips paths through it.
	trackedLayers []Layer[B]
}

// NewSequential creates a Sequential container.
func NewSequential[B tensor.Backend](layers ...Layer[B]) *Sequential[B] {
	return &Sequential[B]{
		name:          UniqueName("sequential"),
		layers:        layers,
		trackedLayers: append([]Layer[B](nil), layers...),
	}
}

// Name returns the container name.
func (s *Sequential[B]) Name() string {
	return s.name
}

// Layers returns the stacked layers in order.
func (s *Sequential[B]) Layers() []Layer[B] {
	return s.layers
}

// Forward applies every layer in order.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := input
	for _, l := range s.layers {
		out = l.Forward(out)
	}
	return out
}

// NamedComponents implements the named-subcomponent topology for layout
// resolution: each layer anchors its variable paths under its own name.
func (s *Sequential[B]) NamedComponents() []layout.Named {
	out := make([]layout.Named, len(s.layers))
	for i, l := range s.layers {
		out[i] = layout.Named{Name: l.Name(), Component: l}
	}
	return out
}

// Children exposes the container's attribute tree.
func (s *Sequential[B]) Children() []track.Edge {
	return []track.Edge{
		{Seg: track.Attr("trackedLayers"), Value: layerSlice[B]{items: s.trackedLayers}},
	}
}

// layerSlice exposes a layer list as index-segment edges.
type layerSlice[B tensor.Backend] struct {
	items []Layer[B]
}

func (s layerSlice[B]) Children() []track.Edge {
	edges := make([]track.Edge, len(s.items))
	for i, l := range s.items {
		edges[i] = track.Edge{Seg: track.Index(i), Value: l}
	}
	return edges
}
