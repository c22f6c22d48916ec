// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"fmt"

	"github.com/weft-ml/weft/internal/tensor"
	"github.com/weft-ml/weft/internal/track"
	"github.com/weft-ml/weft/internal/variable"
)

// Embedding is a lookup table mapping discrete indices to dense vectors.
//
// The weight matrix has shape [NumEmbed, EmbedDim]. Freshly created
// embeddings initialize from U(-0.05, 0.05); pretrained weights are
// carried as a concrete initial value, so layout binding reshards the
// existing values instead of re-drawing them.
type Embedding[B tensor.Backend] struct {
	name     string
	numEmbed int
	embedDim int
	weight   variable.Variable[B]

	trainableVars []variable.Variable[B]

	backend B
}

// NewEmbedding creates an Embedding layer with randomly initialized
// weights.
func NewEmbedding[B tensor.Backend](scope variable.Scope, backend B, numEmbeddings, embeddingDim int, opts ...Option) *Embedding[B] {
	o := applyOptions("embedding", opts)

	weight := variable.New(scope, backend, o.name+"/embeddings",
		tensor.Shape{numEmbeddings, embeddingDim}, variable.RandomUniform[B](-0.05, 0.05, o.seed), true)

	return newEmbedding(o.name, numEmbeddings, embeddingDim, weight, backend)
}

// NewEmbeddingFromWeight creates an Embedding layer from a pretrained 2D
// weight tensor. The values are preserved through layout binding.
func NewEmbeddingFromWeight[B tensor.Backend](scope variable.Scope, backend B, weight *tensor.Tensor[float32, B], opts ...Option) *Embedding[B] {
	shape := weight.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("embedding weight must be 2D, got shape %v", shape))
	}
	o := applyOptions("embedding", opts)

	w := variable.FromTensor(scope, o.name+"/embeddings", weight, true)
	return newEmbedding(o.name, shape[0], shape[1], w, backend)
}

func newEmbedding[B tensor.Backend](name string, numEmbed, embedDim int, weight variable.Variable[B], backend B) *Embedding[B] {
	return &Embedding[B]{
		name:          name,
		numEmbed:      numEmbed,
		embedDim:      embedDim,
		weight:        weight,
		trainableVars: []variable.Variable[B]{weight},
		backend:       backend,
	}
}

// Name returns the layer name.
func (e *Embedding[B]) Name() string {
	return e.name
}

// Forward performs the embedding lookup.
//
// indices: int32 tensor of any shape; output shape is indices shape + [EmbedDim].
func (e *Embedding[B]) Forward(indices *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	return e.weight.Value().Embedding(indices)
}

// Weight returns the embeddings variable.
func (e *Embedding[B]) Weight() variable.Variable[B] {
	return e.weight
}

// NumEmbed returns the number of embeddings.
func (e *Embedding[B]) NumEmbed() int {
	return e.numEmbed
}

// EmbedDim returns the embedding dimension.
func (e *Embedding[B]) EmbedDim() int {
	return e.embedDim
}

// Children exposes the layer's attribute tree.
func (e *Embedding[B]) Children() []track.Edge {
	return []track.Edge{
		{Seg: track.Attr("embeddings"), Value: e.weight},
		{Seg: track.Attr("trainableVars"), Value: varSlice[B]{items: &e.trainableVars}},
	}
}

// SetChild reassigns a direct attribute.
func (e *Embedding[B]) SetChild(seg track.Segment, v any) error {
	dv, ok := v.(variable.Variable[B])
	if !ok {
		return fmt.Errorf("%w: %T is not a variable", track.ErrUnsupportedLeaf, v)
	}
	if seg != track.Attr("embeddings") {
		return fmt.Errorf("%w: unknown attribute %q", track.ErrUnsupportedLeaf, seg)
	}
	e.weight = dv
	return nil
}
