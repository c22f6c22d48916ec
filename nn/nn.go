// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/weft-ml/weft/internal/nn"
	"github.com/weft-ml/weft/internal/tensor"
)

// Layer is the common interface for all neural network layers.
type Layer[B tensor.Backend] = nn.Layer[B]

// Option configures a layer at construction.
type Option = nn.Option

// WithName sets an explicit layer name instead of an auto-generated one.
func WithName(name string) Option {
	return nn.WithName(name)
}

// WithSeed fixes the random seed used for weight initialization.
func WithSeed(seed uint64) Option {
	return nn.WithSeed(seed)
}

// UniqueName returns the next auto-generated name for a prefix.
func UniqueName(prefix string) string {
	return nn.UniqueName(prefix)
}

// ResetNaming clears the per-prefix name counters. Intended for tests.
func ResetNaming() {
	nn.ResetNaming()
}

// Layers

// Dense represents a fully connected layer: y = x @ W + b.
type Dense[B tensor.Backend] = nn.Dense[B]

// NewDense creates a new Dense layer with Glorot uniform initialization.
// Pass a nil scope for eager weight creation.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewDense(scope, backend, 784, 128)
func NewDense[B tensor.Backend](scope Scope, backend B, inFeatures, outFeatures int, opts ...Option) *Dense[B] {
	return nn.NewDense(scope, backend, inFeatures, outFeatures, opts...)
}

// Embedding is a lookup table mapping discrete indices to dense vectors.
type Embedding[B tensor.Backend] = nn.Embedding[B]

// NewEmbedding creates an Embedding layer with randomly initialized weights.
func NewEmbedding[B tensor.Backend](scope Scope, backend B, numEmbeddings, embeddingDim int, opts ...Option) *Embedding[B] {
	return nn.NewEmbedding(scope, backend, numEmbeddings, embeddingDim, opts...)
}

// NewEmbeddingFromWeight creates an Embedding layer from a pretrained 2D
// weight tensor. The values are preserved through layout binding.
func NewEmbeddingFromWeight[B tensor.Backend](scope Scope, backend B, weight *tensor.Tensor[float32, B], opts ...Option) *Embedding[B] {
	return nn.NewEmbeddingFromWeight(scope, backend, weight, opts...)
}

// Dropout randomly zeroes elements of its input during the forward pass.
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout creates a Dropout layer with the given drop probability.
func NewDropout[B tensor.Backend](scope Scope, backend B, rate float64, opts ...Option) *Dropout[B] {
	return nn.NewDropout(scope, backend, rate, opts...)
}

// Sequential stacks layers and applies them in order.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a Sequential container.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewDense(scope, backend, 784, 128),
//	    nn.NewDense(scope, backend, 128, 10),
//	)
func NewSequential[B tensor.Backend](layers ...Layer[B]) *Sequential[B] {
	return nn.NewSequential(layers...)
}
