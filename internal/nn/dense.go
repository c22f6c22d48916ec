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

// Dense implements a fully connected layer: y = x @ W + b with
// W of shape [in_features, out_features] and b of shape [out_features].
//
// The kernel uses Glorot uniform initialization, the bias zeros. Inside a
// layout scope the weights are created as deferred placeholders and bound
// to their layouts by layout.MapVariables.
//
// Example:
//
//	backend := cpu.New()
//	d := nn.NewDense(scope, backend, 784, 128, nn.WithName("d1"))
type Dense[B tensor.Backend] struct {
	name        string
	inFeatures  int
	outFeatures int
	kernel      variable.Variable[B]
	bias        variable.Variable[B]

	// trainableVars re-exposes kernel and bias as a cache; the layout
	// walk skips it during primary binding and rewrites it in the sweep.
	trainableVars []variable.Variable[B]

	backend B
}

// NewDense creates a new Dense layer. Pass a nil scope for eager weight
// creation.
func NewDense[B tensor.Backend](scope variable.Scope, backend B, inFeatures, outFeatures int, opts ...Option) *Dense[B] {
	o := applyOptions("dense", opts)

	kernel := variable.New(scope, backend, o.name+"/kernel",
		tensor.Shape{inFeatures, outFeatures}, variable.GlorotUniform[B](o.seed), true)
	bias := variable.New(scope, backend, o.name+"/bias",
		tensor.Shape{outFeatures}, variable.Zeros[B](), true)

	return &Dense[B]{
		name:          o.name,
		inFeatures:    inFeatures,
		outFeatures:   outFeatures,
		kernel:        kernel,
		bias:          bias,
		trainableVars: []variable.Variable[B]{kernel, bias},
		backend:       backend,
	}
}

// Name returns the layer name.
func (d *Dense[B]) Name() string {
	return d.name
}

// Forward computes y = x @ W + b.
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, out_features]
func (d *Dense[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 2 {
		panic(fmt.Sprintf("Dense.Forward: expected 2D input [batch, features], got shape %v", inputShape))
	}
	if inputShape[1] != d.inFeatures {
		panic(fmt.Sprintf("Dense.Forward: expected input with %d features, got %d", d.inFeatures, inputShape[1]))
	}

	output := input.MatMul(d.kernel.Value())
	b := d.bias.Value().Reshape(1, d.outFeatures)
	return output.Add(b)
}

// Kernel returns the kernel variable.
func (d *Dense[B]) Kernel() variable.Variable[B] {
	return d.kernel
}

// Bias returns the bias variable.
func (d *Dense[B]) Bias() variable.Variable[B] {
	return d.bias
}

// InFeatures returns the number of input features.
func (d *Dense[B]) InFeatures() int {
	return d.inFeatures
}

// OutFeatures returns the number of output features.
func (d *Dense[B]) OutFeatures() int {
	return d.outFeatures
}

// Children exposes the layer's attribute tree.
func (d *Dense[B]) Children() []track.Edge {
	return []track.Edge{
		{Seg: track.Attr("kernel"), Value: d.kernel},
		{Seg: track.Attr("bias"), Value: d.bias},
		{Seg: track.Attr("trainableVars"), Value: varSlice[B]{items: &d.trainableVars}},
	}
}

// SetChild reassigns a direct attribute.
func (d *Dense[B]) SetChild(seg track.Segment, v any) error {
	dv, ok := v.(variable.Variable[B])
	if !ok {
		return fmt.Errorf("%w: %T is not a variable", track.ErrUnsupportedLeaf, v)
	}
	switch {
	case seg == track.Attr("kernel"):
		d.kernel = dv
	case seg == track.Attr("bias"):
		d.bias = dv
	default:
		return fmt.Errorf("%w: unknown attribute %q", track.ErrUnsupportedLeaf, seg)
	}
	return nil
}
