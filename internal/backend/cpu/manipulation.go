// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"fmt"

	"github.com/weft-ml/weft/internal/tensor"
)

// Reshape returns a tensor with the same data and a new shape.
func (c *Backend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v (%d elements) to %v (%d elements)",
			t.Shape(), t.NumElements(), newShape, newShape.NumElements()))
	}
	result, err := tensor.NewRaw(newShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	copy(result.Data(), t.Data())
	return result
}

// Transpose returns the 2D transpose of t.
func (c *Backend) Transpose(t *tensor.RawTensor) *tensor.RawTensor {
	s := t.Shape()
	if len(s) != 2 {
		panic(fmt.Sprintf("transpose: expected 2D tensor, got %v", s))
	}
	if t.DType() != tensor.Float32 {
		panic(fmt.Sprintf("transpose: only float32 supported, got %s", t.DType()))
	}

	m, n := s[0], s[1]
	result, err := tensor.NewRaw(tensor.Shape{n, m}, t.DType(), c.device)
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}
	in, out := t.AsFloat32(), result.AsFloat32()
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			out[j*m+i] = in[i*n+j]
		}
	}
	return result
}

// Embedding gathers rows of weight [n, d] by int32 indices.
// Output shape is indices.Shape() + [d].
func (c *Backend) Embedding(weight, indices *tensor.RawTensor) *tensor.RawTensor {
	ws := weight.Shape()
	if len(ws) != 2 {
		panic(fmt.Sprintf("embedding: weight must be 2D, got %v", ws))
	}
	if weight.DType() != tensor.Float32 || indices.DType() != tensor.Int32 {
		panic(fmt.Sprintf("embedding: expected float32 weight and int32 indices, got %s and %s",
			weight.DType(), indices.DType()))
	}

	n, d := ws[0], ws[1]
	outShape := append(indices.Shape().Clone(), d)
	result, err := tensor.NewRaw(outShape, tensor.Float32, c.device)
	if err != nil {
		panic(fmt.Sprintf("embedding: %v", err))
	}

	wv, iv, out := weight.AsFloat32(), indices.AsInt32(), result.AsFloat32()
	for i, idx := range iv {
		if idx < 0 || int(idx) >= n {
			panic(fmt.Sprintf("embedding: index %d out of range [0, %d)", idx, n))
		}
		copy(out[i*d:(i+1)*d], wv[int(idx)*d:(int(idx)+1)*d])
	}
	return result
}
