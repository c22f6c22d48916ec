// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations; everything
// above this interface (layers, layout binding, device placement) is
// backend-agnostic.
//
// Implementations:
//   - backend/cpu: Pure Go reference backend
//
// Example:
//
//	import (
//	    "github.com/weft-ml/weft/tensor"
//	    "github.com/weft-ml/weft/backend/cpu"
//	)
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)  // Uses backend.Add under the hood
type Backend interface {
	// Name returns the backend name.
	Name() string

	// Device returns the compute device this backend executes on.
	Device() Device

	// Element-wise binary operations (NumPy-style broadcasting).
	Add(a, b *RawTensor) *RawTensor // Element-wise addition.
	Mul(a, b *RawTensor) *RawTensor // Element-wise multiplication.

	// Scalar operations.
	MulScalar(x *RawTensor, scalar float64) *RawTensor // Multiply by scalar.

	// Matrix operations.
	MatMul(a, b *RawTensor) *RawTensor // Matrix multiplication.

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor // Reshape tensor.
	Transpose(t *RawTensor) *RawTensor               // Transpose a 2D tensor.

	// Embedding performs a row lookup: weight [n, d] gathered by int32
	// indices into [..., d].
	Embedding(weight, indices *RawTensor) *RawTensor
}
