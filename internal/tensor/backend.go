// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

// Backend defines the interface compute backends must implement.
// Backends handle the actual computation for tensor operations; everything
// above this interface (layers, layout binding, device placement) is
// backend-agnostic.
//
// Implementations:
//   - cpu.Backend: pure Go reference backend
type Backend interface {
	// Name returns the backend name.
	Name() string

	// Device returns the compute device this backend executes on.
	Device() Device

	// Element-wise binary operations (NumPy-style broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// Scalar operations
	MulScalar(x *RawTensor, scalar float64) *RawTensor

	// Matrix operations
	MatMul(a, b *RawTensor) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor) *RawTensor

	// Embedding performs a row lookup: weight [n, d] gathered by int32
	// indices [...] into [..., d].
	Embedding(weight, indices *RawTensor) *RawTensor
}
