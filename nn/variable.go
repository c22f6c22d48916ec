// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/weft-ml/weft/internal/tensor"
	"github.com/weft-ml/weft/internal/variable"
)

// Scope controls whether variables are created eagerly or as deferred
// placeholders. layout.Scope is the standard implementation; a nil Scope
// always creates eagerly.
type Scope = variable.Scope

// Variable is a named model weight.
type Variable[B tensor.Backend] = variable.Variable[B]

// Initializer produces the initial value for a variable.
type Initializer[B tensor.Backend] = variable.Initializer[B]

// Dist is a variable whose value is distributed across a device mesh.
type Dist[B tensor.Backend] = variable.Dist[B]

// Generator is a stateful random number generator whose state lives in a
// variable so that layout binding can place it on a mesh.
type Generator[B tensor.Backend] = variable.Generator[B]

// NewVariable creates a variable. Inside a deferred scope the result is a
// placeholder that records its initializer; otherwise the initializer runs
// immediately.
func NewVariable[B tensor.Backend](scope Scope, backend B, name string, shape tensor.Shape, init Initializer[B], trainable bool) Variable[B] {
	return variable.New(scope, backend, name, shape, init, trainable)
}

// NewGenerator creates an unbuilt random generator with the given seed.
func NewGenerator[B tensor.Backend](seed uint64) *Generator[B] {
	return variable.NewGenerator[B](seed)
}

// Initializers

// Zeros initializes a variable with zeros.
func Zeros[B tensor.Backend]() Initializer[B] {
	return variable.Zeros[B]()
}

// Ones initializes a variable with ones.
func Ones[B tensor.Backend]() Initializer[B] {
	return variable.Ones[B]()
}

// Constant initializes a variable with a fixed value.
func Constant[B tensor.Backend](value float32) Initializer[B] {
	return variable.Constant[B](value)
}

// RandomUniform initializes a variable from U(min, max).
func RandomUniform[B tensor.Backend](min, max float64, seed uint64) Initializer[B] {
	return variable.RandomUniform[B](min, max, seed)
}

// GlorotUniform initializes a variable with Glorot (Xavier) uniform values.
func GlorotUniform[B tensor.Backend](seed uint64) Initializer[B] {
	return variable.GlorotUniform[B](seed)
}

// TruncatedNormal initializes a variable from a truncated normal
// distribution.
func TruncatedNormal[B tensor.Backend](mean, stddev float64, seed uint64) Initializer[B] {
	return variable.TruncatedNormal[B](mean, stddev, seed)
}
