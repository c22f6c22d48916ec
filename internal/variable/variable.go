// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package variable provides the variable abstraction layers create their
// weights through. Inside a layout scope creation is deferred: a Lazy
// placeholder records shape, dtype, trainability and the pending initial
// value, and is later replaced by a layout-bound Dist variable once the
// variable's path in the model is known.
package variable

import (
	"fmt"

	"github.com/weft-ml/weft/dtensor"
	"github.com/weft-ml/weft/internal/tensor"
)

// Scope reports whether variable construction is currently deferred. It is
// implemented by layout.Scope; a nil Scope means eager construction.
type Scope interface {
	Deferred() bool
}

// Variable is a named tensor tracked by a model.
type Variable[B tensor.Backend] interface {
	Name() string
	Shape() tensor.Shape
	DType() tensor.DataType
	Trainable() bool

	// Value returns the variable's tensor. Lazy placeholders panic here:
	// a placeholder must be materialized before use.
	Value() *tensor.Tensor[float32, B]
}

// Initializer produces an initial tensor value for a given shape.
type Initializer[B tensor.Backend] func(shape tensor.Shape, b B) *tensor.Tensor[float32, B]

// New creates a variable. When scope is in deferred mode the result is a
// Lazy placeholder carrying the initializer; otherwise the initializer runs
// immediately and the result is a realized Local variable.
func New[B tensor.Backend](scope Scope, b B, name string, shape tensor.Shape, init Initializer[B], trainable bool) Variable[B] {
	if scope != nil && scope.Deferred() {
		return &Lazy[B]{
			name:      name,
			shape:     shape.Clone(),
			dtype:     tensor.Float32,
			trainable: trainable,
			init:      func() *tensor.Tensor[float32, B] { return init(shape, b) },
		}
	}
	return NewLocal(name, init(shape, b), trainable)
}

// FromTensor creates a variable from an already concrete value, e.g. a
// pretrained weight matrix. In deferred mode the value is carried on the
// placeholder and later copied (not re-initialized) onto its mesh.
func FromTensor[B tensor.Backend](scope Scope, name string, t *tensor.Tensor[float32, B], trainable bool) Variable[B] {
	if scope != nil && scope.Deferred() {
		return &Lazy[B]{
			name:      name,
			shape:     t.Shape().Clone(),
			dtype:     t.DType(),
			trainable: trainable,
			concrete:  t,
		}
	}
	return NewLocal(name, t, trainable)
}

// Lazy is a deferred variable placeholder. Identity (pointer equality) is
// the correlation key between a placeholder and its replacement.
type Lazy[B tensor.Backend] struct {
	name      string
	shape     tensor.Shape
	dtype     tensor.DataType
	trainable bool
	init      func() *tensor.Tensor[float32, B]
	concrete  *tensor.Tensor[float32, B]
}

// Name returns the variable name.
func (l *Lazy[B]) Name() string { return l.name }

// Shape returns the declared shape.
func (l *Lazy[B]) Shape() tensor.Shape { return l.shape }

// DType returns the declared data type.
func (l *Lazy[B]) DType() tensor.DataType { return l.dtype }

// Trainable reports whether the variable is trainable.
func (l *Lazy[B]) Trainable() bool { return l.trainable }

// Value panics: a placeholder has no tensor until it is materialized.
func (l *Lazy[B]) Value() *tensor.Tensor[float32, B] {
	panic(fmt.Sprintf("lazy variable %q used before materialization", l.name))
}

// HasInit reports whether the placeholder carries a callable initializer
// (as opposed to a concrete initial value).
func (l *Lazy[B]) HasInit() bool { return l.init != nil }

// RunInit invokes the pending initializer.
func (l *Lazy[B]) RunInit() *tensor.Tensor[float32, B] { return l.init() }

// Concrete returns the concrete initial value, or nil.
func (l *Lazy[B]) Concrete() *tensor.Tensor[float32, B] { return l.concrete }

// Local is a realized variable without layout information, produced when no
// layout scope is active.
type Local[B tensor.Backend] struct {
	name      string
	value     *tensor.Tensor[float32, B]
	trainable bool
}

// NewLocal wraps a tensor as a realized variable.
func NewLocal[B tensor.Backend](name string, t *tensor.Tensor[float32, B], trainable bool) *Local[B] {
	return &Local[B]{name: name, value: t, trainable: trainable}
}

// Name returns the variable name.
func (v *Local[B]) Name() string { return v.name }

// Shape returns the tensor shape.
func (v *Local[B]) Shape() tensor.Shape { return v.value.Shape() }

// DType returns the tensor data type.
func (v *Local[B]) DType() tensor.DataType { return v.value.DType() }

// Trainable reports whether the variable is trainable.
func (v *Local[B]) Trainable() bool { return v.trainable }

// Value returns the variable's tensor.
func (v *Local[B]) Value() *tensor.Tensor[float32, B] { return v.value }

// Dist is a materialized, layout-bound variable: the replacement for a Lazy
// placeholder.
type Dist[B tensor.Backend] struct {
	name      string
	trainable bool
	value     *dtensor.DTensor
	backend   B
}

// NewDist wraps a distributed value as a bound variable.
func NewDist[B tensor.Backend](name string, dt *dtensor.DTensor, trainable bool, b B) *Dist[B] {
	return &Dist[B]{name: name, trainable: trainable, value: dt, backend: b}
}

// Name returns the variable name.
func (v *Dist[B]) Name() string { return v.name }

// Shape returns the logical (global) shape.
func (v *Dist[B]) Shape() tensor.Shape { return v.value.GlobalShape() }

// DType returns the tensor data type.
func (v *Dist[B]) DType() tensor.DataType { return v.value.Local().DType() }

// Trainable reports whether the variable is trainable.
func (v *Dist[B]) Trainable() bool { return v.trainable }

// Value returns the local replica wrapped for the backend.
func (v *Dist[B]) Value() *tensor.Tensor[float32, B] {
	return tensor.New[float32, B](v.value.Local(), v.backend)
}

// Layout returns the layout the variable is bound to.
func (v *Dist[B]) Layout() dtensor.Layout { return v.value.Layout() }

// Dist returns the underlying distributed value.
func (v *Dist[B]) Dist() *dtensor.DTensor { return v.value }
