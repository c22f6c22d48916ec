// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package variable

import (
	"fmt"

	"github.com/weft-ml/weft/dtensor"
	"github.com/weft-ml/weft/internal/tensor"
)

// stateName is the variable name given to generator state.
const stateName = "random_generator_state"

// Generator holds the state of a stateful random source used by layers
// such as Dropout. The state variable is deliberately kept out of the
// normal attribute tree (layers do not report it as a child), so the
// layout materializer handles it separately: it is bound with a default
// replicated layout rather than a path-resolved one.
type Generator[B tensor.Backend] struct {
	seed  uint64
	built bool
	state Variable[B]
}

// NewGenerator creates an unbuilt generator.
func NewGenerator[B tensor.Backend](seed uint64) *Generator[B] {
	return &Generator[B]{seed: seed}
}

// Seed returns the generator seed.
func (g *Generator[B]) Seed() uint64 { return g.seed }

// Built reports whether the generator's state has been created.
func (g *Generator[B]) Built() bool { return g.built }

// State returns the state variable, or nil when unbuilt.
func (g *Generator[B]) State() Variable[B] { return g.state }

// SetState replaces the state variable. Used by the materializer when it
// rebinds a lazy state placeholder.
func (g *Generator[B]) SetState(v Variable[B]) { g.state = v }

// Build creates the state variable: a deferred placeholder when the scope
// is in deferred mode, a realized local variable otherwise. The state is a
// (seed, counter) pair.
func (g *Generator[B]) Build(scope Scope, b B) {
	if g.built {
		return
	}
	g.state = New[B](scope, b, stateName, tensor.Shape{2}, g.stateInit(), false)
	g.built = true
}

// BuildOnMesh creates the state variable directly as a mesh-bound variable
// with a replicated layout. Used by the materializer for generators that
// were never built during model construction.
func (g *Generator[B]) BuildOnMesh(dev *dtensor.Device[B]) error {
	if g.built {
		return nil
	}
	l, err := dtensor.Replicated(dev.Mesh(), 1)
	if err != nil {
		return fmt.Errorf("generator state: %w", err)
	}
	t, err := dev.RunWithLayout(l, func() (*tensor.Tensor[float32, B], error) {
		return g.stateInit()(tensor.Shape{2}, dev.Backend()), nil
	})
	if err != nil {
		return fmt.Errorf("generator state: %w", err)
	}
	dt, err := dev.Distribute(t.Raw(), l)
	if err != nil {
		return fmt.Errorf("generator state: %w", err)
	}
	g.state = NewDist(stateName, dt, false, dev.Backend())
	g.built = true
	return nil
}

func (g *Generator[B]) stateInit() Initializer[B] {
	seed := g.seed
	return func(shape tensor.Shape, b B) *tensor.Tensor[float32, B] {
		t := tensor.Zeros[float32](shape, b)
		t.Data()[0] = float32(seed)
		return t
	}
}
