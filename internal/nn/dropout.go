// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"fmt"
	"math/rand"

	"github.com/weft-ml/weft/internal/tensor"
	"github.com/weft-ml/weft/internal/track"
	"github.com/weft-ml/weft/internal/variable"
)

// Dropout randomly zeroes elements of its input with probability rate and
// scales the survivors by 1/(1-rate).
//
// The layer draws randomness from a stateful Generator whose state
// variable is deliberately not part of the attribute tree: the layout walk
// never sees it, and layout.MapVariables binds it separately with a
// default replicated layout.
type Dropout[B tensor.Backend] struct {
	name    string
	rate    float64
	gen     *variable.Generator[B]
	backend B
}

// NewDropout creates a Dropout layer. Inside a layout scope the
// generator's state is created as a deferred placeholder.
func NewDropout[B tensor.Backend](scope variable.Scope, backend B, rate float64, opts ...Option) *Dropout[B] {
	if rate < 0 || rate >= 1 {
		panic(fmt.Sprintf("dropout rate must be in [0, 1), got %v", rate))
	}
	o := applyOptions("dropout", opts)

	gen := variable.NewGenerator[B](o.seed)
	if scope != nil && scope.Deferred() {
		gen.Build(scope, backend)
	}
	return &Dropout[B]{
		name:    o.name,
		rate:    rate,
		gen:     gen,
		backend: backend,
	}
}

// Name returns the layer name.
func (d *Dropout[B]) Name() string {
	return d.name
}

// RandomState exposes the untracked generator to the layout materializer.
func (d *Dropout[B]) RandomState() *variable.Generator[B] {
	return d.gen
}

// Rate returns the drop probability.
func (d *Dropout[B]) Rate() float64 {
	return d.rate
}

// Forward applies dropout. The generator state advances on every call.
func (d *Dropout[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if d.rate == 0 {
		return input
	}
	if !d.gen.Built() {
		d.gen.Build(nil, d.backend)
	}

	state := d.gen.State().Value().Data()
	src := rand.New(rand.NewSource(int64(state[0])*1_000_003 + int64(state[1])))
	state[1]++

	keep := float32(1.0 / (1.0 - d.rate))
	mask := make([]float32, input.NumElements())
	for i := range mask {
		if src.Float64() >= d.rate {
			mask[i] = keep
		}
	}
	maskT, err := tensor.FromSlice(mask, input.Shape(), d.backend)
	if err != nil {
		panic(fmt.Sprintf("Dropout.Forward: %v", err))
	}
	return input.Mul(maskT)
}

// Children exposes the layer's attribute tree. The generator is
// intentionally absent.
func (d *Dropout[B]) Children() []track.Edge {
	return nil
}
