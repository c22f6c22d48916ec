// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package layout

import (
	"fmt"
	"log/slog"

	"github.com/weft-ml/weft/dtensor"
	"github.com/weft-ml/weft/internal/tensor"
	"github.com/weft-ml/weft/internal/track"
	"github.com/weft-ml/weft/internal/variable"
)

// skipAttributes are cache-like attributes that re-expose already-tracked
// variables under a second alias. Paths through them are excluded from
// primary binding so a variable is bound exactly once, at its home path;
// the residual sweep rewrites the cached references afterwards.
var skipAttributes = map[string]bool{
	"trainableVars":    true,
	"nonTrainableVars": true,
	"trackedLayers":    true,
}

// Named pairs a unique component name with its traversable root.
type Named struct {
	Name      string
	Component any
}

// NamedComponents is implemented by container models whose sub-layers are
// addressed by a unique name rather than a stable attribute slot (e.g.
// Sequential). For such models variable paths are prefixed with the
// owning component's name.
type NamedComponents interface {
	NamedComponents() []Named
}

// randomHolder is the capability of layers owning an untracked random
// generator whose state still needs a layout-bound variable.
type randomHolder[B tensor.Backend] interface {
	RandomState() *variable.Generator[B]
}

// MapVariables materializes every deferred variable placeholder reachable
// from model, binding each to the layout registered for its object path
// (or a fully replicated default), and rewrites the model's attribute
// graph in place.
//
// The walk runs in two strictly sequential passes: the first discovers
// each placeholder at its primary path, materializes it and installs the
// bound variable; the second sweeps residual references (cached aliases
// still pointing at old placeholders) using placeholder identity as the
// correlation key. A third pass binds untracked random-generator state.
//
// Any failure aborts the whole materialization: a model left with a mix of
// placeholders and bound variables is not a valid outcome.
func MapVariables[B tensor.Backend](dev *dtensor.Device[B], scope *Scope, lm *LayoutMap, model any) error {
	roots := []Named{{Name: "", Component: model}}
	if nc, ok := model.(NamedComponents); ok {
		// Named-subcomponent topology: layer names are unique within the
		// container, so they anchor the path instead of attribute slots.
		roots = nc.NamedComponents()
	}

	pred := func(o any) bool {
		_, ok := o.(*variable.Lazy[B])
		return ok
	}
	bound := make(map[*variable.Lazy[B]]*variable.Dist[B])

	// Pass 1: discover placeholders at their primary paths and replace.
	for _, r := range roots {
		for _, f := range track.Flatten(r.Component, pred) {
			if f.Path.ContainsAttr(skipAttributes) {
				continue
			}
			lazy := f.Leaf.(*variable.Lazy[B])
			key := prefixKey(r.Name, f.Path)
			dv, err := materialize(dev, scope, lm, key, lazy)
			if err != nil {
				return err
			}
			if err := track.SetByPath(r.Component, f.Path, dv); err != nil {
				return &BindError{Path: key, Err: err}
			}
			bound[lazy] = dv
		}
	}

	// Pass 2: sweep residual references. Cached attributes skipped above
	// still hold the old placeholders; rewrite them through the identity
	// map committed by pass 1.
	for _, r := range roots {
		for _, f := range track.Flatten(r.Component, pred) {
			lazy := f.Leaf.(*variable.Lazy[B])
			dv, ok := bound[lazy]
			if !ok {
				return &BindError{
					Path: prefixKey(r.Name, f.Path),
					Err: fmt.Errorf("%w: placeholder %q was never bound at a primary path",
						ErrInvariantViolation, lazy.Name()),
				}
			}
			if err := track.SetByPath(r.Component, f.Path, dv); err != nil {
				return &BindError{Path: prefixKey(r.Name, f.Path), Err: err}
			}
		}
	}

	// Pass 3: random-generator state. These variables are deliberately
	// untracked, so the path walk never finds them; bind them with the
	// default replicated layout.
	for _, r := range roots {
		if err := bindRandomState(dev, scope, lm, r.Component); err != nil {
			return err
		}
	}
	return nil
}

func bindRandomState[B tensor.Backend](dev *dtensor.Device[B], scope *Scope, lm *LayoutMap, root any) error {
	var err error
	track.Visit(root, func(o any) {
		if err != nil {
			return
		}
		rh, ok := o.(randomHolder[B])
		if !ok {
			return
		}
		g := rh.RandomState()
		switch {
		case g.Built() && g.State() == nil:
			err = fmt.Errorf("%w: random generator claims built status but has no state", ErrInvariantViolation)
		case g.Built():
			if lazy, ok := g.State().(*variable.Lazy[B]); ok {
				// Empty path: forces the default-replicated-layout branch.
				dv, merr := materialize(dev, scope, lm, "", lazy)
				if merr != nil {
					err = merr
					return
				}
				g.SetState(dv)
			}
		default:
			// Never built; let the generator build itself directly on the
			// default mesh instead of wrapping a placeholder.
			err = g.BuildOnMesh(dev)
		}
	})
	return err
}

// materialize resolves the layout for one placeholder and produces its
// bound replacement. The placeholder's initializer runs under the resolved
// layout with deferred construction suspended; a concrete initial value is
// copied onto the mesh instead, so values are never silently re-drawn.
func materialize[B tensor.Backend](dev *dtensor.Device[B], scope *Scope, lm *LayoutMap, key string, lazy *variable.Lazy[B]) (*variable.Dist[B], error) {
	l, ok := lm.Get(key)
	if !ok {
		mesh := lm.DefaultMesh()
		if mesh == nil {
			return nil, &BindError{Path: key, Err: fmt.Errorf("%w: no layout registered and no default mesh", ErrInvalidLayout)}
		}
		var err error
		l, err = dtensor.Replicated(mesh, lazy.Shape().Rank())
		if err != nil {
			return nil, &BindError{Path: key, Err: err}
		}
	}

	var dt *dtensor.DTensor
	if lazy.HasInit() {
		resume := func() {}
		if scope != nil {
			resume = scope.SuspendDeferred()
		}
		t, err := dev.RunWithLayout(l, func() (*tensor.Tensor[float32, B], error) {
			return lazy.RunInit(), nil
		})
		resume()
		if err != nil {
			return nil, &BindError{Path: key, Err: err}
		}
		dt, err = dev.Distribute(t.Raw(), l)
		if err != nil {
			return nil, &BindError{Path: key, Err: err}
		}
	} else {
		var err error
		dt, err = dev.CopyToMesh(lazy.Concrete().Raw(), l)
		if err != nil {
			return nil, &BindError{Path: key, Err: err}
		}
	}

	slog.Debug("bound variable", "path", key, "name", lazy.Name(), "layout", dt.Layout().String())
	return variable.NewDist(lazy.Name(), dt, lazy.Trainable(), dev.Backend()), nil
}

func prefixKey(prefix string, p track.Path) string {
	if prefix == "" {
		return p.Key()
	}
	return prefix + "." + p.Key()
}
