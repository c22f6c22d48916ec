// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package layout

import (
	"errors"
	"fmt"

	"github.com/weft-ml/weft/internal/track"
)

// Common errors.
var (
	// ErrDuplicateKey is returned by LayoutMap.Set for a key that is
	// already registered. Duplicate keys are a configuration error, not a
	// request to overwrite.
	ErrDuplicateKey = errors.New("duplicate layout key")

	// ErrInvalidLayout is returned when a layout value is unusable: the
	// zero Layout, a layout without a mesh, or a binding that cannot fall
	// back to a default mesh.
	ErrInvalidLayout = errors.New("invalid layout")

	// ErrKeyNotFound is returned by LayoutMap.Delete for an absent key.
	ErrKeyNotFound = errors.New("layout key not found")

	// ErrUnsupportedLeaf is returned when a resolved path cannot be
	// assigned through, e.g. an index into an immutable sequence.
	ErrUnsupportedLeaf = track.ErrUnsupportedLeaf

	// ErrInvariantViolation signals an upstream contract breach: a random
	// generator claiming built status without state, or a placeholder the
	// primary pass never bound. A model in this state is unrecoverable.
	ErrInvariantViolation = errors.New("layout invariant violation")
)

// BindError reports a failure to bind one variable path.
type BindError struct {
	Path string // Object path of the variable being bound
	Err  error
}

// Error implements the error interface.
func (e *BindError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("bind variable: %v", e.Err)
	}
	return fmt.Sprintf("bind variable %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *BindError) Unwrap() error {
	return e.Err
}
