// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package layout binds physical tensor layouts to model variables that are
// discovered after model construction.
//
// A LayoutMap maps variable object paths (with regex fallback) to layouts.
// Building a model inside a Scope defers variable creation; MapVariables
// then resolves every placeholder's path, consults the map, and rewrites
// the model's attribute graph with layout-bound variables.
//
//	lm := layout.NewLayoutMap(mesh)
//	lm.Set("d1.kernel", l1)
//	lm.Set("d1.bias", l2)
//
//	scope := layout.NewScope()
//	exit := scope.Enter(lm)
//	model := buildModel(scope)
//	exit()
//
//	err := layout.MapVariables(dev, scope, lm, model)
package layout

import (
	"fmt"

	"github.com/dlclark/regexp2"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/weft-ml/weft/dtensor"
)

// entry pairs a registered layout with its key compiled as a pattern.
// re is nil when the key does not compile; such keys still serve exact
// lookups but never participate in the regex fallback.
type entry struct {
	layout dtensor.Layout
	re     *regexp2.Regexp
}

// LayoutMap is an ordered mapping from key patterns to layouts.
//
// Lookup tries an exact match first. On a miss, every registered key is
// treated as a regular expression matched at the start of the query (the
// semantics of Python's re.match, which regexp2 reproduces), in insertion
// order; the first match wins. This lets one entry cover a family of
// generated variable paths, with precedence controlled by insertion order.
//
// LayoutMap is not safe for concurrent mutation.
type LayoutMap struct {
	entries     *orderedmap.OrderedMap[string, entry]
	defaultMesh *dtensor.Mesh
}

// NewLayoutMap creates an empty map. The optional mesh provides the fully
// replicated default layout for variables no entry matches.
func NewLayoutMap(defaultMesh *dtensor.Mesh) *LayoutMap {
	return &LayoutMap{
		entries:     orderedmap.New[string, entry](),
		defaultMesh: defaultMesh,
	}
}

// Set registers a layout under a key pattern, appended to the iteration
// order. Registering a present key fails with ErrDuplicateKey and leaves
// the map unchanged; an unusable layout fails with ErrInvalidLayout.
func (m *LayoutMap) Set(key string, l dtensor.Layout) error {
	if _, present := m.entries.Get(key); present {
		return fmt.Errorf("%w: %q is already registered", ErrDuplicateKey, key)
	}
	if !l.IsValid() {
		return fmt.Errorf("%w: layout for %q has no mesh", ErrInvalidLayout, key)
	}

	re, err := regexp2.Compile(key, regexp2.None)
	if err != nil {
		// Key is not a usable pattern; keep it for exact matches only.
		re = nil
	}
	m.entries.Set(key, entry{layout: l, re: re})
	return nil
}

// Get retrieves the layout for a variable path key: exact match first,
// then the insertion-ordered regex fallback. The second result is false
// when nothing matches.
func (m *LayoutMap) Get(key string) (dtensor.Layout, bool) {
	if e, ok := m.entries.Get(key); ok {
		return e.layout, true
	}

	for p := m.entries.Oldest(); p != nil; p = p.Next() {
		if p.Value.re == nil {
			continue
		}
		match, err := p.Value.re.FindStringMatch(key)
		if err != nil || match == nil {
			continue
		}
		if match.Index == 0 {
			return p.Value.layout, true
		}
	}
	return dtensor.Layout{}, false
}

// Delete removes a key. Fails with ErrKeyNotFound if absent.
func (m *LayoutMap) Delete(key string) error {
	if _, present := m.entries.Delete(key); !present {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return nil
}

// DefaultMesh returns the mesh used for default replicated layouts, or nil.
func (m *LayoutMap) DefaultMesh() *dtensor.Mesh {
	return m.defaultMesh
}

// Len returns the number of registered keys.
func (m *LayoutMap) Len() int {
	return m.entries.Len()
}

// Keys returns the registered keys in insertion order.
func (m *LayoutMap) Keys() []string {
	keys := make([]string, 0, m.entries.Len())
	for p := m.entries.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}
