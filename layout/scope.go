// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package layout

import (
	"log/slog"
	"sync"
)

// Scope is an explicit, caller-owned stack of active layout maps. While at
// least one map is entered, variable construction threaded through the
// scope is deferred: layers produce lazy placeholders instead of realized
// variables.
//
// A Scope is owned by the goroutine constructing the model, so independent
// builds on different goroutines use independent scopes and cannot observe
// each other's state. The mutex exists so that accidental sharing corrupts
// nothing.
type Scope struct {
	mu      sync.Mutex
	stack   []*LayoutMap
	suspend int
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Enter pushes a layout map, making it current and switching variable
// construction to deferred mode. The returned exit function pops the map
// and restores the enclosing state; it must run even when the scoped block
// fails, so call it with defer:
//
//	exit := scope.Enter(lm)
//	defer exit()
//
// Scopes nest: entering inside an active scope stacks, and exit restores
// the enclosing map rather than clearing it. The exit function is
// idempotent.
func (s *Scope) Enter(m *LayoutMap) (exit func()) {
	s.mu.Lock()
	s.stack = append(s.stack, m)
	depth := len(s.stack)
	s.mu.Unlock()
	slog.Debug("entered layout scope", "depth", depth)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.stack = s.stack[:len(s.stack)-1]
			depth := len(s.stack)
			s.mu.Unlock()
			slog.Debug("exited layout scope", "depth", depth)
		})
	}
}

// Current returns the innermost active layout map, or nil outside any
// scope.
func (s *Scope) Current() *LayoutMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

// Depth returns the nesting depth.
func (s *Scope) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stack)
}

// Deferred reports whether variable construction is currently deferred:
// inside at least one scope and not suspended.
func (s *Scope) Deferred() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stack) > 0 && s.suspend == 0
}

// SuspendDeferred temporarily disables deferred construction without
// leaving the scope. The materializer uses this while running a
// placeholder's initializer, so an initializer that itself creates
// variables realizes them instead of recursing into placeholder creation.
// The returned resume function re-enables deferral and is idempotent.
func (s *Scope) SuspendDeferred() (resume func()) {
	s.mu.Lock()
	s.suspend++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.suspend--
			s.mu.Unlock()
		})
	}
}
