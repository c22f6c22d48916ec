// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package track walks object graphs of model components. A component
// exposes its attribute tree through the Node capability; the walker
// produces stable paths for every matching leaf and can write a
// replacement value back through the same path.
package track

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedLeaf is returned when a path lands on a position that
// cannot be assigned, e.g. an index into an immutable sequence.
var ErrUnsupportedLeaf = errors.New("leaf is not assignable")

// Segment is one step in an object path: a named attribute or an integer
// index into a sequence-valued attribute.
type Segment struct {
	name    string
	index   int
	indexed bool
}

// Attr creates a named-attribute segment.
func Attr(name string) Segment {
	return Segment{name: name}
}

// Index creates an integer-index segment.
func Index(i int) Segment {
	return Segment{index: i, indexed: true}
}

// IsIndex reports whether the segment is an integer index.
func (s Segment) IsIndex() bool {
	return s.indexed
}

// Name returns the attribute name of a named segment.
func (s Segment) Name() string {
	return s.name
}

// Idx returns the index of an index segment.
func (s Segment) Idx() int {
	return s.index
}

// String stringifies the segment; index segments render as decimal.
func (s Segment) String() string {
	if s.indexed {
		return strconv.Itoa(s.index)
	}
	return s.name
}

// Path is an ordered sequence of segments from a root object to a leaf.
type Path []Segment

// Key renders the path to the dot-joined string form used for registry
// lookup, e.g. "d1.trainableVars.0".
func (p Path) Key() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// ContainsAttr reports whether any segment is a named attribute in names.
func (p Path) ContainsAttr(names map[string]bool) bool {
	for _, s := range p {
		if !s.indexed && names[s.name] {
			return true
		}
	}
	return false
}

// Clone returns a copy of the path.
func (p Path) Clone() Path {
	return append(Path(nil), p...)
}

// Edge is one child of a node: the segment addressing it plus its value.
type Edge struct {
	Seg   Segment
	Value any
}

// Node is implemented by objects exposing their attribute tree. Sequence
// attributes are represented by a child that is itself a Node emitting
// index-segment edges.
type Node interface {
	Children() []Edge
}

// Setter is implemented by nodes whose children can be reassigned. Nodes
// without Setter are read-only; writing through them fails with
// ErrUnsupportedLeaf.
type Setter interface {
	SetChild(seg Segment, v any) error
}

// Found is a (path, leaf) pair produced by Flatten.
type Found struct {
	Path Path
	Leaf any
}

// Flatten walks the graph depth-first from root and returns a (path, leaf)
// pair for every reachable value satisfying pred. Matching values are not
// recursed into. The same underlying leaf may be reported under several
// paths when the graph aliases it.
func Flatten(root any, pred func(any) bool) []Found {
	var out []Found
	var walk func(p Path, v any)
	walk = func(p Path, v any) {
		if pred(v) {
			out = append(out, Found{Path: p.Clone(), Leaf: v})
			return
		}
		node, ok := v.(Node)
		if !ok {
			return
		}
		for _, e := range node.Children() {
			walk(append(p, e.Seg), e.Value)
		}
	}
	if pred(root) {
		return []Found{{Path: Path{}, Leaf: root}}
	}
	if node, ok := root.(Node); ok {
		for _, e := range node.Children() {
			walk(Path{e.Seg}, e.Value)
		}
	}
	return out
}

// Visit calls fn for root and every descendant node, depth-first. Leaves
// that are not Nodes are visited but not recursed into.
func Visit(root any, fn func(any)) {
	fn(root)
	node, ok := root.(Node)
	if !ok {
		return
	}
	for _, e := range node.Children() {
		Visit(e.Value, fn)
	}
}

// SetByPath assigns v at path p under root. The parent of the final
// segment must implement Setter.
func SetByPath(root any, p Path, v any) error {
	if len(p) == 0 {
		return fmt.Errorf("set by path: empty path")
	}
	cur := root
	for i := 0; i < len(p)-1; i++ {
		next, err := childBySegment(cur, p[i])
		if err != nil {
			return fmt.Errorf("set by path %q: %w", p.Key(), err)
		}
		cur = next
	}
	setter, ok := cur.(Setter)
	if !ok {
		return fmt.Errorf("set by path %q: %w", p.Key(), ErrUnsupportedLeaf)
	}
	if err := setter.SetChild(p[len(p)-1], v); err != nil {
		return fmt.Errorf("set by path %q: %w", p.Key(), err)
	}
	return nil
}

func childBySegment(v any, seg Segment) (any, error) {
	node, ok := v.(Node)
	if !ok {
		return nil, fmt.Errorf("segment %q: value is not traversable", seg)
	}
	for _, e := range node.Children() {
		if e.Seg == seg {
			return e.Value, nil
		}
	}
	return nil, fmt.Errorf("segment %q not found", seg)
}
