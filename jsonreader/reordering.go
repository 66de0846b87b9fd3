// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jsonreader

import (
	"github.com/creachadair/odatajson"
	"github.com/creachadair/odatajson/ast"
)

// Reordering is a Reader that materializes the members of each object when
// the object is entered, so that members can be found by name with Seek
// regardless of their order in the input. Read still reports the nodes in
// their original order.
//
// Materialization is per object: entering an object buffers that object's
// members, including their nested values, but nothing beyond its end.
type Reordering struct {
	q      nodeQueue
	frames []*Members // one per open scope; nil for arrays
}

// NewReordering constructs a Reordering reader over src. If maxDepth > 0,
// nesting beyond maxDepth is an error.
func NewReordering(src odatajson.TokenSource, maxDepth int) *Reordering {
	return &Reordering{q: nodeQueue{p: newParser(src, maxDepth)}}
}

// Peek satisfies part of the Reader interface.
func (r *Reordering) Peek() (Node, error) { return r.q.peek() }

// Read satisfies part of the Reader interface.
func (r *Reordering) Read() (Node, error) {
	n, err := r.q.pull()
	if err != nil {
		return Node{}, err
	}
	switch n.Type {
	case StartObject:
		nodes, m, err := collectMembers(r.q.pull)
		if err != nil {
			return Node{}, err
		}
		r.q.unread(nodes...)
		r.frames = append(r.frames, m)
	case StartArray:
		r.frames = append(r.frames, nil)
	case EndObject, EndArray:
		r.frames = r.frames[:len(r.frames)-1]
	}
	return n, nil
}

// Seek returns the value of the member of the innermost open object with the
// given name, without consuming input. It reports ErrNotInObject if the
// innermost open scope is not an object, and ErrNotFound if the object has
// no such member. After Abort, Seek reports the abort error.
func (r *Reordering) Seek(name string) (ast.Value, error) {
	if r.q.err != nil {
		return nil, r.q.err
	}
	if len(r.frames) == 0 || r.frames[len(r.frames)-1] == nil {
		return nil, ErrNotInObject
	}
	return r.frames[len(r.frames)-1].Find(name)
}

// Members returns the materialized members of the innermost open object, or
// nil if the innermost open scope is not an object.
func (r *Reordering) Members() *Members {
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

// Enter satisfies part of the Reader interface.
func (r *Reordering) Enter(s Scope) error { return enter(r, s) }

// Exit satisfies part of the Reader interface.
func (r *Reordering) Exit(s Scope) error { return exit(r, s) }

// Depth satisfies part of the Reader interface.
func (r *Reordering) Depth() int { return len(r.frames) }

// Lookahead satisfies part of the Reader interface.
func (r *Reordering) Lookahead() (*Members, error) { return r.q.lookahead() }

// Abort satisfies part of the Reader interface. Materialized members are
// discarded along with the buffered input.
func (r *Reordering) Abort(err error) {
	r.q.abort(err)
	r.frames = nil
}
