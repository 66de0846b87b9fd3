// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

// Package cursor implements traversal over materialized JSON values.
package cursor

import (
	"errors"
	"fmt"

	"github.com/creachadair/odatajson/ast"
)

var (
	// ErrNotFound is reported when a path names an object member or array
	// element that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrWrongType is reported when a path step does not apply to the value
	// it is applied to, or the value at the end of a path is not of the
	// requested type.
	ErrWrongType = errors.New("wrong type")
)

// PathError reports the failure of a path traversal.
type PathError struct {
	Path []any // the complete path
	Step int   // the index in Path of the failed step; len(Path) for the result
	Err  error
}

// Error satisfies the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("path %v at step %d: %v", e.Path, e.Step, e.Err)
}

// Unwrap supports error wrapping.
func (e *PathError) Unwrap() error { return e.Err }

// Path traverses path into the structure of v, as for Cursor.Down, and
// returns the resulting value as a T. If the path ends on an object member,
// the member's value is returned unless T is *ast.Member.
//
// If a step fails, or the result is not a T, Path reports a *PathError.
func Path[T ast.Value](v ast.Value, path ...any) (T, error) {
	var zero T
	c := New(v).Down(path...)
	if err := c.Err(); err != nil {
		return zero, err
	}
	cur := c.Value()
	if t, ok := cur.(T); ok {
		return t, nil
	}
	if m, ok := cur.(*ast.Member); ok {
		if t, ok := m.Value.(T); ok {
			return t, nil
		}
		cur = m.Value
	}
	return zero, &PathError{
		Path: path,
		Step: len(path),
		Err:  fmt.Errorf("%w: got %T, want %T", ErrWrongType, cur, zero),
	}
}

// A Cursor is a pointer that navigates into the structure of an ast.Value.
// The cursor records the values it passed through, so that it can be moved
// back up.
type Cursor struct {
	org ast.Value
	stk []ast.Value
	err error
}

// New constructs a new Cursor to traverse the structure of origin.
func New(origin ast.Value) *Cursor { return &Cursor{org: origin} }

// Origin returns the origin value of c.
func (c *Cursor) Origin() ast.Value { return c.org }

// AtOrigin reports whether c is at its origin.
func (c *Cursor) AtOrigin() bool { return len(c.stk) == 0 }

// Value reports the current value under the cursor.
func (c *Cursor) Value() ast.Value {
	if n := len(c.stk); n != 0 {
		return c.stk[n-1]
	}
	return c.org
}

// Err reports the error from the most recent call to Down, if any. A non-nil
// error has concrete type *PathError.
func (c *Cursor) Err() error { return c.err }

// Up moves the cursor one position upward in the structure, if possible.
// It returns c to permit chaining.
func (c *Cursor) Up() *Cursor {
	if n := len(c.stk); n > 0 {
		c.stk = c.stk[:n-1]
	}
	return c
}

// Reset resets the cursor to its origin and clears its error.
func (c *Cursor) Reset() { c.stk = c.stk[:0]; c.err = nil }

// Down traverses a sequential path into the structure of c starting from the
// current value. A string step selects the member of an object with that key,
// and subsequent steps continue from the value of that member. An int step
// selects an element of an array; negative indices count backward from the
// end (-1 is last).
//
// If a step fails, traversal stops at the last value reached and Err reports
// the failure.
func (c *Cursor) Down(path ...any) *Cursor {
	c.err = nil
	for i, elt := range path {
		if m, ok := c.Value().(*ast.Member); ok {
			c.stk = append(c.stk, m.Value)
		}
		next, err := step(c.Value(), elt)
		if err != nil {
			c.err = &PathError{Path: path, Step: i, Err: err}
			break
		}
		c.stk = append(c.stk, next)
	}
	return c
}

// step applies a single path element to v.
func step(v ast.Value, elt any) (ast.Value, error) {
	switch t := elt.(type) {
	case string:
		obj, ok := v.(*ast.Object)
		if !ok {
			return nil, fmt.Errorf("%w: cannot select key %q from %T", ErrWrongType, t, v)
		}
		if m := obj.Find(t); m != nil {
			return m, nil
		}
		return nil, fmt.Errorf("key %q %w", t, ErrNotFound)

	case int:
		arr, ok := v.(*ast.Array)
		if !ok {
			return nil, fmt.Errorf("%w: cannot index %T", ErrWrongType, v)
		}
		n := len(arr.Values)
		if t < 0 {
			t += n
		}
		if t < 0 || t >= n {
			return nil, fmt.Errorf("index %d %w (n=%d)", t, ErrNotFound, n)
		}
		return arr.Values[t], nil
	}
	return nil, fmt.Errorf("invalid path element %T", elt)
}
