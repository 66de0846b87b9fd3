// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jsonreader

import "github.com/creachadair/odatajson"

// Buffering is a Reader that consumes its input lazily and in physical order.
// It reads ahead only as far as a Peek or Lookahead requires, and when it
// enters the top-level object it peeks at the first member to decide whether
// the payload is an error payload.
type Buffering struct {
	q       nodeQueue
	errProp string
	depth   int
	checked bool
	inError bool
}

// NewBuffering constructs a Buffering reader over src. If errorProperty is
// not empty, a top-level object whose first member has that name is reported
// by InError. If maxDepth > 0, nesting beyond maxDepth is an error.
func NewBuffering(src odatajson.TokenSource, errorProperty string, maxDepth int) *Buffering {
	return &Buffering{q: nodeQueue{p: newParser(src, maxDepth)}, errProp: errorProperty}
}

// Peek satisfies part of the Reader interface.
func (b *Buffering) Peek() (Node, error) { return b.q.peek() }

// Read satisfies part of the Reader interface.
func (b *Buffering) Read() (Node, error) {
	n, err := b.q.pull()
	if err != nil {
		return Node{}, err
	}
	switch n.Type {
	case StartObject, StartArray:
		b.depth++
	case EndObject, EndArray:
		b.depth--
	}
	if n.Type == StartObject && b.depth == 1 && !b.checked {
		b.checked = true
		b.detectError()
	}
	return n, nil
}

func (b *Buffering) detectError() {
	if b.errProp == "" {
		return
	}
	// A failure here is sticky in the parser and will be reported by the
	// next call to Peek or Read.
	if next, err := b.q.peek(); err == nil && next.Type == Property && next.Name == b.errProp {
		b.inError = true
	}
}

// InError satisfies the ErrorDetector interface.
func (b *Buffering) InError() bool { return b.inError }

// Enter satisfies part of the Reader interface.
func (b *Buffering) Enter(s Scope) error { return enter(b, s) }

// Exit satisfies part of the Reader interface.
func (b *Buffering) Exit(s Scope) error { return exit(b, s) }

// Depth satisfies part of the Reader interface.
func (b *Buffering) Depth() int { return b.depth }

// Lookahead satisfies part of the Reader interface. The members of the object
// are buffered until the consumer reads them.
func (b *Buffering) Lookahead() (*Members, error) { return b.q.lookahead() }

// Abort satisfies part of the Reader interface.
func (b *Buffering) Abort(err error) { b.q.abort(err) }

func enter(r Reader, s Scope) error {
	n, err := r.Peek()
	if err != nil {
		return err
	} else if n.Type != s.start() {
		return Unexpected(n, s.start().String())
	}
	_, err = r.Read()
	return err
}

func exit(r Reader, s Scope) error {
	n, err := r.Peek()
	if err != nil {
		return err
	} else if n.Type != s.end() {
		return Unexpected(n, s.end().String())
	}
	_, err = r.Read()
	return err
}
