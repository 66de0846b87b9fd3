// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package reader

import (
	"fmt"
	"io"

	"github.com/creachadair/mds/mapset"
	"github.com/creachadair/odatajson/ast"
	"github.com/creachadair/odatajson/edm"
	"github.com/creachadair/odatajson/jsonreader"
)

// ParameterReader reads the parameter values of an operation invocation, one
// at a time.
type ParameterReader struct {
	src     Source
	op      *edm.Operation
	started bool
	seen    mapset.Set[string]
	err     error
}

// NewParameterReader constructs a reader for the parameters of op, which
// must not be nil.
func NewParameterReader(src Source, op *edm.Operation) *ParameterReader {
	return &ParameterReader{src: src, op: op, seen: mapset.New[string]()}
}

// Next returns the name and value of the next parameter. It reports io.EOF
// after the last parameter, once the payload has been consumed. An empty
// payload has no parameters.
func (r *ParameterReader) Next() (string, ast.Value, error) {
	if r.err != nil {
		return "", nil, r.err
	}
	name, v, err := r.next()
	if err != nil {
		r.err = err
	}
	return name, v, err
}

func (r *ParameterReader) next() (string, ast.Value, error) {
	if !r.started {
		r.started = true
		n, err := r.src.Tokens.Peek()
		if err != nil {
			return "", nil, err
		} else if n.Type == jsonreader.EndOfInput {
			return "", nil, r.finish()
		}
		if err := r.src.Tokens.Enter(jsonreader.ObjectScope); err != nil {
			return "", nil, err
		}
	}
	for {
		n, err := r.src.Tokens.Read()
		if err != nil {
			return "", nil, err
		}
		if n.Type == jsonreader.EndObject {
			if err := r.src.expectEnd(); err != nil {
				return "", nil, err
			}
			return "", nil, r.finish()
		} else if n.Type != jsonreader.Property {
			return "", nil, jsonreader.Unexpected(n, "parameter")
		}
		v, err := jsonreader.ReadValue(r.src.Tokens)
		if err != nil {
			return "", nil, err
		}

		// Annotations of the payload and of individual parameters carry no
		// parameter values.
		if _, term := r.src.splitName(n.Name); term != "" {
			continue
		}
		p := r.op.FindParameter(n.Name)
		if p == nil {
			return "", nil, fmt.Errorf("%w: parameter %q of %s", ErrUndeclared, n.Name, r.op.FullName())
		} else if r.seen.Has(n.Name) {
			return "", nil, malformedf("duplicate parameter %q at %s", n.Name, n.Loc.First)
		} else if err := checkValue(n.Name, p.Type, v); err != nil {
			return "", nil, err
		}
		r.seen.Add(n.Name)
		return n.Name, v, nil
	}
}

// finish checks that every required parameter was given, and returns io.EOF
// if so.
func (r *ParameterReader) finish() error {
	for _, p := range r.op.PayloadParameters() {
		if !p.Type.Nullable && !r.seen.Has(p.Name) {
			return fmt.Errorf("%w: missing parameter %q of %s", ErrInvalidValue, p.Name, r.op.FullName())
		}
	}
	return io.EOF
}

// Finished satisfies the Finisher interface.
func (r *ParameterReader) Finished() bool { return r.err != nil }
