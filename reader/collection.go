// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package reader

import (
	"fmt"
	"io"

	"github.com/creachadair/odatajson/ast"
	"github.com/creachadair/odatajson/edm"
	"github.com/creachadair/odatajson/jsonreader"
)

// CollectionReader reads the items of a collection of primitive or complex
// values, one at a time.
type CollectionReader struct {
	src     Source
	item    *edm.TypeRef
	started bool
	n       int
	err     error
	ann     map[string]ast.Value
}

// NewCollectionReader constructs a reader for a collection whose items have
// the given type. If item is nil, items are not checked.
func NewCollectionReader(src Source, item *edm.TypeRef) *CollectionReader {
	if item != nil {
		elt := item.Element()
		item = &elt
	}
	return &CollectionReader{src: src, item: item, ann: make(map[string]ast.Value)}
}

// Next returns the next item of the collection. It reports io.EOF after the
// last item, once the rest of the payload has been consumed.
func (r *CollectionReader) Next() (ast.Value, error) {
	if r.err != nil {
		return nil, r.err
	}
	v, err := r.next()
	if err != nil {
		r.err = err
	}
	return v, err
}

func (r *CollectionReader) next() (ast.Value, error) {
	if !r.started {
		r.started = true
		if err := r.src.openValue(r.ann); err != nil {
			return nil, err
		}
	}
	n, err := r.src.Tokens.Peek()
	if err != nil {
		return nil, err
	}
	if n.Type == jsonreader.EndArray {
		if err := r.src.Tokens.Exit(jsonreader.ArrayScope); err != nil {
			return nil, err
		} else if err := r.src.closeValue(r.ann); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	v, err := jsonreader.ReadValue(r.src.Tokens)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(*ast.Array); ok {
		return nil, malformedf("nested collection at %s", n.Loc.First)
	}
	if r.item != nil {
		if err := checkValue(fmt.Sprintf("item %d", r.n), *r.item, v); err != nil {
			return nil, err
		}
	}
	r.n++
	return v, nil
}

// Annotations returns the instance annotations of the collection read so
// far. Annotations that follow the items are present once Next has reported
// io.EOF.
func (r *CollectionReader) Annotations() map[string]ast.Value { return r.ann }

// Finished satisfies the Finisher interface.
func (r *CollectionReader) Finished() bool { return r.err != nil }
