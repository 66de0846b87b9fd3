// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package reader

import (
	"fmt"
	"io"

	"github.com/creachadair/odatajson/ast"
	"github.com/creachadair/odatajson/ast/cursor"
	"github.com/creachadair/odatajson/jsonreader"
)

// A BatchPart is one request or response of a JSON batch payload.
type BatchPart struct {
	ID             string
	AtomicityGroup string
	DependsOn      []string

	Method string // requests only
	URL    string // requests only
	Status int    // responses only

	Headers map[string]string
	Body    ast.Value // nil if the part has no body
}

// BatchReader reads the parts of a JSON batch payload, one at a time. A
// request payload lists its parts in a "requests" array, a response payload
// in a "responses" array.
type BatchReader struct {
	src     Source
	started bool
	err     error
	ann     map[string]ast.Value
}

// NewBatchReader constructs a reader for a JSON batch payload.
func NewBatchReader(src Source) *BatchReader {
	return &BatchReader{src: src, ann: make(map[string]ast.Value)}
}

func (r *BatchReader) partsName() string {
	if r.src.Response {
		return "responses"
	}
	return "requests"
}

// Next returns the next part of the batch. It reports io.EOF after the last
// part, once the rest of the payload has been consumed.
func (r *BatchReader) Next() (*BatchPart, error) {
	if r.err != nil {
		return nil, r.err
	}
	p, err := r.next()
	if err != nil {
		r.err = err
	}
	return p, err
}

func (r *BatchReader) next() (*BatchPart, error) {
	if !r.started {
		r.started = true
		if err := r.open(); err != nil {
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
	return r.partFromValue(v)
}

// open consumes the batch payload through the start of its parts array.
func (r *BatchReader) open() error {
	if err := r.src.enterTop(); err != nil {
		return err
	}
	want := r.partsName()
	for {
		n, err := r.src.Tokens.Read()
		if err != nil {
			return err
		} else if n.Type == jsonreader.EndObject {
			return malformedf("batch has no %q", want)
		} else if n.Type != jsonreader.Property {
			return jsonreader.Unexpected(n, "property")
		}
		if n.Name == want {
			return r.src.Tokens.Enter(jsonreader.ArrayScope)
		}
		prop, term := r.src.splitName(n.Name)
		if prop != "" {
			return malformedf("unexpected property %q in batch at %s", n.Name, n.Loc.First)
		}
		v, err := jsonreader.ReadValue(r.src.Tokens)
		if err != nil {
			return err
		}
		r.ann[term] = v
	}
}

func (r *BatchReader) partFromValue(v ast.Value) (*BatchPart, error) {
	if _, ok := v.(*ast.Object); !ok {
		return nil, malformedf("batch part: got %s, want object", v.JSON())
	}
	p := &BatchPart{
		ID:             stringAt(v, "id"),
		AtomicityGroup: stringAt(v, "atomicityGroup"),
		Method:         stringAt(v, "method"),
		URL:            stringAt(v, "url"),
	}
	if p.ID == "" {
		return nil, malformedf("batch part at %v has no id", v.Span())
	}
	deps, ok, err := optional[*ast.Array](v, "dependsOn")
	if err != nil {
		return nil, err
	} else if ok {
		for i, d := range deps.Values {
			s, err := stringValue(fmt.Sprintf("dependsOn[%d]", i), d)
			if err != nil {
				return nil, err
			}
			p.DependsOn = append(p.DependsOn, s)
		}
	}
	hdr, ok, err := optional[*ast.Object](v, "headers")
	if err != nil {
		return nil, err
	} else if ok {
		p.Headers = make(map[string]string)
		for _, m := range hdr.Members {
			s, err := stringValue("header "+m.Key, m.Value)
			if err != nil {
				return nil, err
			}
			p.Headers[m.Key] = s
		}
	}
	if body, err := cursor.Path[*ast.Member](v, "body"); err == nil {
		p.Body = body.Value
	}

	if r.src.Response {
		num, err := cursor.Path[*ast.Number](v, "status")
		if err != nil {
			return nil, malformedf("batch response %q has no status", p.ID)
		}
		code, ok := num.Value.(int32)
		if !ok || code < 100 || code > 599 {
			return nil, malformedf("batch response %q has invalid status %s", p.ID, num.JSON())
		}
		p.Status = int(code)
	} else if p.Method == "" || p.URL == "" {
		return nil, malformedf("batch request %q requires method and url", p.ID)
	}
	return p, nil
}

// Annotations returns the instance annotations of the batch read so far.
func (r *BatchReader) Annotations() map[string]ast.Value { return r.ann }

// Finished satisfies the Finisher interface.
func (r *BatchReader) Finished() bool { return r.err != nil }
