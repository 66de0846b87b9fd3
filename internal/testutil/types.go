// Package testutil defines support code for unit tests.
package testutil

import (
	"io"
	"strings"

	"github.com/creachadair/odatajson"
)

// CountingSource is an odatajson.TokenSource that counts the number of times
// its Next method is called.
type CountingSource struct {
	odatajson.TokenSource
	Calls int
}

// Next advances the underlying source and records the call.
func (c *CountingSource) Next() error { c.Calls++; return c.TokenSource.Next() }

// A Counter constructs counting token sources and reports the total number of
// tokens requested from all of them.
type Counter struct {
	Sources []*CountingSource
}

// New is an odatajson.TokenSourceFunc that wraps the default source.
func (c *Counter) New(r io.Reader, ieee754 bool) (odatajson.TokenSource, error) {
	src, err := odatajson.NewTokenSource(r, ieee754)
	if err != nil {
		return nil, err
	}
	cs := &CountingSource{TokenSource: src}
	c.Sources = append(c.Sources, cs)
	return cs, nil
}

// Reads reports the total number of calls to Next across all sources.
func (c *Counter) Reads() int {
	var n int
	for _, s := range c.Sources {
		n += s.Calls
	}
	return n
}

// Source returns a counting source reading the given JSON text.
func Source(text string) *CountingSource {
	return &CountingSource{TokenSource: odatajson.NewScanner(strings.NewReader(text))}
}

// Nest returns a JSON array text nested to the given depth, e.g. Nest(2)
// returns "[[]]".
func Nest(depth int) string {
	return strings.Repeat("[", depth) + strings.Repeat("]", depth)
}

// NestObject returns a JSON object text nested to the given depth, e.g.
// NestObject(2) returns `{"a":{}}`.
func NestObject(depth int) string {
	if depth <= 0 {
		return "0"
	}
	return strings.Repeat(`{"a":`, depth-1) + "{}" + strings.Repeat("}", depth-1)
}
