// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jsonreader

import (
	"fmt"
	"io"

	"github.com/creachadair/odatajson"
	"github.com/creachadair/odatajson/ast"
)

// ReadValue consumes the next complete value from r and returns it.
func ReadValue(r Reader) (ast.Value, error) { return decode(r.Read) }

// SkipValue consumes the next complete value from r and discards it.
func SkipValue(r Reader) error {
	level := 0
	for {
		n, err := r.Read()
		if err != nil {
			return err
		}
		switch n.Type {
		case StartObject, StartArray:
			level++
		case EndObject, EndArray:
			level--
		case Property:
			continue
		case EndOfInput:
			return Unexpected(n, "value")
		}
		if level == 0 {
			return nil
		}
	}
}

// Parse parses a single JSON value from r.
func Parse(r io.Reader) (ast.Value, error) {
	br := NewBuffering(odatajson.NewScanner(r), "", 0)
	v, err := ReadValue(br)
	if err != nil {
		return nil, err
	}
	if n, err := br.Read(); err != nil {
		return nil, err
	} else if n.Type != EndOfInput {
		return nil, Unexpected(n, EndOfInput.String())
	}
	return v, nil
}

func decode(next func() (Node, error)) (ast.Value, error) {
	n, err := next()
	if err != nil {
		return nil, err
	}
	switch n.Type {
	case Value:
		return primitive(n), nil

	case StartObject:
		var ms []*ast.Member
		for {
			m, err := next()
			if err != nil {
				return nil, err
			} else if m.Type == EndObject {
				return ast.NewObject(spanOf(n, m), ms...), nil
			} else if m.Type != Property {
				return nil, Unexpected(m, "property or end of object")
			}
			v, err := decode(next)
			if err != nil {
				return nil, err
			}
			ms = append(ms, ast.NewMember(odatajson.Span{Pos: m.Loc.Pos, End: v.Span().End}, m.Name, v))
		}

	case StartArray:
		var vs []ast.Value
		for {
			e, err := next()
			if err != nil {
				return nil, err
			} else if e.Type == EndArray {
				return ast.NewArray(spanOf(n, e), vs...), nil
			}
			v, err := decode(prepend(e, next))
			if err != nil {
				return nil, err
			}
			vs = append(vs, v)
		}

	default:
		return nil, Unexpected(n, "value")
	}
}

// prepend returns a function that reports n, followed by the results of next.
func prepend(n Node, next func() (Node, error)) func() (Node, error) {
	used := false
	return func() (Node, error) {
		if !used {
			used = true
			return n, nil
		}
		return next()
	}
}

func spanOf(first, last Node) odatajson.Span {
	return odatajson.Span{Pos: first.Loc.Pos, End: last.Loc.End}
}

func primitive(n Node) ast.Value {
	span := n.Loc.Span
	switch v := n.Value.(type) {
	case nil:
		return ast.NewNull(span)
	case string:
		return ast.NewString(span, v)
	case bool:
		return ast.NewBool(span, v)
	case int32, int64, float64:
		num := ast.NewNumber(span, v)
		num.Literal = n.Text
		return num
	default:
		return ast.NewString(span, fmt.Sprint(v))
	}
}
