// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

// Package ast defines materialized JSON values.
//
// Values are built by the jsonreader package from the nodes of a payload, for
// example when a reordering reader looks up an object member by name. The
// concrete type of a Value is one of *Object, *Member, *Array, *String,
// *Number, *Bool, or *Null.
package ast

import (
	"strconv"
	"strings"

	"github.com/creachadair/odatajson"
)

// A Value is an arbitrary JSON value.
type Value interface {
	// Span reports the location of the value in the source text.
	Span() odatajson.Span

	// JSON renders the value as compact JSON text.
	JSON() string
}

type located struct{ span odatajson.Span }

// Span satisfies part of the Value interface.
func (l located) Span() odatajson.Span { return l.span }

// An Object is a collection of key-value members, in input order.
type Object struct {
	located
	Members []*Member
}

// NewObject constructs an object with the given members.
func NewObject(span odatajson.Span, ms ...*Member) *Object {
	return &Object{located: located{span}, Members: ms}
}

// Find returns the first member of o with the given key, or nil.
func (o *Object) Find(key string) *Member {
	for _, m := range o.Members {
		if m.Key == key {
			return m
		}
	}
	return nil
}

// Keys returns the keys of o in input order.
func (o *Object) Keys() []string {
	keys := make([]string, len(o.Members))
	for i, m := range o.Members {
		keys[i] = m.Key
	}
	return keys
}

// JSON satisfies the Value interface.
func (o *Object) JSON() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, m := range o.Members {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(m.JSON())
	}
	sb.WriteByte('}')
	return sb.String()
}

// A Member is a single key-value pair belonging to an Object.
type Member struct {
	located
	Key   string
	Value Value
}

// NewMember constructs a member with the given key and value.
func NewMember(span odatajson.Span, key string, v Value) *Member {
	return &Member{located: located{span}, Key: key, Value: v}
}

// JSON satisfies the Value interface.
func (m *Member) JSON() string { return odatajson.Quote(m.Key) + ":" + m.Value.JSON() }

// An Array is a sequence of values.
type Array struct {
	located
	Values []Value
}

// NewArray constructs an array with the given elements.
func NewArray(span odatajson.Span, vs ...Value) *Array {
	return &Array{located: located{span}, Values: vs}
}

// JSON satisfies the Value interface.
func (a *Array) JSON() string {
	parts := make([]string, len(a.Values))
	for i, v := range a.Values {
		parts[i] = v.JSON()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// A String is a string value, with escapes decoded.
type String struct {
	located
	Value string
}

// NewString constructs a string value.
func NewString(span odatajson.Span, s string) *String {
	return &String{located: located{span}, Value: s}
}

// JSON satisfies the Value interface.
func (s *String) JSON() string { return odatajson.Quote(s.Value) }

// A Number is a numeric value. Its Value is an int32, int64, or float64, as
// chosen by the token source.
//
// Literal is the number as written in the input, if known. A float64 Value
// may not represent it exactly, so values of Edm.Decimal should be taken
// from Literal when it is set.
type Number struct {
	located
	Value   any
	Literal string
}

// NewNumber constructs a numeric value.
func NewNumber(span odatajson.Span, v any) *Number {
	return &Number{located: located{span}, Value: v}
}

// Float64 returns the value of n as a float64.
func (n *Number) Float64() float64 {
	switch t := n.Value.(type) {
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float64:
		return t
	}
	panic("invalid number value")
}

// JSON satisfies the Value interface.
func (n *Number) JSON() string {
	switch t := n.Value.(type) {
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	}
	panic("invalid number value")
}

// A Bool is a Boolean constant, true or false.
type Bool struct {
	located
	Value bool
}

// NewBool constructs a Boolean value.
func NewBool(span odatajson.Span, v bool) *Bool {
	return &Bool{located: located{span}, Value: v}
}

// JSON satisfies the Value interface.
func (b *Bool) JSON() string { return strconv.FormatBool(b.Value) }

// Null represents the null constant.
type Null struct{ located }

// NewNull constructs a null value.
func NewNull(span odatajson.Span) *Null { return &Null{located: located{span}} }

// JSON satisfies the Value interface.
func (*Null) JSON() string { return "null" }

// Plain converts v into plain Go values: objects become map[string]any,
// arrays become []any, and primitives their Go equivalents. If an object has
// repeated keys, the first occurrence wins.
func Plain(v Value) any {
	switch t := v.(type) {
	case *Object:
		m := make(map[string]any, len(t.Members))
		for _, mem := range t.Members {
			if _, ok := m[mem.Key]; !ok {
				m[mem.Key] = Plain(mem.Value)
			}
		}
		return m
	case *Member:
		return Plain(t.Value)
	case *Array:
		out := make([]any, len(t.Values))
		for i, elt := range t.Values {
			out[i] = Plain(elt)
		}
		return out
	case *String:
		return t.Value
	case *Number:
		return t.Value
	case *Bool:
		return t.Value
	default:
		return nil
	}
}
