// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package edm

import (
	"fmt"
	"strings"
)

// A TypeRef is a reference to a primitive or structured type, or a
// collection of one.
type TypeRef struct {
	Name       string // e.g., "Edm.String" or "NS.Address"
	Collection bool
	Nullable   bool
}

// ParseTypeRef parses a type name of the form "NS.T" or "Collection(NS.T)".
// The result is nullable.
func ParseTypeRef(s string) (TypeRef, error) {
	s = strings.TrimSpace(s)
	if inner, ok := strings.CutPrefix(s, "Collection("); ok {
		name, ok := strings.CutSuffix(inner, ")")
		if !ok || name == "" {
			return TypeRef{}, fmt.Errorf("invalid collection type %q", s)
		}
		return TypeRef{Name: name, Collection: true, Nullable: true}, nil
	}
	if s == "" || strings.ContainsAny(s, "() ") {
		return TypeRef{}, fmt.Errorf("invalid type name %q", s)
	}
	return TypeRef{Name: s, Nullable: true}, nil
}

func (r TypeRef) String() string {
	if r.Collection {
		return "Collection(" + r.Name + ")"
	}
	return r.Name
}

// Element returns the element type of a collection reference, or r itself.
func (r TypeRef) Element() TypeRef {
	r.Collection = false
	return r
}

// IsPrimitive reports whether r names a primitive type in the Edm namespace.
func (r TypeRef) IsPrimitive() bool { return strings.HasPrefix(r.Name, "Edm.") }

// Accepts reports whether v, a primitive value produced by a token source,
// is a valid value of the non-collection primitive type r. Numeric types
// accept their string forms, as IEEE754-compatible payloads use them.
func (r TypeRef) Accepts(v any) bool {
	if v == nil {
		return r.Nullable
	}
	if r.Collection || !r.IsPrimitive() {
		return false
	}
	switch r.Name {
	case "Edm.Boolean":
		_, ok := v.(bool)
		return ok
	case "Edm.Byte", "Edm.SByte", "Edm.Int16", "Edm.Int32":
		_, ok := v.(int32)
		return ok
	case "Edm.Int64", "Edm.Decimal":
		switch v.(type) {
		case int32, int64, string:
			return true
		case float64:
			return r.Name == "Edm.Decimal"
		}
		return false
	case "Edm.Single", "Edm.Double":
		switch t := v.(type) {
		case int32, int64, float64:
			return true
		case string:
			return t == "INF" || t == "-INF" || t == "NaN"
		}
		return false
	default:
		// String, Guid, Date, DateTimeOffset, Duration, Binary, and the rest
		// are all carried as JSON strings.
		_, ok := v.(string)
		return ok
	}
}
