// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package reader

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/creachadair/odatajson/ast"
	"github.com/creachadair/odatajson/edm"
	"github.com/creachadair/odatajson/jsonreader"
)

// A Resource is an entity or complex instance read from a payload.
type Resource struct {
	// Type is the structured type of the resource: the type named by its
	// @odata.type annotation if the model declares it, otherwise the expected
	// type. It is nil if neither is known.
	Type *edm.StructuredType

	// TypeName is the type named by @odata.type, without the leading "#", or
	// the name of the expected type.
	TypeName string

	ID   string // @odata.id
	ETag string // @odata.etag

	// Removed is the value of the @removed annotation of a deleted resource
	// in a delta payload, or nil.
	Removed *ast.Object

	Properties []Property

	// Annotations are the instance annotations of the resource, by term.
	Annotations map[string]ast.Value
}

// Find returns the property of r with the given name, or nil.
func (r *Resource) Find(name string) *Property {
	for i, p := range r.Properties {
		if p.Name == name {
			return &r.Properties[i]
		}
	}
	return nil
}

// A Property is a named value with its annotations. The Value is nil for a
// property that has only annotations, such as an unexpanded navigation link.
type Property struct {
	Name        string
	Value       ast.Value
	Annotations map[string]ast.Value
}

// resourceOpts control how the members of a resource are read.
type resourceOpts struct {
	delta    bool // nested deltas and removed markers are permitted
	topLevel bool // the resource is the outermost object of the payload
	deleted  bool // the resource is a deleted entry of a delta payload
}

// readResourceBody reads the members of a resource whose opening brace has
// been consumed, through its closing brace.
func (s Source) readResourceBody(expected *edm.StructuredType, opts resourceOpts) (*Resource, error) {
	res := &Resource{Type: expected, Annotations: make(map[string]ast.Value)}
	if expected != nil {
		res.TypeName = expected.FullName()
	}
	sk, canSeek := s.Tokens.(jsonreader.Seeker)
	if canSeek {
		if v, err := s.seekAnnotation(sk, "odata.type"); err == nil {
			if err := s.setType(res, expected, v); err != nil {
				return nil, err
			}
		} else if !errors.Is(err, jsonreader.ErrNotFound) {
			return nil, err
		}
	}

	var sawData, typed bool
	propAnn := make(map[string]map[string]ast.Value)
	for {
		n, err := s.Tokens.Read()
		if err != nil {
			return nil, err
		}
		if n.Type == jsonreader.EndObject {
			break
		} else if n.Type != jsonreader.Property {
			return nil, jsonreader.Unexpected(n, "property")
		}
		v, err := jsonreader.ReadValue(s.Tokens)
		if err != nil {
			return nil, err
		}

		prop, term := s.splitName(n.Name)
		switch {
		case prop == "":
			if err := s.resourceAnnotation(res, expected, term, v, opts); err != nil {
				return nil, err
			}
			if term == "odata.type" && !canSeek {
				if sawData {
					return nil, fmt.Errorf("%w: @odata.type at %s", ErrAnnotationOrder, n.Loc.First)
				} else if !typed {
					if err := s.setType(res, expected, v); err != nil {
						return nil, err
					}
				}
				typed = true
			}

		case term != "":
			if term == "odata.delta" && !opts.delta {
				return nil, malformedf("delta value for %q at %s is not permitted here", prop, n.Loc.First)
			}
			if propAnn[prop] == nil {
				propAnn[prop] = make(map[string]ast.Value)
			}
			propAnn[prop][term] = v

		default:
			sawData = true
			if err := checkProperty(res.Type, prop, v); err != nil {
				return nil, err
			}
			res.Properties = append(res.Properties, Property{Name: prop, Value: v})
		}
	}

	for i, p := range res.Properties {
		if ann, ok := propAnn[p.Name]; ok {
			res.Properties[i].Annotations = ann
			delete(propAnn, p.Name)
		}
	}
	for name, ann := range propAnn {
		res.Properties = append(res.Properties, Property{Name: name, Annotations: ann})
	}
	return res, s.checkRequired(res, opts)
}

// resourceAnnotation records an instance annotation of res.
func (s Source) resourceAnnotation(res *Resource, expected *edm.StructuredType, term string, v ast.Value, opts resourceOpts) error {
	var err error
	switch term {
	case "odata.id":
		res.ID, err = stringValue("@odata.id", v)
	case "odata.etag":
		res.ETag, err = stringValue("@odata.etag", v)
	case "odata.removed":
		obj, ok := v.(*ast.Object)
		if !opts.delta {
			return malformedf("@removed is only permitted in a delta payload")
		} else if !ok {
			return malformedf("@removed: got %s, want object", v.JSON())
		}
		res.Removed = obj
	}
	if err != nil {
		return err
	}
	res.Annotations[term] = v
	return nil
}

// setType resolves a type annotation v of res against the model.
func (s Source) setType(res *Resource, expected *edm.StructuredType, v ast.Value) error {
	name, err := stringValue("@odata.type", v)
	if err != nil {
		return err
	}
	name = strings.TrimPrefix(name, "#")
	typ := s.Model.FindType(name)
	if typ == nil && s.Model.IsUserModel() {
		return fmt.Errorf("%w: unknown type %q", ErrTypeMismatch, name)
	} else if typ != nil && expected != nil && !typ.IsOrInheritsFrom(expected) {
		return fmt.Errorf("%w: %s is not derived from %s", ErrTypeMismatch, name, expected.FullName())
	}
	res.TypeName = name
	if typ != nil {
		res.Type = typ
	}
	return nil
}

// checkRequired checks res for the control annotations its metadata level
// requires.
func (s Source) checkRequired(res *Resource, opts resourceOpts) error {
	if !s.Response {
		return nil
	}
	if opts.topLevel {
		if err := s.requireContext(res.Annotations); err != nil {
			return err
		}
	}
	if res.Removed != nil || opts.deleted {
		return nil
	}
	for _, term := range []string{"odata.type", "odata.id"} {
		if term == "odata.id" && res.Type != nil && !res.Type.IsEntity() {
			continue
		}
		if _, ok := res.Annotations[term]; !ok && s.Level.Requires(term, opts.topLevel) {
			return fmt.Errorf("%w: @%s", ErrMissingAnnotation, term)
		}
	}
	return nil
}

// checkProperty checks a data property against the declaration of typ.
func checkProperty(typ *edm.StructuredType, name string, v ast.Value) error {
	if typ == nil {
		return nil
	}
	p := typ.FindProperty(name)
	if p == nil {
		if typ.Open {
			return nil
		}
		return fmt.Errorf("%w: property %q of %s", ErrUndeclared, name, typ.FullName())
	}
	return checkValue(name, p.Type, v)
}

// ResourceReader reads a single top-level resource.
type ResourceReader struct {
	src  Source
	typ  *edm.StructuredType
	opts resourceOpts
	done bool
}

// NewResourceReader constructs a reader for a single resource of the element
// type of nav, or of typ if it is not nil. If delta is true, the resource may
// contain nested delta values and removed markers.
func NewResourceReader(src Source, nav *edm.NavigationSource, typ *edm.StructuredType, delta bool) *ResourceReader {
	if typ == nil && nav != nil {
		typ = nav.ElementType
	}
	return &ResourceReader{src: src, typ: typ, opts: resourceOpts{delta: delta, topLevel: true}}
}

// Read reads the resource. After the first call, Read reports io.EOF.
func (r *ResourceReader) Read() (*Resource, error) {
	if r.done {
		return nil, io.EOF
	}
	r.done = true
	if err := r.src.enterTop(); err != nil {
		return nil, err
	}
	res, err := r.src.readResourceBody(r.typ, r.opts)
	if err != nil {
		return nil, err
	}
	return res, r.src.expectEnd()
}

// Finished satisfies the Finisher interface.
func (r *ResourceReader) Finished() bool { return r.done }
