// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package reader

import (
	"io"
	"strings"

	"github.com/creachadair/odatajson"
	"github.com/creachadair/odatajson/ast"
	"github.com/creachadair/odatajson/edm"
	"github.com/creachadair/odatajson/jsonreader"
)

// SetOptions control how a resource set or delta payload is read.
type SetOptions struct {
	// Delta marks a delta payload: items may be deleted resources and, for a
	// DeltaReader, links.
	Delta bool

	// URIParameter marks a set given as a URI parameter value: a bare JSON
	// array of resources, without an enclosing object or annotations.
	URIParameter bool
}

// ItemKind identifies the kind of an item of a delta payload.
type ItemKind byte

// Constants defining the valid ItemKind values.
const (
	DeltaResource   ItemKind = iota + 1 // a new or changed resource
	DeletedResource                      // a removed resource
	DeltaLink                            // an added link
	DeletedLink                          // a removed link
)

func (k ItemKind) String() string {
	switch k {
	case DeltaResource:
		return "resource"
	case DeletedResource:
		return "deleted resource"
	case DeltaLink:
		return "link"
	case DeletedLink:
		return "deleted link"
	}
	return "invalid"
}

// A DeltaItem is a single item of a delta payload. Exactly one of Resource
// and Link is set, as indicated by Kind.
type DeltaItem struct {
	Kind     ItemKind
	Resource *Resource
	Link     *Link
}

// A Link is an added or deleted relationship between two resources.
type Link struct {
	Source       string
	Relationship string
	Target       string
}

// setReader is the common core of ResourceSetReader and DeltaReader.
type setReader struct {
	src     Source
	typ     *edm.StructuredType
	opts    SetOptions
	started bool
	err     error // sticky; io.EOF once the payload is consumed

	ann map[string]ast.Value
}

func newSetReader(src Source, nav *edm.NavigationSource, typ *edm.StructuredType, opts SetOptions) setReader {
	if typ == nil && nav != nil {
		typ = nav.ElementType
	}
	return setReader{src: src, typ: typ, opts: opts, ann: make(map[string]ast.Value)}
}

func (r *setReader) nextItem() (*DeltaItem, error) {
	if r.err != nil {
		return nil, r.err
	}
	item, err := r.readItem()
	if err != nil {
		r.err = err
	}
	return item, err
}

func (r *setReader) readItem() (*DeltaItem, error) {
	if !r.started {
		r.started = true
		var err error
		if r.opts.URIParameter {
			err = r.src.Tokens.Enter(jsonreader.ArrayScope)
		} else {
			err = r.src.openValue(r.ann)
		}
		if err != nil {
			return nil, err
		}
	}

	n, err := r.src.Tokens.Peek()
	if err != nil {
		return nil, err
	}
	switch n.Type {
	case jsonreader.EndArray:
		if err := r.src.Tokens.Exit(jsonreader.ArrayScope); err != nil {
			return nil, err
		}
		if r.opts.URIParameter {
			err = r.src.expectEnd()
		} else {
			err = r.src.closeValue(r.ann)
		}
		if err != nil {
			return nil, err
		}
		return nil, io.EOF
	case jsonreader.StartObject:
	default:
		return nil, jsonreader.Unexpected(n, "resource")
	}

	kind := DeltaResource
	if r.opts.Delta {
		m, err := r.src.Tokens.Lookahead()
		if err != nil {
			return nil, err
		}
		kind = r.classify(m)
	}
	if kind == DeltaLink || kind == DeletedLink {
		v, err := jsonreader.ReadValue(r.src.Tokens)
		if err != nil {
			return nil, err
		}
		link, err := linkFromValue(v)
		if err != nil {
			return nil, err
		}
		return &DeltaItem{Kind: kind, Link: link}, nil
	}

	// Deleted resources carry only their identity, so their members are not
	// checked against the expected type.
	typ, deleted := r.typ, kind == DeletedResource
	if deleted {
		typ = nil
	}
	if err := r.src.Tokens.Enter(jsonreader.ObjectScope); err != nil {
		return nil, err
	}
	res, err := r.src.readResourceBody(typ, resourceOpts{delta: r.opts.Delta, deleted: deleted})
	if err != nil {
		return nil, err
	}
	if deleted {
		legacyDeleted(res)
		if res.Type == nil && r.typ != nil {
			res.Type, res.TypeName = r.typ, r.typ.FullName()
		}
	}
	if res.Removed != nil {
		kind = DeletedResource
	}
	return &DeltaItem{Kind: kind, Resource: res}, nil
}

// classify determines the kind of a delta item from its members.
func (r *setReader) classify(m *jsonreader.Members) ItemKind {
	if m.Has("@odata.removed") || (r.src.OptionalPrefix && m.Has("@removed")) {
		return DeletedResource
	}
	for _, name := range []string{"@odata.context", "@context"} {
		if name == "@context" && !r.src.OptionalPrefix {
			break
		}
		v, err := m.Find(name)
		if err != nil {
			continue
		}
		s, ok := v.(*ast.String)
		if !ok {
			break
		}
		switch {
		case strings.HasSuffix(s.Value, "/$deletedEntity"):
			return DeletedResource
		case strings.HasSuffix(s.Value, "/$deletedLink"):
			return DeletedLink
		case strings.HasSuffix(s.Value, "/$link"):
			return DeltaLink
		}
	}
	return DeltaResource
}

// legacyDeleted converts the properties of a deleted entity written in the
// form {"@odata.context":"...$deletedEntity", "id":..., "reason":...} into
// the fields of res.
func legacyDeleted(res *Resource) {
	if res.Removed != nil {
		return
	}
	var reason ast.Value
	if p := res.Find("id"); p != nil {
		if s, ok := p.Value.(*ast.String); ok {
			res.ID = s.Value
		}
	}
	if p := res.Find("reason"); p != nil {
		reason = p.Value
	}
	var ms []*ast.Member
	if reason != nil {
		ms = append(ms, ast.NewMember(reason.Span(), "reason", reason))
	}
	res.Removed = ast.NewObject(odatajson.Span{}, ms...)
	res.Properties = nil
}

// linkFromValue decodes a link object of a delta payload.
func linkFromValue(v ast.Value) (*Link, error) {
	obj, ok := v.(*ast.Object)
	if !ok {
		return nil, malformedf("link: got %s, want object", v.JSON())
	}
	var link Link
	for _, f := range []struct {
		name string
		dst  *string
	}{{"source", &link.Source}, {"relationship", &link.Relationship}, {"target", &link.Target}} {
		m := obj.Find(f.name)
		if m == nil {
			return nil, malformedf("link is missing %q", f.name)
		}
		s, err := stringValue(f.name, m.Value)
		if err != nil {
			return nil, err
		}
		*f.dst = s
	}
	return &link, nil
}

// ResourceSetReader reads the resources of a resource set, one at a time.
type ResourceSetReader struct {
	setReader
}

// NewResourceSetReader constructs a reader for a set of resources of the
// element type of nav, or of typ if it is not nil.
func NewResourceSetReader(src Source, nav *edm.NavigationSource, typ *edm.StructuredType, opts SetOptions) *ResourceSetReader {
	return &ResourceSetReader{setReader: newSetReader(src, nav, typ, opts)}
}

// Next returns the next resource of the set. It reports io.EOF after the last
// resource, once the rest of the payload has been consumed. In a delta
// payload, a deleted resource has a non-nil Removed field. Links are not
// resources; a delta payload that contains them must be read with a
// DeltaReader.
func (r *ResourceSetReader) Next() (*Resource, error) {
	item, err := r.nextItem()
	if err != nil {
		return nil, err
	}
	if item.Resource == nil {
		r.err = malformedf("%v in resource set", item.Kind)
		return nil, r.err
	}
	return item.Resource, nil
}

// Annotations returns the instance annotations of the set read so far.
// Annotations that follow the resources, such as @odata.nextLink, are
// present once Next has reported io.EOF.
func (r *ResourceSetReader) Annotations() map[string]ast.Value { return r.ann }

// Finished satisfies the Finisher interface.
func (r *ResourceSetReader) Finished() bool { return r.err != nil }

// DeltaReader reads the items of a delta payload, one at a time.
type DeltaReader struct {
	setReader
}

// NewDeltaReader constructs a reader for a delta payload whose resources
// have the element type of nav, or typ if it is not nil.
func NewDeltaReader(src Source, nav *edm.NavigationSource, typ *edm.StructuredType) *DeltaReader {
	return &DeltaReader{setReader: newSetReader(src, nav, typ, SetOptions{Delta: true})}
}

// Next returns the next item of the payload. It reports io.EOF after the
// last item, once the rest of the payload has been consumed.
func (r *DeltaReader) Next() (*DeltaItem, error) { return r.nextItem() }

// Annotations returns the instance annotations of the payload read so far.
// Annotations that follow the items, such as @odata.deltaLink, are present
// once Next has reported io.EOF.
func (r *DeltaReader) Annotations() map[string]ast.Value { return r.ann }

// Finished satisfies the Finisher interface.
func (r *DeltaReader) Finished() bool { return r.err != nil }
