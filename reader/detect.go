// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package reader

import (
	"strings"

	"github.com/creachadair/mds/mapset"
	"github.com/creachadair/odatajson/ast"
	"github.com/creachadair/odatajson/edm"
	"github.com/creachadair/odatajson/jsonreader"
)

// PayloadKind identifies the kind of an OData payload.
type PayloadKind byte

// Constants defining the valid PayloadKind values.
const (
	Unsupported PayloadKind = iota
	ResourceSetKind
	ResourceKind
	PropertyKind
	EntityReferenceLinkKind
	EntityReferenceLinksKind
	CollectionKind
	ServiceDocumentKind
	ErrorKind
	BatchKind
	ParameterKind
	DeltaKind
)

var kindStr = [...]string{
	Unsupported:              "unsupported",
	ResourceSetKind:          "resource set",
	ResourceKind:             "resource",
	PropertyKind:             "property",
	EntityReferenceLinkKind:  "entity reference link",
	EntityReferenceLinksKind: "entity reference links",
	CollectionKind:           "collection",
	ServiceDocumentKind:      "service document",
	ErrorKind:                "error",
	BatchKind:                "batch",
	ParameterKind:            "parameter",
	DeltaKind:                "delta",
}

func (k PayloadKind) String() string {
	if int(k) >= len(kindStr) {
		return kindStr[Unsupported]
	}
	return kindStr[k]
}

// DetectPayloadKind reports the kinds of payload src may hold, judged from
// the context annotation of its outermost object. It does not consume any
// input, so src may then be handed to a reader for one of the kinds.
//
// A payload without a context annotation is recognized only as an error
// (a sole "error" member) or a batch (a "responses" member). Otherwise, and
// for payloads that are not objects, the result is empty.
func DetectPayloadKind(src Source) (mapset.Set[PayloadKind], error) {
	n, err := src.Tokens.Peek()
	if err != nil {
		return nil, err
	} else if n.Type != jsonreader.StartObject {
		return mapset.New[PayloadKind](), nil
	}
	m, err := src.Tokens.Lookahead()
	if err != nil {
		return nil, err
	}

	var ctx ast.Value
	for _, name := range []string{"@odata.context", "@context"} {
		if name == "@context" && !src.OptionalPrefix {
			break
		}
		if v, err := m.Find(name); err == nil {
			ctx = v
			break
		}
	}
	if ctx == nil {
		switch {
		case m.Len() == 1 && m.Has("error"):
			return mapset.New(ErrorKind), nil
		case m.Has("responses"):
			return mapset.New(BatchKind), nil
		}
		return mapset.New[PayloadKind](), nil
	}
	uri, err := stringValue("@odata.context", ctx)
	if err != nil {
		return nil, err
	}
	return kindsFromContext(uri, src.Model), nil
}

// kindsFromContext reports the payload kinds consistent with a context URL.
func kindsFromContext(uri string, model *edm.Model) mapset.Set[PayloadKind] {
	_, frag, ok := strings.Cut(uri, "#")
	if !ok {
		if strings.HasSuffix(strings.TrimSuffix(uri, "/"), "$metadata") {
			return mapset.New(ServiceDocumentKind)
		}
		return mapset.New[PayloadKind]()
	}

	switch {
	case frag == "$ref":
		return mapset.New(EntityReferenceLinkKind)
	case frag == "Collection($ref)":
		return mapset.New(EntityReferenceLinksKind)
	case strings.HasSuffix(frag, "/$delta"), strings.HasSuffix(frag, "/$deletedEntity"),
		strings.HasSuffix(frag, "/$link"), strings.HasSuffix(frag, "/$deletedLink"):
		return mapset.New(DeltaKind)
	case strings.HasSuffix(frag, "/$entity"):
		return mapset.New(ResourceKind)
	}

	if inner, ok := cutCollection(frag); ok {
		if strings.HasPrefix(inner, "Edm.") {
			return mapset.New(CollectionKind, PropertyKind)
		} else if t := model.FindType(inner); t != nil && t.IsEntity() {
			return mapset.New(ResourceSetKind)
		}
		return mapset.New(CollectionKind, PropertyKind)
	}
	if strings.HasPrefix(frag, "Edm.") {
		return mapset.New(PropertyKind)
	}
	if t := model.FindType(frag); t != nil {
		if t.IsEntity() {
			return mapset.New(ResourceKind)
		}
		return mapset.New(PropertyKind)
	}

	// A navigation path: a source, optionally with a key or select list, and
	// optionally followed by property segments.
	head, rest := frag, ""
	if i := strings.IndexAny(frag, "(/"); i >= 0 {
		head, rest = frag[:i], frag[i:]
	}
	if strings.HasPrefix(rest, "(") {
		if j := strings.IndexByte(rest, ')'); j >= 0 {
			rest = rest[j+1:]
		}
	}
	if after, ok := strings.CutPrefix(rest, "/"); ok && after != "" {
		return pathKinds(model, model.FindNavigationSource(head), after)
	}
	if ns := model.FindNavigationSource(head); ns != nil && ns.Kind == edm.Singleton {
		return mapset.New(ResourceKind)
	}
	return mapset.New(ResourceSetKind)
}

// pathKinds reports the kinds for a property path following a navigation
// source in a context URL.
func pathKinds(model *edm.Model, ns *edm.NavigationSource, path string) mapset.Set[PayloadKind] {
	if ns == nil || ns.ElementType == nil {
		return mapset.New(PropertyKind)
	}
	typ := ns.ElementType
	var p *edm.Property
	for seg := range strings.SplitSeq(path, "/") {
		if typ == nil {
			return mapset.New(PropertyKind)
		}
		seg, _, _ = strings.Cut(seg, "(")
		if p = typ.FindProperty(seg); p == nil {
			return mapset.New(PropertyKind)
		}
		typ = model.FindType(p.Type.Name)
	}
	if !p.Navigation {
		if p.Type.Collection {
			return mapset.New(CollectionKind, PropertyKind)
		}
		return mapset.New(PropertyKind)
	}
	if p.Type.Collection {
		return mapset.New(ResourceSetKind)
	}
	return mapset.New(ResourceKind)
}

func cutCollection(s string) (string, bool) {
	inner, ok := strings.CutPrefix(s, "Collection(")
	if !ok {
		return "", false
	}
	return strings.CutSuffix(inner, ")")
}
