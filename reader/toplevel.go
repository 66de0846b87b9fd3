// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package reader

import (
	"fmt"

	"github.com/creachadair/odatajson"
	"github.com/creachadair/odatajson/ast"
	"github.com/creachadair/odatajson/ast/cursor"
	"github.com/creachadair/odatajson/edm"
	"github.com/creachadair/odatajson/jsonreader"
)

// An ODataError is an error reported by an OData service, either as a
// top-level error payload or in place of another payload.
type ODataError struct {
	Code       string
	Message    string
	Target     string
	Details    []ErrorDetail
	InnerError *ast.Object // or nil

	// Annotations are the instance annotations of the error payload.
	Annotations map[string]ast.Value
}

// An ErrorDetail is an entry of the details of an ODataError.
type ErrorDetail struct {
	Code, Message, Target string
}

// Error satisfies the error interface.
func (e *ODataError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("odata error %s: %s (target %s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("odata error %s: %s", e.Code, e.Message)
}

// stringAt returns the string at the given path from v, or "".
func stringAt(v ast.Value, path ...any) string {
	s, err := cursor.Path[*ast.String](v, path...)
	if err != nil {
		return ""
	}
	return s.Value
}

// errorFromValue decodes the value of an "error" member.
func errorFromValue(v ast.Value) (*ODataError, error) {
	if _, ok := v.(*ast.Object); !ok {
		return nil, malformedf("error: got %s, want object", v.JSON())
	}
	e := &ODataError{
		Code:    stringAt(v, "code"),
		Message: stringAt(v, "message"),
		Target:  stringAt(v, "target"),
	}
	details, ok, err := optional[*ast.Array](v, "details")
	if err != nil {
		return nil, err
	} else if ok {
		for _, d := range details.Values {
			e.Details = append(e.Details, ErrorDetail{
				Code:    stringAt(d, "code"),
				Message: stringAt(d, "message"),
				Target:  stringAt(d, "target"),
			})
		}
	}
	inner, ok, err := optional[*ast.Object](v, "innererror")
	if err != nil {
		return nil, err
	} else if ok {
		e.InnerError = inner
	}
	return e, nil
}

// ReadError reads a top-level error payload.
func ReadError(src Source) (*ODataError, error) {
	if err := src.Tokens.Enter(jsonreader.ObjectScope); err != nil {
		return nil, err
	}
	var e *ODataError
	ann := make(map[string]ast.Value)
	for {
		n, err := src.Tokens.Read()
		if err != nil {
			return nil, err
		}
		if n.Type == jsonreader.EndObject {
			break
		} else if n.Type != jsonreader.Property {
			return nil, jsonreader.Unexpected(n, "property")
		}
		v, err := jsonreader.ReadValue(src.Tokens)
		if err != nil {
			return nil, err
		}
		prop, term := src.splitName(n.Name)
		switch {
		case prop == "error" && term == "":
			if e != nil {
				return nil, malformedf("duplicate error at %s", n.Loc.First)
			}
			if e, err = errorFromValue(v); err != nil {
				return nil, err
			}
		case prop == "":
			ann[term] = v
		default:
			return nil, malformedf("unexpected property %q in error at %s", n.Name, n.Loc.First)
		}
	}
	if e == nil {
		return nil, malformedf("missing error")
	}
	e.Annotations = ann
	return e, src.expectEnd()
}

// A ServiceDocument lists the top-level resources of a service.
type ServiceDocument struct {
	Context  string
	Elements []ServiceElement
}

// A ServiceElement is an entry of a service document.
type ServiceElement struct {
	Name  string
	Kind  string // EntitySet, Singleton, FunctionImport, or ServiceDocument
	URL   string
	Title string
}

// ReadServiceDocument reads a service document payload.
func ReadServiceDocument(src Source) (*ServiceDocument, error) {
	ann := make(map[string]ast.Value)
	if err := src.openValue(ann); err != nil {
		return nil, err
	}
	doc := new(ServiceDocument)
	for {
		n, err := src.Tokens.Peek()
		if err != nil {
			return nil, err
		} else if n.Type == jsonreader.EndArray {
			break
		}
		v, err := jsonreader.ReadValue(src.Tokens)
		if err != nil {
			return nil, err
		}
		elt := ServiceElement{
			Name:  stringAt(v, "name"),
			Kind:  stringAt(v, "kind"),
			URL:   stringAt(v, "url"),
			Title: stringAt(v, "title"),
		}
		if elt.Name == "" || elt.URL == "" {
			return nil, malformedf("service document element %s requires name and url", v.JSON())
		}
		switch elt.Kind {
		case "":
			elt.Kind = "EntitySet"
		case "EntitySet", "Singleton", "FunctionImport", "ServiceDocument":
		default:
			return nil, malformedf("service document element %q has invalid kind %q", elt.Name, elt.Kind)
		}
		doc.Elements = append(doc.Elements, elt)
	}
	if err := src.Tokens.Exit(jsonreader.ArrayScope); err != nil {
		return nil, err
	} else if err := src.closeValue(ann); err != nil {
		return nil, err
	}
	if v, ok := ann["odata.context"]; ok {
		doc.Context, _ = stringValue("@odata.context", v)
	}
	return doc, nil
}

// ReadEntityReferenceLink reads a single entity reference link payload, and
// returns the referenced entity id.
func ReadEntityReferenceLink(src Source) (string, error) {
	if err := src.enterTop(); err != nil {
		return "", err
	}
	ann := make(map[string]ast.Value)
	if err := readAnnotations(src, ann); err != nil {
		return "", err
	}
	id, err := refID(ann)
	if err != nil {
		return "", err
	} else if err := src.requireContext(ann); err != nil {
		return "", err
	}
	return id, src.expectEnd()
}

// EntityReferenceLinks is the content of an entity reference links payload.
type EntityReferenceLinks struct {
	Links    []string
	Count    *int64 // @odata.count, if present
	NextLink string // @odata.nextLink, if present
}

// ReadEntityReferenceLinks reads a collection of entity reference links.
func ReadEntityReferenceLinks(src Source) (*EntityReferenceLinks, error) {
	ann := make(map[string]ast.Value)
	if err := src.openValue(ann); err != nil {
		return nil, err
	}
	out := new(EntityReferenceLinks)
	for {
		n, err := src.Tokens.Peek()
		if err != nil {
			return nil, err
		} else if n.Type == jsonreader.EndArray {
			break
		}
		if err := src.Tokens.Enter(jsonreader.ObjectScope); err != nil {
			return nil, err
		}
		link := make(map[string]ast.Value)
		if err := readAnnotations(src, link); err != nil {
			return nil, err
		}
		id, err := refID(link)
		if err != nil {
			return nil, err
		}
		out.Links = append(out.Links, id)
	}
	if err := src.Tokens.Exit(jsonreader.ArrayScope); err != nil {
		return nil, err
	} else if err := src.closeValue(ann); err != nil {
		return nil, err
	}
	if v, ok := ann["odata.count"]; ok {
		num, ok := v.(*ast.Number)
		if !ok {
			return nil, malformedf("@odata.count: got %s, want number", v.JSON())
		}
		var c int64
		switch t := num.Value.(type) {
		case int32:
			c = int64(t)
		case int64:
			c = t
		default:
			return nil, malformedf("@odata.count: got %s, want integer", v.JSON())
		}
		out.Count = &c
	}
	if v, ok := ann["odata.nextLink"]; ok {
		next, err := stringValue("@odata.nextLink", v)
		if err != nil {
			return nil, err
		}
		out.NextLink = next
	}
	return out, nil
}

// readAnnotations reads the members of an object whose opening brace has
// been consumed, through its closing brace. Every member must be an
// instance annotation.
func readAnnotations(src Source, ann map[string]ast.Value) error {
	for {
		n, err := src.Tokens.Read()
		if err != nil {
			return err
		}
		if n.Type == jsonreader.EndObject {
			return nil
		} else if n.Type != jsonreader.Property {
			return jsonreader.Unexpected(n, "property")
		}
		prop, term := src.splitName(n.Name)
		if prop != "" {
			return malformedf("unexpected property %q at %s", n.Name, n.Loc.First)
		}
		v, err := jsonreader.ReadValue(src.Tokens)
		if err != nil {
			return err
		}
		ann[term] = v
	}
}

func refID(ann map[string]ast.Value) (string, error) {
	v, ok := ann["odata.id"]
	if !ok {
		return "", malformedf("entity reference link has no @odata.id")
	}
	return stringValue("@odata.id", v)
}

// ReadProperty reads a top-level property payload. If expected is not nil,
// the value is checked against it. The Name of the result is empty.
//
// A primitive or collection value is carried in a "value" member; a complex
// value is the payload object itself, less its annotations. A null value may
// be written as {"@odata.null": true}.
func ReadProperty(src Source, expected *edm.TypeRef) (*Property, error) {
	if err := src.enterTop(); err != nil {
		return nil, err
	}

	ann := make(map[string]ast.Value)
	var members []*ast.Member
	for {
		n, err := src.Tokens.Read()
		if err != nil {
			return nil, err
		}
		if n.Type == jsonreader.EndObject {
			break
		} else if n.Type != jsonreader.Property {
			return nil, jsonreader.Unexpected(n, "property")
		}
		v, err := jsonreader.ReadValue(src.Tokens)
		if err != nil {
			return nil, err
		}
		if prop, term := src.splitName(n.Name); prop == "" {
			ann[term] = v
		} else {
			span := odatajson.Span{Pos: n.Loc.Pos, End: v.Span().End}
			members = append(members, ast.NewMember(span, n.Name, v))
		}
	}
	if err := src.requireContext(ann); err != nil {
		return nil, err
	}

	p := &Property{Annotations: ann}
	complexValue := expected != nil && !expected.IsPrimitive() && !expected.Collection
	switch {
	case isNullMarker(ann["odata.null"]):
		if len(members) != 0 {
			return nil, malformedf("null property has members")
		}
		p.Value = ast.NewNull(ann["odata.null"].Span())
	case len(members) == 0:
		return nil, malformedf("property payload has no value")
	case !complexValue && len(members) == 1 && members[0].Key == "value":
		p.Value = members[0].Value
	case !complexValue && expected != nil:
		return nil, malformedf("property payload has no value")
	default:
		span := odatajson.Span{Pos: members[0].Span().Pos, End: members[len(members)-1].Span().End}
		p.Value = ast.NewObject(span, members...)
	}
	if expected != nil {
		if err := checkValue("value", *expected, p.Value); err != nil {
			return nil, err
		}
	}
	return p, src.expectEnd()
}

func isNullMarker(v ast.Value) bool {
	b, ok := v.(*ast.Bool)
	return ok && b.Value
}
