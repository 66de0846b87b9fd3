// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package reader implements structured readers for OData JSON payloads.
//
// Each reader consumes a Source: a token reader positioned at the start of a
// payload, plus the metadata level, model, and direction that govern how the
// payload is interpreted. Incremental readers (resource sets, deltas,
// collections, parameters, batches) report their items one at a time from a
// Next method, which returns io.EOF once the payload has been consumed. The
// remaining payload kinds are small and are read in a single call.
//
// Readers share the cursor of their Source, so only one reader may consume a
// given Source at a time.
package reader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creachadair/mds/mapset"
	"github.com/creachadair/odatajson/ast"
	"github.com/creachadair/odatajson/ast/cursor"
	"github.com/creachadair/odatajson/edm"
	"github.com/creachadair/odatajson/jsonreader"
	"github.com/creachadair/odatajson/metadata"
)

// A Source is the input to a structured reader.
type Source struct {
	Tokens   jsonreader.Reader
	Level    metadata.Level
	Model    *edm.Model
	Response bool

	// OptionalPrefix permits OData annotations to omit the "odata." prefix,
	// for example "@type" for "@odata.type".
	OptionalPrefix bool
}

// A Finisher reports whether a reader has consumed all of its input or
// stopped on an error, so that its Source may be handed to another reader.
type Finisher interface {
	Finished() bool
}

var (
	// ErrMalformed is reported for a payload that is valid JSON but not a
	// valid OData payload of the expected kind.
	ErrMalformed = errors.New("malformed payload")

	// ErrAnnotationOrder is reported when a control annotation that governs
	// the interpretation of an object follows a data property of that object
	// in an input that cannot be searched ahead.
	ErrAnnotationOrder = errors.New("annotation follows data property")

	// ErrMissingAnnotation is reported when the metadata level requires a
	// control annotation the payload does not have.
	ErrMissingAnnotation = errors.New("missing required annotation")

	// ErrUndeclared is reported for a property or parameter the model does not
	// declare.
	ErrUndeclared = errors.New("undeclared name")

	// ErrInvalidValue is reported for a value that does not match its declared
	// type.
	ErrInvalidValue = errors.New("invalid value")

	// ErrTypeMismatch is reported when a type annotation names a type that is
	// unknown or not derived from the expected type.
	ErrTypeMismatch = errors.New("type mismatch")
)

func malformedf(msg string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(msg, args...))
}

// optional returns the value at path in v. It reports false if there is no
// such value, and an error if the value is not a T.
func optional[T ast.Value](v ast.Value, path ...any) (T, bool, error) {
	t, err := cursor.Path[T](v, path...)
	if err == nil {
		return t, true, nil
	} else if errors.Is(err, cursor.ErrNotFound) {
		return t, false, nil
	}
	return t, false, malformedf("%v", err)
}

// odataTerms are the annotation terms that may be written without the
// "odata." prefix when it is optional.
var odataTerms = mapset.New(
	"context", "type", "id", "etag", "editLink", "readLink", "count",
	"nextLink", "deltaLink", "removed", "delta", "navigationLink",
	"associationLink", "mediaEditLink", "mediaReadLink", "mediaContentType",
	"mediaEtag", "metadataEtag", "bind", "null",
)

// splitName classifies the name of an object member. For an instance
// annotation "@term" it returns ("", term); for a property annotation
// "prop@term" it returns ("prop", term); otherwise it returns (name, "").
// OData terms are normalized to carry the "odata." prefix.
func (s Source) splitName(name string) (prop, term string) {
	prop, term, ok := strings.Cut(name, "@")
	if !ok {
		return name, ""
	}
	if !strings.HasPrefix(term, "odata.") && s.OptionalPrefix && odataTerms.Has(term) {
		term = "odata." + term
	}
	return prop, term
}

// seekAnnotation locates an instance annotation of the innermost object of
// sk by its normalized term.
func (s Source) seekAnnotation(sk jsonreader.Seeker, term string) (ast.Value, error) {
	v, err := sk.Seek("@" + term)
	if errors.Is(err, jsonreader.ErrNotFound) && s.OptionalPrefix {
		if short, ok := strings.CutPrefix(term, "odata."); ok {
			return sk.Seek("@" + short)
		}
	}
	return v, err
}

// requireContext checks that a top-level object has a context annotation,
// if the metadata level requires one. Annotations already read are in ann;
// the rest are searched for if the token reader permits.
func (s Source) requireContext(ann map[string]ast.Value) error {
	if !s.Response || !s.Level.Requires("odata.context", true) {
		return nil
	} else if _, ok := ann["odata.context"]; ok {
		return nil
	}
	if sk, ok := s.Tokens.(jsonreader.Seeker); ok {
		if _, err := s.seekAnnotation(sk, "odata.context"); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: @odata.context", ErrMissingAnnotation)
}

// enterTop enters the outermost object of a payload. If the payload is an
// in-stream error, enterTop reads it and returns it as an *ODataError.
func (s Source) enterTop() error {
	if err := s.Tokens.Enter(jsonreader.ObjectScope); err != nil {
		return err
	}
	if !s.inError() {
		return nil
	}
	n, err := s.Tokens.Read()
	if err != nil {
		return err
	}
	v, err := jsonreader.ReadValue(s.Tokens)
	if err != nil {
		return err
	}
	oe, err := errorFromValue(v)
	if err != nil {
		return fmt.Errorf("in-stream error at %s: %w", n.Loc.First, err)
	}
	return oe
}

// inError reports whether the object just entered is an error payload.
func (s Source) inError() bool {
	switch t := s.Tokens.(type) {
	case jsonreader.ErrorDetector:
		return t.InError()
	case *jsonreader.Reordering:
		m := t.Members()
		return m != nil && m.Len() != 0 && m.Names()[0] == "error"
	}
	return false
}

// expectEnd consumes the end of the input.
func (s Source) expectEnd() error {
	n, err := s.Tokens.Read()
	if err != nil {
		return err
	} else if n.Type != jsonreader.EndOfInput {
		return jsonreader.Unexpected(n, jsonreader.EndOfInput.String())
	}
	return nil
}

// openValue enters the outermost object of a payload whose content is a
// "value" array, and consumes members through the start of that array.
// Annotations preceding the array are added to ann.
func (s Source) openValue(ann map[string]ast.Value) error {
	if err := s.enterTop(); err != nil {
		return err
	}
	for {
		n, err := s.Tokens.Read()
		if err != nil {
			return err
		}
		switch n.Type {
		case jsonreader.EndObject:
			return malformedf("missing value at %s", n.Loc.First)
		case jsonreader.Property:
		default:
			return jsonreader.Unexpected(n, "property")
		}

		prop, term := s.splitName(n.Name)
		if prop == "value" && term == "" {
			if err := s.requireContext(ann); err != nil {
				return err
			}
			return s.Tokens.Enter(jsonreader.ArrayScope)
		} else if prop != "" {
			return malformedf("unexpected property %q at %s", n.Name, n.Loc.First)
		}
		v, err := jsonreader.ReadValue(s.Tokens)
		if err != nil {
			return err
		}
		ann[term] = v
	}
}

// closeValue consumes the members following the "value" array of a payload,
// whose end has been read, through the end of the input. Annotations are
// added to ann.
func (s Source) closeValue(ann map[string]ast.Value) error {
	for {
		n, err := s.Tokens.Read()
		if err != nil {
			return err
		}
		if n.Type == jsonreader.EndObject {
			return s.expectEnd()
		} else if n.Type != jsonreader.Property {
			return jsonreader.Unexpected(n, "property")
		}
		prop, term := s.splitName(n.Name)
		if prop != "" {
			return malformedf("unexpected property %q at %s", n.Name, n.Loc.First)
		}
		v, err := jsonreader.ReadValue(s.Tokens)
		if err != nil {
			return err
		}
		ann[term] = v
	}
}

// checkValue reports whether v is a valid value of the declared type ref.
// Structured values are checked for shape only.
func checkValue(name string, ref edm.TypeRef, v ast.Value) error {
	if _, ok := v.(*ast.Null); ok {
		if ref.Nullable {
			return nil
		}
		return fmt.Errorf("%w: %s: null is not a valid %v", ErrInvalidValue, name, ref)
	}
	if ref.Collection {
		arr, ok := v.(*ast.Array)
		if !ok {
			return fmt.Errorf("%w: %s: got %s, want %v", ErrInvalidValue, name, v.JSON(), ref)
		}
		for i, elt := range arr.Values {
			if err := checkValue(fmt.Sprintf("%s[%d]", name, i), ref.Element(), elt); err != nil {
				return err
			}
		}
		return nil
	}
	if !ref.IsPrimitive() {
		if _, ok := v.(*ast.Object); !ok {
			return fmt.Errorf("%w: %s: got %s, want %v", ErrInvalidValue, name, v.JSON(), ref)
		}
		return nil
	}
	if !ref.Accepts(ast.Plain(v)) {
		return fmt.Errorf("%w: %s: %s is not a valid %v", ErrInvalidValue, name, v.JSON(), ref)
	}
	return nil
}

// stringValue returns the string value of v, or an error.
func stringValue(name string, v ast.Value) (string, error) {
	s, ok := v.(*ast.String)
	if !ok {
		return "", malformedf("%s: got %s, want string", name, v.JSON())
	}
	return s.Value, nil
}
