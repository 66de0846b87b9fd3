// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package metadata describes negotiated OData JSON media types and resolves
// the metadata level that governs which control annotations a payload must
// carry.
package metadata

import (
	"fmt"
	"mime"
	"strings"
)

// A MediaType is a parsed content type such as
//
//	application/json;odata.metadata=minimal;odata.streaming=true
//
// Parameter names are case-insensitive and stored in lower case.
type MediaType struct {
	Type   string
	Params map[string]string
}

// ParseMediaType parses a content type. An empty string is treated as
// "application/json".
func ParseMediaType(s string) (MediaType, error) {
	if strings.TrimSpace(s) == "" {
		return MediaType{Type: "application/json"}, nil
	}
	mt, params, err := mime.ParseMediaType(s)
	if err != nil {
		return MediaType{}, fmt.Errorf("invalid media type %q: %w", s, err)
	}
	return MediaType{Type: mt, Params: params}, nil
}

// MustParseMediaType is as ParseMediaType, but panics on error.
func MustParseMediaType(s string) MediaType {
	mt, err := ParseMediaType(s)
	if err != nil {
		panic(err)
	}
	return mt
}

// Param returns the value of the named parameter. OData parameters may be
// given with or without the "odata." prefix; either spelling of name finds
// either spelling of the parameter.
func (m MediaType) Param(name string) (string, bool) {
	name = strings.ToLower(name)
	if v, ok := m.Params[name]; ok {
		return v, true
	}
	if short, ok := strings.CutPrefix(name, "odata."); ok {
		v, ok := m.Params[short]
		return v, ok
	}
	v, ok := m.Params["odata."+name]
	return v, ok
}

// Streaming reports whether the transport guarantees that payload order
// matches semantic order (odata.streaming=true).
func (m MediaType) Streaming() bool { return m.flag("odata.streaming") }

// IEEE754Compatible reports whether large integers and decimals are carried
// as strings (IEEE754Compatible=true).
func (m MediaType) IEEE754Compatible() bool { return m.flag("ieee754compatible") }

// Charset returns the charset parameter, or "".
func (m MediaType) Charset() string {
	v, _ := m.Param("charset")
	return v
}

func (m MediaType) flag(name string) bool {
	v, _ := m.Param(name)
	return strings.EqualFold(v, "true")
}

func (m MediaType) String() string { return mime.FormatMediaType(m.Type, m.Params) }

// Level is the verbosity of control information in a payload.
type Level byte

// Constants defining the valid Level values.
const (
	Minimal Level = iota // odata.metadata=minimal, the default
	None                 // odata.metadata=none
	Full                 // odata.metadata=full
)

var levelStr = [...]string{Minimal: "minimal", None: "none", Full: "full"}

func (l Level) String() string {
	if int(l) >= len(levelStr) {
		return "invalid"
	}
	return levelStr[l]
}

// Requires reports whether a payload at level l must carry the control
// annotation with the given name, without the leading "@" and with the
// "odata." prefix. The topLevel flag reports whether the annotation belongs
// to the outermost object of a response.
//
//	Level   | odata.context | odata.id, odata.type
//	------- | ------------- | --------------------
//	None    | no            | no
//	Minimal | top level     | no
//	Full    | top level     | yes
func (l Level) Requires(annotation string, topLevel bool) bool {
	switch l {
	case Minimal:
		return annotation == "odata.context" && topLevel
	case Full:
		switch annotation {
		case "odata.context":
			return topLevel
		case "odata.id", "odata.type":
			return true
		}
	}
	return false
}

// Resolve returns the metadata level for a payload with media type mt.
//
// In a response the odata.metadata parameter selects the level: "none" and
// "full" select None and Full, anything else, including no parameter,
// selects Minimal. The parameter only describes responses, so a request
// always resolves to Minimal. Model presence does not change the level: a
// reader without a user model still expects the annotations the level
// promises, it just cannot check them against declared types.
func Resolve(mt MediaType, hasModel, response bool) Level {
	if !response {
		return Minimal
	}
	hint, _ := mt.Param("odata.metadata")
	switch strings.ToLower(hint) {
	case "none":
		return None
	case "full":
		return Full
	default:
		return Minimal
	}
}
