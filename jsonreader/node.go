// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package jsonreader implements pull-based readers over a stream of JSON
// tokens.
//
// A Reader reports the structure of its input as a sequence of nodes:
//
//	Node type   | Meaning
//	----------- | ------------------------------------------
//	StartObject | "{" of an object
//	Property    | a member name; its value follows
//	Value       | a primitive value (string, number, bool, null)
//	EndObject   | "}" of an object
//	StartArray  | "[" of an array
//	EndArray    | "]" of an array
//	EndOfInput  | the input is exhausted
//
// Two variants are provided. NewBuffering returns a reader that consumes the
// input lazily, in physical order, looking ahead only as far as needed. It is
// suited to transports that guarantee payload order matches semantic order.
// NewReordering returns a reader that materializes the members of each object
// on entry, so that members can be located by name with Seek regardless of
// where they occur in the object.
//
// Both variants enforce a maximum nesting depth. Exceeding it reports an error
// wrapping ErrNestingDepthExceeded, and every later call reports the same
// error.
package jsonreader

import (
	"errors"
	"fmt"

	"github.com/creachadair/odatajson"
	"github.com/creachadair/odatajson/ast"
)

// NodeType identifies the kind of a Node.
type NodeType byte

// Constants defining the valid NodeType values.
const (
	None        NodeType = iota // no node
	StartObject                 // "{"
	EndObject                   // "}"
	StartArray                  // "["
	EndArray                    // "]"
	Property                    // "name":
	Value                       // primitive value
	EndOfInput                  // no more input
)

var nodeStr = [...]string{
	None:        "none",
	StartObject: "start of object",
	EndObject:   "end of object",
	StartArray:  "start of array",
	EndArray:    "end of array",
	Property:    "property",
	Value:       "value",
	EndOfInput:  "end of input",
}

func (t NodeType) String() string {
	if int(t) >= len(nodeStr) {
		return nodeStr[None]
	}
	return nodeStr[t]
}

// A Node is a single structural element of the input.
type Node struct {
	Type  NodeType
	Name  string             // for Property, the unquoted member name
	Value any                // for Value, the converted primitive
	Text  string             // for a numeric Value, the number as written
	Token odatajson.Token    // the token that produced the node
	Loc   odatajson.Location // the location of the token
}

func (n Node) String() string {
	switch n.Type {
	case Property:
		return fmt.Sprintf("property %q", n.Name)
	case Value:
		return fmt.Sprintf("%v value", n.Token)
	default:
		return n.Type.String()
	}
}

// A Scope is a kind of structured value a Reader can enter and exit.
type Scope byte

// The scopes that a reader can enter.
const (
	ObjectScope Scope = iota + 1
	ArrayScope
)

func (s Scope) String() string {
	switch s {
	case ObjectScope:
		return "object"
	case ArrayScope:
		return "array"
	}
	return "invalid scope"
}

func (s Scope) start() NodeType {
	if s == ArrayScope {
		return StartArray
	}
	return StartObject
}

func (s Scope) end() NodeType {
	if s == ArrayScope {
		return EndArray
	}
	return EndObject
}

// A Reader is a cursor over the nodes of a JSON input. Readers are not safe
// for concurrent use, and the cursor is not reentrant: only one consumer may
// advance it at a time.
type Reader interface {
	// Peek reports the next node without consuming it.
	Peek() (Node, error)

	// Read consumes and returns the next node.
	Read() (Node, error)

	// Enter consumes the start of a value of the given scope, and reports an
	// error if the next node does not start such a value.
	Enter(Scope) error

	// Exit consumes the end of a value of the given scope, and reports an
	// error if the next node does not end such a value.
	Exit(Scope) error

	// Depth reports the number of objects and arrays that have been entered
	// and not yet exited.
	Depth() int

	// Lookahead materializes the members of the object that starts at the
	// next node, without consuming it. It reports an error if the next node
	// is not the start of an object.
	Lookahead() (*Members, error)

	// Abort discards any buffered input and causes every later call that
	// would consume or inspect input to report err. The underlying token
	// source is not read again.
	Abort(err error)
}

// A Seeker is a Reader that can locate a member of the current object by
// name, independent of the order of members in the input. Seek does not
// consume any input, and repeated calls return equal values.
type Seeker interface {
	Reader
	Seek(name string) (ast.Value, error)
}

// An ErrorDetector is a Reader that recognizes top-level error payloads.
// InError reports true once the reader has entered a top-level object whose
// first member is the error property.
type ErrorDetector interface {
	Reader
	InError() bool
}

var (
	// ErrNestingDepthExceeded is reported when the input is nested more deeply
	// than the reader's maximum depth. It is not recoverable.
	ErrNestingDepthExceeded = errors.New("maximum nesting depth exceeded")

	// ErrNotFound is reported by Seek when the current object has no member
	// with the requested name.
	ErrNotFound = errors.New("member not found")

	// ErrNotInObject is reported by Seek when the cursor is not inside an
	// object.
	ErrNotInObject = errors.New("not inside an object")
)

// SyntaxError is the concrete type of errors reported for malformed input.
type SyntaxError struct {
	Location odatajson.LineCol
	Message  string

	err error
}

// Error satisfies the error interface.
func (s *SyntaxError) Error() string {
	return fmt.Sprintf("at %s: %s", s.Location, s.Message)
}

// Unwrap supports error wrapping.
func (s *SyntaxError) Unwrap() error { return s.err }

// Unexpected returns a *SyntaxError reporting that got was found where want
// was expected.
func Unexpected(got Node, want string) error {
	return &SyntaxError{
		Location: got.Loc.First,
		Message:  fmt.Sprintf("expected %s, got %v", want, got),
	}
}

var (
	_ ErrorDetector = (*Buffering)(nil)
	_ Seeker        = (*Reordering)(nil)
)
