// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package input

import (
	"errors"
	"fmt"
)

var (
	// ErrModelRequired is reported when a request payload is read without a
	// user model.
	ErrModelRequired = errors.New("a user model is required to read a request payload")

	// ErrMissingEntitySet is reported when an entity is read from a request
	// payload without a navigation source.
	ErrMissingEntitySet = errors.New("a navigation source is required to read a request entity")

	// ErrIncompatibleType is matched by *IncompatibleTypeError.
	ErrIncompatibleType = errors.New("incompatible type")

	// ErrItemTypeRequired is reported when a collection is read from a
	// request payload without an expected item type.
	ErrItemTypeRequired = errors.New("an item type is required to read a request collection")

	// ErrNotSupportedForRequest is reported for operations that apply only to
	// response payloads.
	ErrNotSupportedForRequest = errors.New("not supported for request payloads")

	// ErrDisposed is reported by operations on a closed context.
	ErrDisposed = errors.New("input context is closed")

	// ErrReaderActive is reported when a reader is requested while a
	// previous reader has not consumed its input.
	ErrReaderActive = errors.New("a previous reader has not finished")

	// ErrInputConsumed is reported when a reader is requested after a
	// single-call read, such as ReadError, has consumed the payload.
	ErrInputConsumed = errors.New("the payload has already been read")

	// ErrInvalidSettings is reported for settings that cannot be used.
	ErrInvalidSettings = errors.New("invalid settings")
)

// IncompatibleTypeError reports that an expected type is not the element
// type of a navigation source, or derived from it.
type IncompatibleTypeError struct {
	Type    string // the expected type
	SetType string // the element type of the source
	Source  string // the name of the source
}

// Error satisfies the error interface.
func (e *IncompatibleTypeError) Error() string {
	return fmt.Sprintf("type %s is not compatible with element type %s of navigation source %s",
		e.Type, e.SetType, e.Source)
}

// Is reports whether target is ErrIncompatibleType.
func (e *IncompatibleTypeError) Is(target error) bool { return target == ErrIncompatibleType }

// NullArgumentError reports a required argument that was nil.
type NullArgumentError struct {
	Name string
}

// Error satisfies the error interface.
func (e *NullArgumentError) Error() string { return "argument " + e.Name + " must not be nil" }

// ConstructionError reports a failure to construct a context. Resources the
// context acquired before the failure have been released.
type ConstructionError struct {
	Err error
}

// Error satisfies the error interface.
func (e *ConstructionError) Error() string { return "constructing input context: " + e.Err.Error() }

// Unwrap supports error wrapping.
func (e *ConstructionError) Unwrap() error { return e.Err }
