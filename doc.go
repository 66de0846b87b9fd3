// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

// Package odatajson implements the token layer of an OData JSON payload
// reader.
//
// # Scanning
//
// The Scanner type implements a lexical scanner for JSON text. Construct a
// scanner from an io.Reader and call its Next method to iterate over the
// stream. Next advances to the next input token and returns nil, or reports
// an error:
//
//	s := odatajson.NewScanner(input)
//	for s.Next() == nil {
//	   log.Printf("Next token: %v", s.Token())
//	}
//
// Next returns io.EOF when the input has been fully consumed. Any other error
// indicates an I/O or lexical error in the input.
//
// # Token sources
//
// Higher layers do not depend on *Scanner directly, but on the TokenSource
// interface that it implements. A caller that wants a different lexer can
// supply a TokenSourceFunc; the default is NewTokenSource.
//
// The Value method of a TokenSource converts the current primitive token to
// a Go value. Numbers are converted according to the IEEE754 compatibility
// mode negotiated for the payload:
//
//	Token   | Compatible = false          | Compatible = true
//	------- | --------------------------- | -------------------------
//	integer | int32, int64, else float64  | int32, else float64
//	number  | float64                     | float64
//	string  | string (unquoted)           | string (unquoted)
//	true    | true                        | true
//	false   | false                       | false
//	null    | nil                         | nil
//
// In IEEE754-compatible payloads, 64-bit integers and decimals are carried as
// JSON strings, so an integer token that does not fit 32 bits can only be a
// double. Otherwise a number may be a decimal wider than a float64; readers
// keep the text of each number alongside its value (see ast.Number).
//
// # Packages
//
// The jsonreader package layers a pull-based node reader over a TokenSource,
// in a buffering (streaming) and a reordering (non-streaming) variant. The
// input package owns the message stream, selects the reader variant, and
// dispatches requests to the structured readers in package reader.
package odatajson
