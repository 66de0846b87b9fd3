// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package odatajson

import (
	"fmt"
	"io"
	"math"
	"strconv"
)

// Token is the type of a lexical token in the JSON grammar.
type Token byte

// Constants defining the valid Token values.
const (
	Invalid Token = iota // invalid token
	LBrace               // left brace "{"
	RBrace               // right brace "}"
	LSquare              // left square bracket "["
	RSquare              // right square bracket "]"
	Comma                // comma ","
	Colon                // colon ":"
	Integer              // number: integer with no fraction or exponent
	Number               // number with fraction and/or exponent
	String               // quoted string
	True                 // constant: true
	False                // constant: false
	Null                 // constant: null
)

var tokenStr = [...]string{
	Invalid: "invalid token",
	LBrace:  `"{"`,
	RBrace:  `"}"`,
	LSquare: `"["`,
	RSquare: `"]"`,
	Comma:   `","`,
	Colon:   `":"`,
	Integer: "integer",
	Number:  "number",
	String:  "string",
	True:    "true",
	False:   "false",
	Null:    "null",
}

func (t Token) String() string {
	v := int(t)
	if v >= len(tokenStr) {
		return tokenStr[Invalid]
	}
	return tokenStr[v]
}

// IsPrimitive reports whether t is a token for a primitive value.
func (t Token) IsPrimitive() bool { return t >= Integer && t <= Null }

// A TokenSource is a stream of lexical JSON tokens. Next advances to the next
// token and reports io.EOF at the end of input. The remaining methods
// describe the current token, and are only valid until the next call of Next.
type TokenSource interface {
	Next() error
	Token() Token
	Text() []byte
	Location() Location

	// Value converts the current primitive token to a Go value.
	// See the package documentation for the mapping.
	Value() (any, error)
}

// A TokenSourceFunc constructs a TokenSource that reads text from r.  The
// ieee754 flag reports whether the payload was negotiated as IEEE754
// compatible.
type TokenSourceFunc func(r io.Reader, ieee754 bool) (TokenSource, error)

// NewTokenSource is the default TokenSourceFunc. It returns a *Scanner.
func NewTokenSource(r io.Reader, ieee754 bool) (TokenSource, error) {
	s := NewScanner(r)
	s.IEEE754Compatible(ieee754)
	return s, nil
}

// ConvertPrimitive converts the text of a primitive token to a Go value, as
// described in the package documentation. It is exported so that custom
// TokenSource implementations can share the conversion rules.
func ConvertPrimitive(tok Token, text []byte, ieee754 bool) (any, error) {
	switch tok {
	case String:
		dec, err := Unquote(text)
		if err != nil {
			return nil, err
		}
		return string(dec), nil
	case True:
		return true, nil
	case False:
		return false, nil
	case Null:
		return nil, nil
	case Integer:
		z, err := strconv.ParseInt(string(text), 10, 64)
		if err == nil {
			if z >= math.MinInt32 && z <= math.MaxInt32 {
				return int32(z), nil
			} else if !ieee754 {
				return z, nil
			}
		}
		fallthrough
	case Number:
		f, err := strconv.ParseFloat(string(text), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", text, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("token %v is not a primitive value", tok)
	}
}
