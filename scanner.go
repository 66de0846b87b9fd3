// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package odatajson

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"go4.org/mem"
)

// byteOrderMark is skipped if it is the first rune of the input.
const byteOrderMark = 0xFEFF

// A mark is a position in the input.
type mark struct {
	off  int // byte offset, 0-based
	line int // line number, 0-based
	col  int // byte offset in line, 0-based
}

func (m mark) lineCol() LineCol { return LineCol{Line: m.line + 1, Column: m.col} }

// A Scanner reads lexical tokens from an input stream.  Each call to Next
// advances the scanner to the next token, or reports an error.
type Scanner struct {
	r       *bufio.Reader
	ieee754 bool         // IEEE754 compatible number conversion
	buf     bytes.Buffer // text of the current token
	tok     Token
	err     error

	start, cur mark // the start of the current token, and the read position
	last       int  // size in bytes of the last rune read
}

// NewScanner constructs a new lexical scanner that consumes input from r.
func NewScanner(r io.Reader) *Scanner {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Scanner{r: br}
}

// IEEE754Compatible configures how s converts numbers in Value.
// See the package documentation for details.
func (s *Scanner) IEEE754Compatible(ok bool) { s.ieee754 = ok }

// punct maps punctuation runes to their tokens.
var punct = map[rune]Token{
	'{': LBrace, '}': RBrace, '[': LSquare, ']': RSquare, ',': Comma, ':': Colon,
}

// literals maps the first rune of each constant to its token and spelling.
var literals = map[rune]struct {
	tok  Token
	text mem.RO
}{
	't': {True, mem.S("true")},
	'f': {False, mem.S("false")},
	'n': {Null, mem.S("null")},
}

// Next advances s to the next token of the input, or reports an error.
// At the end of the input, Next returns io.EOF.
func (s *Scanner) Next() error {
	s.buf.Reset()
	s.tok, s.err = Invalid, nil

	ch, err := s.skipSpace()
	if err == io.EOF {
		return s.setErr(err)
	} else if err != nil {
		return s.fail(err)
	}

	if ch == '"' {
		return s.scanString()
	} else if ch == '-' || isDigit(ch) {
		return s.scanNumber(ch)
	} else if t, ok := punct[ch]; ok {
		s.buf.WriteRune(ch)
		s.tok = t
		return nil
	} else if lit, ok := literals[ch]; ok {
		s.buf.WriteRune(ch)
		if _, _, err := s.readWhile(isLetter); err == nil {
			s.unrune()
		} else if err != io.EOF {
			return s.fail(err)
		}
		if got := mem.B(s.buf.Bytes()); !got.Equal(lit.text) {
			return s.failf("unknown constant %q", got.StringCopy())
		}
		s.tok = lit.tok
		return nil
	}
	return s.failf("unexpected %q", ch)
}

// skipSpace consumes whitespace and returns the first rune after it. The
// start of the current token is left at that rune.
func (s *Scanner) skipSpace() (rune, error) {
	for {
		s.start = s.cur
		ch, err := s.rune()
		if err != nil {
			return 0, err
		}
		switch {
		case ch == '\n':
			s.cur.line++
			s.cur.col = 0
		case ch == ' ', ch == '\t', ch == '\r':
		case ch == byteOrderMark && s.start.off == 0:
		default:
			return ch, nil
		}
	}
}

// Token returns the type of the current token.
func (s *Scanner) Token() Token { return s.tok }

// Err returns the last error reported by Next.
func (s *Scanner) Err() error { return s.err }

// Text returns the undecoded text of the current token.  The return value is
// only valid until the next call of Next. The caller must copy the contents of
// the returned slice if it is needed beyond that.
func (s *Scanner) Text() []byte { return s.buf.Bytes() }

// Span returns the location span of the current token.
func (s *Scanner) Span() Span { return Span{Pos: s.start.off, End: s.cur.off} }

// Location returns the complete location of the current token.
func (s *Scanner) Location() Location {
	return Location{Span: s.Span(), First: s.start.lineCol(), Last: s.cur.lineCol()}
}

// Value converts the current token to a Go value.
func (s *Scanner) Value() (any, error) {
	return ConvertPrimitive(s.tok, s.buf.Bytes(), s.ieee754)
}

// scanString scans the remainder of a string whose opening quote has been
// read.
func (s *Scanner) scanString() error {
	s.buf.WriteByte('"')
	for {
		ch, err := s.rune()
		if err == io.EOF {
			return s.failf("unterminated string")
		} else if err != nil {
			return s.fail(err)
		}
		switch {
		case ch == '"':
			s.buf.WriteByte('"')
			s.tok = String
			return nil
		case ch == '\\':
			if err := s.scanEscape(); err != nil {
				return err
			}
		case ch < ' ':
			return s.failf("unescaped control %q", ch)
		default:
			s.buf.WriteRune(ch)
		}
	}
}

// scanEscape scans an escape sequence whose backslash has been read. The
// sequence is kept undecoded in the token text.
func (s *Scanner) scanEscape() error {
	s.buf.WriteByte('\\')
	ch, err := s.rune()
	if err != nil {
		return s.failf("incomplete escape sequence")
	} else if !strings.ContainsRune(`"\/bfnrtu`, ch) {
		return s.failf("invalid %q after escape", ch)
	}
	s.buf.WriteRune(ch)
	if ch != 'u' {
		return nil
	}
	for range 4 {
		h, err := s.rune()
		if err != nil || !isHexDigit(h) {
			return s.failf("invalid Unicode escape")
		}
		s.buf.WriteRune(h)
	}
	return nil
}

// scanNumber scans a number whose first rune has been read. The JSON grammar
// for numbers is
//
//	number = [ "-" ] int [ "." digits ] [ ("e" | "E") [ "+" | "-" ] digits ]
//
// where int has no redundant leading zeroes.
func (s *Scanner) scanNumber(first rune) error {
	s.buf.WriteRune(first)
	n, ch, err := s.readWhile(isDigit)
	if first == '-' && n == 0 {
		return s.failf("missing digits after sign")
	} else if hasExtraLeadingZeroes(s.buf.Bytes()) {
		return s.failf("extra leading zeroes")
	}

	tok := Integer
	if err == nil && ch == '.' {
		s.buf.WriteByte('.')
		if n, ch, err = s.readWhile(isDigit); n == 0 {
			return s.failf("no digits after decimal point")
		}
		tok = Number
	}
	if err == nil && (ch == 'e' || ch == 'E') {
		s.buf.WriteRune(ch)
		if sign, err := s.rune(); err == nil {
			if sign == '+' || sign == '-' {
				s.buf.WriteRune(sign)
			} else {
				s.unrune()
			}
		}
		if n, _, err = s.readWhile(isDigit); n == 0 {
			return s.failf("missing exponent digits")
		}
		tok = Number
	}

	if err == nil {
		s.unrune()
	} else if err != io.EOF {
		return s.fail(err)
	}
	s.tok = tok
	return nil
}

// rune reads the next rune of the input and advances the read position.
func (s *Scanner) rune() (rune, error) {
	ch, nb, err := s.r.ReadRune()
	s.last = nb
	s.cur.off += nb
	s.cur.col += nb
	return ch, err
}

// unrune reverses the most recent call to rune. It must not be called twice
// in succession.
func (s *Scanner) unrune() {
	s.cur.off -= s.last
	s.cur.col -= s.last
	s.last = 0
	s.r.UnreadRune()
}

// readWhile consumes runes matching f into the token text, until EOF or a
// rune that does not match. It returns the number of runes matched and the
// first rune that did not match, which the caller must unread if needed.
func (s *Scanner) readWhile(f func(rune) bool) (int, rune, error) {
	var nr int
	for {
		ch, err := s.rune()
		if err != nil {
			return nr, 0, err
		} else if !f(ch) {
			return nr, ch, nil
		}
		s.buf.WriteRune(ch)
		nr++
	}
}

// scanError is the concrete type of errors reported by a Scanner for invalid
// input and read failures.
type scanError struct {
	at  LineCol
	off int
	err error
}

func (e *scanError) Error() string {
	return fmt.Sprintf("at %s (offset %d): %v", e.at, e.off, e.err)
}

func (e *scanError) Unwrap() error { return e.err }

func (s *Scanner) setErr(err error) error {
	s.err = err
	return err
}

func (s *Scanner) fail(err error) error {
	s.tok = Invalid
	return s.setErr(&scanError{at: s.cur.lineCol(), off: s.cur.off, err: err})
}

func (s *Scanner) failf(msg string, args ...any) error {
	return s.fail(fmt.Errorf(msg, args...))
}

func isDigit(ch rune) bool  { return '0' <= ch && ch <= '9' }
func isLetter(ch rune) bool { return 'a' <= ch && ch <= 'z' }

func isHexDigit(ch rune) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

// hasExtraLeadingZeroes reports whether the integer part of a number in buf
// has redundant leading zeroes, which the JSON grammar forbids.
//
// OK: 0, 0.1, -1.0, -0.1. Bad: -01, 01.2, -01.0, 00.1.
func hasExtraLeadingZeroes(buf []byte) bool {
	buf = bytes.TrimPrefix(buf, []byte("-"))
	return len(buf) > 1 && buf[0] == '0' && isDigit(rune(buf[1]))
}

var _ TokenSource = (*Scanner)(nil)
