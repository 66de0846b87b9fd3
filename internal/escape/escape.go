// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

// Package escape handles quoting and unquoting of JSON strings.
//
// Unquote decodes UTF-16 surrogate pairs written as two \u escapes into a
// single rune, as OData services emit them for characters outside the Basic
// Multilingual Plane.
package escape

import (
	"errors"
	"unicode/utf16"
	"unicode/utf8"

	"go4.org/mem"
)

// shortEsc maps bytes to their two-character escapes. Zero means the byte is
// copied through, 'u' means it is written as a \u00XX escape.
var shortEsc = func() (t [utf8.RuneSelf]byte) {
	for i := range ' ' {
		t[i] = 'u'
	}
	t['\b'], t['\f'], t['\n'], t['\r'], t['\t'] = 'b', 'f', 'n', 'r', 't'
	t['"'], t['\\'] = '"', '\\'
	return
}()

const hexDigit = "0123456789abcdef"

// Quote escapes src for inclusion in a JSON string. The line and paragraph
// separators and the replacement rune are escaped; other non-ASCII runes are
// copied through.
func Quote(src mem.RO) []byte {
	buf := make([]byte, 0, src.Len()+2)
	for src.Len() != 0 {
		r, n := mem.DecodeRune(src)
		src = src.SliceFrom(n)

		if r < utf8.RuneSelf {
			switch e := shortEsc[r]; e {
			case 0:
				buf = append(buf, byte(r))
			case 'u':
				buf = appendU(buf, r)
			default:
				buf = append(buf, '\\', e)
			}
			continue
		}
		if r == utf8.RuneError || r == '\u2028' || r == '\u2029' {
			buf = appendU(buf, r)
		} else {
			buf = utf8.AppendRune(buf, r)
		}
	}
	return buf
}

func appendU(buf []byte, r rune) []byte {
	return append(buf, '\\', 'u',
		hexDigit[r>>12&15], hexDigit[r>>8&15], hexDigit[r>>4&15], hexDigit[r&15])
}

var (
	errIncomplete        = errors.New("incomplete escape sequence")
	errIncompleteUnicode = errors.New("incomplete Unicode escape")
)

// Unquote decodes the body of a JSON string, without its enclosing quotation
// marks.
//
// Invalid escapes and unpaired surrogates are replaced by the Unicode
// replacement rune. Unquote reports an error for an incomplete escape
// sequence.
func Unquote(src mem.RO) ([]byte, error) {
	i := mem.IndexByte(src, '\\')
	if i < 0 {
		return mem.Append(make([]byte, 0, src.Len()), src), nil
	}

	dec := make([]byte, 0, src.Len())
	for i >= 0 {
		dec = mem.Append(dec, src.SliceTo(i))
		src = src.SliceFrom(i + 1)
		if src.Len() == 0 {
			return nil, errIncomplete
		}

		c, n := mem.DecodeRune(src)
		src = src.SliceFrom(n)
		switch c {
		case '"', '\\', '/':
			dec = append(dec, byte(c))
		case 'b':
			dec = append(dec, '\b')
		case 'f':
			dec = append(dec, '\f')
		case 'n':
			dec = append(dec, '\n')
		case 'r':
			dec = append(dec, '\r')
		case 't':
			dec = append(dec, '\t')
		case 'u':
			r, rest, err := unicodeEscape(src)
			if err != nil {
				return nil, err
			}
			dec = utf8.AppendRune(dec, r)
			src = rest
		default:
			dec = utf8.AppendRune(dec, utf8.RuneError)
		}
		i = mem.IndexByte(src, '\\')
	}
	return mem.Append(dec, src), nil
}

// unicodeEscape decodes the hex digits of a \u escape at the start of src,
// and the low half of a surrogate pair if one follows. It returns the decoded
// rune and the remainder of src.
func unicodeEscape(src mem.RO) (rune, mem.RO, error) {
	if src.Len() < 4 {
		return 0, src, errIncompleteUnicode
	}
	r1, ok := parseHex4(src)
	src = src.SliceFrom(4)
	if !ok {
		return utf8.RuneError, src, nil
	}
	if !utf16.IsSurrogate(r1) {
		return r1, src, nil
	}
	if src.Len() >= 6 && src.At(0) == '\\' && src.At(1) == 'u' {
		if r2, ok := parseHex4(src.SliceFrom(2)); ok {
			if r := utf16.DecodeRune(r1, r2); r != utf8.RuneError {
				return r, src.SliceFrom(6), nil
			}
		}
	}
	return utf8.RuneError, src, nil
}

// parseHex4 parses the first four bytes of data as hexadecimal digits.
func parseHex4(data mem.RO) (rune, bool) {
	var v rune
	for i := range 4 {
		b := data.At(i)
		v <<= 4
		switch {
		case '0' <= b && b <= '9':
			v += rune(b - '0')
		case 'a' <= b && b <= 'f':
			v += rune(b - 'a' + 10)
		case 'A' <= b && b <= 'F':
			v += rune(b - 'A' + 10)
		default:
			return 0, false
		}
	}
	return v, true
}
