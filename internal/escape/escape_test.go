// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package escape_test

import (
	"testing"

	"github.com/creachadair/odatajson/internal/escape"
	"go4.org/mem"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"tab\there", `tab\there`},
		{"\x7f", "\x7f"},
		{"\x1f", `\u001f`},
		{"caf\u00e9", "caf\u00e9"},
		{"\u2028", `\u2028`},
		{"\xff", `\ufffd`},
		{"\U0001F600", "\U0001F600"},
	}
	for _, test := range tests {
		if got := string(escape.Quote(mem.S(test.input))); got != test.want {
			t.Errorf("Quote(%q): got %#q, want %#q", test.input, got, test.want)
		}
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		input, want string
		fail        bool
	}{
		{``, "", false},
		{`no escapes`, "no escapes", false},
		{`a\/b`, "a/b", false},
		{`\x`, "\ufffd", false},
		{"\\\u00e9", "\ufffd", false},
		{`\ud83d\ude00`, "\U0001F600", false},
		{`\uD83D\uDE00!`, "\U0001F600!", false},
		{`\ud83d`, "\ufffd", false},
		{`\ud83dx`, "\ufffdx", false},
		{`\ud83d\u0041`, "\ufffd\u0041", false},
		{`\ude00`, "\ufffd", false},
		{`trailing\`, "", true},
		{`\u12`, "", true},
	}
	for _, test := range tests {
		got, err := escape.Unquote(mem.S(test.input))
		if test.fail {
			if err == nil {
				t.Errorf("Unquote(%#q): got %q, want error", test.input, got)
			}
			continue
		} else if err != nil {
			t.Errorf("Unquote(%#q): unexpected error: %v", test.input, err)
			continue
		}
		if string(got) != test.want {
			t.Errorf("Unquote(%#q): got %q, want %q", test.input, got, test.want)
		}
	}
}
