// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package ast_test

import (
	"strings"
	"testing"

	"github.com/creachadair/mds/mtest"
	"github.com/creachadair/odatajson"
	"github.com/creachadair/odatajson/ast"
	"github.com/creachadair/odatajson/jsonreader"
	"github.com/google/go-cmp/cmp"
)

func TestJSON(t *testing.T) {
	tests := []string{
		`null`,
		`true`,
		`-15`,
		`3.25`,
		`"a\"b"`,
		`[]`,
		`{}`,
		`[1,"two",{"three":[null,false]}]`,
		`{"@odata.type":"#NS.Person","ID":1,"Home":{"City":"Oslo"}}`,
	}
	for _, input := range tests {
		v, err := jsonreader.Parse(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Parse %q: unexpected error: %v", input, err)
		}
		if got := v.JSON(); got != input {
			t.Errorf("JSON: got %s, want %s", got, input)
		}
	}
}

func TestPlain(t *testing.T) {
	v, err := jsonreader.Parse(strings.NewReader(`{"a":[1,true,null],"b":{"c":"d"},"a":"dup"}`))
	if err != nil {
		t.Fatalf("Parse: unexpected error: %v", err)
	}
	want := map[string]any{
		"a": []any{int32(1), true, nil},
		"b": map[string]any{"c": "d"},
	}
	if diff := cmp.Diff(want, ast.Plain(v)); diff != "" {
		t.Errorf("Plain (-want, +got):\n%s", diff)
	}
	if got := v.(*ast.Object).Keys(); !cmp.Equal(got, []string{"a", "b", "a"}) {
		t.Errorf("Keys: got %q, want [a b a]", got)
	}
}

func TestNumber(t *testing.T) {
	var span odatajson.Span
	for _, v := range []any{int32(5), int64(5), float64(5)} {
		if got := ast.NewNumber(span, v).Float64(); got != 5 {
			t.Errorf("Float64(%T): got %v, want 5", v, got)
		}
	}
	bad := ast.NewNumber(span, "5")
	mtest.MustPanic(t, func() { bad.Float64() })
	mtest.MustPanic(t, func() { bad.JSON() })
}
