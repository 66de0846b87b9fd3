// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package reader_test

import (
	"errors"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/creachadair/mds/mapset"
	"github.com/creachadair/odatajson"
	"github.com/creachadair/odatajson/ast"
	"github.com/creachadair/odatajson/edm"
	"github.com/creachadair/odatajson/jsonreader"
	"github.com/creachadair/odatajson/metadata"
	"github.com/creachadair/odatajson/reader"
	"github.com/google/go-cmp/cmp"
)

const testModel = `
namespace: NS
types:
  - name: Person
    kind: entity
    key: [ID]
    properties:
      - {name: ID, type: Edm.Int32, nullable: false}
      - {name: Name, type: Edm.String}
      - {name: Home, type: NS.Address}
      - {name: Friends, type: Collection(NS.Person), navigation: true}
  - name: Employee
    kind: entity
    base: Person
    properties:
      - {name: Level, type: Edm.Int32}
  - name: Address
    kind: complex
    open: true
    properties:
      - {name: City, type: Edm.String}
sources:
  - {name: People, type: Person}
  - {name: Boss, kind: singleton, type: Employee}
operations:
  - name: Rate
    parameters:
      - {name: rating, type: Edm.Int32, nullable: false}
      - {name: notes, type: Collection(Edm.String)}
`

func loadModel(t *testing.T) *edm.Model {
	t.Helper()
	m, err := edm.LoadYAML(strings.NewReader(testModel))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	return m
}

var variants = []struct {
	name    string
	reorder bool
}{
	{"Buffering", false},
	{"Reordering", true},
}

// newSource returns cfg with a token reader over input.
func newSource(input string, reorder bool, cfg reader.Source) reader.Source {
	ts := odatajson.NewScanner(strings.NewReader(input))
	if reorder {
		cfg.Tokens = jsonreader.NewReordering(ts, 100)
	} else {
		cfg.Tokens = jsonreader.NewBuffering(ts, "error", 100)
	}
	return cfg
}

func propNames(res *reader.Resource) []string {
	var names []string
	for _, p := range res.Properties {
		names = append(names, p.Name)
	}
	return names
}

func TestResource(t *testing.T) {
	m := loadModel(t)
	people := m.FindNavigationSource("People")
	const input = `{
  "@odata.context": "$metadata#People/$entity",
  "@odata.type": "#NS.Employee",
  "@odata.etag": "W/\"1\"",
  "ID": 1,
  "Name@NS.note": "x",
  "Name": "Ada",
  "Level": 3,
  "Home": {"City": "Oslo", "Zip": "0150"},
  "Friends@odata.navigationLink": "People(1)/Friends"
}`
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			src := newSource(input, v.reorder, reader.Source{Model: m, Response: true})
			rr := reader.NewResourceReader(src, people, nil, false)
			res, err := rr.Read()
			if err != nil {
				t.Fatalf("Read: unexpected error: %v", err)
			}
			if !rr.Finished() {
				t.Error("Finished: got false, want true")
			}
			if res.Type != m.FindType("NS.Employee") || res.TypeName != "NS.Employee" {
				t.Errorf("Type: got %v (%q), want NS.Employee", res.Type, res.TypeName)
			}
			if res.ETag != `W/"1"` {
				t.Errorf("ETag: got %q", res.ETag)
			}
			if diff := cmp.Diff([]string{"ID", "Name", "Level", "Home", "Friends"}, propNames(res)); diff != "" {
				t.Errorf("Properties (-want, +got):\n%s", diff)
			}
			if p := res.Find("Name"); p == nil || p.Value.JSON() != `"Ada"` || p.Annotations["NS.note"] == nil {
				t.Errorf("Name: got %+v", p)
			}
			if p := res.Find("Friends"); p == nil || p.Value != nil || p.Annotations["odata.navigationLink"] == nil {
				t.Errorf("Friends: got %+v", p)
			}
			if _, err := rr.Read(); err != io.EOF {
				t.Errorf("Read again: got %v, want EOF", err)
			}
		})
	}
}

func TestAnnotationOrder(t *testing.T) {
	m := loadModel(t)
	people := m.FindNavigationSource("People")
	const input = `{"@odata.context":"$metadata#People/$entity","ID":1,"@odata.type":"#NS.Employee","Level":3}`

	// A reader that can search ahead finds the type wherever it is.
	src := newSource(input, true, reader.Source{Model: m, Response: true})
	res, err := reader.NewResourceReader(src, people, nil, false).Read()
	if err != nil {
		t.Fatalf("Reordering: unexpected error: %v", err)
	} else if res.TypeName != "NS.Employee" {
		t.Errorf("Reordering: got type %q, want NS.Employee", res.TypeName)
	}

	// A reader that cannot must see the type before any data.
	src = newSource(input, false, reader.Source{Model: m, Response: true})
	if res, err := reader.NewResourceReader(src, people, nil, false).Read(); !errors.Is(err, reader.ErrAnnotationOrder) {
		t.Errorf("Buffering: got %+v, %v; want %v", res, err, reader.ErrAnnotationOrder)
	}
}

func TestResourceErrors(t *testing.T) {
	m := loadModel(t)
	people := m.FindNavigationSource("People")
	tests := []struct {
		input    string
		response bool
		level    metadata.Level
		want     error
	}{
		{`{"ID":1}`, true, metadata.Minimal, reader.ErrMissingAnnotation},
		{`{"@odata.context":"c","@odata.type":"#NS.Person","ID":1}`, true, metadata.Full, reader.ErrMissingAnnotation},
		{`{"@odata.context":"c","ID":1,"Bogus":2}`, false, metadata.Minimal, reader.ErrUndeclared},
		{`{"ID":"one"}`, false, metadata.Minimal, reader.ErrInvalidValue},
		{`{"ID":null}`, false, metadata.Minimal, reader.ErrInvalidValue},
		{`{"Home":[1]}`, false, metadata.Minimal, reader.ErrInvalidValue},
		{`{"@odata.type":"#NS.Address"}`, false, metadata.Minimal, reader.ErrTypeMismatch},
		{`{"@odata.type":"#NS.Nope"}`, false, metadata.Minimal, reader.ErrTypeMismatch},
		{`{"@odata.id":5}`, false, metadata.Minimal, reader.ErrMalformed},
		{`{"@odata.removed":{}}`, false, metadata.Minimal, reader.ErrMalformed},
		{`{"Friends@odata.delta":[]}`, false, metadata.Minimal, reader.ErrMalformed},
	}
	for _, test := range tests {
		for _, v := range variants {
			src := newSource(test.input, v.reorder, reader.Source{Model: m, Response: test.response, Level: test.level})
			res, err := reader.NewResourceReader(src, people, nil, false).Read()
			if !errors.Is(err, test.want) {
				t.Errorf("%s: Read(%#q): got %+v, %v; want %v", v.name, test.input, res, err, test.want)
			}
		}
	}

	// The same payloads are fine when the level does not require annotations.
	for _, input := range []string{
		`{"ID":1}`,
		`{"@odata.context":"c","@odata.type":"#NS.Person","@odata.id":"People(1)","ID":1}`,
	} {
		src := newSource(input, false, reader.Source{Model: m, Response: true, Level: metadata.None})
		if _, err := reader.NewResourceReader(src, people, nil, false).Read(); err != nil {
			t.Errorf("Read(%#q) at level none: unexpected error: %v", input, err)
		}
	}
}

func TestResourceDelta(t *testing.T) {
	m := loadModel(t)
	people := m.FindNavigationSource("People")
	const input = `{"ID":1,"Friends@delta":[{"@removed":{"reason":"deleted"},"ID":2}]}`

	src := newSource(input, false, reader.Source{Model: m, OptionalPrefix: true})
	res, err := reader.NewResourceReader(src, people, nil, true).Read()
	if err != nil {
		t.Fatalf("Read: unexpected error: %v", err)
	}
	if p := res.Find("Friends"); p == nil || p.Annotations["odata.delta"] == nil {
		t.Errorf("Friends: got %+v, want delta annotation", p)
	}

	src = newSource(input, false, reader.Source{Model: m, OptionalPrefix: true})
	if _, err := reader.NewResourceReader(src, people, nil, false).Read(); !errors.Is(err, reader.ErrMalformed) {
		t.Errorf("Read without delta: got %v, want %v", err, reader.ErrMalformed)
	}
}

func TestResourceSet(t *testing.T) {
	m := loadModel(t)
	people := m.FindNavigationSource("People")
	const input = `{
  "@odata.context": "$metadata#People",
  "@odata.count": 2,
  "value": [{"ID": 1}, {"@odata.type": "#NS.Employee", "ID": 2, "Level": 7}],
  "@odata.nextLink": "People?$skip=2"
}`
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			src := newSource(input, v.reorder, reader.Source{Model: m, Response: true})
			rs := reader.NewResourceSetReader(src, people, nil, reader.SetOptions{})

			var got []string
			for {
				res, err := rs.Next()
				if err == io.EOF {
					break
				} else if err != nil {
					t.Fatalf("Next: unexpected error: %v", err)
				}
				if rs.Finished() {
					t.Error("Finished before end of set")
				}
				got = append(got, res.TypeName+" "+res.Find("ID").Value.JSON())
			}
			if diff := cmp.Diff([]string{"NS.Person 1", "NS.Employee 2"}, got); diff != "" {
				t.Errorf("Resources (-want, +got):\n%s", diff)
			}
			if !rs.Finished() {
				t.Error("Finished: got false, want true")
			}
			if _, err := rs.Next(); err != io.EOF {
				t.Errorf("Next after end: got %v, want EOF", err)
			}
			ann := rs.Annotations()
			for _, term := range []string{"odata.context", "odata.count", "odata.nextLink"} {
				if ann[term] == nil {
					t.Errorf("Annotation %q missing", term)
				}
			}
		})
	}
}

func TestResourceSetURIParameter(t *testing.T) {
	m := loadModel(t)
	people := m.FindNavigationSource("People")
	src := newSource(`[{"ID":1},{"ID":2}]`, false, reader.Source{Model: m})
	rs := reader.NewResourceSetReader(src, people, nil, reader.SetOptions{URIParameter: true})
	var n int
	for {
		_, err := rs.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Next: unexpected error: %v", err)
		}
		n++
	}
	if n != 2 {
		t.Errorf("Got %d resources, want 2", n)
	}

	src = newSource(`{"value":[]}`, false, reader.Source{Model: m})
	rs = reader.NewResourceSetReader(src, people, nil, reader.SetOptions{URIParameter: true})
	if _, err := rs.Next(); err == nil {
		t.Error("Next: got nil, want error for object parameter")
	}
}

func TestInStreamError(t *testing.T) {
	const input = `{"error":{"code":"E1","message":"boom","details":[{"code":"D1"}]}}`
	for _, v := range variants {
		src := newSource(input, v.reorder, reader.Source{Response: true})
		rs := reader.NewResourceSetReader(src, nil, nil, reader.SetOptions{})
		_, err := rs.Next()
		var oe *reader.ODataError
		if !errors.As(err, &oe) {
			t.Errorf("%s: Next: got %v, want *ODataError", v.name, err)
			continue
		}
		if oe.Code != "E1" || oe.Message != "boom" || len(oe.Details) != 1 || oe.Details[0].Code != "D1" {
			t.Errorf("%s: got %+v", v.name, oe)
		}
		if !rs.Finished() {
			t.Errorf("%s: Finished: got false, want true", v.name)
		}
	}
}

func TestDelta(t *testing.T) {
	m := loadModel(t)
	people := m.FindNavigationSource("People")
	const input = `{
  "@odata.context": "$metadata#People/$delta",
  "value": [
    {"ID": 1, "Name": "A"},
    {"@removed": {"reason": "deleted"}, "ID": 2},
    {"@odata.context": "$metadata#People/$deletedEntity", "id": "People(3)", "reason": "changed"},
    {"@odata.context": "$metadata#People/$link", "source": "People(1)", "relationship": "Friends", "target": "People(2)"},
    {"@odata.context": "$metadata#People/$deletedLink", "source": "People(1)", "relationship": "Friends", "target": "People(3)"}
  ],
  "@odata.deltaLink": "People?$deltatoken=5"
}`
	type item struct {
		Kind    string
		ID      string
		Removed string
		Link    reader.Link
	}
	want := []item{
		{Kind: "resource"},
		{Kind: "deleted resource", Removed: `{"reason":"deleted"}`},
		{Kind: "deleted resource", ID: "People(3)", Removed: `{"reason":"changed"}`},
		{Kind: "link", Link: reader.Link{Source: "People(1)", Relationship: "Friends", Target: "People(2)"}},
		{Kind: "deleted link", Link: reader.Link{Source: "People(1)", Relationship: "Friends", Target: "People(3)"}},
	}
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			src := newSource(input, v.reorder, reader.Source{Model: m, Response: true, OptionalPrefix: true})
			dr := reader.NewDeltaReader(src, people, nil)
			var got []item
			for {
				di, err := dr.Next()
				if err == io.EOF {
					break
				} else if err != nil {
					t.Fatalf("Next: unexpected error: %v", err)
				}
				it := item{Kind: di.Kind.String()}
				if r := di.Resource; r != nil {
					it.ID = r.ID
					if r.Removed != nil {
						it.Removed = r.Removed.JSON()
					}
				}
				if di.Link != nil {
					it.Link = *di.Link
				}
				got = append(got, it)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Items (-want, +got):\n%s", diff)
			}
			if dr.Annotations()["odata.deltaLink"] == nil {
				t.Error("Missing @odata.deltaLink")
			}
		})
	}

	// A resource set reader in delta mode reports deleted resources, but
	// not links.
	src := newSource(input, false, reader.Source{Model: m, Response: true, OptionalPrefix: true})
	rs := reader.NewResourceSetReader(src, people, nil, reader.SetOptions{Delta: true})
	var removed int
	for {
		res, err := rs.Next()
		if errors.Is(err, reader.ErrMalformed) {
			break
		} else if err != nil {
			t.Fatalf("Next: got %v, want %v", err, reader.ErrMalformed)
		}
		if res.Removed != nil {
			removed++
		}
	}
	if removed != 2 {
		t.Errorf("Got %d removed resources, want 2", removed)
	}

	// Without delta mode, removed markers are not permitted.
	src = newSource(`{"value":[{"@removed":{}}]}`, false, reader.Source{Model: m, OptionalPrefix: true})
	rs = reader.NewResourceSetReader(src, people, nil, reader.SetOptions{})
	if _, err := rs.Next(); !errors.Is(err, reader.ErrMalformed) {
		t.Errorf("Next: got %v, want %v", err, reader.ErrMalformed)
	}
}

func TestCollection(t *testing.T) {
	intType := &edm.TypeRef{Name: "Edm.Int32", Collection: true}
	tests := []struct {
		input string
		item  *edm.TypeRef
		want  []string
		err   error
	}{
		{`{"@odata.context":"c","value":[1,2,3]}`, intType, []string{"1", "2", "3"}, nil},
		{`{"@odata.context":"c","value":["a",{"b":1}]}`, nil, []string{`"a"`, `{"b":1}`}, nil},
		{`{"@odata.context":"c","value":[1,"x"]}`, intType, []string{"1"}, reader.ErrInvalidValue},
		{`{"@odata.context":"c","value":[[1]]}`, nil, nil, reader.ErrMalformed},
		{`{"@odata.context":"c","items":[]}`, nil, nil, reader.ErrMalformed},
		{`{"@odata.context":"c"}`, nil, nil, reader.ErrMalformed},
	}
	for _, test := range tests {
		for _, v := range variants {
			src := newSource(test.input, v.reorder, reader.Source{Response: true})
			cr := reader.NewCollectionReader(src, test.item)
			var got []string
			var err error
			for {
				var item ast.Value
				item, err = cr.Next()
				if err != nil {
					break
				}
				got = append(got, item.JSON())
			}
			if test.err == nil && err != io.EOF {
				t.Errorf("%s: Next(%#q): got %v, want EOF", v.name, test.input, err)
			} else if test.err != nil && !errors.Is(err, test.err) {
				t.Errorf("%s: Next(%#q): got %v, want %v", v.name, test.input, err, test.err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("%s: Items (-want, +got):\n%s", v.name, diff)
			}
		}
	}
}

func TestParameters(t *testing.T) {
	m := loadModel(t)
	op := m.FindOperation("NS.Rate")
	tests := []struct {
		input string
		want  []string
		err   error
	}{
		{`{"rating":5,"notes":["a","b"]}`, []string{`rating=5`, `notes=["a","b"]`}, nil},
		{`{"notes@odata.type":"#Collection(String)","rating":1}`, []string{`rating=1`}, nil},
		{`{"rating":5,"bogus":1}`, []string{`rating=5`}, reader.ErrUndeclared},
		{`{"rating":5,"rating":6}`, []string{`rating=5`}, reader.ErrMalformed},
		{`{"rating":"high"}`, nil, reader.ErrInvalidValue},
		{`{"notes":[1]}`, nil, reader.ErrInvalidValue},
		{`{"notes":null}`, []string{`notes=null`}, reader.ErrInvalidValue}, // rating is required
		{``, nil, reader.ErrInvalidValue},
	}
	for _, test := range tests {
		src := newSource(test.input, false, reader.Source{Model: m})
		pr := reader.NewParameterReader(src, op)
		var got []string
		var err error
		for {
			var name string
			var val ast.Value
			name, val, err = pr.Next()
			if err != nil {
				break
			}
			got = append(got, name+"="+val.JSON())
		}
		if test.err == nil && err != io.EOF {
			t.Errorf("Next(%#q): got %v, want EOF", test.input, err)
		} else if test.err != nil && !errors.Is(err, test.err) {
			t.Errorf("Next(%#q): got %v, want %v", test.input, err, test.err)
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("Parameters of %#q (-want, +got):\n%s", test.input, diff)
		}
		if !pr.Finished() {
			t.Errorf("Finished(%#q): got false, want true", test.input)
		}
	}
}

func TestBatch(t *testing.T) {
	type part struct {
		ID, Group, Method, URL string
		Status                 int
		DependsOn              []string
		Headers                map[string]string
		Body                   string
	}
	collect := func(t *testing.T, br *reader.BatchReader) ([]part, error) {
		t.Helper()
		var out []part
		for {
			p, err := br.Next()
			if err == io.EOF {
				return out, nil
			} else if err != nil {
				return out, err
			}
			pt := part{
				ID: p.ID, Group: p.AtomicityGroup, Method: p.Method, URL: p.URL,
				Status: p.Status, DependsOn: p.DependsOn, Headers: p.Headers,
			}
			if p.Body != nil {
				pt.Body = p.Body.JSON()
			}
			out = append(out, pt)
		}
	}

	t.Run("Requests", func(t *testing.T) {
		const input = `{"requests":[
  {"id":"1","method":"GET","url":"People"},
  {"id":"2","atomicityGroup":"g","dependsOn":["1"],"method":"POST","url":"People",
   "headers":{"content-type":"application/json"},"body":{"ID":9}}
]}`
		got, err := collect(t, reader.NewBatchReader(newSource(input, false, reader.Source{})))
		if err != nil {
			t.Fatalf("Next: unexpected error: %v", err)
		}
		want := []part{
			{ID: "1", Method: "GET", URL: "People"},
			{ID: "2", Group: "g", Method: "POST", URL: "People", DependsOn: []string{"1"},
				Headers: map[string]string{"content-type": "application/json"}, Body: `{"ID":9}`},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Parts (-want, +got):\n%s", diff)
		}
	})

	t.Run("Responses", func(t *testing.T) {
		const input = `{"responses":[{"id":"1","status":200,"body":{"value":[]}},{"id":"2","status":204}]}`
		got, err := collect(t, reader.NewBatchReader(newSource(input, true, reader.Source{Response: true})))
		if err != nil {
			t.Fatalf("Next: unexpected error: %v", err)
		}
		want := []part{
			{ID: "1", Status: 200, Body: `{"value":[]}`},
			{ID: "2", Status: 204},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Parts (-want, +got):\n%s", diff)
		}
	})

	for _, test := range []struct {
		input    string
		response bool
	}{
		{`{"responses":[]}`, false},
		{`{"requests":[{"method":"GET","url":"x"}]}`, false},
		{`{"requests":[{"id":"1","url":"x"}]}`, false},
		{`{"responses":[{"id":"1","status":"ok"}]}`, true},
		{`{"responses":[{"id":"1","status":99}]}`, true},
		{`{"responses":[{"id":"1","status":200,"headers":{"a":1}}]}`, true},
		{`{"responses":[3]}`, true},
		{`{"requests":[{"id":"1","method":"GET","url":"x","dependsOn":"0"}]}`, false},
		{`{"requests":[{"id":"1","method":"GET","url":"x","headers":[]}]}`, false},
	} {
		src := newSource(test.input, false, reader.Source{Response: test.response})
		if _, err := collect(t, reader.NewBatchReader(src)); !errors.Is(err, reader.ErrMalformed) {
			t.Errorf("Batch %#q: got %v, want %v", test.input, err, reader.ErrMalformed)
		}
	}
}

func TestReadError(t *testing.T) {
	const input = `{"error":{"code":"E1","message":"boom","target":"ID",
  "details":[{"code":"D1","message":"m"}],"innererror":{"trace":"t"}},"@NS.a":1}`
	for _, v := range variants {
		src := newSource(input, v.reorder, reader.Source{Response: true})
		oe, err := reader.ReadError(src)
		if err != nil {
			t.Fatalf("%s: ReadError: unexpected error: %v", v.name, err)
		}
		if got, want := oe.Error(), "odata error E1: boom (target ID)"; got != want {
			t.Errorf("%s: Error: got %q, want %q", v.name, got, want)
		}
		if diff := cmp.Diff([]reader.ErrorDetail{{Code: "D1", Message: "m"}}, oe.Details); diff != "" {
			t.Errorf("%s: Details (-want, +got):\n%s", v.name, diff)
		}
		if oe.InnerError == nil || oe.InnerError.JSON() != `{"trace":"t"}` {
			t.Errorf("%s: InnerError: got %v", v.name, oe.InnerError)
		}
		if oe.Annotations["NS.a"] == nil {
			t.Errorf("%s: missing annotation", v.name)
		}
	}

	for _, input := range []string{`{}`, `{"error":1}`, `{"error":{},"other":2}`, `{"error":{},"error":{}}`} {
		src := newSource(input, false, reader.Source{Response: true})
		if oe, err := reader.ReadError(src); !errors.Is(err, reader.ErrMalformed) {
			t.Errorf("ReadError(%#q): got %v, %v; want %v", input, oe, err, reader.ErrMalformed)
		}
	}
}

func TestReadServiceDocument(t *testing.T) {
	const input = `{"@odata.context":"$metadata","value":[
  {"name":"People","url":"People"},
  {"name":"Boss","kind":"Singleton","url":"Boss","title":"The boss"}]}`
	for _, v := range variants {
		src := newSource(input, v.reorder, reader.Source{Response: true})
		doc, err := reader.ReadServiceDocument(src)
		if err != nil {
			t.Fatalf("%s: ReadServiceDocument: unexpected error: %v", v.name, err)
		}
		want := &reader.ServiceDocument{
			Context: "$metadata",
			Elements: []reader.ServiceElement{
				{Name: "People", Kind: "EntitySet", URL: "People"},
				{Name: "Boss", Kind: "Singleton", URL: "Boss", Title: "The boss"},
			},
		}
		if diff := cmp.Diff(want, doc); diff != "" {
			t.Errorf("%s: Document (-want, +got):\n%s", v.name, diff)
		}
	}

	for _, input := range []string{
		`{"@odata.context":"$metadata","value":[{"name":"People"}]}`,
		`{"@odata.context":"$metadata","value":[{"name":"P","url":"P","kind":"Table"}]}`,
	} {
		src := newSource(input, false, reader.Source{Response: true})
		if _, err := reader.ReadServiceDocument(src); !errors.Is(err, reader.ErrMalformed) {
			t.Errorf("ReadServiceDocument(%#q): got %v, want %v", input, err, reader.ErrMalformed)
		}
	}
}

func TestEntityReferenceLinks(t *testing.T) {
	src := newSource(`{"@odata.context":"$metadata#$ref","@odata.id":"People(1)"}`, false, reader.Source{Response: true})
	if id, err := reader.ReadEntityReferenceLink(src); err != nil || id != "People(1)" {
		t.Errorf("ReadEntityReferenceLink: got %q, %v; want People(1), nil", id, err)
	}
	src = newSource(`{"@odata.context":"$metadata#$ref"}`, false, reader.Source{Response: true})
	if id, err := reader.ReadEntityReferenceLink(src); !errors.Is(err, reader.ErrMalformed) {
		t.Errorf("ReadEntityReferenceLink: got %q, %v; want %v", id, err, reader.ErrMalformed)
	}
	src = newSource(`{"@odata.id":"People(1)"}`, false, reader.Source{Response: true})
	if id, err := reader.ReadEntityReferenceLink(src); !errors.Is(err, reader.ErrMissingAnnotation) {
		t.Errorf("ReadEntityReferenceLink: got %q, %v; want %v", id, err, reader.ErrMissingAnnotation)
	}

	const input = `{"@odata.context":"$metadata#Collection($ref)",
  "value":[{"@odata.id":"People(1)"},{"@odata.id":"People(2)"}],
  "@odata.count":2,"@odata.nextLink":"next"}`
	for _, v := range variants {
		src := newSource(input, v.reorder, reader.Source{Response: true})
		links, err := reader.ReadEntityReferenceLinks(src)
		if err != nil {
			t.Fatalf("%s: ReadEntityReferenceLinks: unexpected error: %v", v.name, err)
		}
		count := int64(2)
		want := &reader.EntityReferenceLinks{Links: []string{"People(1)", "People(2)"}, Count: &count, NextLink: "next"}
		if diff := cmp.Diff(want, links); diff != "" {
			t.Errorf("%s: Links (-want, +got):\n%s", v.name, diff)
		}
	}
}

func TestReadProperty(t *testing.T) {
	m := loadModel(t)
	ref := func(s string) *edm.TypeRef {
		r, err := edm.ParseTypeRef(s)
		if err != nil {
			t.Fatalf("ParseTypeRef(%q): %v", s, err)
		}
		return &r
	}
	tests := []struct {
		input    string
		expected *edm.TypeRef
		want     string
		err      error
	}{
		{`{"@odata.context":"c","value":5}`, ref("Edm.Int32"), `5`, nil},
		{`{"value":"x","@odata.context":"c"}`, nil, `"x"`, nil},
		{`{"@odata.context":"c","@odata.null":true}`, ref("Edm.String"), `null`, nil},
		{`{"@odata.context":"c","City":"Oslo"}`, ref("NS.Address"), `{"City":"Oslo"}`, nil},
		{`{"@odata.context":"c","City":"Oslo","Zip":"1"}`, nil, `{"City":"Oslo","Zip":"1"}`, nil},
		{`{"@odata.context":"c","value":["a"]}`, ref("Collection(Edm.String)"), `["a"]`, nil},
		{`{"@odata.context":"c","value":"x"}`, ref("Edm.Int32"), ``, reader.ErrInvalidValue},
		{`{"@odata.context":"c","value":"x"}`, ref("Collection(Edm.String)"), ``, reader.ErrInvalidValue},
		{`{"@odata.context":"c","other":"x"}`, ref("Edm.String"), ``, reader.ErrMalformed},
		{`{"@odata.context":"c"}`, nil, ``, reader.ErrMalformed},
		{`{"@odata.context":"c","@odata.null":true,"value":1}`, nil, ``, reader.ErrMalformed},
		{`{"value":1}`, nil, ``, reader.ErrMissingAnnotation},
	}
	for _, test := range tests {
		src := newSource(test.input, false, reader.Source{Model: m, Response: true})
		p, err := reader.ReadProperty(src, test.expected)
		if test.err != nil {
			if !errors.Is(err, test.err) {
				t.Errorf("ReadProperty(%#q): got %v, want %v", test.input, err, test.err)
			}
			continue
		} else if err != nil {
			t.Errorf("ReadProperty(%#q): unexpected error: %v", test.input, err)
			continue
		}
		if got := p.Value.JSON(); got != test.want {
			t.Errorf("ReadProperty(%#q): got %s, want %s", test.input, got, test.want)
		}
	}
}

func sortedKinds(s mapset.Set[reader.PayloadKind]) []string {
	var out []string
	for k := range s {
		out = append(out, k.String())
	}
	slices.Sort(out)
	return out
}

func TestDetectPayloadKind(t *testing.T) {
	m := loadModel(t)
	tests := []struct {
		input string
		want  []string
	}{
		{`{"@odata.context":"$metadata","value":[]}`, []string{"service document"}},
		{`{"@odata.context":"http://host/svc/$metadata","value":[]}`, []string{"service document"}},
		{`{"@odata.context":"$metadata#$ref","@odata.id":"x"}`, []string{"entity reference link"}},
		{`{"@odata.context":"$metadata#Collection($ref)","value":[]}`, []string{"entity reference links"}},
		{`{"@odata.context":"$metadata#People/$delta","value":[]}`, []string{"delta"}},
		{`{"@odata.context":"$metadata#People/$entity","ID":1}`, []string{"resource"}},
		{`{"@odata.context":"$metadata#People","value":[]}`, []string{"resource set"}},
		{`{"@odata.context":"$metadata#People(Name,ID)","value":[]}`, []string{"resource set"}},
		{`{"@odata.context":"$metadata#Boss","ID":1}`, []string{"resource"}},
		{`{"@odata.context":"$metadata#People(1)/Name","value":"A"}`, []string{"property"}},
		{`{"@odata.context":"$metadata#People(1)/Friends","value":[]}`, []string{"resource set"}},
		{`{"@odata.context":"$metadata#People(1)/Home/City","value":"Oslo"}`, []string{"property"}},
		{`{"@odata.context":"$metadata#Collection(Edm.String)","value":[]}`, []string{"collection", "property"}},
		{`{"@odata.context":"$metadata#Collection(NS.Person)","value":[]}`, []string{"resource set"}},
		{`{"@odata.context":"$metadata#Edm.Int32","value":1}`, []string{"property"}},
		{`{"@odata.context":"$metadata#NS.Address","City":"Oslo"}`, []string{"property"}},
		{`{"@odata.context":"$metadata#NS.Person","ID":1}`, []string{"resource"}},
		{`{"error":{"code":"E"}}`, []string{"error"}},
		{`{"responses":[]}`, []string{"batch"}},
		{`{"a":1}`, nil},
		{`[1]`, nil},
		{`{"@odata.context":"nowhere"}`, nil},
	}
	for _, test := range tests {
		for _, v := range variants {
			src := newSource(test.input, v.reorder, reader.Source{Model: m, Response: true})
			got, err := reader.DetectPayloadKind(src)
			if err != nil {
				t.Errorf("%s: DetectPayloadKind(%#q): unexpected error: %v", v.name, test.input, err)
				continue
			}
			if diff := cmp.Diff(test.want, sortedKinds(got)); diff != "" {
				t.Errorf("%s: DetectPayloadKind(%#q) (-want, +got):\n%s", v.name, test.input, diff)
			}
		}
	}

	src := newSource(`{"@odata.context":1}`, false, reader.Source{Response: true})
	if got, err := reader.DetectPayloadKind(src); !errors.Is(err, reader.ErrMalformed) {
		t.Errorf("DetectPayloadKind: got %v, %v; want %v", got, err, reader.ErrMalformed)
	}
}

func TestDetectThenRead(t *testing.T) {
	m := loadModel(t)
	people := m.FindNavigationSource("People")
	const input = `{"@odata.context":"$metadata#People","value":[{"ID":1},{"ID":2}]}`
	for _, v := range variants {
		src := newSource(input, v.reorder, reader.Source{Model: m, Response: true})
		kinds, err := reader.DetectPayloadKind(src)
		if err != nil {
			t.Fatalf("%s: DetectPayloadKind: %v", v.name, err)
		} else if !kinds.Has(reader.ResourceSetKind) {
			t.Fatalf("%s: DetectPayloadKind: got %v, want resource set", v.name, sortedKinds(kinds))
		}
		rs := reader.NewResourceSetReader(src, people, nil, reader.SetOptions{})
		var n int
		for {
			if _, err := rs.Next(); err == io.EOF {
				break
			} else if err != nil {
				t.Fatalf("%s: Next: unexpected error: %v", v.name, err)
			}
			n++
		}
		if n != 2 {
			t.Errorf("%s: got %d resources, want 2", v.name, n)
		}
	}
}
