package extract

import (
	"testing"
)

func TestParseRouter(t *testing.T) {
	tests := []struct {
		rest   string
		path   string
		method string
		ok     bool
	}{
		{"/users [get]", "/users", "get", true},
		{"/users/{user_id} [DELETE]", "/users/{user_id}", "delete", true},
		{"/users", "", "", false},
		{"users [get]", "", "", false},
		{"/users get", "", "", false},
		{"/users [get] extra", "", "", false},
	}
	for _, tt := range tests {
		r, ok := parseRouter(tt.rest)
		if ok != tt.ok {
			t.Errorf("parseRouter(%q) ok = %v, want %v", tt.rest, ok, tt.ok)
			continue
		}
		if ok && (r.path != tt.path || r.method != tt.method) {
			t.Errorf("parseRouter(%q) = %q %q, want %q %q", tt.rest, r.path, r.method, tt.path, tt.method)
		}
	}
}

func TestParseParam(t *testing.T) {
	p, ok := parseParam(`limit query int false "Page size" default(10)`)
	if !ok {
		t.Fatal("expected valid param")
	}
	if p.Name != "limit" || p.In != "query" || p.Type != "int" || p.Required {
		t.Errorf("unexpected param: %+v", p)
	}
	if p.Description != "Page size" {
		t.Errorf("description = %q", p.Description)
	}
	if p.Default != "10" {
		t.Errorf("default = %q", p.Default)
	}
	if !p.Declared {
		t.Error("directive params must be marked declared")
	}

	if _, ok := parseParam(`limit query int`); ok {
		t.Error("missing required clause should be rejected")
	}
	if _, ok := parseParam(`limit nowhere int false`); ok {
		t.Error("unknown location should be rejected")
	}
	if _, ok := parseParam(`limit query int maybe`); ok {
		t.Error("unknown required token should be rejected")
	}
	if _, ok := parseParam(`limit query int false garbage`); ok {
		t.Error("trailing garbage should be rejected")
	}
}

func TestParseParamQuotedDescriptionKeepsSpaces(t *testing.T) {
	p, ok := parseParam(`user_id path string true "The user ID value"`)
	if !ok {
		t.Fatal("expected valid param")
	}
	if p.Description != "The user ID value" {
		t.Errorf("description = %q", p.Description)
	}
}

func TestParseResponse(t *testing.T) {
	r, ok := parseResponse(`200 {object} User "A user"`)
	if !ok {
		t.Fatal("expected valid response")
	}
	if r.Status != "200" || r.Array || r.Schema != "User" || r.Description != "A user" {
		t.Errorf("unexpected response: %+v", r)
	}

	r, ok = parseResponse(`200 {array} User`)
	if !ok {
		t.Fatal("expected valid array response")
	}
	if !r.Array || r.Schema != "User" {
		t.Errorf("unexpected response: %+v", r)
	}

	r, ok = parseResponse(`204 "No content"`)
	if !ok {
		t.Fatal("plain status acknowledgement should parse")
	}
	if r.Schema != "" || r.Description != "No content" {
		t.Errorf("unexpected response: %+v", r)
	}

	if _, ok := parseResponse(`999 {object} User`); ok {
		t.Error("out-of-range status should be rejected")
	}
	if _, ok := parseResponse(`200 {tuple} User`); ok {
		t.Error("unknown shape should be rejected")
	}
	if _, ok := parseResponse(`200 {object}`); ok {
		t.Error("shape without schema should be rejected")
	}
	if _, ok := parseResponse(`default {object} ErrorDetail`); !ok {
		t.Error("default status should be accepted")
	}
}

func TestParseDirectivesFirstRouterWins(t *testing.T) {
	d := parseDirectives("@Router /a [get]\n@Router /b [post]\n")
	if d.router == nil || d.router.path != "/a" {
		t.Fatalf("router = %+v", d.router)
	}
	if len(d.problems) != 1 {
		t.Errorf("problems = %v, want one entry for the second @Router", d.problems)
	}
}

func TestSummaryAndDescription(t *testing.T) {
	d := parseDirectives("Fetch a user by ID.\nReturns the full record.\n@Router /users/{id} [get]\n")
	summary, desc := d.summaryAndDescription()
	if summary != "Fetch a user by ID." {
		t.Errorf("summary = %q", summary)
	}
	if desc != "Returns the full record." {
		t.Errorf("description = %q", desc)
	}

	d = parseDirectives("@Summary Explicit summary\nSome free text.\n@Router /x [get]\n")
	summary, desc = d.summaryAndDescription()
	if summary != "Explicit summary" {
		t.Errorf("summary = %q", summary)
	}
	if desc != "Some free text." {
		t.Errorf("description = %q", desc)
	}
}

func TestMetaDirectivesFirstWins(t *testing.T) {
	var meta Meta
	metaDirectives("@title First API\n@version 1.2.3\n@description One service.\n", &meta)
	metaDirectives("@title Second API\n@version 9.9.9\n", &meta)
	if meta.Title != "First API" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.Version != "1.2.3" {
		t.Errorf("version = %q", meta.Version)
	}
	if meta.Description != "One service." {
		t.Errorf("description = %q", meta.Description)
	}
}

func TestSplitQuoted(t *testing.T) {
	got := splitQuoted(`a "b c" d`)
	want := []string{"a", `"b c"`, "d"}
	if len(got) != len(want) {
		t.Fatalf("fields = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("field[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
