package api

import (
	"testing"

	"github.com/autodocgen/autodocgen/internal/diag"
	"github.com/autodocgen/autodocgen/internal/extract"
)

func TestResolvePrimitives(t *testing.T) {
	var diags diag.List
	r := NewRegistry(nil, nil, &diags)

	tests := []struct {
		token string
		want  TypeDescriptor
	}{
		{"string", Prim(String)},
		{"int64", Prim(Integer)},
		{"float64", Prim(Number)},
		{"bool", Prim(Boolean)},
		{"boolean", Prim(Boolean)},
		{"integer", Prim(Integer)},
		{"number", Prim(Number)},
		{"any", Prim(Object)},
		{"map[string]int", Prim(Object)},
	}
	for _, tt := range tests {
		got := r.Resolve(tt.token, "f.go", 1, &diags)
		if got.Kind != tt.want.Kind || got.Primitive != tt.want.Primitive {
			t.Errorf("Resolve(%q) = %+v, want %+v", tt.token, got, tt.want)
		}
	}
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}

	tm := r.Resolve("time.Time", "f.go", 1, &diags)
	if tm.Primitive != String || tm.Format != "date-time" {
		t.Errorf("time.Time = %+v", tm)
	}
}

func TestResolveContainers(t *testing.T) {
	var diags diag.List
	r := NewRegistry([]extract.Model{{Name: "User"}}, nil, &diags)

	td := r.Resolve("[]*User", "f.go", 1, &diags)
	if td.Kind != KindArray {
		t.Fatalf("kind = %v, want array", td.Kind)
	}
	inner := td.Elem
	if inner.Kind != KindOptional {
		t.Fatalf("elem kind = %v, want optional", inner.Kind)
	}
	if inner.Elem.Kind != KindReference || inner.Elem.Ref != "User" {
		t.Errorf("inner = %+v", inner.Elem)
	}
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
}

func TestResolveQualifiedName(t *testing.T) {
	var diags diag.List
	r := NewRegistry([]extract.Model{{Name: "User"}}, nil, &diags)
	td := r.Resolve("models.User", "f.go", 1, &diags)
	if td.Kind != KindReference || td.Ref != "User" {
		t.Errorf("qualified reference = %+v", td)
	}
}

func TestResolveEnum(t *testing.T) {
	var diags diag.List
	r := NewRegistry(nil, []extract.Enum{
		{Name: "Status", Base: "string", Values: []string{"a", "b"}},
		{Name: "Priority", Base: "int", Values: []string{"1", "2"}},
	}, &diags)

	td := r.Resolve("Status", "f.go", 1, &diags)
	if td.Kind != KindEnum || td.EnumBase != String || len(td.Values) != 2 {
		t.Errorf("Status = %+v", td)
	}
	td = r.Resolve("Priority", "f.go", 1, &diags)
	if td.EnumBase != Integer {
		t.Errorf("Priority base = %v", td.EnumBase)
	}
}

func TestResolveUnknownReference(t *testing.T) {
	var diags diag.List
	r := NewRegistry(nil, nil, &diags)
	td := r.Resolve("Missing", "f.go", 7, &diags)
	if td.Kind != KindUnknown {
		t.Errorf("kind = %v, want unknown", td.Kind)
	}
	if diags.Count(diag.UnresolvedReference) != 1 {
		t.Errorf("diagnostics = %v", diags)
	}
	if diags[0].File != "f.go" || diags[0].Line != 7 {
		t.Errorf("location = %s:%d", diags[0].File, diags[0].Line)
	}
}

func TestResolveModelsForwardAndMutualReferences(t *testing.T) {
	var diags diag.List
	// Uses Order before it is declared, and Order points back at User.
	models := []extract.Model{
		{Name: "User", Fields: []extract.Field{{Name: "orders", Type: "[]Order", Required: true}}},
		{Name: "Order", Fields: []extract.Field{{Name: "buyer", Type: "User", Required: true}}},
	}
	r := NewRegistry(models, nil, &diags)
	resolved := r.ResolveModels(&diags)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(resolved) != 2 {
		t.Fatalf("models = %d, want 2", len(resolved))
	}
	orders := resolved[0].Fields[0].Type
	if orders.Kind != KindArray || orders.Elem.Ref != "Order" {
		t.Errorf("User.orders = %+v", orders)
	}
	buyer := resolved[1].Fields[0].Type
	if buyer.Kind != KindReference || buyer.Ref != "User" {
		t.Errorf("Order.buyer = %+v", buyer)
	}
}

func TestResolveModelsSelfReference(t *testing.T) {
	var diags diag.List
	models := []extract.Model{
		{Name: "Node", Fields: []extract.Field{{Name: "children", Type: "[]Node", Required: false}}},
	}
	r := NewRegistry(models, nil, &diags)
	resolved := r.ResolveModels(&diags)
	if len(diags) != 0 {
		t.Fatalf("self-reference must not error: %v", diags)
	}
	td := resolved[0].Fields[0].Type
	if td.Kind != KindArray || td.Elem.Kind != KindReference || td.Elem.Ref != "Node" {
		t.Errorf("Node.children = %+v", td)
	}
}

func TestNewRegistryDuplicateModel(t *testing.T) {
	var diags diag.List
	models := []extract.Model{
		{Name: "User", File: "a.go", Line: 3},
		{Name: "User", File: "b.go", Line: 9},
	}
	r := NewRegistry(models, nil, &diags)
	if diags.Count(diag.ParseError) != 1 {
		t.Fatalf("diagnostics = %v, want one ParseError", diags)
	}
	if !r.HasModel("User") {
		t.Error("first declaration should stay registered")
	}
	kept := r.models["User"]
	if kept.File != "a.go" {
		t.Errorf("kept declaration from %s, want a.go", kept.File)
	}
}

func TestResolveDanglingFieldDegrades(t *testing.T) {
	var diags diag.List
	models := []extract.Model{
		{Name: "User", Fields: []extract.Field{
			{Name: "ok", Type: "string", Required: true},
			{Name: "bad", Type: "Missing", Required: true},
		}},
	}
	r := NewRegistry(models, nil, &diags)
	resolved := r.ResolveModels(&diags)
	if diags.Count(diag.UnresolvedReference) != 1 {
		t.Fatalf("diagnostics = %v", diags)
	}
	if resolved[0].Fields[0].Type.Kind != KindPrimitive {
		t.Error("well-formed field must still resolve")
	}
	if resolved[0].Fields[1].Type.Kind != KindUnknown {
		t.Error("dangling field must degrade to unknown")
	}
}
