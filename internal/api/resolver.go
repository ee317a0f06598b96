package api

import (
	"strings"

	"github.com/autodocgen/autodocgen/internal/diag"
	"github.com/autodocgen/autodocgen/internal/extract"
)

// Registry resolves declared type tokens into TypeDescriptors. Resolution
// is two-pass: NewRegistry registers every model and enum name (pass 1,
// enabling forward and mutual references), ResolveModels resolves every
// field (pass 2). Registration must be complete before any resolution
// starts.
type Registry struct {
	models map[string]extract.Model
	enums  map[string]extract.Enum
	order  []string // model registration order
}

// NewRegistry registers all declared names. The first declaration of a name
// wins; later ones are reported and dropped.
func NewRegistry(models []extract.Model, enums []extract.Enum, diags *diag.List) *Registry {
	r := &Registry{
		models: make(map[string]extract.Model, len(models)),
		enums:  make(map[string]extract.Enum, len(enums)),
	}
	for _, m := range models {
		if prev, dup := r.models[m.Name]; dup {
			diags.Add(diag.ParseError, diag.Warning, m.File, m.Line,
				"model %s already declared at %s:%d", m.Name, prev.File, prev.Line)
			continue
		}
		r.models[m.Name] = m
		r.order = append(r.order, m.Name)
	}
	for _, e := range enums {
		if _, dup := r.enums[e.Name]; dup {
			continue
		}
		r.enums[e.Name] = e
	}
	return r
}

// HasModel reports whether name is a registered model.
func (r *Registry) HasModel(name string) bool {
	_, ok := r.models[name]
	return ok
}

// ResolveModels resolves every registered model's fields in registration
// order. A dangling reference degrades the field to an unknown descriptor
// and resolution of the remaining fields and models continues.
func (r *Registry) ResolveModels(diags *diag.List) []Model {
	out := make([]Model, 0, len(r.order))
	for _, name := range r.order {
		src := r.models[name]
		m := Model{
			Name:        src.Name,
			Description: src.Description,
			File:        src.File,
			Line:        src.Line,
		}
		for _, f := range src.Fields {
			m.Fields = append(m.Fields, Field{
				Name:        f.Name,
				Type:        r.Resolve(f.Type, src.File, src.Line, diags),
				Required:    f.Required,
				Default:     f.Default,
				Description: f.Description,
			})
		}
		out = append(out, m)
	}
	return out
}

// Resolve converts one declared type token into a TypeDescriptor. Container
// prefixes recurse; references resolve by name against the registry.
func (r *Registry) Resolve(token, file string, line int, diags *diag.List) TypeDescriptor {
	token = strings.TrimSpace(token)
	switch {
	case token == "":
		return Unknown()
	case strings.HasPrefix(token, "*"):
		return OptionalOf(r.Resolve(token[1:], file, line, diags))
	case strings.HasPrefix(token, "[]"):
		return ArrayOf(r.Resolve(token[2:], file, line, diags))
	case strings.HasPrefix(token, "map["):
		return Prim(Object)
	}
	if td, ok := primitiveDescriptor(token); ok {
		return td
	}
	name := token
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if e, ok := r.enums[name]; ok {
		base := String
		if e.Base == "int" {
			base = Integer
		}
		return TypeDescriptor{Kind: KindEnum, Values: append([]string(nil), e.Values...), EnumBase: base}
	}
	if _, ok := r.models[name]; ok {
		return RefTo(name)
	}
	diags.Add(diag.UnresolvedReference, diag.Warning, file, line, "unresolved type reference %q", token)
	return Unknown()
}

// primitiveDescriptor maps Go type tokens and directive type tokens onto
// the closed primitive set.
func primitiveDescriptor(token string) (TypeDescriptor, bool) {
	switch token {
	case "string":
		return Prim(String), true
	case "bool", "boolean":
		return Prim(Boolean), true
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64",
		"byte", "rune", "integer":
		return Prim(Integer), true
	case "float", "float32", "float64", "number":
		return Prim(Number), true
	case "time.Time":
		td := Prim(String)
		td.Format = "date-time"
		return td, true
	case "any", "object", "interface{}":
		return Prim(Object), true
	}
	return TypeDescriptor{}, false
}
