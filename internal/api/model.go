// Package api defines the canonical API description and builds it from
// extracted declarations. The Description is the single artifact consumed
// by every renderer; it is immutable once built.
package api

type Method string

const (
	GET     Method = "get"
	POST    Method = "post"
	PUT     Method = "put"
	DELETE  Method = "delete"
	PATCH   Method = "patch"
	HEAD    Method = "head"
	OPTIONS Method = "options"
)

// Description is the canonical, ordered API description. Endpoints keep
// first-discovery order; schemas keep registration order. Both orders are
// preserved end-to-end so repeated runs on unchanged input are
// byte-identical.
type Description struct {
	Title       string
	Version     string
	Description string
	Endpoints   []Endpoint
	Schemas     []Model
}

// Schema looks up a resolved model by name.
func (d *Description) Schema(name string) (Model, bool) {
	for _, m := range d.Schemas {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// Endpoint is one validated operation.
type Endpoint struct {
	Method      Method
	Path        string
	Handler     string // operation id, from the declaring function
	Summary     string
	Description string
	Tags        []string
	Deprecated  bool
	Parameters  []Parameter
	RequestBody string // schema name, "" when the operation has no body
	Responses   []Response
	File        string
	Line        int
}

// Parameter is a resolved operation parameter. Names are unique within an
// endpoint; path parameters match the template placeholders exactly.
type Parameter struct {
	Name        string
	In          string // path|query|header
	Type        TypeDescriptor
	Required    bool
	Default     string
	Description string
}

// Response maps one status code to a schema. Schema is a registry name or
// a primitive descriptor rendered inline; Unknown marks an unresolved
// reference kept as a placeholder.
type Response struct {
	Status      string
	Type        TypeDescriptor
	Description string
}

// Model is a resolved named field set.
type Model struct {
	Name        string
	Description string
	Fields      []Field
	File        string
	Line        int
}

// Field is one resolved model field, in declaration order.
type Field struct {
	Name        string
	Type        TypeDescriptor
	Required    bool
	Default     string
	Description string
}

// Kind tags the TypeDescriptor union.
type Kind int

const (
	KindNone Kind = iota // zero value: no type declared at all
	KindUnknown
	KindPrimitive
	KindArray
	KindReference
	KindEnum
	KindOptional
)

// Primitive enumerates the closed primitive kinds.
type Primitive string

const (
	String  Primitive = "string"
	Integer Primitive = "integer"
	Number  Primitive = "number"
	Boolean Primitive = "boolean"
	Object  Primitive = "object" // untyped maps and interfaces degrade here
)

// TypeDescriptor is a tagged union over primitive, array, reference,
// enumeration and optional shapes. References are carried by name, never by
// inlining, which makes cyclic models structurally safe.
type TypeDescriptor struct {
	Kind      Kind
	Primitive Primitive       // KindPrimitive
	Format    string          // optional primitive refinement, e.g. date-time
	Elem      *TypeDescriptor // KindArray, KindOptional
	Ref       string          // KindReference
	Values    []string        // KindEnum
	EnumBase  Primitive       // KindEnum
}

// Unknown is the placeholder descriptor for unresolved references.
func Unknown() TypeDescriptor { return TypeDescriptor{Kind: KindUnknown} }

// Prim builds a primitive descriptor.
func Prim(p Primitive) TypeDescriptor { return TypeDescriptor{Kind: KindPrimitive, Primitive: p} }

// ArrayOf builds an array descriptor.
func ArrayOf(elem TypeDescriptor) TypeDescriptor {
	return TypeDescriptor{Kind: KindArray, Elem: &elem}
}

// OptionalOf wraps a descriptor as optional.
func OptionalOf(inner TypeDescriptor) TypeDescriptor {
	return TypeDescriptor{Kind: KindOptional, Elem: &inner}
}

// RefTo builds a by-name reference descriptor.
func RefTo(name string) TypeDescriptor { return TypeDescriptor{Kind: KindReference, Ref: name} }

// Unwrap strips Optional layers.
func (t TypeDescriptor) Unwrap() TypeDescriptor {
	for t.Kind == KindOptional && t.Elem != nil {
		t = *t.Elem
	}
	return t
}

// String renders a human-readable form used by documentation output.
func (t TypeDescriptor) String() string {
	switch t.Kind {
	case KindNone:
		return ""
	case KindPrimitive:
		return string(t.Primitive)
	case KindArray:
		if t.Elem == nil {
			return "array"
		}
		return "array of " + t.Elem.String()
	case KindReference:
		return t.Ref
	case KindEnum:
		return "enum(" + joinValues(t.Values) + ")"
	case KindOptional:
		if t.Elem == nil {
			return "optional"
		}
		return "optional " + t.Elem.String()
	}
	return "unknown"
}

func joinValues(vals []string) string {
	out := ""
	for i, v := range vals {
		if i > 0 {
			out += "|"
		}
		out += v
	}
	return out
}
