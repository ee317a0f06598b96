package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ToOpenAPI projects the canonical Description into an OpenAPI 3.0
// document. The projection is deterministic: maps are marshaled with
// sorted keys, so identical descriptions serialize byte-identically.
func ToOpenAPI(d *Description) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       d.Title,
			Version:     d.Version,
			Description: d.Description,
		},
		Paths: openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{},
		},
	}

	known := make(map[string]bool, len(d.Schemas))
	for _, m := range d.Schemas {
		doc.Components.Schemas[m.Name] = modelSchema(m)
		known[m.Name] = true
	}

	for _, ep := range d.Endpoints {
		item := doc.Paths[ep.Path]
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths[ep.Path] = item
		}
		setOperation(item, ep.Method, operation(ep, known))
	}

	if tags := collectTags(d.Endpoints); len(tags) > 0 {
		for _, t := range tags {
			doc.Tags = append(doc.Tags, &openapi3.Tag{Name: t})
		}
	}
	return doc
}

// MarshalJSON serializes the description as indented OpenAPI JSON with a
// trailing newline, the on-disk contract for downstream automation.
func MarshalJSON(d *Description) ([]byte, error) {
	raw, err := json.MarshalIndent(ToOpenAPI(d), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal openapi document: %w", err)
	}
	return append(raw, '\n'), nil
}

func operation(ep Endpoint, known map[string]bool) *openapi3.Operation {
	op := &openapi3.Operation{
		OperationID: ep.Handler,
		Summary:     ep.Summary,
		Description: ep.Description,
		Tags:        append([]string(nil), ep.Tags...),
		Deprecated:  ep.Deprecated,
		Responses:   openapi3.Responses{},
	}
	for _, p := range ep.Parameters {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: parameter(p),
		})
	}
	if ep.RequestBody != "" {
		// A body name that resolved to no schema cannot be serialized as a
		// $ref: the document would not load back. It stays untyped, like
		// the client emitters render it.
		body := schemaRef(RefTo(ep.RequestBody))
		if !known[ep.RequestBody] {
			body = schemaRef(Unknown())
		}
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Required: true,
				Content:  openapi3.NewContentWithJSONSchemaRef(body),
			},
		}
	}
	for _, r := range ep.Responses {
		desc := r.Description
		resp := &openapi3.Response{Description: &desc}
		if r.Type.Kind != KindNone {
			resp.Content = openapi3.NewContentWithJSONSchemaRef(schemaRef(r.Type))
		}
		op.Responses[r.Status] = &openapi3.ResponseRef{Value: resp}
	}
	return op
}

func parameter(p Parameter) *openapi3.Parameter {
	out := &openapi3.Parameter{
		Name:        p.Name,
		In:          p.In,
		Required:    p.Required,
		Description: p.Description,
		Schema:      schemaRef(p.Type),
	}
	if p.Default != "" && out.Schema != nil && out.Schema.Value != nil {
		out.Schema.Value.Default = coerce(p.Default, p.Type)
	}
	return out
}

func modelSchema(m Model) *openapi3.SchemaRef {
	s := &openapi3.Schema{
		Type:        "object",
		Description: m.Description,
		Properties:  openapi3.Schemas{},
	}
	for _, f := range m.Fields {
		ref := schemaRef(f.Type)
		if ref.Ref == "" && ref.Value != nil {
			if f.Description != "" {
				ref.Value.Description = f.Description
			}
			if f.Default != "" {
				ref.Value.Default = coerce(f.Default, f.Type)
			}
		}
		s.Properties[f.Name] = ref
		if f.Required {
			s.Required = append(s.Required, f.Name)
		}
	}
	return &openapi3.SchemaRef{Value: s}
}

// schemaRef lowers a TypeDescriptor. References stay by-name $ref pointers,
// which is what keeps cyclic models representable.
func schemaRef(td TypeDescriptor) *openapi3.SchemaRef {
	switch td.Kind {
	case KindPrimitive:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:   string(td.Primitive),
			Format: td.Format,
		}}
	case KindArray:
		elem := Unknown()
		if td.Elem != nil {
			elem = *td.Elem
		}
		return &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:  "array",
			Items: schemaRef(elem),
		}}
	case KindReference:
		return openapi3.NewSchemaRef("#/components/schemas/"+td.Ref, nil)
	case KindEnum:
		s := &openapi3.Schema{Type: string(td.EnumBase)}
		for _, v := range td.Values {
			s.Enum = append(s.Enum, enumValue(v, td.EnumBase))
		}
		return &openapi3.SchemaRef{Value: s}
	case KindOptional:
		inner := Unknown()
		if td.Elem != nil {
			inner = *td.Elem
		}
		ref := schemaRef(inner)
		if ref.Ref == "" && ref.Value != nil {
			ref.Value.Nullable = true
		}
		return ref
	}
	// Unknown and none degrade to the empty (untyped) schema.
	return &openapi3.SchemaRef{Value: &openapi3.Schema{}}
}

func setOperation(item *openapi3.PathItem, m Method, op *openapi3.Operation) {
	switch m {
	case GET:
		item.Get = op
	case POST:
		item.Post = op
	case PUT:
		item.Put = op
	case DELETE:
		item.Delete = op
	case PATCH:
		item.Patch = op
	case HEAD:
		item.Head = op
	case OPTIONS:
		item.Options = op
	}
}

func enumValue(v string, base Primitive) any {
	if base == Integer {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return v
}

// coerce turns a declared default literal into the natural JSON value for
// its descriptor; unparseable literals stay strings.
func coerce(raw string, td TypeDescriptor) any {
	switch td.Unwrap().Primitive {
	case Integer:
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	case Number:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case Boolean:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}

func collectTags(endpoints []Endpoint) []string {
	var out []string
	seen := map[string]bool{}
	for _, ep := range endpoints {
		for _, t := range ep.Tags {
			t = strings.TrimSpace(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
