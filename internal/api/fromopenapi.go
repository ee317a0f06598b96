package api

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// LoadOpenAPI reads a previously serialized description back from disk so
// generation can run without re-analyzing the source tree. The document is
// validated permissively: unresolved $ref entries are tolerated because the
// writer deliberately keeps unknown placeholders in its output.
func LoadOpenAPI(ctx context.Context, path string) (*Description, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := doc.Validate(ctx); err != nil && !tolerable(err) {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return FromOpenAPI(doc), nil
}

func tolerable(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unresolved ref")
}

// FromOpenAPI rebuilds a Description from an OpenAPI document. Map-backed
// collections carry no declaration order, so schemas, paths and properties
// are taken in sorted key order; that keeps round-trips deterministic even
// though it cannot restore the source tree's reading order.
func FromOpenAPI(doc *openapi3.T) *Description {
	d := &Description{}
	if doc.Info != nil {
		d.Title = doc.Info.Title
		d.Version = doc.Info.Version
		d.Description = doc.Info.Description
	}

	if doc.Components != nil && doc.Components.Schemas != nil {
		names := make([]string, 0, len(doc.Components.Schemas))
		for name := range doc.Components.Schemas {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			d.Schemas = append(d.Schemas, modelFromSchema(name, doc.Components.Schemas[name]))
		}
	}

	if doc.Paths != nil {
		paths := make([]string, 0, len(doc.Paths))
		for p := range doc.Paths {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			item := doc.Paths[p]
			if item == nil {
				continue
			}
			ops := []struct {
				m  Method
				op *openapi3.Operation
			}{
				{GET, item.Get},
				{POST, item.Post},
				{PUT, item.Put},
				{DELETE, item.Delete},
				{PATCH, item.Patch},
				{HEAD, item.Head},
				{OPTIONS, item.Options},
			}
			for _, pair := range ops {
				if pair.op == nil {
					continue
				}
				d.Endpoints = append(d.Endpoints, endpointFromOperation(p, pair.m, pair.op))
			}
		}
	}
	return d
}

func endpointFromOperation(path string, m Method, op *openapi3.Operation) Endpoint {
	ep := Endpoint{
		Method:      m,
		Path:        path,
		Handler:     op.OperationID,
		Summary:     op.Summary,
		Description: op.Description,
		Tags:        append([]string(nil), op.Tags...),
		Deprecated:  op.Deprecated,
	}
	for _, pref := range op.Parameters {
		if pref == nil || pref.Value == nil {
			continue
		}
		p := pref.Value
		param := Parameter{
			Name:        p.Name,
			In:          p.In,
			Required:    p.Required,
			Description: p.Description,
			Type:        descriptorFromSchema(p.Schema),
		}
		if p.Schema != nil && p.Schema.Value != nil && p.Schema.Value.Default != nil {
			param.Default = fmt.Sprintf("%v", p.Schema.Value.Default)
		}
		ep.Parameters = append(ep.Parameters, param)
	}
	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if ref := jsonSchema(op.RequestBody.Value.Content); ref != nil {
			if td := descriptorFromSchema(ref); td.Kind == KindReference {
				ep.RequestBody = td.Ref
			}
		}
	}
	if op.Responses != nil {
		codes := make([]string, 0, len(op.Responses))
		for code := range op.Responses {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			rref := op.Responses[code]
			if rref == nil || rref.Value == nil {
				continue
			}
			r := Response{Status: code}
			if rref.Value.Description != nil {
				r.Description = *rref.Value.Description
			}
			if ref := jsonSchema(rref.Value.Content); ref != nil {
				r.Type = descriptorFromSchema(ref)
			}
			ep.Responses = append(ep.Responses, r)
		}
	}
	return ep
}

func jsonSchema(content openapi3.Content) *openapi3.SchemaRef {
	if content == nil {
		return nil
	}
	if mt := content.Get("application/json"); mt != nil {
		return mt.Schema
	}
	return nil
}

func modelFromSchema(name string, ref *openapi3.SchemaRef) Model {
	m := Model{Name: name}
	if ref == nil || ref.Value == nil {
		return m
	}
	s := ref.Value
	m.Description = s.Description
	required := map[string]bool{}
	for _, r := range s.Required {
		required[r] = true
	}
	props := make([]string, 0, len(s.Properties))
	for p := range s.Properties {
		props = append(props, p)
	}
	sort.Strings(props)
	for _, p := range props {
		f := Field{
			Name:     p,
			Type:     descriptorFromSchema(s.Properties[p]),
			Required: required[p],
		}
		if pv := s.Properties[p]; pv != nil && pv.Value != nil {
			f.Description = pv.Value.Description
			if pv.Value.Default != nil {
				f.Default = fmt.Sprintf("%v", pv.Value.Default)
			}
		}
		m.Fields = append(m.Fields, f)
	}
	return m
}

func descriptorFromSchema(ref *openapi3.SchemaRef) TypeDescriptor {
	if ref == nil {
		return TypeDescriptor{}
	}
	if ref.Ref != "" {
		name := ref.Ref
		if i := strings.LastIndexByte(name, '/'); i >= 0 {
			name = name[i+1:]
		}
		return RefTo(name)
	}
	s := ref.Value
	if s == nil {
		return Unknown()
	}
	var td TypeDescriptor
	switch {
	case len(s.Enum) > 0:
		td = TypeDescriptor{Kind: KindEnum, EnumBase: String}
		if s.Type == "integer" {
			td.EnumBase = Integer
		}
		for _, v := range s.Enum {
			td.Values = append(td.Values, fmt.Sprintf("%v", v))
		}
	case s.Type == "array":
		td = ArrayOf(descriptorFromSchema(s.Items))
	case s.Type == "string":
		td = Prim(String)
		td.Format = s.Format
	case s.Type == "integer":
		td = Prim(Integer)
	case s.Type == "number":
		td = Prim(Number)
	case s.Type == "boolean":
		td = Prim(Boolean)
	case s.Type == "object":
		td = Prim(Object)
	default:
		td = Unknown()
	}
	if s.Nullable && td.Kind != KindUnknown {
		td = OptionalOf(td)
	}
	return td
}
