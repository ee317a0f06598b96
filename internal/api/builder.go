package api

import (
	"strings"

	"github.com/autodocgen/autodocgen/internal/diag"
	"github.com/autodocgen/autodocgen/internal/extract"
)

// Info carries API-level metadata into the build.
type Info struct {
	Title       string
	Version     string
	Description string
}

func (i Info) withDefaults() Info {
	if i.Title == "" {
		i.Title = "API Documentation"
	}
	if i.Version == "" {
		i.Version = "1.0.0"
	}
	if i.Description == "" {
		i.Description = "Auto-generated API documentation"
	}
	return i
}

// Build merges extracted endpoints and resolved schemas into one canonical
// Description. Validation that needs the whole cross-file picture happens
// here and only here: duplicate routes and endpoint-level schema
// references. The merge is single-threaded by contract; callers run it
// once, after all extraction has finished.
func Build(info Info, endpoints []extract.Endpoint, reg *Registry, diags *diag.List) *Description {
	info = info.withDefaults()
	d := &Description{
		Title:       info.Title,
		Version:     info.Version,
		Description: info.Description,
		Schemas:     reg.ResolveModels(diags),
	}

	// First-discovery order, not alphabetical: output mirrors the source
	// tree's natural reading order and stays stable across runs.
	routes := map[string]extract.Endpoint{}
	for _, ep := range endpoints {
		key := ep.Method + " " + ep.Path
		if prev, dup := routes[key]; dup {
			diags.Add(diag.DuplicateRoute, diag.Warning, ep.File, ep.Line,
				"duplicate route %s %s: first declared by %s at %s:%d, dropping %s",
				strings.ToUpper(ep.Method), ep.Path, prev.Handler, prev.File, prev.Line, ep.Handler)
			continue
		}
		routes[key] = ep
		d.Endpoints = append(d.Endpoints, buildEndpoint(ep, reg, diags))
	}
	return d
}

func buildEndpoint(ep extract.Endpoint, reg *Registry, diags *diag.List) Endpoint {
	out := Endpoint{
		Method:      Method(ep.Method),
		Path:        ep.Path,
		Handler:     ep.Handler,
		Summary:     ep.Summary,
		Description: ep.Description,
		Tags:        append([]string(nil), ep.Tags...),
		Deprecated:  ep.Deprecated,
		File:        ep.File,
		Line:        ep.Line,
	}
	if out.Summary == "" {
		out.Summary = strings.ToUpper(ep.Method) + " " + ep.Path
	}

	for _, p := range ep.Params {
		out.Parameters = append(out.Parameters, Parameter{
			Name:        p.Name,
			In:          p.In,
			Type:        reg.Resolve(p.Type, ep.File, ep.Line, diags),
			Required:    p.Required,
			Default:     p.Default,
			Description: p.Description,
		})
	}

	if ep.Body != "" {
		name := refName(ep.Body)
		if !reg.HasModel(name) {
			diags.Add(diag.UnresolvedReference, diag.Warning, ep.File, ep.Line,
				"request body references undeclared schema %q", ep.Body)
		}
		// The reference is kept even when unresolved; renderers degrade it
		// to an unknown placeholder instead of dropping the operation.
		out.RequestBody = name
	}

	for _, r := range ep.Responses {
		out.Responses = append(out.Responses, Response{
			Status:      r.Status,
			Type:        responseType(r, ep, reg, diags),
			Description: responseDescription(r),
		})
	}
	if len(out.Responses) == 0 {
		out.Responses = []Response{{Status: "200", Description: "Successful response"}}
	}
	return out
}

func responseType(r extract.ResponseDecl, ep extract.Endpoint, reg *Registry, diags *diag.List) TypeDescriptor {
	if r.Schema == "" {
		return TypeDescriptor{}
	}
	td := reg.Resolve(r.Schema, ep.File, ep.Line, diags)
	if r.Array {
		td = ArrayOf(td)
	}
	return td
}

func responseDescription(r extract.ResponseDecl) string {
	if r.Description != "" {
		return r.Description
	}
	if strings.HasPrefix(r.Status, "2") {
		return "Successful response"
	}
	if r.Status == "default" {
		return "Default response"
	}
	return "Error response"
}

func refName(token string) string {
	token = strings.TrimPrefix(token, "*")
	token = strings.TrimPrefix(token, "[]")
	token = strings.TrimPrefix(token, "*")
	if i := strings.LastIndexByte(token, '.'); i >= 0 {
		token = token[i+1:]
	}
	return token
}
