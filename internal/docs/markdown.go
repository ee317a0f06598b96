// Package docs projects a canonical API description into grouped,
// human-readable markdown. Rendering is a pure function: identical
// descriptions always produce byte-identical output, and nothing here
// touches storage.
package docs

import (
	"fmt"
	"strings"

	"github.com/autodocgen/autodocgen/internal/api"
)

// DefaultSection collects endpoints that declare no tags.
const DefaultSection = "General"

// Render produces the full markdown document: one section per tag in
// first-appearance order, then a data model section with per-schema field
// tables. An endpoint with several tags is rendered under its first one.
func Render(d *api.Description) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", d.Title)
	if d.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", d.Description)
	}
	fmt.Fprintf(&b, "- **Version**: %s\n", d.Version)
	fmt.Fprintf(&b, "- **Endpoints**: %d\n", len(d.Endpoints))
	fmt.Fprintf(&b, "- **Schemas**: %d\n\n", len(d.Schemas))

	for _, section := range Sections(d) {
		fmt.Fprintf(&b, "## %s\n\n", section.Tag)
		for _, ep := range section.Endpoints {
			renderEndpoint(&b, ep)
		}
	}

	if len(d.Schemas) > 0 {
		b.WriteString("## Data Models\n\n")
		for _, m := range d.Schemas {
			renderModel(&b, m)
		}
	}
	return []byte(b.String())
}

// Section is one tag group, in first-appearance order.
type Section struct {
	Tag       string
	Endpoints []api.Endpoint
}

// Sections groups endpoints by their first tag, untagged ones under
// DefaultSection, preserving discovery order within each group.
func Sections(d *api.Description) []Section {
	index := map[string]int{}
	var out []Section
	for _, ep := range d.Endpoints {
		tag := DefaultSection
		if len(ep.Tags) > 0 {
			tag = ep.Tags[0]
		}
		i, ok := index[tag]
		if !ok {
			i = len(out)
			index[tag] = i
			out = append(out, Section{Tag: tag})
		}
		out[i].Endpoints = append(out[i].Endpoints, ep)
	}
	return out
}

func renderEndpoint(b *strings.Builder, ep api.Endpoint) {
	fmt.Fprintf(b, "### %s %s\n\n", strings.ToUpper(string(ep.Method)), ep.Path)
	if ep.Deprecated {
		b.WriteString("**Deprecated.**\n\n")
	}
	if ep.Summary != "" {
		fmt.Fprintf(b, "%s\n\n", ep.Summary)
	}
	if ep.Description != "" {
		fmt.Fprintf(b, "%s\n\n", ep.Description)
	}

	if len(ep.Parameters) > 0 {
		b.WriteString("| Parameter | In | Type | Required | Default | Description |\n")
		b.WriteString("|-----------|----|------|----------|---------|-------------|\n")
		for _, p := range ep.Parameters {
			fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s |\n",
				p.Name, p.In, typeCell(p.Type), yesNo(p.Required), cell(p.Default), cell(p.Description))
		}
		b.WriteString("\n")
	}

	if ep.RequestBody != "" {
		fmt.Fprintf(b, "Request body: %s\n\n", schemaLink(ep.RequestBody))
	}

	b.WriteString("| Status | Schema | Description |\n")
	b.WriteString("|--------|--------|-------------|\n")
	for _, r := range ep.Responses {
		fmt.Fprintf(b, "| %s | %s | %s |\n", r.Status, responseCell(r.Type), cell(r.Description))
	}
	b.WriteString("\n---\n\n")
}

func renderModel(b *strings.Builder, m api.Model) {
	fmt.Fprintf(b, "### %s\n\n", m.Name)
	if m.Description != "" {
		fmt.Fprintf(b, "%s\n\n", m.Description)
	}
	if len(m.Fields) == 0 {
		b.WriteString("_No fields._\n\n")
		return
	}
	b.WriteString("| Field | Type | Required | Default | Description |\n")
	b.WriteString("|-------|------|----------|---------|-------------|\n")
	for _, f := range m.Fields {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			f.Name, typeCell(f.Type), yesNo(f.Required), cell(f.Default), cell(f.Description))
	}
	b.WriteString("\n")
}

func typeCell(td api.TypeDescriptor) string {
	switch base := td.Unwrap(); base.Kind {
	case api.KindReference:
		s := schemaLink(base.Ref)
		if td.Kind == api.KindOptional {
			return "optional " + s
		}
		return s
	case api.KindArray:
		if base.Elem != nil && base.Elem.Unwrap().Kind == api.KindReference {
			return "array of " + schemaLink(base.Elem.Unwrap().Ref)
		}
	}
	return td.String()
}

func responseCell(td api.TypeDescriptor) string {
	if td.Kind == api.KindNone {
		return "-"
	}
	return typeCell(td)
}

func schemaLink(name string) string {
	return fmt.Sprintf("[%s](#%s)", name, strings.ToLower(name))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	// Keep one table row per entry.
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	return s
}
