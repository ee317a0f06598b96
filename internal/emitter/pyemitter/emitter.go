// Package pyemitter renders a typed Python client package from a canonical
// API description: dataclass models plus one callable per endpoint. The
// generated client delegates the actual HTTP work to an injected transport
// object, so it carries no runtime dependency of its own.
package pyemitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/autodocgen/autodocgen/internal/api"
	"github.com/autodocgen/autodocgen/internal/diag"
)

// Options controls how the Python emitter renders a client.
type Options struct {
	OutDir      string
	PackageName string // python package name; derived from the title when empty
	Force       bool
	DryRun      bool
	Verbose     bool
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and resolved package name.
type Result struct {
	PackageName string
	Planned     []PlannedFile
	Diagnostics diag.List
}

// Emit renders the Python client package.
func Emit(ctx context.Context, d *api.Description, opts Options) (*Result, error) {
	_ = ctx
	if d == nil {
		return nil, fmt.Errorf("pyemitter: nil description")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("pyemitter: OutDir is required")
	}
	pkg := sanitizePackage(opts.PackageName)
	if pkg == "" {
		pkg = sanitizePackage(d.Title)
		if pkg == "" {
			pkg = "api_client"
		}
	}

	res := &Result{PackageName: pkg}

	files := map[string][]byte{}
	files[filepath.Join(pkg, "__init__.py")] = []byte(renderInit(pkg, d))
	files[filepath.Join(pkg, "models.py")] = []byte(renderModels(d, &res.Diagnostics))
	files[filepath.Join(pkg, "client.py")] = []byte(renderClient(d, &res.Diagnostics))

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)
	for _, rel := range rels {
		res.Planned = append(res.Planned, PlannedFile{RelPath: filepath.ToSlash(rel), Size: len(files[rel]), Mode: 0o644})
	}

	if !opts.DryRun {
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func renderInit(pkg string, d *api.Description) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\"\"\"%s client, generated by autodocgen.\"\"\"\n\n", d.Title)
	b.WriteString("from .client import Client\n")
	if len(d.Schemas) > 0 {
		names := make([]string, 0, len(d.Schemas))
		for _, m := range d.Schemas {
			names = append(names, m.Name)
		}
		fmt.Fprintf(&b, "from .models import %s\n", strings.Join(names, ", "))
	}
	b.WriteString("\n__all__ = [\"Client\"")
	for _, m := range d.Schemas {
		fmt.Fprintf(&b, ", %q", m.Name)
	}
	b.WriteString("]\n")
	return b.String()
}

func renderModels(d *api.Description, diags *diag.List) string {
	var b strings.Builder
	b.WriteString("\"\"\"Data models, generated by autodocgen.\"\"\"\n\n")
	b.WriteString("from __future__ import annotations\n\n")
	b.WriteString("from dataclasses import dataclass, field\n")
	b.WriteString("from typing import Any, Dict, List, Optional\n")

	for _, m := range d.Schemas {
		b.WriteString("\n\n@dataclass\n")
		fmt.Fprintf(&b, "class %s:\n", m.Name)
		if m.Description != "" {
			fmt.Fprintf(&b, "    \"\"\"%s\"\"\"\n", firstLine(m.Description))
		}
		if len(m.Fields) == 0 {
			b.WriteString("    pass\n")
			continue
		}
		// dataclass rules: defaulted fields last. Required fields keep
		// declaration order; optional ones follow with None defaults.
		for _, f := range m.Fields {
			if !f.Required {
				continue
			}
			fmt.Fprintf(&b, "    %s: %s\n", pyName(f.Name), pyType(f.Type, m, f, diags))
		}
		for _, f := range m.Fields {
			if f.Required {
				continue
			}
			typ := pyType(f.Type, m, f, diags)
			if !strings.HasPrefix(typ, "Optional[") {
				typ = "Optional[" + typ + "]"
			}
			fmt.Fprintf(&b, "    %s: %s = %s\n", pyName(f.Name), typ, pyDefault(f))
		}
	}
	b.WriteString("\n")
	return b.String()
}

func renderClient(d *api.Description, diags *diag.List) string {
	var b strings.Builder
	b.WriteString("\"\"\"API client, generated by autodocgen.\n\n")
	b.WriteString("The transport is injected: any object with a\n")
	b.WriteString("``request(method, path, params=None, headers=None, json=None)`` method\n")
	b.WriteString("returning decoded JSON will do.\n\"\"\"\n\n")
	b.WriteString("from __future__ import annotations\n\n")
	b.WriteString("from typing import Any, Dict, List, Optional\n\n")
	b.WriteString("from . import models\n\n\n")
	b.WriteString("class Client:\n")
	fmt.Fprintf(&b, "    \"\"\"Typed wrapper over the %s endpoints.\"\"\"\n\n", d.Title)
	b.WriteString("    def __init__(self, transport):\n")
	b.WriteString("        self._transport = transport\n")

	for _, ep := range d.Endpoints {
		renderMethod(&b, d, ep, diags)
	}
	return b.String()
}

func renderMethod(b *strings.Builder, d *api.Description, ep api.Endpoint, diags *diag.List) {
	name := callableName(string(ep.Method), ep.Path)

	args := []string{"self"}
	var optional []string
	for _, p := range ep.Parameters {
		typ := paramType(p, ep, diags)
		if p.Required {
			args = append(args, pyName(p.Name)+": "+typ)
			continue
		}
		if !strings.HasPrefix(typ, "Optional[") {
			typ = "Optional[" + typ + "]"
		}
		optional = append(optional, pyName(p.Name)+": "+typ+" = "+pyLiteral(p.Default))
	}
	if ep.RequestBody != "" {
		if _, ok := d.Schema(ep.RequestBody); ok {
			args = append(args, "body: models."+ep.RequestBody)
		} else {
			args = append(args, "body: Dict[str, Any]")
			diags.Add(diag.UnsupportedType, diag.Info, ep.File, ep.Line,
				"request body %q of %s %s degraded to dict", ep.RequestBody, strings.ToUpper(string(ep.Method)), ep.Path)
		}
	}
	args = append(args, optional...)

	ret := returnAnnotation(d, ep)
	b.WriteString("\n")
	fmt.Fprintf(b, "    def %s(%s) -> %s:\n", name, strings.Join(args, ", "), ret)
	doc := ep.Summary
	if doc == "" {
		doc = strings.ToUpper(string(ep.Method)) + " " + ep.Path
	}
	fmt.Fprintf(b, "        \"\"\"%s\"\"\"\n", doc)

	path := ep.Path
	hasPH := false
	for _, p := range ep.Parameters {
		if p.In == "path" {
			path = strings.Replace(path, "{"+p.Name+"}", "{"+pyName(p.Name)+"}", 1)
			hasPH = true
		}
	}
	if hasPH {
		fmt.Fprintf(b, "        path = f%q\n", path)
	} else {
		fmt.Fprintf(b, "        path = %q\n", path)
	}

	params := "None"
	if hasIn(ep, "query") {
		b.WriteString("        params = {}\n")
		for _, p := range ep.Parameters {
			if p.In != "query" {
				continue
			}
			fmt.Fprintf(b, "        if %s is not None:\n", pyName(p.Name))
			fmt.Fprintf(b, "            params[%q] = %s\n", p.Name, pyName(p.Name))
		}
		params = "params"
	}
	headers := "None"
	if hasIn(ep, "header") {
		b.WriteString("        headers = {}\n")
		for _, p := range ep.Parameters {
			if p.In != "header" {
				continue
			}
			fmt.Fprintf(b, "        if %s is not None:\n", pyName(p.Name))
			fmt.Fprintf(b, "            headers[%q] = str(%s)\n", p.Name, pyName(p.Name))
		}
		headers = "headers"
	}
	payload := "None"
	if ep.RequestBody != "" {
		payload = "body.__dict__ if hasattr(body, \"__dict__\") else body"
	}

	fmt.Fprintf(b, "        data = self._transport.request(%q, path, params=%s, headers=%s, json=%s)\n",
		strings.ToUpper(string(ep.Method)), params, headers, payload)

	if model, ok := returnModel(d, ep); ok {
		fmt.Fprintf(b, "        return models.%s(**data)\n", model)
	} else {
		b.WriteString("        return data\n")
	}
}

func hasIn(ep api.Endpoint, in string) bool {
	for _, p := range ep.Parameters {
		if p.In == in {
			return true
		}
	}
	return false
}

func returnModel(d *api.Description, ep api.Endpoint) (string, bool) {
	for _, r := range ep.Responses {
		if !strings.HasPrefix(r.Status, "2") || r.Type.Kind == api.KindNone {
			continue
		}
		t := r.Type.Unwrap()
		if t.Kind == api.KindReference {
			if _, ok := d.Schema(t.Ref); ok {
				return t.Ref, true
			}
		}
		return "", false
	}
	return "", false
}

func returnAnnotation(d *api.Description, ep api.Endpoint) string {
	if model, ok := returnModel(d, ep); ok {
		return "models." + model
	}
	for _, r := range ep.Responses {
		if strings.HasPrefix(r.Status, "2") && r.Type.Kind != api.KindNone {
			return bareType(r.Type)
		}
	}
	return "Any"
}

func paramType(p api.Parameter, ep api.Endpoint, diags *diag.List) string {
	t := bareType(p.Type)
	if p.Type.Unwrap().Kind == api.KindUnknown {
		diags.Add(diag.UnsupportedType, diag.Info, ep.File, ep.Line,
			"parameter %q of %s %s degraded to Any", p.Name, strings.ToUpper(string(ep.Method)), ep.Path)
	}
	return t
}

// bareType lowers a TypeDescriptor to a Python annotation. Model
// references are prefixed for use inside the client module.
func bareType(td api.TypeDescriptor) string {
	switch td.Kind {
	case api.KindPrimitive:
		switch td.Primitive {
		case api.String:
			return "str"
		case api.Integer:
			return "int"
		case api.Number:
			return "float"
		case api.Boolean:
			return "bool"
		case api.Object:
			return "Dict[str, Any]"
		}
	case api.KindArray:
		if td.Elem == nil {
			return "List[Any]"
		}
		return "List[" + bareType(*td.Elem) + "]"
	case api.KindReference:
		return td.Ref
	case api.KindEnum:
		if td.EnumBase == api.Integer {
			return "int"
		}
		return "str"
	case api.KindOptional:
		if td.Elem == nil {
			return "Optional[Any]"
		}
		return "Optional[" + bareType(*td.Elem) + "]"
	}
	return "Any"
}

// pyType is bareType with degradation reporting for model fields.
func pyType(td api.TypeDescriptor, m api.Model, f api.Field, diags *diag.List) string {
	if td.Unwrap().Kind == api.KindUnknown {
		diags.Add(diag.UnsupportedType, diag.Info, m.File, m.Line,
			"field %s.%s has no typed Python representation, using Any", m.Name, f.Name)
	}
	return bareType(td)
}

func pyDefault(f api.Field) string {
	if f.Default == "" {
		return "None"
	}
	return pyLiteral(f.Default)
}

func pyLiteral(raw string) string {
	if raw == "" {
		return "None"
	}
	switch raw {
	case "true":
		return "True"
	case "false":
		return "False"
	}
	if isNumeric(raw) {
		return raw
	}
	return fmt.Sprintf("%q", raw)
}

func isNumeric(s string) bool {
	dot := false
	for i, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c == '-' && i == 0:
		case c == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return len(s) > 0
}

// callableName lowers method+path to snake_case: GET /users/{user_id}
// becomes get_users_user_id.
func callableName(method, path string) string {
	parts := []string{strings.ToLower(method)}
	for _, seg := range strings.Split(path, "/") {
		seg = strings.Trim(seg, "{}")
		seg = strings.ReplaceAll(seg, "-", "_")
		seg = strings.ReplaceAll(seg, ".", "_")
		if seg != "" {
			parts = append(parts, strings.ToLower(seg))
		}
	}
	return strings.Join(parts, "_")
}

func pyName(wire string) string {
	var b strings.Builder
	last := byte(0)
	for _, r := range wire {
		switch {
		case r >= 'A' && r <= 'Z':
			if last != 0 && last != '_' {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			last = byte(r - 'A' + 'a')
		case r == '-' || r == '.':
			if last != '_' && last != 0 {
				b.WriteByte('_')
				last = '_'
			}
		default:
			b.WriteRune(r)
			last = byte(r)
		}
	}
	out := b.String()
	switch out {
	case "type", "class", "def", "import", "from", "self":
		return out + "_"
	}
	return out
}

func sanitizePackage(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), "_")
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "api_" + out
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("pyemitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}
