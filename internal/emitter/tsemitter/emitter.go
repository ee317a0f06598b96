// Package tsemitter renders a TypeScript client package from a canonical
// API description: an interface per model and one method per endpoint. The
// generated client talks to the wire through an injected HttpTransport, so
// the package has no runtime dependencies.
package tsemitter

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

// Options controls how the TypeScript emitter renders a client.
type Options struct {
	OutDir      string
	PackageName string // npm package name; derived from the title when empty
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

// Emit renders the TypeScript client package.
func Emit(ctx context.Context, d *api.Description, opts Options) (*Result, error) {
	_ = ctx
	if d == nil {
		return nil, fmt.Errorf("tsemitter: nil description")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("tsemitter: OutDir is required")
	}
	pkg := sanitizePackageName(opts.PackageName)
	if pkg == "" {
		pkg = sanitizePackageName(d.Title)
		if pkg == "" {
			pkg = "api-client"
		}
	}

	res := &Result{PackageName: pkg}

	files := map[string][]byte{}
	files["package.json"] = []byte(renderPackageJSON(pkg, d.Version))
	files["tsconfig.json"] = []byte(renderTSConfig())
	files[filepath.Join("src", "types.ts")] = []byte(renderTypes(d, &res.Diagnostics))
	files[filepath.Join("src", "client.ts")] = []byte(renderClient(d, &res.Diagnostics))
	files[filepath.Join("src", "index.ts")] = []byte(renderIndex())

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

func renderPackageJSON(pkg, version string) string {
	if version == "" {
		version = "0.0.0"
	}
	return fmt.Sprintf(`{
  "name": %q,
  "version": %q,
  "description": "Generated API client",
  "type": "module",
  "main": "dist/index.js",
  "types": "dist/index.d.ts",
  "scripts": {
    "build": "tsc -p tsconfig.json"
  },
  "devDependencies": {
    "typescript": "^5.4.0"
  }
}
`, pkg, version)
}

func renderTSConfig() string {
	return `{
  "compilerOptions": {
    "target": "ES2020",
    "module": "ES2020",
    "moduleResolution": "bundler",
    "strict": true,
    "declaration": true,
    "outDir": "dist",
    "rootDir": "src"
  },
  "include": ["src"]
}
`
}

func renderIndex() string {
	return `export * from "./types";
export { Client, type HttpTransport } from "./client";
`
}

func renderTypes(d *api.Description, diags *diag.List) string {
	var b strings.Builder
	b.WriteString("// Data models, generated by autodocgen.\n")
	for _, m := range d.Schemas {
		b.WriteString("\n")
		if m.Description != "" {
			fmt.Fprintf(&b, "/** %s */\n", firstLine(m.Description))
		}
		fmt.Fprintf(&b, "export interface %s {\n", m.Name)
		for _, f := range m.Fields {
			if f.Description != "" {
				fmt.Fprintf(&b, "  /** %s */\n", firstLine(f.Description))
			}
			opt := ""
			if !f.Required {
				opt = "?"
			}
			typ := tsType(f.Type)
			if f.Type.Unwrap().Kind == api.KindUnknown {
				diags.Add(diag.UnsupportedType, diag.Info, m.File, m.Line,
					"field %s.%s has no typed TypeScript representation, using unknown", m.Name, f.Name)
			}
			fmt.Fprintf(&b, "  %s%s: %s;\n", tsPropName(f.Name), opt, typ)
		}
		b.WriteString("}\n")
	}
	return b.String()
}

func renderClient(d *api.Description, diags *diag.List) string {
	var b strings.Builder
	b.WriteString("// API client, generated by autodocgen.\n")
	if used := referencedModels(d); len(used) > 0 {
		fmt.Fprintf(&b, "import type { %s } from \"./types\";\n", strings.Join(used, ", "))
	}
	b.WriteString(`
export interface HttpTransport {
  request(
    method: string,
    path: string,
    options?: {
      query?: Record<string, string>;
      headers?: Record<string, string>;
      body?: unknown;
    },
  ): Promise<unknown>;
}

`)
	fmt.Fprintf(&b, "/** Typed wrapper over the %s endpoints. */\n", d.Title)
	b.WriteString("export class Client {\n")
	b.WriteString("  constructor(private readonly transport: HttpTransport) {}\n")

	for _, ep := range d.Endpoints {
		renderMethod(&b, d, ep, diags)
	}
	b.WriteString("}\n")
	return b.String()
}

func renderMethod(b *strings.Builder, d *api.Description, ep api.Endpoint, diags *diag.List) {
	name := callableName(string(ep.Method), ep.Path)

	var args []string
	var optional []string
	for _, p := range ep.Parameters {
		arg := tsPropName(p.Name)
		typ := tsType(p.Type)
		if p.Type.Unwrap().Kind == api.KindUnknown {
			diags.Add(diag.UnsupportedType, diag.Info, ep.File, ep.Line,
				"parameter %q of %s %s degraded to string", p.Name, strings.ToUpper(string(ep.Method)), ep.Path)
			typ = "string"
		}
		if p.Required {
			args = append(args, arg+": "+typ)
		} else {
			optional = append(optional, arg+"?: "+typ)
		}
	}
	if ep.RequestBody != "" {
		if _, ok := d.Schema(ep.RequestBody); ok {
			args = append(args, "body: "+ep.RequestBody)
		} else {
			args = append(args, "body: Record<string, unknown>")
			diags.Add(diag.UnsupportedType, diag.Info, ep.File, ep.Line,
				"request body %q of %s %s degraded to a plain object", ep.RequestBody, strings.ToUpper(string(ep.Method)), ep.Path)
		}
	}
	args = append(args, optional...)

	ret := returnType(d, ep)
	b.WriteString("\n")
	doc := ep.Summary
	if doc == "" {
		doc = strings.ToUpper(string(ep.Method)) + " " + ep.Path
	}
	fmt.Fprintf(b, "  /** %s */\n", doc)
	if ep.Deprecated {
		b.WriteString("  /** @deprecated */\n")
	}
	fmt.Fprintf(b, "  async %s(%s): Promise<%s> {\n", name, strings.Join(args, ", "), ret)

	path := ep.Path
	hasPH := false
	for _, p := range ep.Parameters {
		if p.In == "path" {
			path = strings.Replace(path, "{"+p.Name+"}", "${"+tsPropName(p.Name)+"}", 1)
			hasPH = true
		}
	}
	if hasPH {
		fmt.Fprintf(b, "    const path = `%s`;\n", path)
	} else {
		fmt.Fprintf(b, "    const path = %q;\n", path)
	}

	var opts []string
	if hasIn(ep, "query") {
		b.WriteString("    const query: Record<string, string> = {};\n")
		for _, p := range ep.Parameters {
			if p.In != "query" {
				continue
			}
			n := tsPropName(p.Name)
			fmt.Fprintf(b, "    if (%s !== undefined) query[%q] = String(%s);\n", n, p.Name, n)
		}
		opts = append(opts, "query")
	}
	if hasIn(ep, "header") {
		b.WriteString("    const headers: Record<string, string> = {};\n")
		for _, p := range ep.Parameters {
			if p.In != "header" {
				continue
			}
			n := tsPropName(p.Name)
			fmt.Fprintf(b, "    if (%s !== undefined) headers[%q] = String(%s);\n", n, p.Name, n)
		}
		opts = append(opts, "headers")
	}
	if ep.RequestBody != "" {
		opts = append(opts, "body")
	}

	call := fmt.Sprintf("this.transport.request(%q, path", strings.ToUpper(string(ep.Method)))
	if len(opts) > 0 {
		call += ", { " + strings.Join(opts, ", ") + " }"
	}
	call += ")"
	if ret == "unknown" {
		fmt.Fprintf(b, "    return %s;\n", call)
	} else {
		fmt.Fprintf(b, "    return (await %s) as %s;\n", call, ret)
	}
	b.WriteString("  }\n")
}

func hasIn(ep api.Endpoint, in string) bool {
	for _, p := range ep.Parameters {
		if p.In == in {
			return true
		}
	}
	return false
}

// returnType picks the first 2xx response with a declared schema.
func returnType(d *api.Description, ep api.Endpoint) string {
	for _, r := range ep.Responses {
		if !strings.HasPrefix(r.Status, "2") || r.Type.Kind == api.KindNone {
			continue
		}
		t := r.Type.Unwrap()
		if t.Kind == api.KindReference {
			if _, ok := d.Schema(t.Ref); !ok {
				return "unknown"
			}
		}
		if t.Kind == api.KindArray && t.Elem != nil && t.Elem.Kind == api.KindReference {
			if _, ok := d.Schema(t.Elem.Ref); !ok {
				return "unknown[]"
			}
		}
		return tsType(r.Type)
	}
	return "unknown"
}

// referencedModels lists schema names used by client signatures, in
// declaration order.
func referencedModels(d *api.Description) []string {
	used := map[string]bool{}
	mark := func(td api.TypeDescriptor) {
		t := td.Unwrap()
		if t.Kind == api.KindArray && t.Elem != nil {
			t = t.Elem.Unwrap()
		}
		if t.Kind == api.KindReference {
			if _, ok := d.Schema(t.Ref); ok {
				used[t.Ref] = true
			}
		}
	}
	for _, ep := range d.Endpoints {
		for _, p := range ep.Parameters {
			mark(p.Type)
		}
		if ep.RequestBody != "" {
			if _, ok := d.Schema(ep.RequestBody); ok {
				used[ep.RequestBody] = true
			}
		}
		for _, r := range ep.Responses {
			if strings.HasPrefix(r.Status, "2") {
				mark(r.Type)
			}
		}
	}
	var out []string
	for _, m := range d.Schemas {
		if used[m.Name] {
			out = append(out, m.Name)
		}
	}
	return out
}

func tsType(td api.TypeDescriptor) string {
	switch td.Kind {
	case api.KindPrimitive:
		switch td.Primitive {
		case api.String:
			return "string"
		case api.Integer, api.Number:
			return "number"
		case api.Boolean:
			return "boolean"
		case api.Object:
			return "Record<string, unknown>"
		}
	case api.KindArray:
		if td.Elem == nil {
			return "unknown[]"
		}
		elem := tsType(*td.Elem)
		if strings.ContainsAny(elem, " |") {
			return "Array<" + elem + ">"
		}
		return elem + "[]"
	case api.KindReference:
		return td.Ref
	case api.KindEnum:
		quoted := make([]string, 0, len(td.Values))
		for _, v := range td.Values {
			if td.EnumBase == api.Integer {
				quoted = append(quoted, v)
			} else {
				quoted = append(quoted, fmt.Sprintf("%q", v))
			}
		}
		if len(quoted) == 0 {
			return "string"
		}
		return strings.Join(quoted, " | ")
	case api.KindOptional:
		if td.Elem == nil {
			return "unknown"
		}
		return tsType(*td.Elem)
	}
	return "unknown"
}

// tsPropName quotes wire names that are not valid identifiers.
func tsPropName(wire string) string {
	valid := wire != ""
	for i, r := range wire {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '$':
		case r >= '0' && r <= '9':
			if i == 0 {
				valid = false
			}
		default:
			valid = false
		}
	}
	if valid {
		return wire
	}
	return fmt.Sprintf("%q", wire)
}

// callableName lowers method+path to camelCase: GET /users/{user_id}
// becomes getUsersUserId.
func callableName(method, path string) string {
	out := strings.ToLower(method)
	for _, seg := range strings.Split(path, "/") {
		seg = strings.Trim(seg, "{}")
		for _, word := range strings.FieldsFunc(seg, func(r rune) bool {
			return r == '_' || r == '-' || r == '.'
		}) {
			out += strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}
	return out
}

func sanitizePackageName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.ReplaceAll(name, "/", "-")
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-.")
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
			return fmt.Errorf("tsemitter: output directory %q is not empty (use --force to overwrite)", abs)
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
