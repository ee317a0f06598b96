// Package goemitter renders a typed Go client package from a canonical API
// description. The generated code builds requests and decodes responses;
// the HTTP transport itself stays pluggable so nothing here is tied to a
// particular runtime.
package goemitter

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

// Options controls how the Go emitter renders a client.
type Options struct {
	OutDir      string // required; target directory to write the client
	PackageName string // generated package name; derived from the title when empty
	Force       bool   // overwrite existing files
	DryRun      bool   // don't write, only plan
	Verbose     bool
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files, the resolved package name, and any
// degradation diagnostics.
type Result struct {
	PackageName string
	Planned     []PlannedFile
	Diagnostics diag.List
}

// Emit renders the Go client. Unsupported type shapes degrade to untyped
// JSON with a diagnostic; generation always completes for the well-formed
// portion of the description.
func Emit(ctx context.Context, d *api.Description, opts Options) (*Result, error) {
	_ = ctx
	if d == nil {
		return nil, fmt.Errorf("goemitter: nil description")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("goemitter: OutDir is required")
	}
	pkg := sanitizePackage(opts.PackageName)
	if pkg == "" {
		pkg = sanitizePackage(d.Title)
		if pkg == "" {
			pkg = "apiclient"
		}
	}

	res := &Result{PackageName: pkg}

	files := map[string][]byte{}
	files["go.mod"] = []byte(renderGoMod(pkg))
	files["types.go"] = []byte(renderTypes(pkg, d, &res.Diagnostics))
	files["client.go"] = []byte(renderClient(pkg, d, &res.Diagnostics))

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, filepath.ToSlash(p))
	}
	sort.Strings(rels)
	for _, rel := range rels {
		res.Planned = append(res.Planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}

	if !opts.DryRun {
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func renderGoMod(pkg string) string {
	return "module " + pkg + "\n\ngo 1.23\n"
}

func renderTypes(pkg string, d *api.Description, diags *diag.List) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// Code generated by autodocgen. DO NOT EDIT.\n\npackage %s\n", pkg)

	needsJSON := false
	for _, m := range d.Schemas {
		for _, f := range m.Fields {
			if strings.Contains(goType(f.Type), "json.RawMessage") {
				needsJSON = true
			}
		}
	}
	if needsJSON {
		b.WriteString("\nimport \"encoding/json\"\n")
	}

	for _, m := range d.Schemas {
		b.WriteString("\n")
		if m.Description != "" {
			fmt.Fprintf(&b, "// %s %s\n", m.Name, firstLine(m.Description))
		}
		fmt.Fprintf(&b, "type %s struct {\n", m.Name)
		for _, f := range m.Fields {
			typ := goType(f.Type)
			if f.Type.Unwrap().Kind == api.KindUnknown {
				diags.Add(diag.UnsupportedType, diag.Info, m.File, m.Line,
					"field %s.%s has no typed Go representation, using json.RawMessage", m.Name, f.Name)
			}
			tag := f.Name
			if !f.Required {
				tag += ",omitempty"
			}
			fmt.Fprintf(&b, "\t%s %s `json:%q`\n", goFieldName(f.Name), typ, tag)
		}
		b.WriteString("}\n")
	}
	return b.String()
}

func renderClient(pkg string, d *api.Description, diags *diag.List) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// Code generated by autodocgen. DO NOT EDIT.\n\npackage %s\n\n", pkg)
	b.WriteString(`import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Doer abstracts the HTTP transport; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues typed requests against one API base URL.
type Client struct {
	BaseURL string
	HTTP    Doer
}

// NewClient returns a Client backed by http.DefaultClient.
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: http.DefaultClient}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, header http.Header, body, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var raw []byte
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: http %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
`)

	for _, ep := range d.Endpoints {
		b.WriteString("\n")
		renderMethod(&b, d, ep, diags)
	}
	return b.String()
}

func renderMethod(b *strings.Builder, d *api.Description, ep api.Endpoint, diags *diag.List) {
	name := callableName(string(ep.Method), ep.Path)

	args := []string{"ctx context.Context"}
	for _, p := range ep.Parameters {
		typ := goType(p.Type)
		if p.Type.Unwrap().Kind == api.KindUnknown {
			typ = "string"
			diags.Add(diag.UnsupportedType, diag.Info, ep.File, ep.Line,
				"parameter %q of %s %s degraded to string", p.Name, strings.ToUpper(string(ep.Method)), ep.Path)
		}
		args = append(args, goArgName(p.Name)+" "+typ)
	}
	if ep.RequestBody != "" {
		bodyType := ep.RequestBody
		if _, ok := d.Schema(bodyType); !ok {
			bodyType = "map[string]any"
			diags.Add(diag.UnsupportedType, diag.Info, ep.File, ep.Line,
				"request body %q of %s %s degraded to untyped map", ep.RequestBody, strings.ToUpper(string(ep.Method)), ep.Path)
		}
		args = append(args, "body "+bodyType)
	}

	retType := returnType(d, ep)
	summary := ep.Summary
	if summary == "" {
		summary = strings.ToUpper(string(ep.Method)) + " " + ep.Path
	}
	fmt.Fprintf(b, "// %s calls %s %s: %s\n", name, strings.ToUpper(string(ep.Method)), ep.Path, summary)
	if ep.Deprecated {
		b.WriteString("//\n// Deprecated: this operation is marked deprecated upstream.\n")
	}
	if retType == "" {
		fmt.Fprintf(b, "func (c *Client) %s(%s) error {\n", name, strings.Join(args, ", "))
	} else {
		fmt.Fprintf(b, "func (c *Client) %s(%s) (%s, error) {\n", name, strings.Join(args, ", "), retType)
	}

	format, phArgs := pathFormat(ep)
	if len(phArgs) > 0 {
		fmt.Fprintf(b, "\tpath := fmt.Sprintf(%q, %s)\n", format, strings.Join(phArgs, ", "))
	} else {
		fmt.Fprintf(b, "\tpath := %q\n", ep.Path)
	}

	hasQuery, hasHeader := false, false
	for _, p := range ep.Parameters {
		switch p.In {
		case "query":
			hasQuery = true
		case "header":
			hasHeader = true
		}
	}
	if hasQuery {
		b.WriteString("\tquery := url.Values{}\n")
		for _, p := range ep.Parameters {
			if p.In == "query" {
				fmt.Fprintf(b, "\tquery.Set(%q, fmt.Sprint(%s))\n", p.Name, goArgName(p.Name))
			}
		}
	} else {
		b.WriteString("\tvar query url.Values\n")
	}
	if hasHeader {
		b.WriteString("\theader := http.Header{}\n")
		for _, p := range ep.Parameters {
			if p.In == "header" {
				fmt.Fprintf(b, "\theader.Set(%q, fmt.Sprint(%s))\n", p.Name, goArgName(p.Name))
			}
		}
	} else {
		b.WriteString("\tvar header http.Header\n")
	}

	bodyArg := "nil"
	if ep.RequestBody != "" {
		bodyArg = "body"
	}
	method := strings.ToUpper(string(ep.Method))
	if retType == "" {
		fmt.Fprintf(b, "\treturn c.do(ctx, %q, path, query, header, %s, nil)\n}\n", method, bodyArg)
		return
	}
	fmt.Fprintf(b, "\tvar out %s\n", strings.TrimPrefix(retType, "*"))
	fmt.Fprintf(b, "\tif err := c.do(ctx, %q, path, query, header, %s, &out); err != nil {\n", method, bodyArg)
	if strings.HasPrefix(retType, "*") {
		b.WriteString("\t\treturn nil, err\n\t}\n\treturn &out, nil\n}\n")
	} else {
		b.WriteString("\t\treturn out, err\n\t}\n\treturn out, nil\n}\n")
	}
}

// returnType picks the first 2xx response carrying a schema. References
// to schemas missing from the registry degrade to untyped JSON.
func returnType(d *api.Description, ep api.Endpoint) string {
	for _, r := range ep.Responses {
		if !strings.HasPrefix(r.Status, "2") || r.Type.Kind == api.KindNone {
			continue
		}
		t := r.Type.Unwrap()
		if t.Kind == api.KindReference {
			if _, ok := d.Schema(t.Ref); !ok {
				return "map[string]any"
			}
			return "*" + t.Ref
		}
		return goType(r.Type)
	}
	return ""
}

func pathFormat(ep api.Endpoint) (string, []string) {
	format := ep.Path
	var args []string
	for _, p := range ep.Parameters {
		if p.In != "path" {
			continue
		}
		ph := "{" + p.Name + "}"
		if strings.Contains(format, ph) {
			format = strings.Replace(format, ph, "%v", 1)
			args = append(args, goArgName(p.Name))
		}
	}
	return format, args
}

// goType lowers a TypeDescriptor to a Go type expression. Unknown shapes
// come back as json.RawMessage; callers report the degradation.
func goType(td api.TypeDescriptor) string {
	switch td.Kind {
	case api.KindPrimitive:
		switch td.Primitive {
		case api.String:
			return "string"
		case api.Integer:
			return "int"
		case api.Number:
			return "float64"
		case api.Boolean:
			return "bool"
		case api.Object:
			return "map[string]any"
		}
	case api.KindArray:
		if td.Elem == nil {
			return "[]json.RawMessage"
		}
		return "[]" + goType(*td.Elem)
	case api.KindReference:
		return td.Ref
	case api.KindEnum:
		if td.EnumBase == api.Integer {
			return "int"
		}
		return "string"
	case api.KindOptional:
		if td.Elem == nil {
			return "json.RawMessage"
		}
		inner := goType(*td.Elem)
		if strings.HasPrefix(inner, "[]") || strings.HasPrefix(inner, "map[") || inner == "json.RawMessage" {
			return inner
		}
		return "*" + inner
	}
	return "json.RawMessage"
}

func callableName(method, path string) string {
	parts := []string{method}
	for _, seg := range strings.Split(path, "/") {
		seg = strings.Trim(seg, "{}")
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(exportWord(p))
	}
	return b.String()
}

func exportWord(s string) string {
	var b strings.Builder
	up := true
	for _, r := range s {
		switch {
		case r == '_' || r == '-' || r == '.':
			up = true
		case up:
			b.WriteRune(toUpper(r))
			up = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func goFieldName(wire string) string {
	name := exportWord(wire)
	if name == "" {
		return "Field"
	}
	return name
}

func goArgName(wire string) string {
	name := exportWord(wire)
	if name == "" {
		return "arg"
	}
	lowered := strings.ToLower(name[:1]) + name[1:]
	switch lowered {
	case "type", "func", "range", "map", "var", "ctx", "body", "path", "query", "header":
		return lowered + "Param"
	}
	return lowered
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}

func sanitizePackage(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "api" + out
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
			return fmt.Errorf("goemitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		// atomic write via temp file + rename
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
