// Package extract parses one source unit at a time and lifts annotated
// declarations into typed records. Extraction is a pure function of the
// unit's contents: no shared state, no execution of the analyzed code, so
// units can be processed concurrently and merged afterwards.
package extract

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/autodocgen/autodocgen/internal/diag"
	"github.com/autodocgen/autodocgen/internal/scan"
)

// Result is everything extracted from a single source unit.
type Result struct {
	Endpoints []Endpoint
	Models    []Model
	Enums     []Enum
	Meta      Meta
	Diags     diag.List
}

// Endpoint is a declaration skeleton; types are still raw tokens here.
type Endpoint struct {
	Method      string
	Path        string
	Handler     string
	Summary     string
	Description string
	Tags        []string
	Deprecated  bool
	Params      []Param
	Body        string // declared request body type token, "" when absent
	Responses   []ResponseDecl
	File        string
	Line        int
}

// Param is a parameter skeleton. Declared marks parameters that came from
// an @Param directive rather than the argument list.
type Param struct {
	Name        string
	In          string // path|query|header
	Type        string // raw type token
	Required    bool
	Default     string
	Description string
	Declared    bool
}

// ResponseDecl maps one status code to a declared schema token.
type ResponseDecl struct {
	Status      string
	Array       bool
	Schema      string
	Description string
}

// Model is a named field set skeleton, fields in declaration order.
type Model struct {
	Name        string
	Description string
	Fields      []Field
	File        string
	Line        int
}

// Field is one model field with its raw declared type token.
type Field struct {
	Name        string
	Type        string
	Required    bool
	Default     string
	Description string
}

// Enum is a named type with a closed literal value set.
type Enum struct {
	Name   string
	Base   string
	Values []string
	File   string
	Line   int
}

// Meta is API-level metadata discovered in comments.
type Meta struct {
	Title       string
	Version     string
	Description string
}

var methods = map[string]bool{
	"get": true, "post": true, "put": true, "delete": true,
	"patch": true, "head": true, "options": true,
}

// Extract reads and parses one unit. Read failures become diagnostics, not
// errors: a single bad file must not block the rest of the tree.
func Extract(unit scan.Unit) Result {
	src, err := os.ReadFile(unit.Path)
	if err != nil {
		var res Result
		res.Diags.Add(diag.ReadError, diag.Warning, unit.Rel, 0, "read: %v", err)
		return res
	}
	return Parse(unit.Rel, src)
}

// Parse extracts declarations from source text. Exposed separately so tests
// can feed sources without touching the filesystem.
func Parse(rel string, src []byte) Result {
	var res Result

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, rel, src, parser.ParseComments)
	if err != nil {
		res.Diags.Add(diag.ParseError, diag.Warning, rel, 0, "parse: %v", err)
		return res
	}

	for _, cg := range file.Comments {
		metaDirectives(cg.Text(), &res.Meta)
	}

	pendingEnums := map[string]*Enum{}
	var enumOrder []string

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if ep, ok := extractEndpoint(fset, rel, d, &res.Diags); ok {
				res.Endpoints = append(res.Endpoints, ep)
			}
		case *ast.GenDecl:
			switch d.Tok {
			case token.TYPE:
				for _, s := range d.Specs {
					ts, ok := s.(*ast.TypeSpec)
					if !ok || !ts.Name.IsExported() {
						continue
					}
					doc := specDoc(d, ts)
					switch t := ts.Type.(type) {
					case *ast.StructType:
						res.Models = append(res.Models, extractModel(fset, rel, ts.Name.Name, doc, ts.Pos(), t))
					case *ast.Ident:
						if base, ok := enumBase(t.Name); ok {
							e := &Enum{
								Name: ts.Name.Name,
								Base: base,
								File: rel,
								Line: fset.Position(ts.Pos()).Line,
							}
							pendingEnums[e.Name] = e
							enumOrder = append(enumOrder, e.Name)
						}
					}
				}
			case token.CONST:
				collectEnumValues(d, pendingEnums)
			}
		}
	}

	// Only named types that actually declare values form an enumeration;
	// a bare named string type is just an alias for its base.
	for _, name := range enumOrder {
		if e := pendingEnums[name]; len(e.Values) > 0 {
			res.Enums = append(res.Enums, *e)
		}
	}
	return res
}

func extractEndpoint(fset *token.FileSet, rel string, fd *ast.FuncDecl, diags *diag.List) (Endpoint, bool) {
	if fd.Doc == nil {
		return Endpoint{}, false
	}
	line := fset.Position(fd.Pos()).Line
	d := parseDirectives(fd.Doc.Text())
	if d.router == nil {
		return Endpoint{}, false
	}
	for _, bad := range d.problems {
		diags.Add(diag.ParseError, diag.Warning, rel, line, "malformed directive: %s", bad)
	}
	if !methods[d.router.method] {
		diags.Add(diag.ParseError, diag.Warning, rel, line, "unsupported HTTP method %q on %s", d.router.method, fd.Name.Name)
		return Endpoint{}, false
	}

	summary, description := d.summaryAndDescription()
	ep := Endpoint{
		Method:      d.router.method,
		Path:        d.router.path,
		Handler:     fd.Name.Name,
		Summary:     summary,
		Description: description,
		Tags:        d.tags,
		Deprecated:  d.deprecated,
		Responses:   d.responses,
		File:        rel,
		Line:        line,
	}
	ep.Params, ep.Body = assembleParams(fd, d, ep.Path, rel, line, diags)
	return ep, true
}

// assembleParams cross-references the function's argument list against the
// path template placeholders and @Param directives. Directives override
// inference; the path location wins a path/query conflict; the first
// declaration wins a duplicate name.
func assembleParams(fd *ast.FuncDecl, d directives, path, rel string, line int, diags *diag.List) ([]Param, string) {
	placeholders := pathPlaceholders(path)
	phByKey := map[string]string{}
	for _, ph := range placeholders {
		phByKey[normalizeName(ph)] = ph
	}

	declared := make([]*Param, len(d.params))
	declByKey := map[string]*Param{}
	for i := range d.params {
		p := &d.params[i]
		declared[i] = p
		key := normalizeName(p.Name)
		if _, dup := declByKey[key]; dup {
			diags.Add(diag.ParameterMismatch, diag.Warning, rel, line, "duplicate @Param %q on %s", p.Name, fd.Name.Name)
			continue
		}
		declByKey[key] = p
	}

	var params []Param
	body := ""
	used := map[*Param]bool{}

	addBody := func(token string) {
		if body == "" {
			body = token
		} else if token != body {
			diags.Add(diag.ParameterMismatch, diag.Warning, rel, line, "multiple request body declarations on %s (%s, %s)", fd.Name.Name, body, token)
		}
	}

	if fd.Type.Params != nil {
		for _, field := range fd.Type.Params.List {
			typ := exprString(field.Type)
			if transportType(typ) {
				continue
			}
			for _, ident := range field.Names {
				name := ident.Name
				key := normalizeName(name)
				if dp, ok := declByKey[key]; ok {
					used[dp] = true
					p := *dp
					if p.In == "body" {
						addBody(bodyToken(p.Type, typ))
						continue
					}
					if ph, isPH := phByKey[key]; isPH && p.In != "path" {
						diags.Add(diag.ParameterMismatch, diag.Warning, rel, line,
							"parameter %q declared as %s but matches path placeholder {%s}", p.Name, p.In, ph)
						p.In = "path"
						p.Required = true
					}
					params = append(params, p)
					continue
				}
				if ph, ok := phByKey[key]; ok {
					params = append(params, Param{Name: ph, In: "path", Type: typ, Required: true})
					continue
				}
				if primitiveToken(typ) {
					params = append(params, Param{Name: name, In: "query", Type: typ, Required: true})
					continue
				}
				// A non-primitive argument is the request payload.
				addBody(typ)
			}
		}
	}

	// Directive-only parameters follow argument-derived ones, in declaration order.
	for _, dp := range declared {
		if used[dp] || declByKey[normalizeName(dp.Name)] != dp {
			continue
		}
		if dp.In == "body" {
			addBody(bodyToken(dp.Type, ""))
			continue
		}
		params = append(params, *dp)
	}

	// Every placeholder must end up as a path parameter. Missing ones are a
	// mismatch; a synthesized string parameter keeps the output complete.
	for _, ph := range placeholders {
		if hasParam(params, "path", ph) {
			continue
		}
		diags.Add(diag.ParameterMismatch, diag.Warning, rel, line,
			"path placeholder {%s} has no matching parameter on %s", ph, fd.Name.Name)
		params = append(params, Param{Name: ph, In: "path", Type: "string", Required: true})
	}

	// A name carried by both a path and a non-path parameter is ambiguous;
	// keep the path declaration.
	var kept []Param
	seen := map[string]Param{}
	for _, p := range params {
		key := normalizeName(p.Name)
		if prev, ok := seen[key]; ok {
			if prev.In == "path" || p.In == "path" {
				dropped := p
				if p.In == "path" {
					dropped = prev
				}
				diags.Add(diag.ParameterMismatch, diag.Warning, rel, line,
					"parameter %q declared in both %s and %s on %s; path wins over the %s one",
					p.Name, prev.In, p.In, fd.Name.Name, paramOrigin(dropped))
			}
			if prev.In == "path" || p.In != "path" {
				continue
			}
			// Replace the earlier non-path entry with the path one.
			for i := range kept {
				if normalizeName(kept[i].Name) == key {
					kept[i] = p
					break
				}
			}
			seen[key] = p
			continue
		}
		seen[key] = p
		kept = append(kept, p)
	}
	return kept, body
}

// paramOrigin names where a parameter came from, for mismatch reports.
func paramOrigin(p Param) string {
	if p.Declared {
		return "@Param"
	}
	return "inferred"
}

func hasParam(params []Param, in, name string) bool {
	key := normalizeName(name)
	for _, p := range params {
		if p.In == in && normalizeName(p.Name) == key {
			return true
		}
	}
	return false
}

func bodyToken(declaredType, argType string) string {
	if declaredType != "" && !primitiveToken(declaredType) {
		return declaredType
	}
	if argType != "" {
		return argType
	}
	return declaredType
}

func extractModel(fset *token.FileSet, rel, name, doc string, pos token.Pos, st *ast.StructType) Model {
	// pos is the type declaration, matching how endpoints are located.
	m := Model{
		Name:        name,
		Description: strings.TrimSpace(doc),
		File:        rel,
		Line:        fset.Position(pos).Line,
	}
	for _, f := range st.Fields.List {
		if len(f.Names) == 0 {
			continue // embedded fields are outside the declaration conventions
		}
		typ := exprString(f.Type)
		var tag reflect.StructTag
		if f.Tag != nil {
			tag = reflect.StructTag(strings.Trim(f.Tag.Value, "`"))
		}
		desc := strings.TrimSpace(f.Doc.Text())
		if desc == "" {
			desc = strings.TrimSpace(f.Comment.Text())
		}
		for _, ident := range f.Names {
			if !ident.IsExported() {
				continue
			}
			wireName, omitempty, skip := jsonName(ident.Name, tag.Get("json"))
			if skip {
				continue
			}
			m.Fields = append(m.Fields, Field{
				Name:        wireName,
				Type:        typ,
				Required:    !omitempty && !strings.HasPrefix(typ, "*"),
				Default:     tag.Get("default"),
				Description: desc,
			})
		}
	}
	return m
}

func jsonName(goName, tag string) (name string, omitempty, skip bool) {
	if tag == "" {
		return goName, false, false
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "-" && len(parts) == 1 {
		return "", false, true
	}
	if name == "" {
		name = goName
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty, false
}

func collectEnumValues(d *ast.GenDecl, enums map[string]*Enum) {
	current := ""
	for _, s := range d.Specs {
		vs, ok := s.(*ast.ValueSpec)
		if !ok {
			continue
		}
		if id, ok := vs.Type.(*ast.Ident); ok {
			current = id.Name
		}
		e, ok := enums[current]
		if !ok {
			continue
		}
		for _, v := range vs.Values {
			lit, ok := v.(*ast.BasicLit)
			if !ok {
				continue
			}
			switch lit.Kind {
			case token.STRING:
				if s, err := strconv.Unquote(lit.Value); err == nil {
					e.Values = append(e.Values, s)
				}
			case token.INT:
				e.Values = append(e.Values, lit.Value)
			}
		}
	}
}

func enumBase(ident string) (string, bool) {
	switch ident {
	case "string":
		return "string", true
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return "int", true
	}
	return "", false
}

func specDoc(d *ast.GenDecl, ts *ast.TypeSpec) string {
	if ts.Doc != nil {
		return ts.Doc.Text()
	}
	if d.Doc != nil && len(d.Specs) == 1 {
		return d.Doc.Text()
	}
	return ""
}

// exprString renders a type expression as the raw token the resolver
// consumes. Shapes outside the conventions degrade to "any".
func exprString(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok {
			return x.Name + "." + t.Sel.Name
		}
		return t.Sel.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.ArrayType:
		return "[]" + exprString(t.Elt)
	case *ast.MapType:
		return "map[" + exprString(t.Key) + "]" + exprString(t.Value)
	case *ast.InterfaceType:
		return "any"
	}
	return "any"
}

func pathPlaceholders(path string) []string {
	var out []string
	rest := path
	for {
		i := strings.IndexByte(rest, '{')
		if i < 0 {
			return out
		}
		j := strings.IndexByte(rest[i:], '}')
		if j < 0 {
			return out
		}
		name := rest[i+1 : i+j]
		if name != "" {
			out = append(out, name)
		}
		rest = rest[i+j+1:]
	}
}

// normalizeName folds naming styles so the Go argument userID matches the
// template placeholder user_id.
func normalizeName(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}

// transportType filters function arguments that belong to the HTTP plumbing
// rather than the declared operation.
func transportType(token string) bool {
	switch token {
	case "context.Context", "*http.Request", "http.ResponseWriter":
		return true
	}
	return false
}

var primitives = map[string]bool{
	"string": true, "bool": true, "boolean": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"byte": true, "rune": true, "integer": true,
	"float32": true, "float64": true, "float": true, "number": true,
	"time.Time": true, "any": true,
}

func primitiveToken(token string) bool {
	return primitives[strings.TrimPrefix(token, "*")]
}
