package extract

import (
	"strings"
)

// Doc-comment directive grammar. Endpoint declarations use capitalized
// markers in the swag style:
//
//	@Router /users/{user_id} [get]
//	@Summary Get User
//	@Tags Users,Accounts
//	@Param user_id path string true "User ID"
//	@Param limit query int false "Page size" default(10)
//	@Success 200 {object} User
//	@Failure 404 {object} ErrorDetail
//	@Deprecated
//
// API-level metadata uses lowercase markers, usually on a package comment:
//
//	@title Sample API
//	@version 1.0.0
//	@description A sample service.

// directives is the parsed form of one doc comment.
type directives struct {
	router     *routerDecl
	summary    string
	tags       []string
	params     []Param
	responses  []ResponseDecl
	deprecated bool
	freeText   []string // doc lines that are not directives
	problems   []string // malformed directive lines, reported as ParseError
}

type routerDecl struct {
	path   string
	method string
}

func parseDirectives(doc string) directives {
	var d directives
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "@") {
			d.freeText = append(d.freeText, line)
			continue
		}
		marker, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		switch marker {
		case "@Router":
			r, ok := parseRouter(rest)
			if !ok {
				d.problems = append(d.problems, line)
				continue
			}
			// First @Router wins; a second one is malformed.
			if d.router != nil {
				d.problems = append(d.problems, line)
				continue
			}
			d.router = &r
		case "@Summary":
			d.summary = rest
		case "@Tags":
			for _, t := range strings.Split(rest, ",") {
				if t = strings.TrimSpace(t); t != "" {
					d.tags = append(d.tags, t)
				}
			}
		case "@Param":
			p, ok := parseParam(rest)
			if !ok {
				d.problems = append(d.problems, line)
				continue
			}
			d.params = append(d.params, p)
		case "@Success", "@Failure":
			r, ok := parseResponse(rest)
			if !ok {
				d.problems = append(d.problems, line)
				continue
			}
			d.responses = append(d.responses, r)
		case "@Deprecated":
			d.deprecated = true
		default:
			// Unknown markers (including lowercase metadata ones) pass through
			// as free text so they never poison an endpoint declaration.
			d.freeText = append(d.freeText, line)
		}
	}
	return d
}

// parseRouter parses "/path/{id} [get]".
func parseRouter(rest string) (routerDecl, bool) {
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return routerDecl{}, false
	}
	path := fields[0]
	m := fields[1]
	if !strings.HasPrefix(path, "/") {
		return routerDecl{}, false
	}
	if !strings.HasPrefix(m, "[") || !strings.HasSuffix(m, "]") {
		return routerDecl{}, false
	}
	return routerDecl{path: path, method: strings.ToLower(m[1 : len(m)-1])}, true
}

// parseParam parses `name location type required "description" default(v)`.
func parseParam(rest string) (Param, bool) {
	fields := splitQuoted(rest)
	if len(fields) < 4 {
		return Param{}, false
	}
	p := Param{
		Name:     fields[0],
		In:       strings.ToLower(fields[1]),
		Type:     fields[2],
		Declared: true,
	}
	switch strings.ToLower(fields[3]) {
	case "true", "required":
		p.Required = true
	case "false", "optional":
		p.Required = false
	default:
		return Param{}, false
	}
	switch p.In {
	case "path", "query", "header", "body":
	default:
		return Param{}, false
	}
	for _, f := range fields[4:] {
		switch {
		case strings.HasPrefix(f, `"`) && strings.HasSuffix(f, `"`) && len(f) >= 2:
			p.Description = f[1 : len(f)-1]
		case strings.HasPrefix(f, "default(") && strings.HasSuffix(f, ")"):
			p.Default = f[len("default(") : len(f)-1]
		default:
			return Param{}, false
		}
	}
	return p, true
}

// parseResponse parses `code {object|array} Type "description"`. The schema
// clause is optional so plain status acknowledgements stay declarable.
func parseResponse(rest string) (ResponseDecl, bool) {
	fields := splitQuoted(rest)
	if len(fields) == 0 {
		return ResponseDecl{}, false
	}
	r := ResponseDecl{Status: fields[0]}
	if !validStatus(r.Status) {
		return ResponseDecl{}, false
	}
	i := 1
	if i < len(fields) && strings.HasPrefix(fields[i], "{") {
		shape := strings.Trim(fields[i], "{}")
		switch shape {
		case "object":
		case "array":
			r.Array = true
		default:
			return ResponseDecl{}, false
		}
		i++
		if i >= len(fields) {
			return ResponseDecl{}, false
		}
		r.Schema = fields[i]
		i++
	}
	if i < len(fields) {
		f := fields[i]
		if !strings.HasPrefix(f, `"`) || !strings.HasSuffix(f, `"`) {
			return ResponseDecl{}, false
		}
		r.Description = f[1 : len(f)-1]
		i++
	}
	return r, i == len(fields)
}

func validStatus(s string) bool {
	if s == "default" {
		return true
	}
	if len(s) != 3 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s[0] >= '1' && s[0] <= '5'
}

// splitQuoted splits on spaces but keeps double-quoted runs as one field.
func splitQuoted(s string) []string {
	var fields []string
	var b strings.Builder
	inQuote := false
	flush := func() {
		if b.Len() > 0 {
			fields = append(fields, b.String())
			b.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == ' ' && !inQuote:
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return fields
}

// summaryAndDescription derives the endpoint summary and description from
// the non-directive doc text, honoring an explicit @Summary override.
func (d directives) summaryAndDescription() (string, string) {
	text := strings.TrimSpace(strings.Join(d.freeText, "\n"))
	summary := d.summary
	if summary == "" {
		if line, rest, found := strings.Cut(text, "\n"); found {
			summary = strings.TrimSpace(line)
			text = strings.TrimSpace(rest)
		} else {
			summary = text
			text = ""
		}
	}
	return summary, text
}

// metaDirectives scans any comment text for lowercase API metadata markers.
func metaDirectives(doc string, meta *Meta) {
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		marker, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		if rest == "" {
			continue
		}
		switch marker {
		case "@title":
			if meta.Title == "" {
				meta.Title = rest
			}
		case "@version":
			if meta.Version == "" {
				meta.Version = rest
			}
		case "@description":
			if meta.Description == "" {
				meta.Description = rest
			}
		}
	}
}
