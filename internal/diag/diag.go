// Package diag carries non-aborting problem reports across the analysis
// pipeline. Diagnostics are collected per source unit and merged at the
// build step; they are reported alongside output, never instead of it.
package diag

import (
	"fmt"
	"strings"
)

// Code categorizes a diagnostic.
type Code string

const (
	PathNotFound        Code = "PathNotFound"
	ReadError           Code = "ReadError"
	ParseError          Code = "ParseError"
	ParameterMismatch   Code = "ParameterMismatch"
	UnresolvedReference Code = "UnresolvedReference"
	DuplicateRoute      Code = "DuplicateRoute"
	UnsupportedType     Code = "UnsupportedType"
	Timeout             Code = "Timeout"
)

// Severity orders diagnostics by impact. Fatal conditions abort the run;
// warnings degrade the affected entry and continue.
type Severity int

const (
	Info Severity = iota
	Warning
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Fatal:
		return "ERROR"
	case Warning:
		return "WARN"
	default:
		return "INFO"
	}
}

// Diagnostic is one detected problem, with an optional source location.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Message  string
	File     string
	Line     int
}

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.Severity.String())
	b.WriteString(" ")
	b.WriteString(string(d.Code))
	if d.File != "" {
		if d.Line > 0 {
			fmt.Fprintf(&b, " %s:%d", d.File, d.Line)
		} else {
			b.WriteString(" " + d.File)
		}
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

// List accumulates diagnostics. The zero value is ready to use.
type List []Diagnostic

// Add appends a diagnostic built from the given parts.
func (l *List) Add(code Code, sev Severity, file string, line int, format string, args ...any) {
	*l = append(*l, Diagnostic{
		Code:     code,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		File:     file,
		Line:     line,
	})
}

// Merge appends all diagnostics from other.
func (l *List) Merge(other List) {
	*l = append(*l, other...)
}

// Count returns the number of diagnostics carrying code.
func (l List) Count(code Code) int {
	n := 0
	for _, d := range l {
		if d.Code == code {
			n++
		}
	}
	return n
}

// HasFatal reports whether any diagnostic is fatal.
func (l List) HasFatal() bool {
	for _, d := range l {
		if d.Severity == Fatal {
			return true
		}
	}
	return false
}

// Failing reports whether the run should exit non-zero: any fatal
// diagnostic, or any duplicate route conflict.
func (l List) Failing() bool {
	if l.HasFatal() {
		return true
	}
	return l.Count(DuplicateRoute) > 0
}
