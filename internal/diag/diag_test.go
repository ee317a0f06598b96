package diag

import (
	"strings"
	"testing"
)

func TestDiagnosticString(t *testing.T) {
	tests := []struct {
		name string
		d    Diagnostic
		want string
	}{
		{
			name: "with location",
			d:    Diagnostic{Code: ParameterMismatch, Severity: Warning, Message: "mismatch", File: "users.go", Line: 12},
			want: "WARN ParameterMismatch users.go:12: mismatch",
		},
		{
			name: "file only",
			d:    Diagnostic{Code: ReadError, Severity: Warning, Message: "denied", File: "users.go"},
			want: "WARN ReadError users.go: denied",
		},
		{
			name: "no location",
			d:    Diagnostic{Code: Timeout, Severity: Fatal, Message: "deadline exceeded"},
			want: "ERROR Timeout: deadline exceeded",
		},
		{
			name: "info severity",
			d:    Diagnostic{Code: UnsupportedType, Severity: Info, Message: "degraded"},
			want: "INFO UnsupportedType: degraded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListAddAndCount(t *testing.T) {
	var l List
	l.Add(ParameterMismatch, Warning, "a.go", 3, "placeholder {%s} unmatched", "id")
	l.Add(ParameterMismatch, Warning, "b.go", 7, "duplicate %q", "limit")
	l.Add(UnresolvedReference, Warning, "a.go", 9, "unresolved")

	if got := l.Count(ParameterMismatch); got != 2 {
		t.Errorf("Count(ParameterMismatch) = %d, want 2", got)
	}
	if got := l.Count(DuplicateRoute); got != 0 {
		t.Errorf("Count(DuplicateRoute) = %d, want 0", got)
	}
	if !strings.Contains(l[0].Message, "{id}") {
		t.Errorf("formatted message = %q", l[0].Message)
	}
}

func TestListMerge(t *testing.T) {
	var a, b List
	a.Add(ReadError, Warning, "x.go", 0, "skipped")
	b.Add(ParseError, Warning, "y.go", 1, "bad directive")
	b.Add(Timeout, Fatal, "", 0, "deadline")

	a.Merge(b)
	if len(a) != 3 {
		t.Fatalf("merged length = %d, want 3", len(a))
	}
	if a[2].Code != Timeout {
		t.Errorf("last code = %s, want Timeout", a[2].Code)
	}
}

func TestFailing(t *testing.T) {
	var ok List
	ok.Add(ParameterMismatch, Warning, "a.go", 1, "mismatch")
	ok.Add(UnsupportedType, Info, "a.go", 2, "degraded")
	if ok.Failing() {
		t.Error("warnings alone should not fail the run")
	}

	var fatal List
	fatal.Add(Timeout, Fatal, "", 0, "deadline")
	if !fatal.Failing() {
		t.Error("fatal diagnostic must fail the run")
	}
	if !fatal.HasFatal() {
		t.Error("HasFatal() = false with a fatal entry")
	}

	// Duplicate routes are warnings but still flip the exit status.
	var dup List
	dup.Add(DuplicateRoute, Warning, "a.go", 4, "duplicate route")
	if dup.HasFatal() {
		t.Error("duplicate route is not fatal")
	}
	if !dup.Failing() {
		t.Error("duplicate route must fail the run")
	}
}
