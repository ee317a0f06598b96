// Package scan walks a source tree and selects the source units handed to
// the extractor. It performs filesystem traversal only; nothing here opens
// or parses file contents.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/autodocgen/autodocgen/internal/diag"
)

// ErrPathNotFound marks a missing or unusable scan root. It aborts the run
// before any output is produced.
var ErrPathNotFound = errors.New("scan: path not found")

// Unit is a single candidate source file. Units are consumed by the
// extractor and never persisted.
type Unit struct {
	Path string // absolute path, used for reading
	Rel  string // slash-separated path relative to the root, used for filtering and reporting
}

// Filter holds include/exclude glob patterns in path.Match syntax, applied
// to the slash-separated relative path. An empty include list admits every
// candidate; exclude patterns win over includes.
type Filter struct {
	Include []string
	Exclude []string
}

func (f Filter) admit(rel string) bool {
	for _, p := range f.Exclude {
		if matchGlob(p, rel) {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, p := range f.Include {
		if matchGlob(p, rel) {
			return true
		}
	}
	return false
}

// matchGlob matches against the full relative path and, as a convenience,
// against the base name, so "--include 'users*.go'" works at any depth.
func matchGlob(pattern, rel string) bool {
	if ok, err := path.Match(pattern, rel); err == nil && ok {
		return true
	}
	ok, err := path.Match(pattern, path.Base(rel))
	return err == nil && ok
}

// Walk traverses root and returns Go source units in lexical walk order.
// The order is the pipeline's first-discovery order, so it must be stable
// across runs on an unchanged tree.
//
// Unreadable directories are recorded as diagnostics and skipped; a missing
// root fails with ErrPathNotFound.
func Walk(root string, filter Filter) ([]Unit, diag.List, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrPathNotFound, root)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory", ErrPathNotFound, root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrPathNotFound, root, err)
	}

	var units []Unit
	var diags diag.List
	walkErr := filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Partial-failure policy: one unreadable entry must not block the run.
			diags.Add(diag.ReadError, diag.Warning, p, 0, "skipped: %v", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, rerr := filepath.Rel(absRoot, p)
		if rerr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if skipDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".go") || strings.HasSuffix(d.Name(), "_test.go") {
			return nil
		}
		if !filter.admit(rel) {
			return nil
		}
		units = append(units, Unit{Path: p, Rel: rel})
		return nil
	})
	if walkErr != nil {
		return nil, diags, fmt.Errorf("scan %s: %w", root, walkErr)
	}
	return units, diags, nil
}

func skipDir(name string) bool {
	if name == "vendor" || name == "testdata" || name == "node_modules" {
		return true
	}
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}
