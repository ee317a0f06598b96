// Package pipeline wires scanning, extraction and building into one run.
// Extraction fans out across workers since every unit is independent; the
// merge that follows is single-threaded so ordering and conflict checks
// stay deterministic.
package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/autodocgen/autodocgen/internal/api"
	"github.com/autodocgen/autodocgen/internal/diag"
	"github.com/autodocgen/autodocgen/internal/extract"
	"github.com/autodocgen/autodocgen/internal/scan"
)

// Options configures one analysis run.
type Options struct {
	Root    string
	Include []string
	Exclude []string

	// Overrides for API metadata; discovered @title/@version/@description
	// directives fill whatever is left empty.
	Title       string
	Version     string
	Description string

	// Workers bounds parallel extraction; 0 means GOMAXPROCS.
	Workers int
}

// Output is the result of a completed run. Diags may contain warnings even
// when the run succeeded; callers decide the exit status via Diags.Failing.
type Output struct {
	Description *api.Description
	Diags       diag.List
}

// Run executes the full pipeline. A context deadline or cancellation aborts
// the run with a Timeout diagnostic and no partial output.
func Run(ctx context.Context, opts Options) (*Output, error) {
	units, scanDiags, err := scan.Walk(opts.Root, scan.Filter{
		Include: opts.Include,
		Exclude: opts.Exclude,
	})
	if err != nil {
		var diags diag.List
		diags.Add(diag.PathNotFound, diag.Fatal, opts.Root, 0, "%v", err)
		return &Output{Diags: diags}, err
	}

	results := make([]extract.Result, len(units))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Indexed writes keep the merge in scan order regardless of
			// which worker finished first.
			results[i] = extract.Extract(u)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var diags diag.List
		diags.Add(diag.Timeout, diag.Fatal, opts.Root, 0, "analysis aborted: %v", err)
		return &Output{Diags: diags}, fmt.Errorf("analysis aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		var diags diag.List
		diags.Add(diag.Timeout, diag.Fatal, opts.Root, 0, "analysis aborted: %v", err)
		return &Output{Diags: diags}, fmt.Errorf("analysis aborted: %w", err)
	}

	var diags diag.List
	diags.Merge(scanDiags)

	var endpoints []extract.Endpoint
	var models []extract.Model
	var enums []extract.Enum
	info := api.Info{Title: opts.Title, Version: opts.Version, Description: opts.Description}
	for _, res := range results {
		diags.Merge(res.Diags)
		endpoints = append(endpoints, res.Endpoints...)
		models = append(models, res.Models...)
		enums = append(enums, res.Enums...)
		// First discovered metadata wins; explicit options always win.
		if info.Title == "" {
			info.Title = res.Meta.Title
		}
		if info.Version == "" {
			info.Version = res.Meta.Version
		}
		if info.Description == "" {
			info.Description = res.Meta.Description
		}
	}

	reg := api.NewRegistry(models, enums, &diags)
	d := api.Build(info, endpoints, reg, &diags)

	return &Output{Description: d, Diags: diags}, nil
}
