package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/autodocgen/autodocgen/internal/api"
	"github.com/autodocgen/autodocgen/internal/diag"
	"github.com/autodocgen/autodocgen/internal/docs"
	"github.com/autodocgen/autodocgen/internal/emitter/goemitter"
	"github.com/autodocgen/autodocgen/internal/emitter/pyemitter"
	"github.com/autodocgen/autodocgen/internal/emitter/tsemitter"
	"github.com/autodocgen/autodocgen/internal/pipeline"
)

// GenerateConfig captures all inputs that influence the generate command
// after merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Root        string // annotated source tree to analyze
	From        string // existing OpenAPI document; mutually exclusive with Root
	Langs       []string
	Out         string
	Docs        string // markdown output path, "" skips documentation
	Include     []string
	Exclude     []string
	PackageName string
	Title       string
	APIVersion  string
	Description string
	Workers     int
	Timeout     time.Duration
	DryRun      bool
	Force       bool
	Verbose     bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Langs: []string{"go"}, Out: "client"}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate documentation and client stubs from annotated source",
		Long: "Generate markdown documentation and typed client stubs, either by analyzing " +
			"an annotated source tree or from a previously produced OpenAPI document. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  autodocgen generate --root ./internal --lang go --out ./clients --docs API.md
  autodocgen generate --from api.json --lang go,python,ts --out ./clients
  autodocgen --config autodocgen.yaml generate --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("root", "", "Annotated source tree to analyze")
	flags.String("from", "", "Existing OpenAPI document to generate from instead of scanning")
	flags.StringSlice("lang", nil, "Target languages to emit (go|python|ts); defaults to go")
	flags.String("out", "", "Output directory for clients (defaults to ./client)")
	flags.String("docs", "", "Write markdown documentation to this path")
	flags.StringSlice("include", nil, "Only scan files matching these glob patterns")
	flags.StringSlice("exclude", nil, "Skip files matching these glob patterns")
	flags.String("package-name", "", "Override the generated package name")
	flags.String("title", "", "Override the API title")
	flags.String("api-version", "", "Override the API version")
	flags.String("description", "", "Override the API description")
	flags.Int("workers", 0, "Parallel extraction workers (0 = number of CPUs)")
	flags.Duration("timeout", 0, "Abort the run after this duration (0 = no limit)")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	if flags.Changed("root") {
		value, err := flags.GetString("root")
		if err != nil {
			return err
		}
		cfg.Root = strings.TrimSpace(value)
	}
	if flags.Changed("from") {
		value, err := flags.GetString("from")
		if err != nil {
			return err
		}
		cfg.From = strings.TrimSpace(value)
	}
	if flags.Changed("lang") {
		value, err := flags.GetStringSlice("lang")
		if err != nil {
			return err
		}
		cfg.Langs = sanitizeList(value)
	}
	if flags.Changed("out") {
		value, err := flags.GetString("out")
		if err != nil {
			return err
		}
		cfg.Out = strings.TrimSpace(value)
	}
	if flags.Changed("docs") {
		value, err := flags.GetString("docs")
		if err != nil {
			return err
		}
		cfg.Docs = strings.TrimSpace(value)
	}
	if flags.Changed("include") {
		value, err := flags.GetStringSlice("include")
		if err != nil {
			return err
		}
		cfg.Include = sanitizeList(value)
	}
	if flags.Changed("exclude") {
		value, err := flags.GetStringSlice("exclude")
		if err != nil {
			return err
		}
		cfg.Exclude = sanitizeList(value)
	}
	if flags.Changed("package-name") {
		value, err := flags.GetString("package-name")
		if err != nil {
			return err
		}
		cfg.PackageName = strings.TrimSpace(value)
	}
	if flags.Changed("title") {
		value, err := flags.GetString("title")
		if err != nil {
			return err
		}
		cfg.Title = strings.TrimSpace(value)
	}
	if flags.Changed("api-version") {
		value, err := flags.GetString("api-version")
		if err != nil {
			return err
		}
		cfg.APIVersion = strings.TrimSpace(value)
	}
	if flags.Changed("description") {
		value, err := flags.GetString("description")
		if err != nil {
			return err
		}
		cfg.Description = strings.TrimSpace(value)
	}
	if flags.Changed("workers") {
		value, err := flags.GetInt("workers")
		if err != nil {
			return err
		}
		cfg.Workers = value
	}
	if flags.Changed("timeout") {
		value, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = value
	}
	if flags.Changed("dry-run") {
		value, err := flags.GetBool("dry-run")
		if err != nil {
			return err
		}
		cfg.DryRun = value
	}
	if flags.Changed("force") {
		value, err := flags.GetBool("force")
		if err != nil {
			return err
		}
		cfg.Force = value
	}
	if flags.Changed("verbose") {
		value, err := flags.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Root = strings.TrimSpace(c.Root)
	c.From = strings.TrimSpace(c.From)
	c.Out = strings.TrimSpace(c.Out)
	c.Docs = strings.TrimSpace(c.Docs)
	c.PackageName = strings.TrimSpace(c.PackageName)
	langs := sanitizeList(c.Langs)
	c.Langs = c.Langs[:0]
	for _, l := range langs {
		c.Langs = append(c.Langs, strings.ToLower(l))
	}
	if len(c.Langs) == 0 {
		c.Langs = []string{"go"}
	}
	if c.Out == "" {
		c.Out = "client"
	}
}

func (c *GenerateConfig) validate() error {
	if c.Root != "" && c.From != "" {
		return newUsageError("generate: --root and --from are mutually exclusive")
	}
	if c.Root == "" && c.From == "" {
		return newUsageError("generate: one of --root or --from is required (set via flag or config file)")
	}
	for _, lang := range c.Langs {
		switch lang {
		case "go", "python", "ts":
		default:
			return newUsageError(fmt.Sprintf("generate: unsupported --lang %q (allowed: go, python, ts)", lang))
		}
	}
	return nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	// 1) Obtain the canonical description: analyze the tree or load a
	// previously produced document.
	var d *api.Description
	var diags diag.List
	if cfg.From != "" {
		loaded, err := api.LoadOpenAPI(ctx, cfg.From)
		if err != nil {
			return newUsageError(fmt.Sprintf("generate: load %s: %v", cfg.From, err))
		}
		if cfg.Title != "" {
			loaded.Title = cfg.Title
		}
		if cfg.APIVersion != "" {
			loaded.Version = cfg.APIVersion
		}
		if cfg.Description != "" {
			loaded.Description = cfg.Description
		}
		d = loaded
	} else {
		out, err := pipeline.Run(ctx, pipeline.Options{
			Root:        cfg.Root,
			Include:     cfg.Include,
			Exclude:     cfg.Exclude,
			Title:       cfg.Title,
			Version:     cfg.APIVersion,
			Description: cfg.Description,
			Workers:     cfg.Workers,
		})
		if err != nil {
			if out != nil {
				printDiagnostics(out.Diags)
			}
			return err
		}
		diags = out.Diags
		if out.Diags.HasFatal() {
			printDiagnostics(diags)
			return ErrDiagnostics
		}
		d = out.Description
	}

	// 2) Markdown documentation.
	if cfg.Docs != "" && !cfg.DryRun {
		if err := writeFileAtomic(cfg.Docs, docs.Render(d)); err != nil {
			return wrapOutputError(err, cfg.Docs)
		}
		if cfg.Verbose {
			fmt.Fprintf(os.Stderr, "wrote %s\n", cfg.Docs)
		}
	}

	// 3) Client stubs. With a single language the output directory is used
	// directly; with several, each language gets a subdirectory.
	for _, lang := range cfg.Langs {
		outDir := cfg.Out
		if len(cfg.Langs) > 1 {
			outDir = filepath.Join(cfg.Out, lang)
		}
		absOut := outDir
		if ap, err := filepath.Abs(outDir); err == nil {
			absOut = ap
		}

		switch lang {
		case "go":
			res, err := goemitter.Emit(ctx, d, goemitter.Options{
				OutDir:      outDir,
				PackageName: cfg.PackageName,
				Force:       cfg.Force,
				DryRun:      cfg.DryRun,
				Verbose:     cfg.Verbose,
			})
			if err != nil {
				return wrapOutputError(err, absOut)
			}
			diags.Merge(res.Diagnostics)
			if cfg.DryRun {
				printPlan(absOut, plannedPaths(len(res.Planned), func(i int) string { return res.Planned[i].RelPath }))
			}
		case "python":
			res, err := pyemitter.Emit(ctx, d, pyemitter.Options{
				OutDir:      outDir,
				PackageName: cfg.PackageName,
				Force:       cfg.Force,
				DryRun:      cfg.DryRun,
				Verbose:     cfg.Verbose,
			})
			if err != nil {
				return wrapOutputError(err, absOut)
			}
			diags.Merge(res.Diagnostics)
			if cfg.DryRun {
				printPlan(absOut, plannedPaths(len(res.Planned), func(i int) string { return res.Planned[i].RelPath }))
			}
		case "ts":
			res, err := tsemitter.Emit(ctx, d, tsemitter.Options{
				OutDir:      outDir,
				PackageName: cfg.PackageName,
				Force:       cfg.Force,
				DryRun:      cfg.DryRun,
				Verbose:     cfg.Verbose,
			})
			if err != nil {
				return wrapOutputError(err, absOut)
			}
			diags.Merge(res.Diagnostics)
			if cfg.DryRun {
				printPlan(absOut, plannedPaths(len(res.Planned), func(i int) string { return res.Planned[i].RelPath }))
			}
		}
	}

	printDiagnostics(diags)
	if diags.Failing() {
		return ErrDiagnostics
	}
	return nil
}

func plannedPaths(n int, at func(int) string) []string {
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		paths = append(paths, at(i))
	}
	return paths
}

func printPlan(outDir string, relPaths []string) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, len(relPaths))
	for _, p := range relPaths {
		fmt.Fprintf(os.Stdout, "- %s\n", p)
	}
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	raw, err := readConfigFile(path)
	if err != nil {
		return err
	}
	for key, value := range raw {
		switch normalizeKey(key) {
		case "root":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Root = str
		case "from":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.From = str
		case "lang", "langs":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Langs = sanitizeList(list)
		case "out":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Out = str
		case "docs":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Docs = str
		case "include":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Include = sanitizeList(list)
		case "exclude":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Exclude = sanitizeList(list)
		case "packagename":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.PackageName = str
		case "title":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Title = str
		case "apiversion":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.APIVersion = str
		case "description":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Description = str
		case "workers":
			n, err := valueAsInt(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Workers = n
		case "timeout":
			d, err := valueAsDuration(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Timeout = d
		case "dryrun":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.DryRun = val
		case "force":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Force = val
		case "verbose":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Verbose = val
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
	}
	return nil
}

func readConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}
	return raw, nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, fmt.Errorf("invalid integer value %q", val)
		}
		return n, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func valueAsDuration(v any) (time.Duration, error) {
	switch val := v.(type) {
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, nil
		}
		d, err := time.ParseDuration(trimmed)
		if err != nil {
			return 0, fmt.Errorf("invalid duration value %q", val)
		}
		return d, nil
	case int:
		return time.Duration(val) * time.Second, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected duration, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
