package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/autodocgen/autodocgen/internal/api"
	"github.com/autodocgen/autodocgen/internal/diag"
	"github.com/autodocgen/autodocgen/internal/pipeline"
)

// AnalyzeConfig captures all inputs that influence the analyze command after
// merging defaults, config file values, and CLI overrides.
type AnalyzeConfig struct {
	Root        string
	Include     []string
	Exclude     []string
	Out         string
	Title       string
	APIVersion  string
	Description string
	Workers     int
	Timeout     time.Duration
	Verbose     bool
}

func defaultAnalyzeConfig() AnalyzeConfig {
	return AnalyzeConfig{Root: "."}
}

var analyzeRunner = runAnalyze

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Scan an annotated source tree and write an OpenAPI document",
		Long: "Scan an annotated source tree, extract endpoint and model declarations, " +
			"and write the resulting OpenAPI 3.0 document. Diagnostics are reported on stderr.",
		Example: strings.TrimSpace(`  autodocgen analyze --root ./internal --out api.json
  autodocgen analyze --root . --include 'handlers*.go' --exclude 'legacy*.go'`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveAnalyzeConfig(cmd)
			if err != nil {
				return err
			}
			return analyzeRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("root", "", "Source tree to scan (defaults to the current directory)")
	flags.StringSlice("include", nil, "Only scan files matching these glob patterns")
	flags.StringSlice("exclude", nil, "Skip files matching these glob patterns")
	flags.String("out", "", "Where to write the OpenAPI document (stdout when omitted)")
	flags.String("title", "", "Override the API title")
	flags.String("api-version", "", "Override the API version")
	flags.String("description", "", "Override the API description")
	flags.Int("workers", 0, "Parallel extraction workers (0 = number of CPUs)")
	flags.Duration("timeout", 0, "Abort the run after this duration (0 = no limit)")

	return cmd
}

func resolveAnalyzeConfig(cmd *cobra.Command) (*AnalyzeConfig, error) {
	cfg := defaultAnalyzeConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		if err := applyAnalyzeConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyAnalyzeFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.Root = strings.TrimSpace(cfg.Root)
	if cfg.Root == "" {
		cfg.Root = "."
	}
	cfg.Out = strings.TrimSpace(cfg.Out)

	return &cfg, nil
}

func applyAnalyzeFlagOverrides(flags *pflag.FlagSet, cfg *AnalyzeConfig) error {
	if flags.Changed("root") {
		value, err := flags.GetString("root")
		if err != nil {
			return err
		}
		cfg.Root = strings.TrimSpace(value)
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
	if flags.Changed("out") {
		value, err := flags.GetString("out")
		if err != nil {
			return err
		}
		cfg.Out = strings.TrimSpace(value)
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
	if flags.Changed("verbose") {
		value, err := flags.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = value
	}
	return nil
}

func applyAnalyzeConfigFromFile(cfg *AnalyzeConfig, path string) error {
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
		case "out":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Out = str
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
		case "verbose":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Verbose = val
		default:
			// Fields belonging to other commands are tolerated so one
			// config file can serve the whole tool.
		}
	}
	return nil
}

func runAnalyze(ctx context.Context, cfg *AnalyzeConfig) error {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

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

	printDiagnostics(out.Diags)
	if out.Diags.HasFatal() {
		return ErrDiagnostics
	}

	data, err := api.MarshalJSON(out.Description)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if cfg.Out == "" || cfg.Out == "-" {
		if _, err := os.Stdout.Write(data); err != nil {
			return err
		}
	} else {
		if err := writeFileAtomic(cfg.Out, data); err != nil {
			return err
		}
		if cfg.Verbose {
			fmt.Fprintf(os.Stderr, "wrote %s (%d endpoints, %d schemas)\n",
				cfg.Out, len(out.Description.Endpoints), len(out.Description.Schemas))
		}
	}

	if out.Diags.Failing() {
		return ErrDiagnostics
	}
	return nil
}

func printDiagnostics(diags diag.List) {
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d.String())
	}
}

func writeFileAtomic(path string, data []byte) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	tmp := abs + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, abs); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("place %s: %w", path, err)
	}
	return nil
}

func sanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
