package appconfig

import (
	"fmt"
	"io"

	"github.com/k0kubun/pp"
)

// ShowConfig prints the current configuration summary.
func ShowConfig(out io.Writer, file string, cfg *Config, fallback Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	fmt.Fprintln(out, "Current configuration:")
	if cfg == nil {
		cfg = &fallback
	}

	fmt.Fprintf(out, "  Provider:          %s\n", cfg.Model.Provider)
	fmt.Fprintf(out, "  Model:             %s\n", cfg.Model.ModelName)
	fmt.Fprintf(out, "  Temperature:       %v\n", cfg.Model.Temperature)
	fmt.Fprintf(out, "  Max Tokens:        %d\n", cfg.Model.MaxTokens)
	fmt.Fprintf(out, "  Judge Model:       %s\n", cfg.JudgeModelName())
	fmt.Fprintf(out, "  Judge Provider:    %s\n", cfg.JudgeProviderName())
	fmt.Fprintf(out, "  Dataset:           %s\n", cfg.DatasetFile())
	fmt.Fprintf(out, "  Output Dir:        %s\n", cfg.OutputDirectory())
	fmt.Fprintf(out, "  Request Timeout:   %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Verbose:           %v\n", cfg.Verbose)
	fmt.Fprintf(out, "  Tracing:           %v\n", cfg.Tracing)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Thresholds:")
	fmt.Fprintf(out, "  Min Accuracy:      %.2f\n", cfg.MinAccuracy)
	fmt.Fprintf(out, "  Min Faithfulness:  %.2f\n", cfg.MinFaithfulness)
	fmt.Fprintf(out, "  Min Safety Score:  %.1f\n", cfg.MinSafetyScore)
	fmt.Fprintf(out, "  Max Cost/Query:    $%.4f\n", cfg.MaxCostPerQuery)
	fmt.Fprintf(out, "  Max P95 Latency:   %.0fms\n", cfg.MaxP95Latency)

	if cfg.ScorerURL != "" {
		fmt.Fprintf(out, "\n  Scorer URL:        %s\n", cfg.ScorerURL)
	}
	if len(cfg.Webhooks) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Webhooks:")
		for _, hook := range cfg.Webhooks {
			fmt.Fprintf(out, "  %-8s %s\n", hook.Type, hook.URL)
		}
	}
}

// DumpConfig pretty-prints the complete configuration struct, including the
// fields the summary omits. API keys live in the environment, never in the
// Config, so the dump is safe to paste into a bug report.
func DumpConfig(out io.Writer, cfg *Config, fallback Config) {
	if cfg == nil {
		cfg = &fallback
	}
	pp.Fprintln(out, *cfg)
}
