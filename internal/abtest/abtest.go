// internal/abtest/abtest.go
// Package abtest compares two model configurations on the same golden
// dataset. It runs a full evaluation per configuration, compares the
// aggregate metrics, and applies paired t-tests to the per-case series.
package abtest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/appconfig"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/evaluation"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/util"
)

// evalRunner is the slice of the evaluation orchestrator the runner needs.
type evalRunner interface {
	Run(ctx context.Context) (*evaluation.Run, error)
	Close() error
}

// Runner executes A/B comparisons. The zero value is not usable; construct
// with NewRunner.
type Runner struct {
	out     io.Writer
	newEval func(cfg *appconfig.Config) (evalRunner, error)
	now     func() time.Time
}

// NewRunner returns a runner that reports progress to out. A nil out falls
// back to stdout.
func NewRunner(out io.Writer) *Runner {
	if out == nil {
		out = os.Stdout
	}
	return &Runner{
		out: out,
		newEval: func(cfg *appconfig.Config) (evalRunner, error) {
			return evaluation.New(cfg)
		},
		now: time.Now,
	}
}

// Run evaluates both configurations sequentially and writes the comparison
// report to outputDir. Both runs must use the same dataset; when they
// differ, config B is coerced onto config A's dataset. Returns the report
// and the path it was saved to.
func (r *Runner) Run(ctx context.Context, cfgA, cfgB *appconfig.Config, outputDir string) (*Report, string, error) {
	line := strings.Repeat("=", 70)
	fmt.Fprintf(r.out, "%s\nA/B Testing: Comparing Two Model Configurations\n%s\n\n", line, line)

	if cfgA.DatasetFile() != cfgB.DatasetFile() {
		fmt.Fprintln(r.out, "⚠ Warning: Configs use different datasets. Using dataset from config A.")
		cfgB.DatasetPath = cfgA.DatasetFile()
	}

	runA, err := r.evaluate(ctx, "A", cfgA)
	if err != nil {
		return nil, "", err
	}
	runB, err := r.evaluate(ctx, "B", cfgB)
	if err != nil {
		return nil, "", err
	}

	fmt.Fprintln(r.out, "Computing metric comparisons and statistical significance...")
	comparison := Compare(runA, runB)

	report := &Report{
		Timestamp:  r.now(),
		ConfigA:    ConfigSummary{Model: cfgA.Model, JudgeModel: cfgA.JudgeModelName()},
		ConfigB:    ConfigSummary{Model: cfgB.Model, JudgeModel: cfgB.JudgeModelName()},
		ResultsA:   runA,
		ResultsB:   runB,
		Comparison: comparison,
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode comparison report: %w", err)
	}
	path := filepath.Join(outputDir, fmt.Sprintf("ab_test_comparison_%s.json", util.Timestamp(report.Timestamp)))
	if err := util.WriteFile(path, data); err != nil {
		return nil, "", fmt.Errorf("failed to write comparison report: %w", err)
	}
	fmt.Fprintf(r.out, "\n✓ A/B test comparison saved to: %s\n", path)

	PrintComparison(r.out, comparison)
	return report, path, nil
}

func (r *Runner) evaluate(ctx context.Context, label string, cfg *appconfig.Config) (*evaluation.Run, error) {
	fmt.Fprintf(r.out, "Running evaluation for Config %s...\n", label)
	fmt.Fprintf(r.out, "  Model: %s\n", cfg.Model.ModelName)
	fmt.Fprintf(r.out, "  Provider: %s\n\n", cfg.Model.Provider)

	eval, err := r.newEval(cfg)
	if err != nil {
		return nil, err
	}
	defer eval.Close()

	run, err := eval.Run(ctx)
	if err != nil {
		return nil, err
	}

	sep := strings.Repeat("-", 70)
	m := run.Metrics
	fmt.Fprintf(r.out, "\n%s\nConfig %s Results:\n", sep, label)
	fmt.Fprintf(r.out, "  Clinical Accuracy: %.2f%%\n", m.ClinicalAccuracy*100)
	fmt.Fprintf(r.out, "  Avg Safety Score: %.2f/5.0\n", m.AvgSafetyScore)
	fmt.Fprintf(r.out, "  Cost per Query: $%.4f\n", m.CostPerQuery)
	fmt.Fprintf(r.out, "  P95 Latency: %.0fms\n", m.P95)
	fmt.Fprintf(r.out, "%s\n\n", sep)
	return run, nil
}
