// internal/commands/evaluate.go
package medeval

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/appconfig"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/dashboard"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/evaluation"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/logging"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/reports"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/tracing"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/tui"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/webhooks"
)

// evaluateOptions holds the flag values for the evaluate command.
type evaluateOptions struct {
	dataset     string
	outputDir   string
	subset      int
	trace       bool
	noDashboard bool
	noReports   bool
	noProgress  bool
}

var evaluateOpts evaluateOptions

var (
	passMark = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
)

// newOrchestrator builds the evaluation pipeline. Tests substitute a
// constructor that wires scripted providers.
var newOrchestrator = evaluation.New

// stdoutIsTerminal reports whether stdout can host the live progress
// display. Pipes and CI runs fall back to plain output.
var stdoutIsTerminal = func() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// evaluateCmd runs the full pipeline against the golden dataset.
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run the evaluation pipeline against the golden dataset",
	Long: `Evaluate the configured diagnosis model on every golden case: generate a
structured diagnosis, score it for safety and clinical quality with the
judge model, compute aggregate and retrieval metrics, and check them
against the configured thresholds. Reports, the dashboard, webhook
notifications, and traces follow the run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		// Flag overrides apply to a copy so GetConfig keeps the file view.
		runCfg := *cfg
		return runEvaluate(cmd.Context(), cmd.OutOrStdout(), &runCfg, evaluateOpts)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVar(&evaluateOpts.dataset, "dataset", "", "golden dataset JSON file (overrides config)")
	evaluateCmd.Flags().StringVar(&evaluateOpts.outputDir, "output-dir", "", "directory for reports and artifacts (overrides config)")
	evaluateCmd.Flags().IntVar(&evaluateOpts.subset, "subset", 0, "evaluate only the first N cases")
	evaluateCmd.Flags().BoolVar(&evaluateOpts.trace, "trace", false, "record OpenTelemetry traces for this run")
	evaluateCmd.Flags().BoolVar(&evaluateOpts.noDashboard, "no-dashboard", false, "skip dashboard generation")
	evaluateCmd.Flags().BoolVar(&evaluateOpts.noReports, "no-reports", false, "skip report generation")
	evaluateCmd.Flags().BoolVar(&evaluateOpts.noProgress, "no-progress", false, "disable the live progress display")
}

// runEvaluate executes one evaluation end to end: build the orchestrator,
// run the case loop (behind the live progress display when the terminal
// supports it), then emit the summary, notifications, dashboard, reports,
// and the final verdict. It returns errThresholdsNotMet when the run
// completed but failed its gates.
func runEvaluate(ctx context.Context, out io.Writer, cfg *appconfig.Config, opts evaluateOptions) error {
	line := strings.Repeat("=", 60)
	fmt.Fprintf(out, "%s\nMedical Diagnosis Evaluator\n%s\n\n", line, line)
	fmt.Fprintf(out, "Loading configuration from: %s\n", cfg.ConfigPath)

	if opts.dataset != "" {
		cfg.DatasetPath = opts.dataset
		fmt.Fprintf(out, "Using dataset: %s\n", opts.dataset)
	}
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
		fmt.Fprintf(out, "Output directory: %s\n", opts.outputDir)
	}
	if opts.subset > 0 {
		cfg.SubsetSize = opts.subset
		fmt.Fprintf(out, "Evaluating subset of %d cases\n", opts.subset)
	}
	fmt.Fprintln(out)

	orch, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer orch.Close()

	var rec *tracing.Recorder
	if opts.trace || cfg.Tracing {
		rec, err = tracing.New(cfg.OutputDirectory())
		if err != nil {
			fmt.Fprintf(out, "⚠ Tracing disabled: %v\n", err)
			rec = nil
		} else {
			orch.Tracer = rec
		}
	}

	fmt.Fprintf(out, "Starting evaluation...\n\n")

	var run *evaluation.Run
	if useProgressDisplay(cfg, opts) {
		// The display owns the terminal while the run is in flight, so the
		// console copy of the log stream is paused until it exits.
		logging.SetConsole(false)
		run, err = tui.Evaluate(ctx, func(ctx context.Context, tick func(completed, total int, caseID string)) (*evaluation.Run, error) {
			orch.OnProgress = tick
			return orch.Run(ctx)
		})
		logging.SetConsole(true)
	} else {
		run, err = orch.Run(ctx)
	}

	if rec != nil {
		// Flush whatever was recorded even when the run failed part-way.
		if cerr := rec.Close(context.Background()); cerr != nil {
			fmt.Fprintf(out, "⚠ Trace flush failed: %v\n", cerr)
		} else if err == nil {
			paths := rec.Paths()
			fmt.Fprintf(out, "Traces saved to: %s\n", paths.Traces)
			fmt.Fprintf(out, "Trace metrics saved to: %s\n", paths.Metrics)
		}
	}
	if err != nil {
		return err
	}

	// Verbose runs already printed the summary from inside the case loop.
	if !cfg.Verbose {
		evaluation.PrintSummary(out, run.Metrics)
	}
	if run.Metrics.FailedCases > 0 {
		fmt.Fprintf(out, "%s\n", webhooks.FailureSummary(run.CaseResults))
	}

	if len(cfg.Webhooks) > 0 {
		fmt.Fprintln(out, "\nSending webhook notifications...")
		webhooks.NewNotifier(out).NotifyAll(ctx, run, cfg)
	}

	if !opts.noDashboard {
		fmt.Fprintln(out, "\nGenerating dashboard...")
		if _, err := dashboard.NewGenerator(out).Save(run, cfg, cfg.OutputDirectory()); err != nil {
			return err
		}
	}

	if !opts.noReports {
		fmt.Fprintln(out, "\nGenerating reports...")
		if _, err := reports.NewWriter(out).SaveAll(run, cfg, cfg.OutputDirectory()); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "\n%s\nEVALUATION COMPLETE\n%s\n", line, line)
	if run.Metrics.AllThresholdsMet {
		fmt.Fprintf(out, "\n%s\n", passMark("✓ All thresholds met - PASS"))
	} else {
		fmt.Fprintf(out, "\n%s\n", failMark("✗ Some thresholds not met - FAIL"))
		if failed := run.Metrics.FailedThresholds(); len(failed) > 0 {
			fmt.Fprintf(out, "Failed thresholds: %s\n", strings.Join(failed, ", "))
		}
	}
	fmt.Fprintf(out, "\nResults saved to: %s\n\n", cfg.OutputDirectory())

	if !run.Metrics.AllThresholdsMet {
		return errThresholdsNotMet
	}
	return nil
}

// useProgressDisplay reports whether the live progress bar should run.
func useProgressDisplay(cfg *appconfig.Config, opts evaluateOptions) bool {
	return !cfg.Verbose && !opts.noProgress && stdoutIsTerminal()
}
