// internal/commands/root.go

// Package medeval wires the evaluator's cobra command tree: configuration
// resolution, logging setup, signal handling, and the mapping from command
// errors onto the process exit codes CI pipelines key off.
package medeval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/appconfig"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/dataset"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/logging"
)

var (
	cfgFile       string
	currentConfig *appconfig.Config
	configErr     error

	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// errThresholdsNotMet marks a run that completed but failed one or more
// quality gates. The verdict has already been printed by the time it
// surfaces, so Execute maps it to exit code 1 without further output.
var errThresholdsNotMet = errors.New("quality thresholds not met")

// rootCmd is the base command for the medeval CLI.
var rootCmd = &cobra.Command{
	Use:           "medeval",
	Short:         "Evaluation harness for an LLM-based medical diagnosis assistant",
	Long: `medeval runs a golden dataset of clinical cases through a diagnosis model,
scores every response for safety and clinical quality with a judge model,
aggregates the results, and gates them against configured thresholds.

The process exit code reports the outcome: 0 when all thresholds are met,
1 when the run completed but thresholds failed, 2 for configuration or
dataset problems, and 130 when interrupted.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := appconfig.Load(cfgFile)
		if err != nil {
			// A missing config file is tolerated here: compare loads its own
			// pair of files and validate/list take explicit inputs. Commands
			// that need the config fail through requireConfig instead.
			if errors.Is(err, appconfig.ErrNotFound) {
				currentConfig = nil
				configErr = err
				return logging.Init(appconfig.Config{}.LogFilePath())
			}
			return err
		}

		if cmd.Flags().Changed("verbose") {
			verbose, _ := cmd.Flags().GetBool("verbose")
			cfg.Verbose = verbose
		}
		currentConfig = &cfg
		configErr = nil

		if err := logging.Init(cfg.LogFilePath()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appCommit, appDate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer logging.Close()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return exitCode(os.Stderr, err)
	}
	return 0
}

// exitCode classifies a command error, prints the matching diagnostics to w,
// and returns the exit code: 1 for threshold failures and unexpected errors,
// 2 for configuration and dataset problems, 130 for an interrupt.
func exitCode(w io.Writer, err error) int {
	var datasetErr *dataset.Error
	switch {
	case errors.Is(err, errThresholdsNotMet):
		return 1
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "\n\n✗ Evaluation interrupted by user")
		return 130
	case errors.Is(err, appconfig.ErrInvalid):
		fmt.Fprintf(w, "\n✗ Configuration Error: %v\n", err)
		fmt.Fprintln(w, "\nPlease check your configuration file.")
		return 2
	case errors.Is(err, appconfig.ErrNotFound), errors.As(err, &datasetErr):
		fmt.Fprintf(w, "\n✗ Error: %v\n", err)
		fmt.Fprintln(w, "\nPlease check that all file paths are correct.")
		return 2
	default:
		fmt.Fprintf(w, "\n✗ Unexpected Error: %v\n", err)
		return 1
	}
}

// requireConfig returns the configuration loaded by PersistentPreRunE, or
// the load failure for commands that cannot run without one.
func requireConfig() (*appconfig.Config, error) {
	if currentConfig != nil {
		return currentConfig, nil
	}
	if configErr != nil {
		return nil, configErr
	}
	return nil, appconfig.ErrNotFound
}

// GetConfig returns the loaded application configuration, or nil when no
// config file was found.
func GetConfig() *appconfig.Config {
	return currentConfig
}

// SetVersionInfo allows the main package to inject build-time variables.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", appconfig.DefaultConfigPath, "path to the evaluator config file")
	rootCmd.PersistentFlags().Bool("verbose", false, "print per-case progress instead of the live display")
}
