// internal/commands/validate_dataset.go
package medeval

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/dataset"
)

// validateCmd groups preflight validation subcommands.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Group command for preflight validation checks",
	Long:  `The 'validate' command groups subcommands that check inputs before a run.`,
}

// validateDatasetCmd implements 'validate dataset', a strict schema check on
// a golden dataset file. Run it before 'evaluate' to catch malformed cases
// without burning tokens.
var validateDatasetCmd = &cobra.Command{
	Use:   "dataset [file]",
	Short: "Validate a golden dataset file against the full schema",
	Long: `Validate a golden dataset file: JSON shape, per-case required fields, and
case_id uniqueness. With no argument the configured dataset path is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else if cfg := GetConfig(); cfg != nil {
			path = cfg.DatasetFile()
		}
		if path == "" {
			return fmt.Errorf("no dataset file given and no configuration loaded")
		}

		out := cmd.OutOrStdout()
		cases, err := dataset.ValidateStrict(path)
		if err != nil {
			fmt.Fprintf(out, "%s %s\n", failMark("✗"), err)
			return err
		}
		fmt.Fprintf(out, "%s %s: %d cases, all valid\n", passMark("✓"), path, len(cases))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.AddCommand(validateDatasetCmd)
}
