// internal/commands/compare.go
package medeval

import (
	"github.com/spf13/cobra"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/abtest"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/appconfig"
)

// compareOptions holds the flag values for the compare command.
type compareOptions struct {
	configA   string
	configB   string
	outputDir string
}

var compareOpts compareOptions

// compareCmd runs an A/B comparison between two model configurations.
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run an A/B comparison between two model configurations",
	Long: `Evaluate two configurations against the same golden dataset and compare
their metrics, including per-metric significance and an overall winner.
The comparison report is written next to the regular run artifacts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgA, err := appconfig.Load(compareOpts.configA)
		if err != nil {
			return err
		}
		cfgB, err := appconfig.Load(compareOpts.configB)
		if err != nil {
			return err
		}

		outputDir := compareOpts.outputDir
		if outputDir == "" {
			outputDir = cfgA.OutputDirectory()
		}

		_, _, err = abtest.NewRunner(cmd.OutOrStdout()).Run(cmd.Context(), &cfgA, &cfgB, outputDir)
		return err
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringVar(&compareOpts.configA, "config-a", "", "config file for variant A")
	compareCmd.Flags().StringVar(&compareOpts.configB, "config-b", "", "config file for variant B")
	compareCmd.Flags().StringVar(&compareOpts.outputDir, "output-dir", "", "directory for the comparison report (defaults to variant A's)")
	_ = compareCmd.MarkFlagRequired("config-a")
	_ = compareCmd.MarkFlagRequired("config-b")
}
