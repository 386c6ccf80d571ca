// internal/commands/show_config.go
package medeval

import (
	"github.com/spf13/cobra"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/appconfig"
)

var showConfigFull bool

// showConfigCmd implements 'show config', which prints the resolved
// configuration after file, environment, and flag merging.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved evaluator configuration",
	Long: `Show the evaluator configuration after the config file, environment
variables, and flags have been merged, so threshold and model settings can
be verified before spending tokens on a run.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := GetConfig()
		file := ""
		if cfg != nil {
			file = cfg.ConfigPath
		}
		if showConfigFull {
			appconfig.DumpConfig(cmd.OutOrStdout(), cfg, appconfig.Config{})
			return
		}
		appconfig.ShowConfig(cmd.OutOrStdout(), file, cfg, appconfig.Config{})
	},
}

func init() {
	showCmd.AddCommand(showConfigCmd)
	showConfigCmd.Flags().BoolVar(&showConfigFull, "full", false, "dump the complete configuration struct")
}
