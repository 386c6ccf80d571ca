// internal/commands/show.go
package medeval

import (
	"github.com/spf13/cobra"
)

// showCmd groups read-only inspection subcommands.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Group command for inspecting evaluator state",
	Long:  `The 'show' command groups subcommands that display evaluator state.`,
}

func init() {
	rootCmd.AddCommand(showCmd)
}
