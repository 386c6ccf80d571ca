// cmd/medeval/main.go
package main

import (
	"os"

	cmd "github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/commands"
)

// Build-time variables injected via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Seams for tests.
var (
	setVersionInfo = cmd.SetVersionInfo
	executeCmd     = cmd.Execute
	exit           = os.Exit
)

// main starts the medeval CLI by delegating to the cobra root command and
// exits with the code it reports: 0 on pass, 1 on threshold failure, 2 on
// configuration or dataset problems, 130 on interrupt.
func main() {
	setVersionInfo(version, commit, date)
	exit(executeCmd())
}
