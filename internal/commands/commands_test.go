package medeval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/appconfig"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/dataset"
)

func TestExitCodeClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"thresholds not met", errThresholdsNotMet, 1},
		{"wrapped thresholds not met", fmt.Errorf("evaluate: %w", errThresholdsNotMet), 1},
		{"interrupt", context.Canceled, 130},
		{"invalid config", fmt.Errorf("%w: bad temperature", appconfig.ErrInvalid), 2},
		{"missing config", appconfig.ErrNotFound, 2},
		{"dataset error", &dataset.Error{Path: "x.json", Reason: "golden dataset not found"}, 2},
		{"unexpected", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if got := exitCode(&buf, tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCodeSilentOnThresholdFailure(t *testing.T) {
	// The verdict is printed by the evaluate command itself; exitCode must
	// not add a second line for this error.
	var buf bytes.Buffer
	exitCode(&buf, errThresholdsNotMet)
	if buf.Len() != 0 {
		t.Errorf("expected no output for threshold failure, got %q", buf.String())
	}
}

func TestRunListCommands(t *testing.T) {
	var buf bytes.Buffer
	runListCommands(&buf, rootCmd)
	out := buf.String()

	for _, want := range []string{"medeval", "evaluate", "compare", "show config", "validate dataset", "list commands"} {
		if !strings.Contains(out, want) {
			t.Errorf("list commands output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "completion") {
		t.Errorf("list commands output should hide completion commands:\n%s", out)
	}
}

func TestUseProgressDisplay(t *testing.T) {
	origIsTerminal := stdoutIsTerminal
	t.Cleanup(func() { stdoutIsTerminal = origIsTerminal })
	stdoutIsTerminal = func() bool { return true }

	tests := []struct {
		name string
		cfg  appconfig.Config
		opts evaluateOptions
		want bool
	}{
		{"terminal default", appconfig.Config{}, evaluateOptions{}, true},
		{"verbose disables", appconfig.Config{Verbose: true}, evaluateOptions{}, false},
		{"no-progress flag disables", appconfig.Config{}, evaluateOptions{noProgress: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := useProgressDisplay(&tt.cfg, tt.opts); got != tt.want {
				t.Errorf("useProgressDisplay = %v, want %v", got, tt.want)
			}
		})
	}

	stdoutIsTerminal = func() bool { return false }
	if useProgressDisplay(&appconfig.Config{}, evaluateOptions{}) {
		t.Error("expected no progress display when stdout is not a terminal")
	}
}
