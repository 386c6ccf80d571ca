// internal/abtest/print.go
package abtest

import (
	"fmt"
	"io"
	"math"
	"strings"
	"unicode"
)

// PrintComparison writes the human-readable comparison summary.
func PrintComparison(w io.Writer, c *Comparison) {
	line := strings.Repeat("=", 70)
	sep := strings.Repeat("-", 70)

	fmt.Fprintf(w, "\n%s\nA/B TEST COMPARISON SUMMARY\n%s\n\n", line, line)

	fmt.Fprintf(w, "METRIC COMPARISONS:\n%s\n", sep)
	for _, name := range keyMetrics {
		data, ok := c.Metrics[name]
		if !ok {
			continue
		}
		fmt.Fprintln(w, formatMetricLine(name, data))
	}

	fmt.Fprintf(w, "\n%s\nSTATISTICAL SIGNIFICANCE:\n%s\n", sep, sep)
	printTests(w, c.StatisticalTests)

	fmt.Fprintf(w, "\n%s\nOVERALL WINNER: Config %s\n%s\n\n", line, c.Winner, line)
}

func formatMetricLine(name string, data MetricComparison) string {
	valueA, valueB, diff := formatMetricValues(name, data)

	direction := "="
	switch {
	case data.Difference > 0:
		direction = "↑"
	case data.Difference < 0:
		direction = "↓"
	}

	winner := "Tie"
	if data.Winner != "Tie" {
		winner = "✓ Config " + data.Winner
	}

	return fmt.Sprintf("%-25s A: %-12s B: %-12s %s %-10s (%+.1f%%) %s",
		titleCase(name), valueA, valueB, direction, diff, float64(data.PercentChange), winner)
}

func formatMetricValues(name string, data MetricComparison) (string, string, string) {
	absDiff := math.Abs(data.Difference)
	switch {
	case strings.Contains(name, "cost"):
		return fmt.Sprintf("$%.4f", data.ConfigA), fmt.Sprintf("$%.4f", data.ConfigB), fmt.Sprintf("$%.4f", absDiff)
	case strings.Contains(name, "accuracy"), strings.Contains(name, "faithfulness"), strings.Contains(name, "relevancy"):
		return fmt.Sprintf("%.2f%%", data.ConfigA*100), fmt.Sprintf("%.2f%%", data.ConfigB*100), fmt.Sprintf("%.2f%%", absDiff*100)
	default:
		return fmt.Sprintf("%.2f", data.ConfigA), fmt.Sprintf("%.2f", data.ConfigB), fmt.Sprintf("%.2f", absDiff)
	}
}

func printTests(w io.Writer, tests StatisticalTests) {
	if tests.Note != "" {
		fmt.Fprintf(w, "note: %s\n", tests.Note)
		return
	}
	for _, entry := range []struct {
		name   string
		result *TTestResult
	}{
		{"latency", tests.Latency},
		{"safety_score", tests.SafetyScore},
		{"quality_score", tests.QualityScore},
	} {
		if entry.result == nil {
			continue
		}
		sig := "Not significant"
		if entry.result.Significant {
			sig = "✓ SIGNIFICANT"
		}
		fmt.Fprintf(w, "%-20s p-value: %.4f %s\n", entry.name, entry.result.PValue, sig)
		fmt.Fprintf(w, "  %s\n", entry.result.Interpretation)
	}
}

// titleCase renders a snake_case metric name for display ("avg_safety_score"
// becomes "Avg Safety Score").
func titleCase(name string) string {
	words := strings.Split(name, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		r := []rune(word)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
