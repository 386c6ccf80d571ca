// internal/evaluation/summary.go
package evaluation

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	passLabel = color.New(color.FgGreen).SprintFunc()
	failLabel = color.New(color.FgRed).SprintFunc()
)

// PrintSummary writes the run verdict in the console report layout. A run
// with zero successful cases prints its error and the counts only.
func PrintSummary(w io.Writer, m *AggregateMetrics) {
	line := rule('=')
	sep := rule('-')

	fmt.Fprintf(w, "\n%s\nEVALUATION SUMMARY\n%s\n\n", line, line)

	fmt.Fprintf(w, "Cases Evaluated: %d/%d\n", m.SuccessfulCases, m.TotalCases)
	if m.FailedCases > 0 {
		fmt.Fprintf(w, "⚠ Failed Cases: %d\n", m.FailedCases)
	}

	if m.SuccessfulCases == 0 {
		if m.Error != "" {
			fmt.Fprintf(w, "\n%s\n", failLabel("✗ "+m.Error))
		}
		fmt.Fprintf(w, "%s\n\n", line)
		return
	}

	fmt.Fprintf(w, "\n%s\nCLINICAL METRICS\n%s\n", sep, sep)
	fmt.Fprintf(w, "Clinical Accuracy (Top-3): %.1f%%\n", m.ClinicalAccuracy*100)
	fmt.Fprintf(w, "Average Safety Score: %.2f/5.0\n", m.AvgSafetyScore)
	fmt.Fprintf(w, "Average Quality Score: %.2f/5.0\n", m.AvgQualityScore)

	fmt.Fprintf(w, "\n%s\nRAGAS METRICS\n%s\n", sep, sep)
	fmt.Fprintf(w, "Faithfulness: %.3f\n", m.Faithfulness)
	fmt.Fprintf(w, "Answer Relevancy: %.3f\n", m.AnswerRelevancy)
	fmt.Fprintf(w, "Context Precision: %.3f\n", m.ContextPrecision)
	fmt.Fprintf(w, "Context Recall: %.3f\n", m.ContextRecall)

	fmt.Fprintf(w, "\n%s\nPERFORMANCE METRICS\n%s\n", sep, sep)
	fmt.Fprintf(w, "Cost per Query: $%.4f\n", m.CostPerQuery)
	fmt.Fprintf(w, "Total Cost: $%.4f\n", m.TotalCost)
	fmt.Fprintf(w, "Latency P50: %.0fms\n", m.P50)
	fmt.Fprintf(w, "Latency P95: %.0fms\n", m.P95)
	fmt.Fprintf(w, "Latency P99: %.0fms\n", m.P99)

	fmt.Fprintf(w, "\n%s\nTHRESHOLD CHECKS\n%s\n", sep, sep)
	for _, name := range thresholdOrder {
		passed, ok := m.ThresholdsMet[name]
		if !ok {
			continue
		}
		status := passLabel("✓ PASS")
		if !passed {
			status = failLabel("✗ FAIL")
		}
		fmt.Fprintf(w, "%s: %s\n", strings.ToUpper(name), status)
	}

	fmt.Fprintf(w, "\n%s\n", line)
	if m.AllThresholdsMet {
		fmt.Fprintln(w, passLabel("✓ ALL THRESHOLDS MET - EVALUATION PASSED"))
	} else {
		fmt.Fprintln(w, failLabel("✗ SOME THRESHOLDS NOT MET - EVALUATION FAILED"))
	}
	fmt.Fprintf(w, "%s\n\n", line)
}
