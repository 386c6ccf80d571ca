// internal/abtest/compare.go
package abtest

import (
	"fmt"
	"math"
	"strings"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/evaluation"
)

const significanceLevel = 0.05

// keyMetrics are the aggregate metrics compared between configurations, in
// display order.
var keyMetrics = []string{
	"clinical_accuracy",
	"avg_safety_score",
	"avg_quality_score",
	"faithfulness",
	"answer_relevancy",
	"cost_per_query",
	"p95",
}

// lowerIsBetter marks the metrics where config B wins by going down.
var lowerIsBetter = map[string]bool{
	"cost_per_query": true,
	"p95":            true,
}

// metricWeights skew the overall winner toward the metrics that matter most
// clinically.
var metricWeights = map[string]int{
	"clinical_accuracy": 3,
	"avg_safety_score":  3,
	"avg_quality_score": 2,
	"faithfulness":      2,
	"answer_relevancy":  1,
	"cost_per_query":    2,
	"p95":               1,
}

// Compare builds the metric-by-metric comparison of two evaluation runs,
// including paired significance tests and the weighted overall winner.
func Compare(runA, runB *evaluation.Run) *Comparison {
	c := &Comparison{Metrics: make(map[string]MetricComparison)}

	valuesA := metricValues(runA)
	valuesB := metricValues(runB)
	for _, name := range keyMetrics {
		a, okA := valuesA[name]
		b, okB := valuesB[name]
		if !okA || !okB {
			continue
		}
		c.Metrics[name] = compareMetric(name, a, b)
	}

	c.StatisticalTests = significanceTests(runA, runB)
	c.Winner = overallWinner(c.Metrics)
	return c
}

// metricValues flattens the comparable aggregate metrics of one run. A run
// with no successful cases has no comparable metrics.
func metricValues(run *evaluation.Run) map[string]float64 {
	if run == nil || run.Metrics == nil || run.Metrics.SuccessfulCases == 0 {
		return nil
	}
	m := run.Metrics
	return map[string]float64{
		"clinical_accuracy": m.ClinicalAccuracy,
		"avg_safety_score":  m.AvgSafetyScore,
		"avg_quality_score": m.AvgQualityScore,
		"faithfulness":      m.Faithfulness,
		"answer_relevancy":  m.AnswerRelevancy,
		"cost_per_query":    m.CostPerQuery,
		"p95":               m.P95,
	}
}

func compareMetric(name string, a, b float64) MetricComparison {
	diff := b - a

	var pct float64
	switch {
	case a != 0:
		pct = diff / a * 100
	case diff > 0:
		pct = math.Inf(1)
	case diff < 0:
		pct = math.Inf(-1)
	}

	winner := "Tie"
	if diff != 0 {
		betterB := diff > 0
		if lowerIsBetter[name] {
			betterB = diff < 0
		}
		if betterB {
			winner = "B"
		} else {
			winner = "A"
		}
	}

	return MetricComparison{
		ConfigA:       a,
		ConfigB:       b,
		Difference:    diff,
		PercentChange: JSONFloat(pct),
		Winner:        winner,
	}
}

// significanceTests runs paired t-tests on the per-case series. Pairing
// needs the same cases on both sides, so the tests are skipped when the
// successful counts differ.
func significanceTests(runA, runB *evaluation.Run) StatisticalTests {
	successfulA := successfulResults(runA)
	successfulB := successfulResults(runB)

	if len(successfulA) < 2 || len(successfulB) < 2 {
		return StatisticalTests{Note: "Insufficient data for statistical tests"}
	}
	if len(successfulA) != len(successfulB) {
		return StatisticalTests{Note: fmt.Sprintf(
			"Paired tests skipped: successful case counts differ (%d vs %d)",
			len(successfulA), len(successfulB))}
	}

	var latencyA, latencyB, safetyA, safetyB, qualityA, qualityB []float64
	for _, r := range successfulA {
		latencyA = append(latencyA, r.LatencyMS)
		safetyA = append(safetyA, float64(r.SafetyScore.SafetyScore))
		qualityA = append(qualityA, float64(r.QualityScore.QualityScore))
	}
	for _, r := range successfulB {
		latencyB = append(latencyB, r.LatencyMS)
		safetyB = append(safetyB, float64(r.SafetyScore.SafetyScore))
		qualityB = append(qualityB, float64(r.QualityScore.QualityScore))
	}

	return StatisticalTests{
		Latency:      pairedTest(latencyA, latencyB, "Latency"),
		SafetyScore:  pairedTest(safetyA, safetyB, "Safety score"),
		QualityScore: pairedTest(qualityA, qualityB, "Quality score"),
	}
}

func successfulResults(run *evaluation.Run) []evaluation.CaseResult {
	if run == nil {
		return nil
	}
	var successful []evaluation.CaseResult
	for _, r := range run.CaseResults {
		if r.Success {
			successful = append(successful, r)
		}
	}
	return successful
}

func pairedTest(a, b []float64, label string) *TTestResult {
	t, p := pairedTTest(a, b)
	significant := p < significanceLevel
	interpretation := fmt.Sprintf("No significant %s difference", strings.ToLower(label))
	if significant {
		interpretation = fmt.Sprintf("%s difference is statistically significant", label)
	}
	return &TTestResult{
		Test:           "paired_t_test",
		TStatistic:     JSONFloat(t),
		PValue:         p,
		Significant:    significant,
		Interpretation: interpretation,
	}
}

// pairedTTest computes the t-statistic and two-tailed p-value for paired
// samples. Both series must have the same length, at least two pairs.
func pairedTTest(a, b []float64) (float64, float64) {
	n := len(a)
	diffs := make([]float64, n)
	for i := range a {
		diffs[i] = a[i] - b[i]
	}

	var sum float64
	for _, d := range diffs {
		sum += d
	}
	meanDiff := sum / float64(n)

	var sumSq float64
	for _, d := range diffs {
		dev := d - meanDiff
		sumSq += dev * dev
	}
	// Sample variance: the mean difference is estimated from the same data.
	sd := math.Sqrt(sumSq / float64(n-1))
	se := sd / math.Sqrt(float64(n))

	if se == 0 {
		if meanDiff == 0 {
			return 0, 1
		}
		if meanDiff > 0 {
			return math.Inf(1), 0
		}
		return math.Inf(-1), 0
	}

	t := meanDiff / se
	return t, tTestPValue(math.Abs(t), float64(n-1))
}

// tTestPValue approximates the two-tailed p-value for a t-statistic. Large
// samples use the normal approximation directly; smaller samples rescale
// the statistic toward the t-distribution first.
func tTestPValue(t, df float64) float64 {
	if df <= 0 {
		return 1
	}
	if df >= 30 {
		return 2 * (1 - normalCDF(t))
	}
	if df <= 2 {
		// The rescaling below needs a finite t-distribution variance,
		// which requires df > 2. Fall back to the Cauchy tail: exact
		// for df 1, conservative for df 2.
		return clampUnit(1 - 2*math.Atan(t)/math.Pi)
	}

	adjusted := t * math.Sqrt(df/(df-2+0.001))
	return clampUnit(2 * (1 - normalCDF(adjusted)))
}

func clampUnit(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// normalCDF approximates the standard normal CDF.
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// overallWinner tallies weighted per-metric wins into "A", "B", or "Tie".
func overallWinner(metrics map[string]MetricComparison) string {
	var winsA, winsB int
	for name, comparison := range metrics {
		weight, ok := metricWeights[name]
		if !ok {
			weight = 1
		}
		switch comparison.Winner {
		case "A":
			winsA += weight
		case "B":
			winsB += weight
		}
	}
	switch {
	case winsA > winsB:
		return "A"
	case winsB > winsA:
		return "B"
	default:
		return "Tie"
	}
}
