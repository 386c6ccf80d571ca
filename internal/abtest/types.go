// internal/abtest/types.go
package abtest

import (
	"encoding/json"
	"math"
	"time"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/appconfig"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/evaluation"
)

// JSONFloat is a float64 that survives JSON encoding when non-finite.
// encoding/json rejects IEEE infinities and NaN, so they serialize as the
// strings "+Inf", "-Inf", and "NaN".
type JSONFloat float64

func (f JSONFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return json.Marshal("+Inf")
	case math.IsInf(v, -1):
		return json.Marshal("-Inf")
	case math.IsNaN(v):
		return json.Marshal("NaN")
	}
	return json.Marshal(v)
}

// MetricComparison holds one aggregate metric side by side for the two
// configurations. Difference is always B minus A; Winner accounts for
// metrics where lower is better.
type MetricComparison struct {
	ConfigA       float64   `json:"config_a"`
	ConfigB       float64   `json:"config_b"`
	Difference    float64   `json:"difference"`
	PercentChange JSONFloat `json:"percent_change"`
	Winner        string    `json:"winner"`
}

// TTestResult is the outcome of a paired t-test on one per-case series.
type TTestResult struct {
	Test           string    `json:"test"`
	TStatistic     JSONFloat `json:"t_statistic"`
	PValue         float64   `json:"p_value"`
	Significant    bool      `json:"significant"`
	Interpretation string    `json:"interpretation"`
}

// StatisticalTests holds the per-series significance tests. Note is set
// instead when either run has too few successful cases to test.
type StatisticalTests struct {
	Note         string       `json:"note,omitempty"`
	Latency      *TTestResult `json:"latency,omitempty"`
	SafetyScore  *TTestResult `json:"safety_score,omitempty"`
	QualityScore *TTestResult `json:"quality_score,omitempty"`
}

// Comparison is the full metric-by-metric comparison of two runs.
type Comparison struct {
	Metrics          map[string]MetricComparison `json:"metrics"`
	StatisticalTests StatisticalTests            `json:"statistical_tests"`
	Winner           string                      `json:"winner"`
}

// ConfigSummary identifies one arm of the comparison.
type ConfigSummary struct {
	Model      appconfig.ModelConfig `json:"model"`
	JudgeModel string                `json:"judge_model"`
}

// Report bundles both evaluation runs with their comparison for the saved
// JSON artifact.
type Report struct {
	Timestamp  time.Time       `json:"timestamp"`
	ConfigA    ConfigSummary   `json:"config_a"`
	ConfigB    ConfigSummary   `json:"config_b"`
	ResultsA   *evaluation.Run `json:"results_a"`
	ResultsB   *evaluation.Run `json:"results_b"`
	Comparison *Comparison     `json:"comparison"`
}
