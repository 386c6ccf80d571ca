// internal/evaluation/types.go
package evaluation

import (
	"time"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/appconfig"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/diagnosis"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/judge"
)

// GroundTruth echoes the expert answer for a case alongside its result so
// reports are self-contained.
type GroundTruth struct {
	ExpertDiagnosis       string   `json:"expert_diagnosis"`
	ExpertReasoning       string   `json:"expert_reasoning"`
	DifferentialDiagnoses []string `json:"differential_diagnoses"`
}

// CaseResult is the outcome of one case. Success=true embeds the diagnosis,
// both judge verdicts, and timing. Success=false carries only the case id
// and the error text; the pointer fields stay nil, so consumers branch on
// Success before touching them.
type CaseResult struct {
	CaseID       string                `json:"case_id"`
	Success      bool                  `json:"success"`
	Diagnosis    *diagnosis.Result     `json:"diagnosis,omitempty"`
	SafetyScore  *judge.SafetyVerdict  `json:"safety_score,omitempty"`
	QualityScore *judge.QualityVerdict `json:"quality_score,omitempty"`
	LatencyMS    float64               `json:"latency_ms,omitempty"`
	GroundTruth  *GroundTruth          `json:"ground_truth,omitempty"`
	Metadata     map[string]string     `json:"metadata,omitempty"`
	Error        string                `json:"error,omitempty"`
}

// AggregateMetrics flattens every run-level metric plus the threshold
// verdicts. Error is set in two degraded states: when no case succeeded
// (counts only, nothing averaged), and when the retrieval scorer failed
// (the four retrieval metrics are zero-filled).
type AggregateMetrics struct {
	TotalCases      int `json:"total_cases"`
	SuccessfulCases int `json:"successful_cases"`
	FailedCases     int `json:"failed_cases"`

	ClinicalAccuracy float64 `json:"clinical_accuracy"`
	AvgSafetyScore   float64 `json:"avg_safety_score"`
	AvgQualityScore  float64 `json:"avg_quality_score"`

	Faithfulness     float64 `json:"faithfulness"`
	AnswerRelevancy  float64 `json:"answer_relevancy"`
	ContextPrecision float64 `json:"context_precision"`
	ContextRecall    float64 `json:"context_recall"`
	RagasSkipped     bool    `json:"ragas_skipped,omitempty"`

	TotalCost         float64 `json:"total_cost"`
	CostPerQuery      float64 `json:"cost_per_query"`
	TotalInputTokens  int     `json:"total_input_tokens"`
	TotalOutputTokens int     `json:"total_output_tokens"`
	TotalTokens       int     `json:"total_tokens"`

	P50         float64 `json:"p50"`
	P95         float64 `json:"p95"`
	P99         float64 `json:"p99"`
	MeanLatency float64 `json:"mean"`
	MinLatency  float64 `json:"min"`
	MaxLatency  float64 `json:"max"`

	ThresholdsMet    map[string]bool `json:"thresholds_met,omitempty"`
	AllThresholdsMet bool            `json:"all_thresholds_met"`

	Error string `json:"error,omitempty"`
}

// thresholdOrder fixes the display and report order of the named checks.
var thresholdOrder = []string{"accuracy", "faithfulness", "safety", "cost", "latency"}

// FailedThresholds lists the names of the checks that did not pass, in
// display order.
func (m *AggregateMetrics) FailedThresholds() []string {
	var failed []string
	for _, name := range thresholdOrder {
		if passed, ok := m.ThresholdsMet[name]; ok && !passed {
			failed = append(failed, name)
		}
	}
	return failed
}

// Thresholds are the five gating limits in effect for a run.
type Thresholds struct {
	MinAccuracy     float64 `json:"min_accuracy"`
	MinFaithfulness float64 `json:"min_faithfulness"`
	MinSafetyScore  float64 `json:"min_safety_score"`
	MaxCostPerQuery float64 `json:"max_cost_per_query"`
	MaxP95Latency   float64 `json:"max_p95_latency"`
}

// ConfigSnapshot pins the settings a run was executed with, in the layout
// reports embed.
type ConfigSnapshot struct {
	Model      appconfig.ModelConfig `json:"model"`
	JudgeModel string                `json:"judge_model"`
	Thresholds Thresholds            `json:"thresholds"`
}

// SnapshotConfig extracts the report-facing view of a configuration.
func SnapshotConfig(cfg *appconfig.Config) ConfigSnapshot {
	return ConfigSnapshot{
		Model:      cfg.Model,
		JudgeModel: cfg.JudgeModelName(),
		Thresholds: Thresholds{
			MinAccuracy:     cfg.MinAccuracy,
			MinFaithfulness: cfg.MinFaithfulness,
			MinSafetyScore:  cfg.MinSafetyScore,
			MaxCostPerQuery: cfg.MaxCostPerQuery,
			MaxP95Latency:   cfg.MaxP95Latency,
		},
	}
}

// Run is one completed evaluation: identity, timing, the configuration
// snapshot, aggregate metrics, and the ordered per-case results.
type Run struct {
	RunID       string            `json:"run_id"`
	Timestamp   time.Time         `json:"timestamp"`
	Config      ConfigSnapshot    `json:"config"`
	Metrics     *AggregateMetrics `json:"metrics"`
	CaseResults []CaseResult      `json:"case_results"`
	NumCases    int               `json:"num_cases"`
}
