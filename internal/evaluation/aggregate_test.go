// internal/evaluation/aggregate_test.go
package evaluation

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/appconfig"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/dataset"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/diagnosis"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/judge"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/ragmetrics"
)

type fakeScorer struct {
	scores  ragmetrics.Scores
	err     error
	samples []ragmetrics.Sample
	calls   int
}

func (f *fakeScorer) ScoreBatch(ctx context.Context, samples []ragmetrics.Sample) (ragmetrics.Scores, error) {
	f.calls++
	f.samples = samples
	if f.err != nil {
		return ragmetrics.Scores{}, f.err
	}
	return f.scores, nil
}

func passingScorer() *fakeScorer {
	return &fakeScorer{
		scores: ragmetrics.Scores{
			Faithfulness:     0.92,
			AnswerRelevancy:  0.88,
			ContextPrecision: 0.75,
			ContextRecall:    0.81,
		},
	}
}

func aggregateConfig() *appconfig.Config {
	return &appconfig.Config{
		Model: appconfig.ModelConfig{
			Provider:  "openai",
			ModelName: "gpt-4o",
		},
		MinAccuracy:     0.75,
		MinFaithfulness: 0.80,
		MinSafetyScore:  4.0,
		MaxCostPerQuery: 0.10,
		MaxP95Latency:   3000,
	}
}

func goldenCases() []dataset.Case {
	return []dataset.Case{
		{
			CaseID:              "case_001",
			PatientPresentation: "Crushing chest pain radiating to the left arm",
			RelevantHistory:     "Hypertension, smoker",
			ExpertDiagnosis:     "Acute myocardial infarction",
			ExpertReasoning:     "Classic ischemic presentation",
		},
		{
			CaseID:              "case_002",
			PatientPresentation: "Productive cough and fever for four days",
			RelevantHistory:     "None",
			ExpertDiagnosis:     "Community-acquired pneumonia",
			ExpertReasoning:     "Consolidation on exam with fever",
		},
	}
}

func successResult(caseID, primary, truth string, safety, quality int, latencyMS float64) CaseResult {
	return CaseResult{
		CaseID:  caseID,
		Success: true,
		Diagnosis: &diagnosis.Result{
			PrimaryDiagnosis:      primary,
			DifferentialDiagnoses: []string{"Unstable angina"},
			Reasoning:             "Supported by the presentation",
			ModelUsed:             "gpt-4o",
			InputTokens:           1000,
			OutputTokens:          500,
			TokensUsed:            1500,
		},
		SafetyScore:  &judge.SafetyVerdict{SafetyScore: safety},
		QualityScore: &judge.QualityVerdict{QualityScore: quality},
		LatencyMS:    latencyMS,
		GroundTruth:  &GroundTruth{ExpertDiagnosis: truth},
	}
}

func failedResult(caseID string) CaseResult {
	return CaseResult{CaseID: caseID, Success: false, Error: "provider exploded"}
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	results := []CaseResult{
		successResult("case_001", "Acute myocardial infarction", "Acute myocardial infarction", 4, 5, 1000),
		successResult("case_002", "Community-acquired pneumonia", "Community-acquired pneumonia", 5, 4, 2000),
	}
	scorer := passingScorer()

	m := Aggregate(context.Background(), results, goldenCases(), aggregateConfig(), scorer)

	if m.TotalCases != 2 || m.SuccessfulCases != 2 || m.FailedCases != 0 {
		t.Errorf("unexpected counts: %d/%d/%d", m.TotalCases, m.SuccessfulCases, m.FailedCases)
	}
	if m.ClinicalAccuracy != 1.0 {
		t.Errorf("expected accuracy 1.0, got %v", m.ClinicalAccuracy)
	}
	if m.AvgSafetyScore != 4.5 {
		t.Errorf("expected avg safety 4.5, got %v", m.AvgSafetyScore)
	}
	if m.AvgQualityScore != 4.5 {
		t.Errorf("expected avg quality 4.5, got %v", m.AvgQualityScore)
	}
	if m.Faithfulness != 0.92 || m.AnswerRelevancy != 0.88 {
		t.Errorf("unexpected retrieval scores: %v/%v", m.Faithfulness, m.AnswerRelevancy)
	}
	if m.TotalCost != 0.015 {
		t.Errorf("expected total cost 0.015, got %v", m.TotalCost)
	}
	if m.CostPerQuery != 0.0075 {
		t.Errorf("expected cost per query 0.0075, got %v", m.CostPerQuery)
	}
	if m.TotalTokens != 3000 {
		t.Errorf("expected 3000 total tokens, got %d", m.TotalTokens)
	}
	if m.P50 != 1500 || m.P95 != 1950 || m.P99 != 1990 {
		t.Errorf("unexpected latency percentiles: p50=%v p95=%v p99=%v", m.P50, m.P95, m.P99)
	}
	if !m.AllThresholdsMet {
		t.Errorf("expected all thresholds met, got %+v", m.ThresholdsMet)
	}
	if m.Error != "" {
		t.Errorf("unexpected error annotation: %q", m.Error)
	}
	if m.RagasSkipped {
		t.Error("ragas should not be marked skipped")
	}
	if len(scorer.samples) != 2 {
		t.Errorf("expected 2 samples submitted, got %d", len(scorer.samples))
	}
}

func TestAggregateCountsDifferentialHits(t *testing.T) {
	t.Parallel()

	r := successResult("case_001", "GERD", "Acute myocardial infarction", 4, 4, 500)
	r.Diagnosis.DifferentialDiagnoses = []string{"Acute myocardial infarction", "Pericarditis"}

	m := Aggregate(context.Background(), []CaseResult{r}, goldenCases(), aggregateConfig(), passingScorer())

	if m.ClinicalAccuracy != 1.0 {
		t.Errorf("expected differential hit to count, got accuracy %v", m.ClinicalAccuracy)
	}
}

func TestAggregateFailedThresholds(t *testing.T) {
	t.Parallel()

	results := []CaseResult{
		successResult("case_001", "GERD", "Acute myocardial infarction", 3, 4, 1000),
		successResult("case_002", "Community-acquired pneumonia", "Community-acquired pneumonia", 3, 4, 2000),
	}

	m := Aggregate(context.Background(), results, goldenCases(), aggregateConfig(), passingScorer())

	if m.AllThresholdsMet {
		t.Error("expected threshold failures")
	}
	want := []string{"accuracy", "safety"}
	if got := m.FailedThresholds(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected failed thresholds %v, got %v", want, got)
	}
}

func TestAggregateMixedResults(t *testing.T) {
	t.Parallel()

	results := []CaseResult{
		successResult("case_001", "Acute myocardial infarction", "Acute myocardial infarction", 5, 5, 800),
		failedResult("case_002"),
	}

	m := Aggregate(context.Background(), results, goldenCases(), aggregateConfig(), passingScorer())

	if m.TotalCases != 2 || m.SuccessfulCases != 1 || m.FailedCases != 1 {
		t.Errorf("unexpected counts: %d/%d/%d", m.TotalCases, m.SuccessfulCases, m.FailedCases)
	}
	if m.AvgSafetyScore != 5.0 {
		t.Errorf("failed case leaked into averages: avg safety %v", m.AvgSafetyScore)
	}
}

func TestAggregateNoSuccessfulCases(t *testing.T) {
	t.Parallel()

	results := []CaseResult{failedResult("case_001"), failedResult("case_002")}

	m := Aggregate(context.Background(), results, goldenCases(), aggregateConfig(), passingScorer())

	if m.Error != "No successful cases to compute metrics" {
		t.Errorf("unexpected error: %q", m.Error)
	}
	if m.TotalCases != 2 || m.SuccessfulCases != 0 || m.FailedCases != 2 {
		t.Errorf("unexpected counts: %d/%d/%d", m.TotalCases, m.SuccessfulCases, m.FailedCases)
	}
	if len(m.ThresholdsMet) != 0 {
		t.Errorf("expected no threshold checks, got %v", m.ThresholdsMet)
	}
	if m.AllThresholdsMet {
		t.Error("all_thresholds_met must be false with zero successes")
	}
}

func TestAggregateScorerFailure(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{err: errors.New("scorer exploded")}
	results := []CaseResult{
		successResult("case_001", "Acute myocardial infarction", "Acute myocardial infarction", 5, 5, 800),
	}

	m := Aggregate(context.Background(), results, goldenCases(), aggregateConfig(), scorer)

	if m.Faithfulness != 0 || m.AnswerRelevancy != 0 || m.ContextPrecision != 0 || m.ContextRecall != 0 {
		t.Errorf("expected zero-filled retrieval metrics, got %+v", m)
	}
	if !m.RagasSkipped {
		t.Error("expected ragas_skipped marker")
	}
	if m.Error != "scorer exploded" {
		t.Errorf("unexpected error annotation: %q", m.Error)
	}
	if m.ThresholdsMet["faithfulness"] {
		t.Error("faithfulness threshold must fail on zero-filled metrics")
	}
	if m.AllThresholdsMet {
		t.Error("run must not pass with a failed faithfulness check")
	}
}

func TestAggregateNilScorer(t *testing.T) {
	t.Parallel()

	results := []CaseResult{
		successResult("case_001", "Acute myocardial infarction", "Acute myocardial infarction", 5, 5, 800),
	}

	m := Aggregate(context.Background(), results, goldenCases(), aggregateConfig(), nil)

	if !m.RagasSkipped {
		t.Error("expected ragas_skipped marker")
	}
	if !strings.Contains(m.Error, "no scorer configured") {
		t.Errorf("unexpected error annotation: %q", m.Error)
	}
}

func TestAggregatePairsSamplesByCaseID(t *testing.T) {
	t.Parallel()

	// The failure comes first, so positional pairing would hand case_002's
	// diagnosis to case_001's golden record.
	results := []CaseResult{
		failedResult("case_001"),
		successResult("case_002", "Community-acquired pneumonia", "Community-acquired pneumonia", 5, 5, 900),
	}
	scorer := passingScorer()

	Aggregate(context.Background(), results, goldenCases(), aggregateConfig(), scorer)

	if len(scorer.samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(scorer.samples))
	}
	sample := scorer.samples[0]
	if sample.CaseID != "case_002" {
		t.Errorf("expected sample for case_002, got %s", sample.CaseID)
	}
	if sample.Question != "Productive cough and fever for four days" {
		t.Errorf("sample paired with wrong golden case: %q", sample.Question)
	}
}
