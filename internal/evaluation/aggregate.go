// internal/evaluation/aggregate.go
package evaluation

import (
	"context"
	"errors"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/appconfig"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/dataset"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/logging"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/metrics"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/ragmetrics"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/util"
)

// topK is the clinical accuracy window: the expert diagnosis must appear
// among the first three predictions to count as correct.
const topK = 3

// Aggregate reduces per-case results to run-level metrics and resolves the
// five threshold checks. A nil or failing scorer degrades the four
// retrieval metrics to zero with an error annotation instead of failing
// the aggregation. Threshold checks for accuracy and safety compare the
// unrounded values; cost and latency compare the reported (rounded) ones.
func Aggregate(ctx context.Context, results []CaseResult, cases []dataset.Case, cfg *appconfig.Config, scorer ragmetrics.Scorer) *AggregateMetrics {
	var successful []CaseResult
	for _, result := range results {
		if result.Success {
			successful = append(successful, result)
		}
	}

	if len(successful) == 0 {
		return &AggregateMetrics{
			Error:           "No successful cases to compute metrics",
			TotalCases:      len(results),
			SuccessfulCases: 0,
			FailedCases:     len(results),
		}
	}

	predictions := make([][]string, 0, len(successful))
	groundTruths := make([]string, 0, len(successful))
	safetyScores := make([]float64, 0, len(successful))
	qualityScores := make([]float64, 0, len(successful))
	latencies := make([]float64, 0, len(successful))
	traces := make([]metrics.CostTrace, 0, len(successful))

	for _, result := range successful {
		predictions = append(predictions, result.Diagnosis.Predictions())
		groundTruths = append(groundTruths, result.GroundTruth.ExpertDiagnosis)
		safetyScores = append(safetyScores, float64(result.SafetyScore.SafetyScore))
		qualityScores = append(qualityScores, float64(result.QualityScore.QualityScore))
		latencies = append(latencies, result.LatencyMS)
		traces = append(traces, metrics.CostTrace{
			ModelUsed:    result.Diagnosis.ModelUsed,
			InputTokens:  result.Diagnosis.InputTokens,
			OutputTokens: result.Diagnosis.OutputTokens,
			TokensUsed:   result.Diagnosis.TokensUsed,
		})
	}

	// The slices above are built pairwise, so the length-mismatch error
	// cannot fire.
	accuracy, _ := metrics.TopKAccuracy(predictions, groundTruths, topK)
	cost := metrics.Cost(traces, cfg.Model.ModelName)
	latency := metrics.Latency(latencies)
	avgSafety := average(safetyScores)
	avgQuality := average(qualityScores)

	scores, scoreErr := retrievalScores(ctx, successful, cases, scorer)

	thresholds := map[string]bool{
		"accuracy":     accuracy >= cfg.MinAccuracy,
		"faithfulness": scores.Faithfulness >= cfg.MinFaithfulness,
		"safety":       avgSafety >= cfg.MinSafetyScore,
		"cost":         cost.CostPerQuery <= cfg.MaxCostPerQuery,
		"latency":      latency.P95 <= cfg.MaxP95Latency,
	}
	allMet := true
	for _, passed := range thresholds {
		if !passed {
			allMet = false
			break
		}
	}

	m := &AggregateMetrics{
		TotalCases:      len(results),
		SuccessfulCases: len(successful),
		FailedCases:     len(results) - len(successful),

		ClinicalAccuracy: util.RoundTo(accuracy, 4),
		AvgSafetyScore:   util.RoundTo(avgSafety, 2),
		AvgQualityScore:  util.RoundTo(avgQuality, 2),

		Faithfulness:     scores.Faithfulness,
		AnswerRelevancy:  scores.AnswerRelevancy,
		ContextPrecision: scores.ContextPrecision,
		ContextRecall:    scores.ContextRecall,

		TotalCost:         cost.TotalCost,
		CostPerQuery:      cost.CostPerQuery,
		TotalInputTokens:  cost.TotalInputTokens,
		TotalOutputTokens: cost.TotalOutputTokens,
		TotalTokens:       cost.TotalTokens,

		P50:         latency.P50,
		P95:         latency.P95,
		P99:         latency.P99,
		MeanLatency: latency.Mean,
		MinLatency:  latency.Min,
		MaxLatency:  latency.Max,

		ThresholdsMet:    thresholds,
		AllThresholdsMet: allMet,
	}
	if scoreErr != nil {
		m.RagasSkipped = true
		m.Error = scoreErr.Error()
	}
	return m
}

// retrievalScores submits the successful cases to the scorer, pairing each
// result with its golden case by case id.
func retrievalScores(ctx context.Context, successful []CaseResult, cases []dataset.Case, scorer ragmetrics.Scorer) (ragmetrics.Scores, error) {
	if scorer == nil {
		return ragmetrics.Scores{}, errors.New("ragas scoring skipped: no scorer configured")
	}

	caseByID := make(map[string]dataset.Case, len(cases))
	for _, c := range cases {
		caseByID[c.CaseID] = c
	}

	samples := make([]ragmetrics.Sample, 0, len(successful))
	for _, result := range successful {
		c, ok := caseByID[result.CaseID]
		if !ok {
			continue
		}
		samples = append(samples, ragmetrics.BuildSample(c, result.Diagnosis))
	}

	scores, err := scorer.ScoreBatch(ctx, samples)
	if err != nil {
		logging.LogEvent("[EVAL] Retrieval scoring failed: %v", err)
		return ragmetrics.Scores{}, err
	}
	return scores, nil
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
