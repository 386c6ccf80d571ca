// internal/metrics/metrics.go

// Package metrics computes the deterministic evaluation metrics: top-k
// clinical accuracy, API cost from token usage, latency percentiles, and
// score aggregation. All functions are pure. Rounding follows the report
// conventions: four decimal places for scores and cost, two for latency.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/util"
)

// TopKAccuracy returns the fraction of cases whose ground-truth diagnosis
// appears among the first topK predictions. Matching is case-insensitive
// and ignores surrounding whitespace. Empty input yields 0.0 without error;
// mismatched lengths are an error.
func TopKAccuracy(predictions [][]string, groundTruths []string, topK int) (float64, error) {
	if len(predictions) == 0 || len(groundTruths) == 0 {
		return 0.0, nil
	}
	if len(predictions) != len(groundTruths) {
		return 0, fmt.Errorf("predictions and ground truths must have same length: got %d predictions and %d ground truths",
			len(predictions), len(groundTruths))
	}
	correct := 0
	for i, preds := range predictions {
		if InTopK(preds, groundTruths[i], topK) {
			correct++
		}
	}
	return float64(correct) / float64(len(predictions)), nil
}

// InTopK reports whether groundTruth appears in the first k predictions.
// Matching is exact after lowercasing and trimming both sides.
func InTopK(predictions []string, groundTruth string, k int) bool {
	if k < 0 {
		k = 0
	}
	if len(predictions) > k {
		predictions = predictions[:k]
	}
	truth := strings.ToLower(strings.TrimSpace(groundTruth))
	for _, pred := range predictions {
		if strings.ToLower(strings.TrimSpace(pred)) == truth {
			return true
		}
	}
	return false
}

// ScoreSummary holds summary statistics for a list of scores.
type ScoreSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// AggregateScores reduces scores to summary statistics rounded to four
// decimal places. Standard deviation is the population form. Empty input
// yields the zero summary.
func AggregateScores(scores []float64) ScoreSummary {
	if len(scores) == 0 {
		return ScoreSummary{}
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	return ScoreSummary{
		Mean:   util.RoundTo(mean(scores), 4),
		Median: util.RoundTo(median(sorted), 4),
		Std:    util.RoundTo(populationStd(scores), 4),
		Min:    util.RoundTo(sorted[0], 4),
		Max:    util.RoundTo(sorted[len(sorted)-1], 4),
	}
}

// PassRate returns the fraction of scores meeting or exceeding threshold.
// Empty input yields 0.0.
func PassRate(scores []float64, threshold float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}
	passing := 0
	for _, score := range scores {
		if score >= threshold {
			passing++
		}
	}
	return float64(passing) / float64(len(scores))
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// median expects sorted input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func populationStd(values []float64) float64 {
	m := mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// percentile computes the pth percentile of sorted values using linear
// interpolation between closest ranks.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	rank := (p / 100) * float64(n-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
