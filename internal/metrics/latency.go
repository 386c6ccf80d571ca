// internal/metrics/latency.go
package metrics

import (
	"sort"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/util"
)

// LatencySummary holds latency percentiles and range statistics in
// milliseconds, rounded to two decimal places.
type LatencySummary struct {
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Latency computes percentile and range statistics for per-case latencies.
// Empty input yields the zero summary.
func Latency(latencies []float64) LatencySummary {
	if len(latencies) == 0 {
		return LatencySummary{}
	}
	sorted := append([]float64(nil), latencies...)
	sort.Float64s(sorted)

	return LatencySummary{
		P50:  util.RoundTo(percentile(sorted, 50), 2),
		P95:  util.RoundTo(percentile(sorted, 95), 2),
		P99:  util.RoundTo(percentile(sorted, 99), 2),
		Mean: util.RoundTo(mean(latencies), 2),
		Min:  util.RoundTo(sorted[0], 2),
		Max:  util.RoundTo(sorted[len(sorted)-1], 2),
	}
}
