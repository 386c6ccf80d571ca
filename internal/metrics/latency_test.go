// internal/metrics/latency_test.go
package metrics

import "testing"

func TestLatency(t *testing.T) {
	t.Parallel()

	got := Latency([]float64{100, 200, 150, 300, 250})

	if got.P50 != 200 {
		t.Errorf("expected p50 200, got %v", got.P50)
	}
	if got.P95 != 290 {
		t.Errorf("expected p95 290, got %v", got.P95)
	}
	if got.P99 != 298 {
		t.Errorf("expected p99 298, got %v", got.P99)
	}
	if got.Mean != 200 {
		t.Errorf("expected mean 200, got %v", got.Mean)
	}
	if got.Min != 100 {
		t.Errorf("expected min 100, got %v", got.Min)
	}
	if got.Max != 300 {
		t.Errorf("expected max 300, got %v", got.Max)
	}
}

func TestLatencySingleValue(t *testing.T) {
	t.Parallel()

	got := Latency([]float64{42.5})

	want := LatencySummary{P50: 42.5, P95: 42.5, P99: 42.5, Mean: 42.5, Min: 42.5, Max: 42.5}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestLatencyEmpty(t *testing.T) {
	t.Parallel()

	got := Latency(nil)
	if got != (LatencySummary{}) {
		t.Errorf("expected zero summary, got %+v", got)
	}
}

func TestLatencyDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	latencies := []float64{300, 100, 200}
	Latency(latencies)

	if latencies[0] != 300 || latencies[1] != 100 || latencies[2] != 200 {
		t.Errorf("input slice was reordered: %v", latencies)
	}
}
