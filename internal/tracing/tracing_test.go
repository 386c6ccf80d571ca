// internal/tracing/tracing_test.go
package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestRecorder(t *testing.T) (*Recorder, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	rec, err := NewWithProviders(tp, mp)
	if err != nil {
		t.Fatalf("NewWithProviders: %v", err)
	}
	return rec, spans, reader
}

func hasAttribute(attrs []attribute.KeyValue, want attribute.KeyValue) bool {
	for _, a := range attrs {
		if a.Key == want.Key && a.Value.Emit() == want.Value.Emit() {
			return true
		}
	}
	return false
}

func TestSpanHierarchy(t *testing.T) {
	t.Parallel()

	rec, spans, _ := newTestRecorder(t)

	ctx := context.Background()
	runCtx, endRun := rec.StartRun(ctx, "gpt-4o", "claude-3-5-sonnet-20241022", 2)
	caseCtx, endCase := rec.StartCase(runCtx, "case_001")
	_, endPhase := rec.StartPhase(caseCtx, "diagnosis")
	endPhase(nil)
	endCase(nil)
	endRun(nil)

	ended := spans.Ended()
	if len(ended) != 3 {
		t.Fatalf("ended spans = %d, want 3", len(ended))
	}

	// Spans end innermost first.
	phase, caseSpan, run := ended[0], ended[1], ended[2]
	if phase.Name() != "case.diagnosis" {
		t.Errorf("phase span name = %q, want case.diagnosis", phase.Name())
	}
	if caseSpan.Name() != "evaluation.case" {
		t.Errorf("case span name = %q, want evaluation.case", caseSpan.Name())
	}
	if run.Name() != "evaluation.run" {
		t.Errorf("run span name = %q, want evaluation.run", run.Name())
	}

	if caseSpan.Parent().SpanID() != run.SpanContext().SpanID() {
		t.Error("case span should be a child of the run span")
	}
	if phase.Parent().SpanID() != caseSpan.SpanContext().SpanID() {
		t.Error("phase span should be a child of the case span")
	}

	if !hasAttribute(caseSpan.Attributes(), attribute.String("case.id", "case_001")) {
		t.Errorf("case span attributes = %v, want case.id", caseSpan.Attributes())
	}
	if !hasAttribute(run.Attributes(), attribute.String("evaluation.model", "gpt-4o")) {
		t.Errorf("run span attributes = %v, want evaluation.model", run.Attributes())
	}
	if !hasAttribute(run.Attributes(), attribute.Int("evaluation.total_cases", 2)) {
		t.Errorf("run span attributes = %v, want evaluation.total_cases", run.Attributes())
	}
	if got := run.Status().Code; got != codes.Ok {
		t.Errorf("run status = %v, want Ok", got)
	}
}

func TestFinishRecordsError(t *testing.T) {
	t.Parallel()

	rec, spans, _ := newTestRecorder(t)

	_, endCase := rec.StartCase(context.Background(), "case_002")
	endCase(errors.New("provider timeout"))

	ended := spans.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	status := ended[0].Status()
	if status.Code != codes.Error {
		t.Errorf("status code = %v, want Error", status.Code)
	}
	if status.Description != "provider timeout" {
		t.Errorf("status description = %q, want provider timeout", status.Description)
	}
	if len(ended[0].Events()) == 0 {
		t.Error("expected a recorded error event on the span")
	}
}

func TestRecordCase(t *testing.T) {
	t.Parallel()

	rec, _, reader := newTestRecorder(t)

	ctx := context.Background()
	rec.RecordCase(ctx, CaseOutcome{Success: true, LatencyMS: 1500, CostUSD: 0.25})
	rec.RecordCase(ctx, CaseOutcome{Success: true, LatencyMS: 2500, CostUSD: 0.5})
	rec.RecordCase(ctx, CaseOutcome{})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}
	if len(rm.ScopeMetrics) != 1 {
		t.Fatalf("scope metrics = %d, want 1", len(rm.ScopeMetrics))
	}

	byName := make(map[string]metricdata.Metrics)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	processed, ok := byName["evaluation.cases.processed"].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("processed data = %T, want Sum[int64]", byName["evaluation.cases.processed"].Data)
	}
	var processedTotal int64
	for _, dp := range processed.DataPoints {
		processedTotal += dp.Value
	}
	if processedTotal != 3 {
		t.Errorf("processed = %d, want 3", processedTotal)
	}

	failed, ok := byName["evaluation.cases.failed"].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("failed data = %T, want Sum[int64]", byName["evaluation.cases.failed"].Data)
	}
	var failedTotal int64
	for _, dp := range failed.DataPoints {
		failedTotal += dp.Value
	}
	if failedTotal != 1 {
		t.Errorf("failed = %d, want 1", failedTotal)
	}

	latency, ok := byName["evaluation.case.latency"].Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("latency data = %T, want Histogram[float64]", byName["evaluation.case.latency"].Data)
	}
	if got := latency.DataPoints[0].Count; got != 2 {
		t.Errorf("latency count = %d, want 2", got)
	}
	if got := latency.DataPoints[0].Sum; got != 4000 {
		t.Errorf("latency sum = %v, want 4000", got)
	}

	cost, ok := byName["evaluation.case.cost"].Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("cost data = %T, want Histogram[float64]", byName["evaluation.case.cost"].Data)
	}
	if got := cost.DataPoints[0].Count; got != 2 {
		t.Errorf("cost count = %d, want 2", got)
	}
	if got := cost.DataPoints[0].Sum; got != 0.75 {
		t.Errorf("cost sum = %v, want 0.75", got)
	}
}

func TestNilRecorderIsNoOp(t *testing.T) {
	t.Parallel()

	var rec *Recorder

	ctx := context.Background()
	runCtx, endRun := rec.StartRun(ctx, "gpt-4o", "judge", 1)
	if runCtx != ctx {
		t.Error("nil recorder should return the context unchanged")
	}
	endRun(nil)

	caseCtx, endCase := rec.StartCase(ctx, "case_001")
	if caseCtx != ctx {
		t.Error("nil recorder should return the context unchanged")
	}
	endCase(errors.New("boom"))

	rec.RecordCase(ctx, CaseOutcome{Success: true, LatencyMS: 1})
	if err := rec.Close(ctx); err != nil {
		t.Errorf("Close on nil recorder: %v", err)
	}
	if got := rec.Paths(); got != (Paths{}) {
		t.Errorf("Paths on nil recorder = %+v, want zero", got)
	}
}

func TestNewWritesFiles(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "results")
	rec, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	runCtx, endRun := rec.StartRun(ctx, "gpt-4o", "claude-3-5-sonnet-20241022", 1)
	caseCtx, endCase := rec.StartCase(runCtx, "case_001")
	rec.RecordCase(caseCtx, CaseOutcome{Success: true, LatencyMS: 1200, CostUSD: 0.25})
	endCase(nil)
	endRun(nil)

	if err := rec.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	paths := rec.Paths()
	if filepath.Dir(paths.Traces) != dir || filepath.Dir(paths.Metrics) != dir {
		t.Fatalf("telemetry written outside output dir: %+v", paths)
	}
	if base := filepath.Base(paths.Traces); !strings.HasPrefix(base, "evaluation_traces_") || !strings.HasSuffix(base, ".json") {
		t.Errorf("traces filename = %q", base)
	}
	if base := filepath.Base(paths.Metrics); !strings.HasPrefix(base, "evaluation_metrics_") || !strings.HasSuffix(base, ".json") {
		t.Errorf("metrics filename = %q", base)
	}

	traces, err := os.ReadFile(paths.Traces)
	if err != nil {
		t.Fatalf("read traces: %v", err)
	}
	for _, want := range []string{"evaluation.run", "evaluation.case", "case_001", serviceName} {
		if !strings.Contains(string(traces), want) {
			t.Errorf("traces file missing %q", want)
		}
	}

	metrics, err := os.ReadFile(paths.Metrics)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	for _, want := range []string{"evaluation.case.latency", "evaluation.cases.processed", serviceName} {
		if !strings.Contains(string(metrics), want) {
			t.Errorf("metrics file missing %q", want)
		}
	}
}
