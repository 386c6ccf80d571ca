// internal/tracing/tracing.go

// Package tracing records run telemetry through OpenTelemetry: a root span
// per evaluation with child spans per case and per model call, histograms
// for case latency and cost, and counters for processed and failed cases.
// Exporters write JSON to files in the run's output directory, so traces
// ship alongside the other artifacts without needing a collector.
//
// A nil *Recorder is a valid no-op, so callers wire tracing unconditionally
// and only construct a Recorder when tracing is enabled.
package tracing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/util"
)

const (
	serviceName    = "medical-diagnosis-evaluator"
	serviceVersion = "1.0.0"
	scopeName      = "github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/tracing"
)

// Paths lists the telemetry files a Recorder writes.
type Paths struct {
	Traces  string
	Metrics string
}

// Recorder owns the tracer, meter, and instruments for one evaluation run.
type Recorder struct {
	tracer trace.Tracer
	meter  metric.Meter

	caseLatency    metric.Float64Histogram
	caseCost       metric.Float64Histogram
	casesProcessed metric.Int64Counter
	casesFailed    metric.Int64Counter

	paths    Paths
	shutdown []func(context.Context) error
}

// New builds a file-backed Recorder: spans and metrics are exported as JSON
// to timestamped files under dir, which is created if missing. The caller
// must Close the Recorder to flush buffered telemetry.
func New(dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}

	stamp := util.Timestamp(time.Now())
	tracesPath := filepath.Join(dir, "evaluation_traces_"+stamp+".json")
	metricsPath := filepath.Join(dir, "evaluation_metrics_"+stamp+".json")

	tracesFile, err := os.Create(tracesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create traces file: %w", err)
	}
	metricsFile, err := os.Create(metricsPath)
	if err != nil {
		tracesFile.Close()
		return nil, fmt.Errorf("failed to create metrics file: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", serviceName),
		attribute.String("service.version", serviceVersion),
	)

	traceExporter, err := stdouttrace.New(
		stdouttrace.WithWriter(tracesFile),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		tracesFile.Close()
		metricsFile.Close()
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	metricExporter, err := stdoutmetric.New(
		stdoutmetric.WithWriter(metricsFile),
		stdoutmetric.WithPrettyPrint(),
	)
	if err != nil {
		_ = tp.Shutdown(context.Background())
		tracesFile.Close()
		metricsFile.Close()
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
	)

	r, err := NewWithProviders(tp, mp)
	if err != nil {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
		tracesFile.Close()
		metricsFile.Close()
		return nil, err
	}
	r.paths = Paths{Traces: tracesPath, Metrics: metricsPath}
	// Providers flush on shutdown, so they must stop before the files close.
	r.shutdown = []func(context.Context) error{
		tp.Shutdown,
		mp.Shutdown,
		func(context.Context) error { return tracesFile.Close() },
		func(context.Context) error { return metricsFile.Close() },
	}
	return r, nil
}

// NewWithProviders builds a Recorder on explicit providers, whose lifecycle
// stays with the caller. Tests use it to substitute in-memory exporters.
func NewWithProviders(tp trace.TracerProvider, mp metric.MeterProvider) (*Recorder, error) {
	r := &Recorder{
		tracer: tp.Tracer(scopeName, trace.WithInstrumentationVersion(serviceVersion)),
		meter:  mp.Meter(scopeName, metric.WithInstrumentationVersion(serviceVersion)),
	}

	var err error
	r.caseLatency, err = r.meter.Float64Histogram(
		"evaluation.case.latency",
		metric.WithDescription("Diagnosis latency per case in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	r.caseCost, err = r.meter.Float64Histogram(
		"evaluation.case.cost",
		metric.WithDescription("Model spend per case in US dollars"),
		metric.WithUnit("{usd}"),
	)
	if err != nil {
		return nil, err
	}
	r.casesProcessed, err = r.meter.Int64Counter(
		"evaluation.cases.processed",
		metric.WithDescription("Cases processed, successful or not"),
		metric.WithUnit("{case}"),
	)
	if err != nil {
		return nil, err
	}
	r.casesFailed, err = r.meter.Int64Counter(
		"evaluation.cases.failed",
		metric.WithDescription("Cases that failed before judging"),
		metric.WithUnit("{case}"),
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Close flushes buffered telemetry and closes the underlying files.
// Recorders built on external providers have nothing to release.
func (r *Recorder) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, fn := range r.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.shutdown = nil
	if len(errs) > 0 {
		return fmt.Errorf("trace shutdown errors: %v", errs)
	}
	return nil
}

// Paths reports where telemetry is written. Zero for Recorders built on
// external providers.
func (r *Recorder) Paths() Paths {
	if r == nil {
		return Paths{}
	}
	return r.paths
}

// StartRun opens the root span for an evaluation. The returned finish
// function must be called once with the run error, nil on success.
func (r *Recorder) StartRun(ctx context.Context, model, judgeModel string, totalCases int) (context.Context, func(error)) {
	if r == nil {
		return ctx, func(error) {}
	}
	ctx, span := r.tracer.Start(ctx, "evaluation.run",
		trace.WithAttributes(
			attribute.String("evaluation.model", model),
			attribute.String("evaluation.judge_model", judgeModel),
			attribute.Int("evaluation.total_cases", totalCases),
		),
	)
	return ctx, finishFunc(span)
}

// StartCase opens a child span for one case.
func (r *Recorder) StartCase(ctx context.Context, caseID string) (context.Context, func(error)) {
	if r == nil {
		return ctx, func(error) {}
	}
	ctx, span := r.tracer.Start(ctx, "evaluation.case",
		trace.WithAttributes(attribute.String("case.id", caseID)),
	)
	return ctx, finishFunc(span)
}

// StartPhase opens a child span named case.<phase> for one model call
// inside a case: diagnosis, safety_judge, or quality_judge.
func (r *Recorder) StartPhase(ctx context.Context, phase string) (context.Context, func(error)) {
	if r == nil {
		return ctx, func(error) {}
	}
	ctx, span := r.tracer.Start(ctx, "case."+phase)
	return ctx, finishFunc(span)
}

func finishFunc(span trace.Span) func(error) {
	return func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// CaseOutcome is the per-case measurement set recorded after each case.
type CaseOutcome struct {
	Success   bool
	LatencyMS float64
	CostUSD   float64
}

// RecordCase updates the case instruments. Latency and cost are recorded
// for successful cases only; a failed case has neither.
func (r *Recorder) RecordCase(ctx context.Context, outcome CaseOutcome) {
	if r == nil {
		return
	}
	r.casesProcessed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", outcome.Success)))
	if !outcome.Success {
		r.casesFailed.Add(ctx, 1)
		return
	}
	r.caseLatency.Record(ctx, outcome.LatencyMS)
	r.caseCost.Record(ctx, outcome.CostUSD)
}
