// internal/evaluation/orchestrator.go

// Package evaluation orchestrates the full pipeline: load the golden
// dataset, run every case through diagnosis and both judges, aggregate the
// results, and resolve the configured thresholds into a pass/fail verdict.
package evaluation

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/appconfig"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/dataset"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/diagnosis"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/judge"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/logging"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/metrics"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/providerfactory"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/providers"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/ragmetrics"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/tracing"
)

// Orchestrator runs complete evaluations for one configuration.
type Orchestrator struct {
	config    *appconfig.Config
	processor *CaseProcessor
	scorer    ragmetrics.Scorer
	out       io.Writer

	chatProvider  providers.ChatProvider
	judgeProvider providers.ChatProvider

	// OnProgress, when set, is called after each case completes, whether it
	// succeeded or failed.
	OnProgress func(completed, total int, caseID string)

	// Tracer, when set, records run and case spans plus the case
	// instruments. A nil Tracer disables telemetry.
	Tracer *tracing.Recorder

	now      func() time.Time
	newRunID func() string
}

// New constructs an Orchestrator from configuration, building the diagnosis
// and judge providers. Both API keys are resolved here; nothing downstream
// reads the environment.
func New(cfg *appconfig.Config) (*Orchestrator, error) {
	chatProvider, err := providerfactory.NewChatProvider(cfg.Model, cfg.RequestTimeout())
	if err != nil {
		return nil, err
	}
	judgeProvider, err := providerfactory.NewJudgeProvider(cfg)
	if err != nil {
		_ = chatProvider.Close()
		return nil, err
	}

	assistant := diagnosis.New(chatProvider, cfg.Model.ModelName, cfg.Model.Temperature, cfg.Model.MaxTokens)
	evaluator := judge.New(judgeProvider, cfg.JudgeModelName())

	var scorer ragmetrics.Scorer
	if strings.TrimSpace(cfg.ScorerURL) != "" {
		scorer = ragmetrics.NewClient(cfg.ScorerURL, cfg.RequestTimeout())
	}

	o := NewWithComponents(cfg, NewCaseProcessor(assistant, evaluator), scorer, os.Stdout)
	o.chatProvider = chatProvider
	o.judgeProvider = judgeProvider
	return o, nil
}

// NewWithComponents wires an Orchestrator from preconstructed parts. Tests
// use it to substitute fake collaborators.
func NewWithComponents(cfg *appconfig.Config, processor *CaseProcessor, scorer ragmetrics.Scorer, out io.Writer) *Orchestrator {
	if out == nil {
		out = os.Stdout
	}
	return &Orchestrator{
		config:    cfg,
		processor: processor,
		scorer:    scorer,
		out:       out,
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
}

// Close releases the underlying provider clients.
func (o *Orchestrator) Close() error {
	var firstErr error
	for _, p := range []providers.ChatProvider{o.chatProvider, o.judgeProvider} {
		if p == nil {
			continue
		}
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Run executes the full pipeline once. The returned error is either a
// dataset error or context cancellation; individual case failures are
// recorded in the run instead. Results keep dataset order even when
// failures are interleaved.
func (o *Orchestrator) Run(ctx context.Context) (*Run, error) {
	startedAt := o.now()

	o.verbosef("\n%s\nStarting Medical Diagnosis Evaluation\n%s\n\n", rule('='), rule('='))
	logging.LogEvent("[EVAL] Starting evaluation with model %s (judge %s)", o.config.Model.ModelName, o.config.JudgeModelName())

	cases, err := o.loadCases()
	if err != nil {
		return nil, err
	}

	o.processor.Tracer = o.Tracer
	ctx, endRun := o.Tracer.StartRun(ctx, o.config.Model.ModelName, o.config.JudgeModelName(), len(cases))

	total := len(cases)
	results := make([]CaseResult, 0, total)
	for i, c := range cases {
		caseCtx, endCase := o.Tracer.StartCase(ctx, c.CaseID)
		result, err := o.processor.Process(caseCtx, c)
		if err != nil {
			if ctx.Err() != nil {
				endCase(ctx.Err())
				endRun(ctx.Err())
				return nil, ctx.Err()
			}
			o.Tracer.RecordCase(caseCtx, tracing.CaseOutcome{})
			endCase(err)
			results = append(results, CaseResult{
				CaseID:  c.CaseID,
				Success: false,
				Error:   err.Error(),
			})
			o.verbosef("\n✗ Failed case %d/%d: %v\n", i+1, total, err)
			logging.LogEvent("[EVAL] Case %s failed: %v", c.CaseID, err)
		} else {
			o.Tracer.RecordCase(caseCtx, tracing.CaseOutcome{
				Success:   true,
				LatencyMS: result.LatencyMS,
				CostUSD:   o.caseCostUSD(result.Diagnosis),
			})
			endCase(nil)
			results = append(results, *result)
			o.verbosef("\n✓ Completed case %d/%d: %s\n", i+1, total, c.CaseID)
			o.verbosef("  Diagnosis: %s\n", result.Diagnosis.PrimaryDiagnosis)
			o.verbosef("  Safety: %d/5\n", result.SafetyScore.SafetyScore)
			o.verbosef("  Quality: %d/5\n", result.QualityScore.QualityScore)
			o.verbosef("  Latency: %.0fms\n", result.LatencyMS)
		}

		if o.OnProgress != nil {
			o.OnProgress(i+1, total, c.CaseID)
		}
	}

	o.verbosef("\n%s\nComputing aggregate metrics...\n%s\n\n", rule('-'), rule('-'))
	metrics := Aggregate(ctx, results, cases, o.config, o.scorer)
	endRun(nil)
	logging.LogEvent("[EVAL] Aggregation complete: %d/%d cases successful, all thresholds met: %t",
		metrics.SuccessfulCases, metrics.TotalCases, metrics.AllThresholdsMet)

	run := &Run{
		RunID:       o.newRunID(),
		Timestamp:   startedAt,
		Config:      SnapshotConfig(o.config),
		Metrics:     metrics,
		CaseResults: results,
		NumCases:    len(results),
	}

	if o.config.Verbose {
		PrintSummary(o.out, metrics)
	}
	return run, nil
}

// loadCases reads the golden dataset, enforces the subset bound, applies
// the truncation, and backfills any missing case ids positionally.
func (o *Orchestrator) loadCases() ([]dataset.Case, error) {
	path := o.config.DatasetFile()
	cases, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}
	o.verbosef("✓ Loaded %d cases from golden dataset\n", len(cases))

	if n := o.config.SubsetSize; n > len(cases) {
		return nil, &dataset.Error{
			Path:   path,
			Reason: fmt.Sprintf("subset size %d exceeds dataset size %d", n, len(cases)),
		}
	}
	if n := o.config.SubsetSize; n > 0 && n < len(cases) {
		cases = dataset.Subset(cases, n)
		o.verbosef("Using subset of %d cases\n", n)
	}

	for i := range cases {
		if cases[i].CaseID == "" {
			cases[i].CaseID = fmt.Sprintf("case_%d", i)
		}
	}
	return cases, nil
}

// caseCostUSD prices a single diagnosis with the same table the aggregator
// uses, so traced costs match the reported ones.
func (o *Orchestrator) caseCostUSD(diag *diagnosis.Result) float64 {
	summary := metrics.Cost([]metrics.CostTrace{{
		ModelUsed:    diag.ModelUsed,
		InputTokens:  diag.InputTokens,
		OutputTokens: diag.OutputTokens,
		TokensUsed:   diag.TokensUsed,
	}}, o.config.Model.ModelName)
	return summary.TotalCost
}

func (o *Orchestrator) verbosef(format string, args ...any) {
	if o.config.Verbose {
		fmt.Fprintf(o.out, format, args...)
	}
}

func rule(ch rune) string {
	return strings.Repeat(string(ch), 60)
}
