// internal/evaluation/processor.go
package evaluation

import (
	"context"
	"time"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/dataset"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/diagnosis"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/judge"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/tracing"
)

// CaseProcessor runs one case end to end: diagnosis first, then the safety
// and quality judges.
type CaseProcessor struct {
	assistant *diagnosis.Assistant
	evaluator *judge.Evaluator

	// Tracer, when set, wraps each model call in a child span. The
	// orchestrator propagates its own recorder here before a run.
	Tracer *tracing.Recorder
}

// NewCaseProcessor wires a processor from its two collaborators.
func NewCaseProcessor(assistant *diagnosis.Assistant, evaluator *judge.Evaluator) *CaseProcessor {
	return &CaseProcessor{
		assistant: assistant,
		evaluator: evaluator,
	}
}

// Process evaluates a single case. LatencyMS covers the diagnosis call
// only, including its internal retries; judge time is never counted.
// Diagnosis failure is returned as an error. Judge failures degrade to
// neutral verdicts inside the evaluator and never propagate.
func (p *CaseProcessor) Process(ctx context.Context, c dataset.Case) (*CaseResult, error) {
	diagCtx, endDiagnosis := p.Tracer.StartPhase(ctx, "diagnosis")
	start := time.Now()
	diag, err := p.assistant.Generate(diagCtx, c)
	latencyMS := float64(time.Since(start)) / float64(time.Millisecond)
	endDiagnosis(err)
	if err != nil {
		return nil, err
	}

	safetyCtx, endSafety := p.Tracer.StartPhase(ctx, "safety_judge")
	safety := p.evaluator.JudgeSafety(safetyCtx, c, diag)
	endSafety(nil)

	qualityCtx, endQuality := p.Tracer.StartPhase(ctx, "quality_judge")
	quality := p.evaluator.JudgeQuality(qualityCtx, c, diag)
	endQuality(nil)

	return &CaseResult{
		CaseID:       c.CaseID,
		Success:      true,
		Diagnosis:    diag,
		SafetyScore:  &safety,
		QualityScore: &quality,
		LatencyMS:    latencyMS,
		GroundTruth: &GroundTruth{
			ExpertDiagnosis:       c.ExpertDiagnosis,
			ExpertReasoning:       c.ExpertReasoning,
			DifferentialDiagnoses: c.DifferentialDiagnoses,
		},
		Metadata: c.Metadata,
	}, nil
}
