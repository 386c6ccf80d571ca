// internal/diagnosis/diagnosis.go

// Package diagnosis drives the system under test: it prompts the candidate
// model with a patient case and parses the structured differential diagnosis
// out of the response.
package diagnosis

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/dataset"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/providers"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/util"
)

const diagnosisPromptTemplate = `You are an expert medical diagnostician. Based on the patient information provided, generate a comprehensive differential diagnosis.

Patient Presentation:
%s

Relevant History:
%s

Lab Results:
%s

Please provide:
1. Primary Diagnosis: The most likely diagnosis
2. Differential Diagnoses: List 3-5 alternative diagnoses in order of likelihood
3. Clinical Reasoning: Detailed explanation of your diagnostic reasoning
4. Confidence Level: Your confidence in the primary diagnosis (0.0 to 1.0)
5. Recommended Tests: Any additional tests or workup needed
6. Urgency: Classification as emergent, urgent, semi_urgent, or non_urgent

Format your response as JSON with the following structure:
{
  "primary_diagnosis": "...",
  "differential_diagnoses": ["...", "...", "..."],
  "reasoning": "...",
  "confidence": 0.0-1.0,
  "recommended_tests": ["...", "..."],
  "urgency": "..."
}`

const (
	systemPromptDefault   = "You are an expert medical diagnostician. Provide accurate, evidence-based diagnoses."
	systemPromptAnthropic = "You are an expert medical diagnostician. Provide accurate, evidence-based diagnoses in JSON format."
)

// jsonFencePattern extracts a JSON object from a markdown code block when the
// model wraps its answer despite the JSON instruction.
var jsonFencePattern = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// Result is the structured diagnosis produced for one case, plus the call
// metadata needed for cost and latency accounting.
type Result struct {
	PrimaryDiagnosis      string   `json:"primary_diagnosis"`
	DifferentialDiagnoses []string `json:"differential_diagnoses"`
	Reasoning             string   `json:"reasoning"`
	Confidence            float64  `json:"confidence"`
	RecommendedTests      []string `json:"recommended_tests,omitempty"`
	Urgency               string   `json:"urgency,omitempty"`

	ModelUsed    string  `json:"model_used"`
	TokensUsed   int     `json:"tokens_used"`
	InputTokens  int     `json:"input_tokens,omitempty"`
	OutputTokens int     `json:"output_tokens,omitempty"`
	LatencyMS    float64 `json:"latency_ms"`
}

// Predictions returns the diagnoses in ranked order for accuracy scoring:
// the primary diagnosis first, then the differentials. A blank primary is
// skipped so an empty answer cannot claim the top rank.
func (r *Result) Predictions() []string {
	if r.PrimaryDiagnosis == "" {
		return r.DifferentialDiagnoses
	}
	return append([]string{r.PrimaryDiagnosis}, r.DifferentialDiagnoses...)
}

// Assistant generates diagnoses through a configured chat provider.
type Assistant struct {
	provider    providers.ChatProvider
	modelName   string
	temperature float64
	maxTokens   int
	maxRetries  int
	retryDelay  time.Duration
}

// New creates an Assistant for the given provider and model settings.
func New(provider providers.ChatProvider, modelName string, temperature float64, maxTokens int) *Assistant {
	return &Assistant{
		provider:    provider,
		modelName:   modelName,
		temperature: temperature,
		maxTokens:   maxTokens,
		maxRetries:  3,
		retryDelay:  time.Second,
	}
}

// SetRetryPolicy overrides the attempt count and base backoff delay.
func (a *Assistant) SetRetryPolicy(attempts int, delay time.Duration) {
	if attempts < 1 {
		attempts = 1
	}
	if delay < 0 {
		delay = 0
	}
	a.maxRetries = attempts
	a.retryDelay = delay
}

// Generate produces a diagnosis for one patient case, retrying transient
// failures with exponential backoff. The returned latency covers only the
// successful provider call, not the backoff waits.
func (a *Assistant) Generate(ctx context.Context, c dataset.Case) (*Result, error) {
	prompt := buildPrompt(c)
	req := providers.ChatRequest{
		Model:        a.modelName,
		SystemPrompt: a.systemPrompt(),
		UserPrompt:   prompt,
		Temperature:  a.temperature,
		MaxTokens:    a.maxTokens,
		JSONMode:     true,
		CaseID:       c.CaseID,
	}

	var lastErr error
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := a.retryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		start := time.Now()
		resp, err := a.provider.Complete(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}

		result, err := parseResponse(resp.Content)
		if err != nil {
			lastErr = err
			continue
		}

		result.ModelUsed = a.modelName
		result.TokensUsed = resp.TotalTokens()
		result.InputTokens = resp.InputTokens
		result.OutputTokens = resp.OutputTokens
		result.LatencyMS = float64(time.Since(start)) / float64(time.Millisecond)
		return result, nil
	}

	return nil, fmt.Errorf("failed to generate diagnosis after %d attempts: %w", a.maxRetries, lastErr)
}

func (a *Assistant) systemPrompt() string {
	if a.provider.Name() == "anthropic" {
		return systemPromptAnthropic
	}
	return systemPromptDefault
}

// buildPrompt renders the case into the diagnosis prompt. Lab results are
// listed one per line in key order so identical cases produce identical
// prompts.
func buildPrompt(c dataset.Case) string {
	keys := make([]string, 0, len(c.LabResults))
	for key := range c.LabResults {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %s", key, c.LabResults[key]))
	}

	return fmt.Sprintf(diagnosisPromptTemplate, c.PatientPresentation, c.RelevantHistory, strings.Join(lines, "\n"))
}

// parseResponse decodes the model output into a Result. Direct JSON is tried
// first, then a fenced ```json block. Missing fields fall back to neutral
// values rather than failing the case.
func parseResponse(content string) (*Result, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var payload struct {
		PrimaryDiagnosis      *string  `json:"primary_diagnosis"`
		DifferentialDiagnoses []string `json:"differential_diagnoses"`
		Reasoning             string   `json:"reasoning"`
		Confidence            *float64 `json:"confidence"`
		RecommendedTests      []string `json:"recommended_tests"`
		Urgency               string   `json:"urgency"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse JSON from response: %s", util.TruncateRunes(content, 200))
	}

	result := &Result{
		PrimaryDiagnosis:      "Unknown",
		DifferentialDiagnoses: payload.DifferentialDiagnoses,
		Reasoning:             payload.Reasoning,
		Confidence:            0.5,
		RecommendedTests:      payload.RecommendedTests,
		Urgency:               payload.Urgency,
	}
	if payload.PrimaryDiagnosis != nil {
		result.PrimaryDiagnosis = *payload.PrimaryDiagnosis
	}
	if payload.Confidence != nil {
		result.Confidence = *payload.Confidence
	}
	if result.DifferentialDiagnoses == nil {
		result.DifferentialDiagnoses = []string{}
	}
	return result, nil
}

func extractJSON(content string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(content)
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return json.RawMessage(trimmed), nil
	}
	if match := jsonFencePattern.FindStringSubmatch(content); match != nil {
		return json.RawMessage(match[1]), nil
	}
	return nil, fmt.Errorf("failed to parse JSON from response: %s", util.TruncateRunes(content, 200))
}
