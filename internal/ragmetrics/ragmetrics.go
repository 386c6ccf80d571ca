// internal/ragmetrics/ragmetrics.go

// Package ragmetrics computes retrieval-grounding metrics for generated
// diagnoses by delegating batches to an external scoring service. The four
// scores (faithfulness, answer relevancy, context precision, context recall)
// each range over [0,1]. The service is optional: callers substitute
// zero-valued scores with an error marker when it is unconfigured or down.
package ragmetrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/dataset"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/diagnosis"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/logging"
)

// Sample is one case formatted for retrieval scoring: the patient
// presentation as the question, the generated diagnosis as the answer, and
// the case context rendered as retrieval passages.
type Sample struct {
	CaseID      string   `json:"case_id"`
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Contexts    []string `json:"contexts"`
	GroundTruth string   `json:"ground_truth"`
}

// Scores holds the four batch-level retrieval metrics.
type Scores struct {
	Faithfulness     float64 `json:"faithfulness"`
	AnswerRelevancy  float64 `json:"answer_relevancy"`
	ContextPrecision float64 `json:"context_precision"`
	ContextRecall    float64 `json:"context_recall"`
}

// Scorer computes retrieval metrics for a batch of samples.
type Scorer interface {
	ScoreBatch(ctx context.Context, samples []Sample) (Scores, error)
}

// BuildSample formats a case and its diagnosis for scoring. History and lab
// results become the context passages; either may be absent.
func BuildSample(c dataset.Case, diag *diagnosis.Result) Sample {
	var contexts []string
	if c.RelevantHistory != "" {
		contexts = append(contexts, "History: "+c.RelevantHistory)
	}
	if len(c.LabResults) > 0 {
		keys := make([]string, 0, len(c.LabResults))
		for key := range c.LabResults {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, key := range keys {
			pairs = append(pairs, fmt.Sprintf("%s: %s", key, c.LabResults[key]))
		}
		contexts = append(contexts, "Lab Results: "+strings.Join(pairs, ", "))
	}

	return Sample{
		CaseID:      c.CaseID,
		Question:    c.PatientPresentation,
		Answer:      fmt.Sprintf("%s\n\nReasoning: %s", diag.PrimaryDiagnosis, diag.Reasoning),
		Contexts:    contexts,
		GroundTruth: fmt.Sprintf("%s\n\nReasoning: %s", c.ExpertDiagnosis, c.ExpertReasoning),
	}
}

// Client posts score batches to the external scoring service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client for the scorer at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type scoreRequest struct {
	Questions    []string   `json:"questions"`
	Answers      []string   `json:"answers"`
	Contexts     [][]string `json:"contexts"`
	GroundTruths []string   `json:"ground_truths"`
}

// ScoreBatch submits the samples in one request and returns the batch-level
// scores. The parallel sequences the service expects are built here, so a
// length mismatch between them is structurally impossible.
func (c *Client) ScoreBatch(ctx context.Context, samples []Sample) (Scores, error) {
	if len(samples) == 0 {
		return Scores{}, fmt.Errorf("ragmetrics: no samples to score")
	}

	payload := scoreRequest{
		Questions:    make([]string, len(samples)),
		Answers:      make([]string, len(samples)),
		Contexts:     make([][]string, len(samples)),
		GroundTruths: make([]string, len(samples)),
	}
	for i, sample := range samples {
		payload.Questions[i] = sample.Question
		payload.Answers[i] = sample.Answer
		payload.Contexts[i] = normalizeContexts(sample.Contexts)
		payload.GroundTruths[i] = sample.GroundTruth
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Scores{}, err
	}

	endpoint := c.baseURL + "/v1/score"
	logging.LogRequest("EVAL->SCORER", "ragmetrics", "", "", map[string]any{"url": endpoint, "samples": len(samples)})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Scores{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Scores{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Scores{}, fmt.Errorf("ragmetrics: scorer returned %s", resp.Status)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Scores{}, err
	}
	logging.LogRequest("SCORER->EVAL", "ragmetrics", "", "", respBody)

	var scores Scores
	if err := json.Unmarshal(respBody, &scores); err != nil {
		return Scores{}, fmt.Errorf("ragmetrics: invalid scorer response: %w", err)
	}
	return scores, nil
}

// normalizeContexts drops empty passages. A sample with no usable context
// gets a placeholder so the scorer always receives at least one passage.
func normalizeContexts(contexts []string) []string {
	var filtered []string
	for _, passage := range contexts {
		if passage != "" {
			filtered = append(filtered, passage)
		}
	}
	if len(filtered) == 0 {
		return []string{"No additional context provided"}
	}
	return filtered
}
