// internal/webhooks/webhooks.go

// Package webhooks delivers run outcomes to external endpoints after an
// evaluation finishes. Generic endpoints receive a flat JSON payload with
// the headline metrics and threshold verdicts; Slack incoming webhooks get
// a formatted attachment message. Delivery is best-effort: a failed send is
// reported on the progress writer and never aborts the run.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/appconfig"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/evaluation"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/util"
)

const (
	// requestTimeout bounds a single webhook delivery.
	requestTimeout = 10 * time.Second

	// maxSummaryFailures caps the failed cases itemized by FailureSummary.
	maxSummaryFailures = 5

	// errorPreviewRunes is how much of a case error FailureSummary quotes.
	errorPreviewRunes = 50
)

// Notifier posts evaluation outcomes to configured webhooks. The zero value
// is not usable; construct with NewNotifier.
type Notifier struct {
	out    io.Writer
	client *http.Client

	// postSlack is the Slack delivery function, swappable in tests.
	postSlack func(ctx context.Context, url string, msg *slack.WebhookMessage) error

	now func() time.Time
}

// NewNotifier returns a Notifier that reports delivery progress to out.
// A nil out falls back to stdout.
func NewNotifier(out io.Writer) *Notifier {
	if out == nil {
		out = os.Stdout
	}
	client := &http.Client{Timeout: requestTimeout}
	return &Notifier{
		out:    out,
		client: client,
		postSlack: func(ctx context.Context, url string, msg *slack.WebhookMessage) error {
			return slack.PostWebhookCustomHTTPContext(ctx, url, client, msg)
		},
		now: time.Now,
	}
}

// NotifyAll sends the run outcome to every configured webhook and returns
// how many deliveries succeeded. Failures are reported per endpoint and do
// not stop the remaining sends.
func (n *Notifier) NotifyAll(ctx context.Context, run *evaluation.Run, cfg *appconfig.Config) int {
	sent := 0
	for _, hook := range cfg.Webhooks {
		if n.Send(ctx, hook, run, cfg) {
			sent++
		}
	}
	return sent
}

// Send delivers the run outcome to a single webhook, formatting the payload
// by endpoint type. Unknown types get the generic JSON payload.
func (n *Notifier) Send(ctx context.Context, hook appconfig.WebhookConfig, run *evaluation.Run, cfg *appconfig.Config) bool {
	var err error
	if strings.EqualFold(hook.Type, "slack") {
		err = n.postSlack(ctx, hook.URL, n.slackMessage(run, cfg))
	} else {
		err = n.post(ctx, hook.URL, n.genericPayload(run, cfg))
	}
	if err != nil {
		n.reportFailure(hook.URL, err)
		return false
	}
	fmt.Fprintf(n.out, "✓ Webhook sent successfully to %s\n", hook.URL)
	return true
}

// CheckConnectivity posts a short test message to a webhook endpoint so a
// bad URL surfaces before a long run, not after it.
func (n *Notifier) CheckConnectivity(ctx context.Context, hook appconfig.WebhookConfig) bool {
	var err error
	if strings.EqualFold(hook.Type, "slack") {
		msg := &slack.WebhookMessage{
			Text: "🔔 Test message from Medical Diagnosis Evaluator",
			Attachments: []slack.Attachment{{
				Color:  "good",
				Text:   "Webhook connection successful!",
				Footer: "Medical Diagnosis Evaluator",
				Ts:     json.Number(strconv.FormatInt(n.now().Unix(), 10)),
			}},
		}
		err = n.postSlack(ctx, hook.URL, msg)
	} else {
		err = n.post(ctx, hook.URL, map[string]string{
			"message":   "Test message from Medical Diagnosis Evaluator",
			"timestamp": n.now().Format(time.RFC3339),
			"status":    "test",
		})
	}
	if err != nil {
		fmt.Fprintf(n.out, "✗ Webhook test failed: %v\n", err)
		return false
	}
	fmt.Fprintf(n.out, "✓ Webhook test successful: %s\n", hook.URL)
	return true
}

// post marshals body and POSTs it as JSON, treating any 4xx or 5xx response
// as a delivery error.
func (n *Notifier) post(ctx context.Context, url string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

// reportFailure distinguishes a timed-out delivery from other failures so
// slow endpoints read differently from broken ones.
func (n *Notifier) reportFailure(url string, err error) {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		fmt.Fprintf(n.out, "✗ Webhook timeout: %s\n", url)
		return
	}
	fmt.Fprintf(n.out, "✗ Webhook failed: %v\n", err)
}

// runPayload is the generic webhook body. Field names are the contract with
// downstream consumers; changing them breaks CI integrations.
type runPayload struct {
	Timestamp    string            `json:"timestamp"`
	Status       string            `json:"status"`
	Model        payloadModel      `json:"model"`
	Metrics      payloadMetrics    `json:"metrics"`
	Summary      payloadSummary    `json:"summary"`
	Thresholds   payloadThresholds `json:"thresholds"`
	DashboardURL string            `json:"dashboard_url,omitempty"`
}

type payloadModel struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

type payloadMetrics struct {
	ClinicalAccuracy float64 `json:"clinical_accuracy"`
	AvgSafetyScore   float64 `json:"avg_safety_score"`
	AvgQualityScore  float64 `json:"avg_quality_score"`
	Faithfulness     float64 `json:"faithfulness"`
	AnswerRelevancy  float64 `json:"answer_relevancy"`
	CostPerQuery     float64 `json:"cost_per_query"`
	P95Latency       float64 `json:"p95_latency"`
}

type payloadSummary struct {
	TotalCases      int `json:"total_cases"`
	SuccessfulCases int `json:"successful_cases"`
	FailedCases     int `json:"failed_cases"`
}

type payloadThresholds struct {
	AccuracyMet     bool `json:"accuracy_met"`
	FaithfulnessMet bool `json:"faithfulness_met"`
	SafetyMet       bool `json:"safety_met"`
	CostMet         bool `json:"cost_met"`
	LatencyMet      bool `json:"latency_met"`
}

func (n *Notifier) genericPayload(run *evaluation.Run, cfg *appconfig.Config) runPayload {
	m := run.Metrics
	status := "FAIL"
	if m.AllThresholdsMet {
		status = "PASS"
	}
	return runPayload{
		Timestamp: n.now().Format(time.RFC3339),
		Status:    status,
		Model: payloadModel{
			Name:     cfg.Model.ModelName,
			Provider: cfg.Model.Provider,
		},
		Metrics: payloadMetrics{
			ClinicalAccuracy: m.ClinicalAccuracy,
			AvgSafetyScore:   m.AvgSafetyScore,
			AvgQualityScore:  m.AvgQualityScore,
			Faithfulness:     m.Faithfulness,
			AnswerRelevancy:  m.AnswerRelevancy,
			CostPerQuery:     m.CostPerQuery,
			P95Latency:       m.P95,
		},
		Summary: payloadSummary{
			TotalCases:      m.TotalCases,
			SuccessfulCases: m.SuccessfulCases,
			FailedCases:     m.FailedCases,
		},
		Thresholds: payloadThresholds{
			AccuracyMet:     m.ThresholdsMet["accuracy"],
			FaithfulnessMet: m.ThresholdsMet["faithfulness"],
			SafetyMet:       m.ThresholdsMet["safety"],
			CostMet:         m.ThresholdsMet["cost"],
			LatencyMet:      m.ThresholdsMet["latency"],
		},
		DashboardURL: cfg.DashboardURL,
	}
}

func (n *Notifier) slackMessage(run *evaluation.Run, cfg *appconfig.Config) *slack.WebhookMessage {
	m := run.Metrics
	now := n.now()

	status, emoji, color := "FAIL", "❌", "danger"
	if m.AllThresholdsMet {
		status, emoji, color = "PASS", "✅", "good"
	}

	attachment := slack.Attachment{
		Color: color,
		Title: fmt.Sprintf("%s Medical Diagnosis Evaluation %s", emoji, status),
		Text:  fmt.Sprintf("Model: *%s* (%s)", cfg.Model.ModelName, cfg.Model.Provider),
		Fields: []slack.AttachmentField{
			{Title: "Clinical Accuracy", Value: fmt.Sprintf("%.1f%%", m.ClinicalAccuracy*100), Short: true},
			{Title: "Avg Safety Score", Value: fmt.Sprintf("%.2f/5.0", m.AvgSafetyScore), Short: true},
			{Title: "Faithfulness", Value: fmt.Sprintf("%.3f", m.Faithfulness), Short: true},
			{Title: "Cost per Query", Value: fmt.Sprintf("$%.4f", m.CostPerQuery), Short: true},
			{Title: "P95 Latency", Value: fmt.Sprintf("%.0fms", m.P95), Short: true},
			{Title: "Cases Evaluated", Value: fmt.Sprintf("%d/%d", m.SuccessfulCases, m.TotalCases), Short: true},
		},
		Footer: thresholdFooter(m),
		Ts:     json.Number(strconv.FormatInt(now.Unix(), 10)),
	}
	if cfg.DashboardURL != "" {
		attachment.Actions = []slack.AttachmentAction{
			{Type: "button", Text: "View Dashboard", URL: cfg.DashboardURL},
		}
	}

	return &slack.WebhookMessage{
		Text:        fmt.Sprintf("Evaluation completed at %s", now.Format("2006-01-02 15:04:05")),
		Attachments: []slack.Attachment{attachment},
	}
}

// footerOrder fixes the threshold order quoted in the Slack footer.
var footerOrder = []string{"accuracy", "faithfulness", "safety", "cost", "latency"}

func thresholdFooter(m *evaluation.AggregateMetrics) string {
	parts := make([]string, 0, len(footerOrder))
	for _, name := range footerOrder {
		passed, ok := m.ThresholdsMet[name]
		if !ok {
			continue
		}
		mark := "✗"
		if passed {
			mark = "✓"
		}
		parts = append(parts, fmt.Sprintf("%s %s", mark, titleWord(name)))
	}
	return "Thresholds: " + strings.Join(parts, " | ")
}

func titleWord(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// FailureSummary renders the failed cases of a run as a short plain-text
// block for notification bodies: a count line, up to maxSummaryFailures
// numbered entries with truncated error text, and a trailer for the rest.
func FailureSummary(results []evaluation.CaseResult) string {
	var failed []evaluation.CaseResult
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		return "No failures"
	}

	lines := []string{fmt.Sprintf("Failed %d cases:", len(failed))}
	shown := failed
	if len(shown) > maxSummaryFailures {
		shown = shown[:maxSummaryFailures]
	}
	for i, r := range shown {
		caseID := r.CaseID
		if caseID == "" {
			caseID = "unknown"
		}
		msg := r.Error
		if msg == "" {
			msg = "Unknown error"
		}
		lines = append(lines, fmt.Sprintf("%d. %s: %s...", i+1, caseID, util.TruncateRunes(msg, errorPreviewRunes)))
	}
	if len(failed) > maxSummaryFailures {
		lines = append(lines, fmt.Sprintf("... and %d more", len(failed)-maxSummaryFailures))
	}
	return strings.Join(lines, "\n")
}
