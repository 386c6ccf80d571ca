// internal/reports/reports.go
// Package reports renders evaluation runs into persisted artifacts: a full
// JSON report, a per-case details CSV, and a summary CSV of the aggregate
// metrics.
package reports

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/appconfig"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/evaluation"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/metrics"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/util"
)

// reasoningLimit caps the diagnosis reasoning carried into the details CSV.
const reasoningLimit = 200

// topKDiagnoses mirrors the clinical accuracy metric's candidate window.
const topKDiagnoses = 3

// Metadata identifies a report artifact.
type Metadata struct {
	Timestamp      time.Time `json:"timestamp"`
	EvaluationType string    `json:"evaluation_type"`
	Version        string    `json:"version"`
}

// Configuration echoes the run settings into the report.
type Configuration struct {
	Model         appconfig.ModelConfig `json:"model"`
	JudgeModel    string                `json:"judge_model"`
	JudgeProvider string                `json:"judge_provider"`
	DatasetPath   string                `json:"dataset_path"`
	Thresholds    evaluation.Thresholds `json:"thresholds"`
}

// Status gives the pass/fail shape of a run at a glance.
type Status struct {
	TotalCases       int  `json:"total_cases"`
	SuccessfulCases  int  `json:"successful_cases"`
	FailedCases      int  `json:"failed_cases"`
	AllThresholdsMet bool `json:"all_thresholds_met"`
}

// Report is the persisted JSON artifact for one evaluation run.
type Report struct {
	Metadata       Metadata                     `json:"metadata"`
	Configuration  Configuration                `json:"configuration"`
	SummaryMetrics *evaluation.AggregateMetrics `json:"summary_metrics"`
	CaseResults    []evaluation.CaseResult      `json:"case_results"`
	Status         Status                       `json:"evaluation_status"`
}

// Paths lists where SaveAll wrote each artifact.
type Paths struct {
	JSON       string `json:"json"`
	DetailsCSV string `json:"csv_details"`
	SummaryCSV string `json:"csv_summary"`
}

// Writer renders evaluation runs into report artifacts. Progress messages
// go to out.
type Writer struct {
	out io.Writer
	now func() time.Time
}

// NewWriter returns a report writer. A nil out falls back to stdout.
func NewWriter(out io.Writer) *Writer {
	if out == nil {
		out = os.Stdout
	}
	return &Writer{out: out, now: time.Now}
}

// SaveAll writes every report format into outputDir with a shared timestamp
// suffix and returns the written paths.
func (w *Writer) SaveAll(run *evaluation.Run, cfg *appconfig.Config, outputDir string) (*Paths, error) {
	stamp := util.Timestamp(w.now())

	jsonData, err := w.JSONReport(run, cfg)
	if err != nil {
		return nil, err
	}
	jsonPath := filepath.Join(outputDir, fmt.Sprintf("evaluation_report_%s.json", stamp))
	if err := util.WriteFile(jsonPath, jsonData); err != nil {
		return nil, fmt.Errorf("failed to write JSON report: %w", err)
	}
	fmt.Fprintf(w.out, "JSON report saved to: %s\n", jsonPath)

	details, err := w.DetailsCSV(run)
	if err != nil {
		return nil, err
	}
	detailsPath := filepath.Join(outputDir, fmt.Sprintf("evaluation_details_%s.csv", stamp))
	if err := util.WriteFile(detailsPath, details); err != nil {
		return nil, fmt.Errorf("failed to write details CSV: %w", err)
	}
	fmt.Fprintf(w.out, "CSV report saved to: %s\n", detailsPath)

	summary, err := w.SummaryCSV(run, cfg)
	if err != nil {
		return nil, err
	}
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("evaluation_summary_%s.csv", stamp))
	if err := util.WriteFile(summaryPath, summary); err != nil {
		return nil, fmt.Errorf("failed to write summary CSV: %w", err)
	}
	fmt.Fprintf(w.out, "Summary CSV saved to: %s\n", summaryPath)

	fmt.Fprintf(w.out, "\nAll reports saved to: %s\n", outputDir)
	return &Paths{JSON: jsonPath, DetailsCSV: detailsPath, SummaryCSV: summaryPath}, nil
}

// JSONReport renders the full report document as indented JSON.
func (w *Writer) JSONReport(run *evaluation.Run, cfg *appconfig.Config) ([]byte, error) {
	m := run.Metrics
	snap := evaluation.SnapshotConfig(cfg)
	report := Report{
		Metadata: Metadata{
			Timestamp:      w.now(),
			EvaluationType: "medical_diagnosis",
			Version:        "1.0",
		},
		Configuration: Configuration{
			Model:         snap.Model,
			JudgeModel:    snap.JudgeModel,
			JudgeProvider: cfg.JudgeProviderName(),
			DatasetPath:   cfg.DatasetFile(),
			Thresholds:    snap.Thresholds,
		},
		SummaryMetrics: m,
		CaseResults:    run.CaseResults,
		Status: Status{
			TotalCases:       m.TotalCases,
			SuccessfulCases:  m.SuccessfulCases,
			FailedCases:      m.FailedCases,
			AllThresholdsMet: m.AllThresholdsMet,
		},
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return data, nil
}

// detailColumns is the header of the per-case details CSV.
var detailColumns = []string{
	"case_id",
	"success",
	"primary_diagnosis",
	"differential_diagnoses",
	"expert_diagnosis",
	"correct_in_top_3",
	"safety_score",
	"quality_score",
	"confidence",
	"latency_ms",
	"tokens_used",
	"reasoning",
	"error",
}

// DetailsCSV renders one row per case. Failed cases carry only their id and
// error; successful cases carry the diagnosis, scores, and a correctness
// flag computed with the same top-3 membership rule as the accuracy metric.
func (w *Writer) DetailsCSV(run *evaluation.Run) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	if err := cw.Write(detailColumns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range run.CaseResults {
		if err := cw.Write(detailRow(result)); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("failed to render details CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func detailRow(result evaluation.CaseResult) []string {
	if !result.Success {
		row := make([]string, len(detailColumns))
		row[0] = result.CaseID
		row[1] = "No"
		row[len(row)-1] = result.Error
		return row
	}

	diag := result.Diagnosis
	truth := ""
	if result.GroundTruth != nil {
		truth = result.GroundTruth.ExpertDiagnosis
	}
	correct := "No"
	if metrics.InTopK(diag.Predictions(), truth, topKDiagnoses) {
		correct = "Yes"
	}

	return []string{
		result.CaseID,
		"Yes",
		diag.PrimaryDiagnosis,
		joinDiagnoses(diag.DifferentialDiagnoses),
		truth,
		correct,
		strconv.Itoa(result.SafetyScore.SafetyScore),
		strconv.Itoa(result.QualityScore.QualityScore),
		strconv.FormatFloat(diag.Confidence, 'f', -1, 64),
		strconv.FormatFloat(result.LatencyMS, 'f', -1, 64),
		strconv.Itoa(diag.TokensUsed),
		util.TruncateRunes(diag.Reasoning, reasoningLimit),
		"",
	}
}

func joinDiagnoses(diagnoses []string) string {
	out := ""
	for i, d := range diagnoses {
		if i > 0 {
			out += "; "
		}
		out += d
	}
	return out
}

// SummaryCSV renders the aggregate metrics as metric,value rows, grouped
// with blank separator lines.
func (w *Writer) SummaryCSV(run *evaluation.Run, cfg *appconfig.Config) ([]byte, error) {
	m := run.Metrics
	rows := [][]string{
		{"metric", "value"},
		{"Timestamp", w.now().Format(time.RFC3339)},
		{"Model", cfg.Model.ModelName},
		{"Judge Model", cfg.JudgeModelName()},
		{"", ""},
		{"Total Cases", strconv.Itoa(m.TotalCases)},
		{"Successful Cases", strconv.Itoa(m.SuccessfulCases)},
		{"Failed Cases", strconv.Itoa(m.FailedCases)},
		{"", ""},
		{"Clinical Accuracy", fmt.Sprintf("%.2f%%", m.ClinicalAccuracy*100)},
		{"Average Safety Score", fmt.Sprintf("%.2f", m.AvgSafetyScore)},
		{"Average Quality Score", fmt.Sprintf("%.2f", m.AvgQualityScore)},
		{"", ""},
		{"Faithfulness", fmt.Sprintf("%.3f", m.Faithfulness)},
		{"Answer Relevancy", fmt.Sprintf("%.3f", m.AnswerRelevancy)},
		{"Context Precision", fmt.Sprintf("%.3f", m.ContextPrecision)},
		{"Context Recall", fmt.Sprintf("%.3f", m.ContextRecall)},
		{"", ""},
		{"Cost per Query", fmt.Sprintf("$%.4f", m.CostPerQuery)},
		{"Total Cost", fmt.Sprintf("$%.4f", m.TotalCost)},
		{"Total Tokens", strconv.Itoa(m.TotalTokens)},
		{"", ""},
		{"P50 Latency (ms)", fmt.Sprintf("%.0f", m.P50)},
		{"P95 Latency (ms)", fmt.Sprintf("%.0f", m.P95)},
		{"P99 Latency (ms)", fmt.Sprintf("%.0f", m.P99)},
		{"Mean Latency (ms)", fmt.Sprintf("%.0f", m.MeanLatency)},
		{"", ""},
		{"All Thresholds Met", yesNo(m.AllThresholdsMet)},
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to render summary CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// Load reads a previously saved JSON report.
func Load(path string) (*Report, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("invalid report JSON: %w", err)
	}
	return &report, nil
}

// Validate checks that a loaded report carries the sections every consumer
// relies on.
func (r *Report) Validate() error {
	if r.Metadata.Timestamp.IsZero() {
		return errors.New("report missing metadata timestamp")
	}
	if r.Configuration.Model.ModelName == "" {
		return errors.New("report missing model configuration")
	}
	if r.SummaryMetrics == nil {
		return errors.New("report missing summary metrics")
	}
	return nil
}
