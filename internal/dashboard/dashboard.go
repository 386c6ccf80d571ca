// internal/dashboard/dashboard.go
// Package dashboard renders a standalone HTML results page for one
// evaluation run. The page carries summary metric cards, threshold status,
// four Chart.js visualizations and a failure-case table, all driven by a
// JSON payload embedded at generation time.
package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/appconfig"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/diagnosis"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/evaluation"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/metrics"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/util"
)

// topKDiagnoses mirrors the clinical accuracy metric's candidate window.
const topKDiagnoses = 3

// maxFailureRows caps the failure table.
const maxFailureRows = 10

type viewModel struct {
	Title       string
	TraceURL    string
	PayloadJSON template.JS
}

type payload struct {
	GeneratedAt  string            `json:"generated_at"`
	Model        string            `json:"model"`
	JudgeModel   string            `json:"judge_model"`
	Cards        []metricCard      `json:"cards"`
	AllMet       bool              `json:"all_thresholds_met"`
	Thresholds   []thresholdStatus `json:"thresholds"`
	Trend        []trendPoint      `json:"accuracy_trend"`
	CostPoints   []costPoint       `json:"cost_points"`
	SafetyCounts []int             `json:"safety_counts"`
	Latency      *latencyStats     `json:"latency,omitempty"`
	Failures     []failureRow      `json:"failures"`
}

type metricCard struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Label string `json:"label"`
	Tone  string `json:"tone,omitempty"`
}

type thresholdStatus struct {
	Label  string `json:"label"`
	Passed bool   `json:"passed"`
}

type trendPoint struct {
	Case     int     `json:"case"`
	Accuracy float64 `json:"accuracy"`
}

type costPoint struct {
	CaseID  string  `json:"case_id"`
	Cost    float64 `json:"cost"`
	Correct bool    `json:"correct"`
}

type latencyStats struct {
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
	Mean float64 `json:"mean"`
}

type failureRow struct {
	CaseID       string `json:"case_id"`
	Reason       string `json:"reason"`
	Predicted    string `json:"predicted,omitempty"`
	Expected     string `json:"expected,omitempty"`
	Error        string `json:"error,omitempty"`
	SafetyScore  int    `json:"safety_score"`
	QualityScore int    `json:"quality_score"`
}

// Generator renders evaluation runs into dashboard HTML. Progress messages
// go to out.
type Generator struct {
	out io.Writer
	now func() time.Time
}

// NewGenerator returns a dashboard generator. A nil out falls back to
// stdout.
func NewGenerator(out io.Writer) *Generator {
	if out == nil {
		out = os.Stdout
	}
	return &Generator{out: out, now: time.Now}
}

// Generate renders the dashboard HTML for a run.
func (g *Generator) Generate(run *evaluation.Run, cfg *appconfig.Config) (string, error) {
	data, err := json.Marshal(g.buildPayload(run, cfg))
	if err != nil {
		return "", fmt.Errorf("failed to encode dashboard payload: %w", err)
	}

	vm := viewModel{
		Title:       "Medical Diagnosis Evaluation Results",
		TraceURL:    cfg.DashboardURL,
		PayloadJSON: template.JS(data),
	}

	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, vm); err != nil {
		return "", fmt.Errorf("failed to render dashboard: %w", err)
	}
	return buf.String(), nil
}

// Save renders the dashboard and writes it into outputDir with a timestamp
// suffix, returning the written path.
func (g *Generator) Save(run *evaluation.Run, cfg *appconfig.Config, outputDir string) (string, error) {
	html, err := g.Generate(run, cfg)
	if err != nil {
		return "", err
	}

	path := filepath.Join(outputDir, fmt.Sprintf("evaluation_dashboard_%s.html", util.Timestamp(g.now())))
	if err := util.WriteFile(path, []byte(html)); err != nil {
		return "", fmt.Errorf("failed to write dashboard: %w", err)
	}
	fmt.Fprintf(g.out, "Dashboard saved to: %s\n", path)
	return path, nil
}

func (g *Generator) buildPayload(run *evaluation.Run, cfg *appconfig.Config) payload {
	m := run.Metrics
	p := payload{
		GeneratedAt:  g.now().Format("2006-01-02 15:04:05"),
		Model:        cfg.Model.ModelName,
		JudgeModel:   cfg.JudgeModelName(),
		Cards:        buildCards(m, cfg),
		AllMet:       m.AllThresholdsMet,
		Thresholds:   buildThresholds(m),
		Trend:        []trendPoint{},
		CostPoints:   []costPoint{},
		SafetyCounts: make([]int, 5),
		Failures:     []failureRow{},
	}

	correctCount := 0
	successSeen := 0
	for _, result := range run.CaseResults {
		if !result.Success {
			msg := result.Error
			if msg == "" {
				msg = "Unknown error"
			}
			p.Failures = append(p.Failures, failureRow{
				CaseID: result.CaseID,
				Reason: "Processing Failed",
				Error:  msg,
			})
			continue
		}

		successSeen++
		truth := ""
		if result.GroundTruth != nil {
			truth = result.GroundTruth.ExpertDiagnosis
		}
		correct := metrics.InTopK(result.Diagnosis.Predictions(), truth, topKDiagnoses)
		if correct {
			correctCount++
		}

		p.Trend = append(p.Trend, trendPoint{
			Case:     successSeen,
			Accuracy: float64(correctCount) / float64(successSeen),
		})
		p.CostPoints = append(p.CostPoints, costPoint{
			CaseID:  result.CaseID,
			Cost:    caseCost(result.Diagnosis, cfg.Model.ModelName),
			Correct: correct,
		})
		if s := result.SafetyScore.SafetyScore; s >= 1 && s <= 5 {
			p.SafetyCounts[s-1]++
		}

		if !correct {
			p.Failures = append(p.Failures, failureRow{
				CaseID:       result.CaseID,
				Reason:       "Incorrect Diagnosis",
				Predicted:    result.Diagnosis.PrimaryDiagnosis,
				Expected:     truth,
				SafetyScore:  result.SafetyScore.SafetyScore,
				QualityScore: result.QualityScore.QualityScore,
			})
		}
	}

	if successSeen > 0 {
		p.Latency = &latencyStats{P50: m.P50, P95: m.P95, P99: m.P99, Mean: m.MeanLatency}
	}
	if len(p.Failures) > maxFailureRows {
		p.Failures = p.Failures[:maxFailureRows]
	}
	return p
}

func buildCards(m *evaluation.AggregateMetrics, cfg *appconfig.Config) []metricCard {
	accuracyTone := "danger"
	if m.ClinicalAccuracy >= cfg.MinAccuracy {
		accuracyTone = "success"
	}
	safetyTone := "warning"
	if m.AvgSafetyScore >= cfg.MinSafetyScore {
		safetyTone = "success"
	}
	costTone := "warning"
	if m.CostPerQuery <= cfg.MaxCostPerQuery {
		costTone = "success"
	}
	latencyTone := "warning"
	if m.P95 <= cfg.MaxP95Latency {
		latencyTone = "success"
	}
	if m.SuccessfulCases == 0 {
		// Zero cost and latency from an empty run is not a pass.
		costTone = "warning"
		latencyTone = "warning"
	}

	return []metricCard{
		{Title: "Clinical Accuracy", Value: fmt.Sprintf("%.1f%%", m.ClinicalAccuracy*100), Label: "Top-3 Match Rate", Tone: accuracyTone},
		{Title: "Safety Score", Value: fmt.Sprintf("%.2f", m.AvgSafetyScore), Label: "Out of 5.0", Tone: safetyTone},
		{Title: "Quality Score", Value: fmt.Sprintf("%.2f", m.AvgQualityScore), Label: "Out of 5.0"},
		{Title: "Faithfulness", Value: fmt.Sprintf("%.3f", m.Faithfulness), Label: "Ragas Metric"},
		{Title: "Answer Relevancy", Value: fmt.Sprintf("%.3f", m.AnswerRelevancy), Label: "Ragas Metric"},
		{Title: "Cost per Query", Value: fmt.Sprintf("$%.4f", m.CostPerQuery), Label: "USD", Tone: costTone},
		{Title: "P95 Latency", Value: fmt.Sprintf("%.0fms", m.P95), Label: "95th Percentile", Tone: latencyTone},
		{Title: "Cases Evaluated", Value: strconv.Itoa(m.SuccessfulCases), Label: fmt.Sprintf("of %d total", m.TotalCases)},
	}
}

// thresholdLabels fixes the display order of the threshold checks.
var thresholdLabels = []struct{ key, label string }{
	{"accuracy", "Clinical Accuracy"},
	{"faithfulness", "Faithfulness"},
	{"safety", "Safety Score"},
	{"cost", "Cost per Query"},
	{"latency", "P95 Latency"},
}

func buildThresholds(m *evaluation.AggregateMetrics) []thresholdStatus {
	statuses := make([]thresholdStatus, 0, len(thresholdLabels))
	for _, entry := range thresholdLabels {
		passed, ok := m.ThresholdsMet[entry.key]
		if !ok {
			continue
		}
		statuses = append(statuses, thresholdStatus{Label: entry.label, Passed: passed})
	}
	return statuses
}

func caseCost(diag *diagnosis.Result, modelName string) float64 {
	summary := metrics.Cost([]metrics.CostTrace{{
		ModelUsed:    diag.ModelUsed,
		InputTokens:  diag.InputTokens,
		OutputTokens: diag.OutputTokens,
		TokensUsed:   diag.TokensUsed,
	}}, modelName)
	return summary.TotalCost
}

var dashboardTemplate = template.Must(template.New("evaluation-dashboard").Parse(dashboardTemplateHTML))

const dashboardTemplateHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ .Title }}</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css">
  <style>
    :root {
      --primary: #334155;
      --secondary: #64748B;
      --accent: #3B82F6;
      --light: #F1F5F9;
      --background: #FFFFFF;
      --text: #0F172A;
      --success: #10B981;
      --warning: #F59E0B;
      --danger: #DC2626;
      --border: #E2E8F0;
    }
    body {
      background-color: var(--light);
      color: var(--text);
    }
    .navbar-dark {
      background-color: var(--primary) !important;
    }
    .card {
      border: 1px solid var(--border);
      background-color: var(--background);
    }
    .metric-card {
      text-align: center;
      padding: 1.25rem;
      height: 100%;
    }
    .metric-card h6 {
      color: var(--secondary);
      text-transform: uppercase;
      letter-spacing: 1px;
      font-size: 0.8rem;
      margin-bottom: 0.75rem;
    }
    .metric-value {
      font-size: 2.25rem;
      font-weight: 700;
      color: var(--accent);
    }
    .metric-card.tone-success .metric-value { color: var(--success); }
    .metric-card.tone-warning .metric-value { color: var(--warning); }
    .metric-card.tone-danger .metric-value { color: var(--danger); }
    .metric-label {
      color: var(--secondary);
      font-size: 0.85rem;
    }
    .threshold-item {
      display: flex;
      align-items: center;
      gap: 0.6rem;
      padding: 0.75rem 1rem;
      border-radius: 8px;
      border-left: 4px solid var(--border);
      background: var(--light);
      font-weight: 600;
    }
    .threshold-item.pass { border-left-color: var(--success); }
    .threshold-item.fail { border-left-color: var(--danger); }
    .threshold-item .icon { font-size: 1.2rem; }
    .threshold-item.pass .icon { color: var(--success); }
    .threshold-item.fail .icon { color: var(--danger); }
    .chart-card {
      background: var(--background);
      border-radius: 16px;
      padding: 1.5rem;
      box-shadow: 0 1px 3px rgba(15, 23, 42, 0.1);
      border: 1px solid var(--border);
    }
    .chart-title {
      font-size: 1.25rem;
      font-weight: 700;
      color: var(--text);
      margin-bottom: 0.25rem;
    }
    .chart-subtitle {
      color: var(--secondary);
      margin-bottom: 1rem;
    }
    .chart-canvas {
      position: relative;
      height: 360px;
    }
    .diagnosis-text {
      max-width: 320px;
      overflow: hidden;
      text-overflow: ellipsis;
      white-space: nowrap;
    }
    .no-data {
      text-align: center;
      color: var(--secondary);
      font-style: italic;
      padding: 2rem;
    }
  </style>
</head>
<body>
  <nav class="navbar navbar-dark bg-dark">
    <div class="container-fluid">
      <span class="navbar-brand mb-0 h1">{{ .Title }}</span>
      <span class="text-light"><span id="modelInfo">-</span> | Generated: <span id="generatedAt">-</span></span>
    </div>
  </nav>
  <main class="container-fluid my-4">
    <section>
      <div class="card shadow-sm">
        <div class="card-header bg-white">
          <h5 class="mb-0">Summary Metrics</h5>
        </div>
        <div class="card-body">
          <div class="row g-3" id="metricCards"></div>
        </div>
      </div>
    </section>

    <section class="mt-4">
      <div class="card shadow-sm">
        <div class="card-header bg-white">
          <h5 class="mb-0">Threshold Validation</h5>
        </div>
        <div class="card-body">
          <div id="thresholdOverall"></div>
          <div class="row g-2" id="thresholdList"></div>
        </div>
      </div>
    </section>

    <section class="mt-4">
      <div class="row g-3">
        <div class="col-xl-6">
          <div class="card shadow-sm chart-card">
            <div class="card-body">
              <div class="chart-title">Accuracy Trend</div>
              <div class="chart-subtitle">Cumulative top-3 accuracy over cases processed.</div>
              <div class="chart-canvas">
                <canvas id="accuracyTrendChart" aria-label="Accuracy trend chart" role="img"></canvas>
              </div>
              <div id="accuracyTrendEmpty" class="text-muted small mt-2"></div>
            </div>
          </div>
        </div>
        <div class="col-xl-6">
          <div class="card shadow-sm chart-card">
            <div class="card-body">
              <div class="chart-title">Cost vs Accuracy</div>
              <div class="chart-subtitle">Per-case spend against diagnostic correctness.</div>
              <div class="chart-canvas">
                <canvas id="costAccuracyChart" aria-label="Cost versus accuracy chart" role="img"></canvas>
              </div>
              <div id="costAccuracyEmpty" class="text-muted small mt-2"></div>
            </div>
          </div>
        </div>
      </div>
    </section>

    <section class="mt-4">
      <div class="row g-3">
        <div class="col-xl-6">
          <div class="card shadow-sm chart-card">
            <div class="card-body">
              <div class="chart-title">Safety Score Distribution</div>
              <div class="chart-subtitle">Judge safety scores across successful cases.</div>
              <div class="chart-canvas">
                <canvas id="safetyDistributionChart" aria-label="Safety score distribution chart" role="img"></canvas>
              </div>
              <div id="safetyDistributionEmpty" class="text-muted small mt-2"></div>
            </div>
          </div>
        </div>
        <div class="col-xl-6">
          <div class="card shadow-sm chart-card">
            <div class="card-body">
              <div class="chart-title">Latency Percentiles</div>
              <div class="chart-subtitle">Diagnosis latency distribution in milliseconds.</div>
              <div class="chart-canvas">
                <canvas id="latencyPercentileChart" aria-label="Latency percentile chart" role="img"></canvas>
              </div>
              <div id="latencyPercentileEmpty" class="text-muted small mt-2"></div>
            </div>
          </div>
        </div>
      </div>
    </section>

    <section class="mt-4">
      <div class="card shadow-sm">
        <div class="card-header bg-white">
          <h5 class="mb-0">Top Failure Cases</h5>
        </div>
        <div class="card-body">
          <div class="table-responsive">
            <table class="table table-striped table-hover table-bordered table-sm" id="failureTable">
              <thead class="table-light">
                <tr>
                  <th>Case ID</th>
                  <th>Reason</th>
                  <th>Predicted</th>
                  <th>Expected</th>
                  <th>Safety</th>
                  <th>Quality</th>
                </tr>
              </thead>
              <tbody></tbody>
            </table>
          </div>
        </div>
      </div>
    </section>
{{ if .TraceURL }}
    <section class="mt-4">
      <div class="card shadow-sm text-center">
        <div class="card-body">
          <h5 class="mb-3">Detailed Trace Analysis</h5>
          <p class="text-muted">View complete traces and per-case detail in the external dashboard:</p>
          <a href="{{ .TraceURL }}" target="_blank" class="btn btn-primary">Open Tracing Dashboard</a>
        </div>
      </div>
    </section>
{{ end }}
  </main>
  <footer class="text-center text-muted py-3">Medical Diagnosis Evaluator</footer>

  <script src="https://code.jquery.com/jquery-3.7.1.min.js"></script>
  <script src="https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/js/bootstrap.bundle.min.js"></script>
  <script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.2/dist/chart.umd.min.js"></script>
  <script>
    var evaluation = {{ .PayloadJSON }};
  </script>
  <script>
    (function($) {
      function renderHeader() {
        $('#generatedAt').text(evaluation.generated_at || '-');
        $('#modelInfo').text('Model: ' + (evaluation.model || '-') + ' | Judge: ' + (evaluation.judge_model || '-'));
      }

      function renderCards() {
        var $row = $('#metricCards');
        (evaluation.cards || []).forEach(function(card) {
          var tone = card.tone ? ' tone-' + card.tone : '';
          var $col = $('<div class="col-sm-6 col-lg-3"></div>');
          var $card = $('<div class="card shadow-sm metric-card' + tone + '"></div>');
          $card.append($('<h6></h6>').text(card.title));
          $card.append($('<div class="metric-value"></div>').text(card.value));
          $card.append($('<div class="metric-label"></div>').text(card.label));
          $col.append($card);
          $row.append($col);
        });
      }

      function thresholdItem(label, passed) {
        var $item = $('<div class="threshold-item"></div>').addClass(passed ? 'pass' : 'fail');
        $item.append($('<span class="icon"></span>').text(passed ? '✓' : '✗'));
        $item.append($('<span></span>').text(label));
        return $item;
      }

      function renderThresholds() {
        var allMet = !!evaluation.all_thresholds_met;
        var overall = thresholdItem(allMet ? 'All Thresholds Met' : 'Some Thresholds Not Met', allMet);
        overall.addClass('mb-3');
        $('#thresholdOverall').append(overall);

        var $list = $('#thresholdList');
        (evaluation.thresholds || []).forEach(function(item) {
          var $col = $('<div class="col-sm-6 col-xl"></div>');
          $col.append(thresholdItem(item.label, item.passed));
          $list.append($col);
        });
      }

      function scoreBadge(score) {
        var cls = score >= 4 ? 'bg-success' : score >= 3 ? 'bg-warning' : 'bg-danger';
        return $('<span class="badge"></span>').addClass(cls).text(Number(score).toFixed(1));
      }

      function renderFailures() {
        var $tbody = $('#failureTable tbody').empty();
        var failures = evaluation.failures || [];
        if (!failures.length) {
          $tbody.append('<tr><td colspan="6" class="no-data">No failure cases found. All evaluations passed.</td></tr>');
          return;
        }
        failures.forEach(function(entry) {
          var $row = $('<tr></tr>');
          $row.append($('<td class="fw-semibold"></td>').text(entry.case_id || '-'));
          $row.append($('<td></td>').text(entry.reason || '-'));
          if (entry.reason === 'Processing Failed') {
            $row.append($('<td colspan="2" class="diagnosis-text"></td>').text(entry.error || 'Unknown error'));
            $row.append('<td>-</td>');
            $row.append('<td>-</td>');
          } else {
            $row.append($('<td class="diagnosis-text"></td>').text(entry.predicted || '-'));
            $row.append($('<td class="diagnosis-text"></td>').text(entry.expected || '-'));
            $row.append($('<td></td>').append(scoreBadge(entry.safety_score)));
            $row.append($('<td></td>').append(scoreBadge(entry.quality_score)));
          }
          $tbody.append($row);
        });
      }

      function buildAccuracyTrendChart() {
        var canvas = document.getElementById('accuracyTrendChart');
        if (!canvas) {
          return;
        }
        var points = evaluation.accuracy_trend || [];
        if (!points.length) {
          $('#accuracyTrendEmpty').text('No successful cases to chart.');
          return;
        }
        new Chart(canvas, {
          type: 'line',
          data: {
            labels: points.map(function(point) { return point.case; }),
            datasets: [{
              label: 'Cumulative accuracy',
              data: points.map(function(point) { return point.accuracy * 100; }),
              borderColor: '#3B82F6',
              backgroundColor: '#3B82F6',
              borderWidth: 3,
              pointRadius: 5,
              pointBackgroundColor: '#334155',
              tension: 0.15
            }]
          },
          options: {
            responsive: true,
            maintainAspectRatio: false,
            animation: false,
            scales: {
              x: {
                title: { display: true, text: 'Cases evaluated', color: '#64748B' },
                ticks: { color: '#64748B' },
                grid: { color: 'rgba(0, 0, 0, 0.05)' }
              },
              y: {
                suggestedMin: 0,
                suggestedMax: 100,
                title: { display: true, text: 'Cumulative accuracy (%)', color: '#64748B' },
                ticks: {
                  color: '#64748B',
                  callback: function(value) { return value + '%'; }
                },
                grid: { color: 'rgba(0, 0, 0, 0.05)' }
              }
            },
            plugins: {
              legend: { display: false },
              tooltip: {
                callbacks: {
                  label: function(context) {
                    return 'Accuracy: ' + Number(context.parsed.y).toFixed(1) + '%';
                  }
                }
              }
            }
          }
        });
      }

      function buildCostAccuracyChart() {
        var canvas = document.getElementById('costAccuracyChart');
        if (!canvas) {
          return;
        }
        var points = evaluation.cost_points || [];
        if (!points.length) {
          $('#costAccuracyEmpty').text('No successful cases to chart.');
          return;
        }
        var correct = [];
        var incorrect = [];
        points.forEach(function(point) {
          var entry = { x: point.cost, y: point.correct ? 1 : 0, caseId: point.case_id };
          if (point.correct) {
            correct.push(entry);
          } else {
            incorrect.push(entry);
          }
        });
        new Chart(canvas, {
          type: 'scatter',
          data: {
            datasets: [
              {
                label: 'Correct',
                data: correct,
                pointRadius: 7,
                pointHoverRadius: 10,
                pointBackgroundColor: '#10B981'
              },
              {
                label: 'Incorrect',
                data: incorrect,
                pointRadius: 7,
                pointHoverRadius: 10,
                pointStyle: 'crossRot',
                pointBorderWidth: 3,
                pointBorderColor: '#DC2626'
              }
            ]
          },
          options: {
            responsive: true,
            maintainAspectRatio: false,
            animation: false,
            scales: {
              x: {
                title: { display: true, text: 'Cost per query (USD)', color: '#64748B' },
                ticks: {
                  color: '#64748B',
                  callback: function(value) { return '$' + Number(value).toFixed(4); }
                },
                grid: { color: 'rgba(0, 0, 0, 0.05)' }
              },
              y: {
                min: -0.25,
                max: 1.25,
                title: { display: false },
                ticks: {
                  color: '#64748B',
                  stepSize: 1,
                  callback: function(value) {
                    if (value === 1) { return 'Correct'; }
                    if (value === 0) { return 'Incorrect'; }
                    return '';
                  }
                },
                grid: { color: 'rgba(0, 0, 0, 0.05)' }
              }
            },
            plugins: {
              tooltip: {
                callbacks: {
                  title: function(items) {
                    if (!items.length) {
                      return '';
                    }
                    var raw = items[0].raw || {};
                    return raw.caseId || '';
                  },
                  label: function(context) {
                    var raw = context.raw || {};
                    return 'Cost: $' + Number(raw.x).toFixed(4);
                  }
                }
              }
            }
          }
        });
      }

      function buildSafetyDistributionChart() {
        var canvas = document.getElementById('safetyDistributionChart');
        if (!canvas) {
          return;
        }
        var counts = evaluation.safety_counts || [];
        var total = counts.reduce(function(sum, value) { return sum + value; }, 0);
        if (!total) {
          $('#safetyDistributionEmpty').text('No safety scores to chart.');
          return;
        }
        new Chart(canvas, {
          type: 'bar',
          data: {
            labels: ['1', '2', '3', '4', '5'],
            datasets: [{
              label: 'Cases',
              data: counts,
              backgroundColor: '#3B82F6'
            }]
          },
          options: {
            responsive: true,
            maintainAspectRatio: false,
            animation: false,
            scales: {
              x: {
                title: { display: true, text: 'Safety score (1-5)', color: '#64748B' },
                ticks: { color: '#64748B' }
              },
              y: {
                title: { display: true, text: 'Number of cases', color: '#64748B' },
                ticks: { color: '#64748B', precision: 0 }
              }
            },
            plugins: {
              legend: { display: false }
            }
          }
        });
      }

      function buildLatencyPercentileChart() {
        var canvas = document.getElementById('latencyPercentileChart');
        if (!canvas) {
          return;
        }
        var latency = evaluation.latency;
        if (!latency) {
          $('#latencyPercentileEmpty').text('No latency data to chart.');
          return;
        }
        new Chart(canvas, {
          type: 'bar',
          data: {
            labels: ['P50', 'P95', 'P99', 'Mean'],
            datasets: [{
              label: 'Latency (ms)',
              data: [latency.p50, latency.p95, latency.p99, latency.mean],
              backgroundColor: ['#334155', '#3B82F6', '#60A5FA', '#94A3B8']
            }]
          },
          options: {
            responsive: true,
            maintainAspectRatio: false,
            animation: false,
            scales: {
              x: {
                ticks: { color: '#64748B' }
              },
              y: {
                title: { display: true, text: 'Latency (ms)', color: '#64748B' },
                ticks: { color: '#64748B' }
              }
            },
            plugins: {
              legend: { display: false }
            }
          }
        });
      }

      $(function() {
        if (!evaluation) {
          return;
        }
        renderHeader();
        renderCards();
        renderThresholds();
        renderFailures();
        buildAccuracyTrendChart();
        buildCostAccuracyChart();
        buildSafetyDistributionChart();
        buildLatencyPercentileChart();
      });
    })(jQuery);
  </script>
</body>
</html>
`
