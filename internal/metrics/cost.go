// internal/metrics/cost.go
package metrics

import "github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/util"

// Pricing is the cost in USD per one million tokens for a model.
type Pricing struct {
	Input  float64
	Output float64
}

// apiPricing lists per-1M-token prices as of January 2024. Unknown models
// fall back to the "default" entry.
var apiPricing = map[string]Pricing{
	"gpt-4o":                     {Input: 2.50, Output: 10.00},
	"gpt-4-turbo":                {Input: 10.00, Output: 30.00},
	"gpt-3.5-turbo":              {Input: 0.50, Output: 1.50},
	"claude-3-5-sonnet-20241022": {Input: 3.00, Output: 15.00},
	"claude-3-opus":              {Input: 15.00, Output: 75.00},
	"claude-3-sonnet":            {Input: 3.00, Output: 15.00},
	"claude-3-haiku":             {Input: 0.25, Output: 1.25},
	"default":                    {Input: 5.00, Output: 15.00},
}

// PricingFor returns the pricing for modelName, or default pricing when the
// model is not listed.
func PricingFor(modelName string) Pricing {
	if pricing, ok := apiPricing[modelName]; ok {
		return pricing
	}
	return apiPricing["default"]
}

// CostTrace captures the token usage of a single model call.
type CostTrace struct {
	ModelUsed    string
	Model        string
	InputTokens  int
	OutputTokens int
	TokensUsed   int
}

// CostSummary totals API spend across a run.
type CostSummary struct {
	TotalCost         float64 `json:"total_cost"`
	CostPerQuery      float64 `json:"cost_per_query"`
	TotalInputTokens  int     `json:"total_input_tokens"`
	TotalOutputTokens int     `json:"total_output_tokens"`
	TotalTokens       int     `json:"total_tokens"`
}

// Cost computes spend from per-call token usage. The model for each trace
// resolves in order: the trace's reported model, then the caller-supplied
// name, then default pricing. Traces that only report a combined token
// count are split 60/40 between input and output.
func Cost(traces []CostTrace, modelName string) CostSummary {
	if len(traces) == 0 {
		return CostSummary{}
	}

	var summary CostSummary
	totalCost := 0.0
	for _, trace := range traces {
		model := trace.ModelUsed
		if model == "" {
			model = trace.Model
		}
		if model == "" {
			model = modelName
		}
		if model == "" {
			model = "default"
		}
		pricing := PricingFor(model)

		inputTokens := trace.InputTokens
		outputTokens := trace.OutputTokens
		if inputTokens == 0 && outputTokens == 0 && trace.TokensUsed > 0 {
			inputTokens = int(float64(trace.TokensUsed) * 0.6)
			outputTokens = int(float64(trace.TokensUsed) * 0.4)
		}

		totalCost += float64(inputTokens)/1_000_000*pricing.Input +
			float64(outputTokens)/1_000_000*pricing.Output
		summary.TotalInputTokens += inputTokens
		summary.TotalOutputTokens += outputTokens
	}

	summary.TotalCost = util.RoundTo(totalCost, 4)
	summary.CostPerQuery = util.RoundTo(totalCost/float64(len(traces)), 4)
	summary.TotalTokens = summary.TotalInputTokens + summary.TotalOutputTokens
	return summary
}
