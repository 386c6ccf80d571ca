// internal/providers/provider.go

// Package providers defines the interface for talking to hosted LLM APIs.
// It gives the diagnosis generator and the judges a common abstraction over
// the underlying vendor SDKs (OpenAI-compatible endpoints and Anthropic).
package providers

import (
	"context"
)

// ChatRequest encapsulates a single-turn completion request. The evaluator
// only ever sends one system prompt and one user prompt per call.
type ChatRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	// JSONMode asks the vendor for a JSON object response where the endpoint
	// supports it. Providers without structured output ignore it.
	JSONMode bool
	// CaseID correlates request logs with the golden dataset case being
	// processed. Empty for calls outside case processing.
	CaseID string
}

// ChatResponse is the completed model output plus its token accounting.
type ChatResponse struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

// TotalTokens returns the combined prompt and completion token count.
func (r *ChatResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// ChatProvider is the interface that all model providers must implement.
type ChatProvider interface {
	// Complete sends a single completion request and blocks until the full
	// response is available or ctx is done.
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// Name returns the stable lowercase provider identifier used in logs.
	Name() string
	// Close cleans up any resources used by the provider.
	Close() error
}
