// internal/providers/anthropic/anthropic.go

// Package anthropic implements the chat provider for Anthropic's Messages
// API. Unlike the OpenAI-compatible vendors, the system prompt travels as a
// dedicated request parameter rather than a message.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/logging"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/providers"
)

// Provider talks to the Anthropic Messages API.
type Provider struct {
	client sdk.Client
}

// New creates an Anthropic provider. The timeout bounds each HTTP request;
// zero keeps the SDK default.
func New(apiKey string, timeout time.Duration) (*Provider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}

	options := []option.RequestOption{option.WithAPIKey(apiKey)}
	if timeout > 0 {
		options = append(options, option.WithHTTPClient(&http.Client{Timeout: timeout}))
	}

	return &Provider{client: sdk.NewClient(options...)}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "anthropic"
}

// Complete sends one message request and returns the concatenated text
// blocks of the response.
func (p *Provider) Complete(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	params := sdk.MessageNewParams{
		Model:       sdk.Model(req.Model),
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.UserPrompt))},
		MaxTokens:   int64(req.MaxTokens),
		Temperature: sdk.Float(req.Temperature),
	}
	if req.SystemPrompt != "" {
		params.System = []sdk.TextBlockParam{
			{
				Type: "text",
				Text: req.SystemPrompt,
			},
		}
	}

	logging.LogRequest("EVAL->LLM", "anthropic", req.Model, req.CaseID, params)

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: message request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	content := text.String()

	logging.LogRequest("LLM->EVAL", "anthropic", req.Model, req.CaseID, content)

	return &providers.ChatResponse{
		Content:      content,
		Model:        req.Model,
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

// Close cleans up provider resources. The SDK client holds none.
func (p *Provider) Close() error {
	return nil
}
