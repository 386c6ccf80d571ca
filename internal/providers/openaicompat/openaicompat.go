// internal/providers/openaicompat/openaicompat.go

// Package openaicompat implements the chat provider for OpenAI and for
// vendors exposing OpenAI-compatible chat completion APIs (Groq, Grok).
// The vendors differ only in base URL, credentials, and whether the
// json_object response format is honored.
package openaicompat

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/logging"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/providers"
)

// Base URLs for the supported OpenAI-compatible vendors. OpenAI itself uses
// the SDK default.
const (
	GroqBaseURL = "https://api.groq.com/openai/v1"
	GrokBaseURL = "https://api.x.ai/v1"
)

// Options configures a Provider instance.
type Options struct {
	// Name is the stable provider identifier ("openai", "groq", "grok").
	Name string
	// APIKey authenticates requests. Required.
	APIKey string
	// BaseURL overrides the SDK default endpoint. Empty means api.openai.com.
	BaseURL string
	// JSONMode marks the endpoint as honoring the json_object response
	// format. Only OpenAI proper does.
	JSONMode bool
	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// Provider talks to one OpenAI-compatible endpoint.
type Provider struct {
	client   *openai.Client
	name     string
	jsonMode bool
}

// New creates a provider for the configured endpoint.
func New(opts Options) (*Provider, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%s: API key is required", opts.Name)
	}

	clientConfig := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Provider{
		client:   openai.NewClientWithConfig(clientConfig),
		name:     opts.Name,
		jsonMode: opts.JSONMode,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Complete sends one chat completion request and returns the full response.
func (p *Provider) Complete(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode && p.jsonMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	logging.LogRequest("EVAL->LLM", p.name, req.Model, req.CaseID, chatReq)

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s: chat completion failed: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: chat completion returned no choices", p.name)
	}

	content := resp.Choices[0].Message.Content
	logging.LogRequest("LLM->EVAL", p.name, req.Model, req.CaseID, content)

	return &providers.ChatResponse{
		Content:      content,
		Model:        req.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Close cleans up provider resources. The SDK client holds none.
func (p *Provider) Close() error {
	return nil
}
