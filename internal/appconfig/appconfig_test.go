// internal/appconfig/appconfig_test.go
package appconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eval_config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestLoad verifies that a valid configuration file is loaded with defaults
// applied, that provider names are normalized, and that unreadable or missing
// files produce the appropriate errors.
func TestLoad(t *testing.T) {
	validConfig := `
model:
  provider: OpenAI
  model_name: gpt-4o
  temperature: 0.5
judge_provider: openai
judge_model: gpt-4o
min_accuracy: 0.8
`
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() with valid config failed: %v", err)
	}
	if cfg.Model.Provider != "openai" {
		t.Fatalf("expected normalized provider openai, got %q", cfg.Model.Provider)
	}
	if cfg.Model.ModelName != "gpt-4o" {
		t.Fatalf("unexpected model name %q", cfg.Model.ModelName)
	}
	if cfg.Model.Temperature != 0.5 {
		t.Fatalf("expected temperature 0.5, got %v", cfg.Model.Temperature)
	}
	if cfg.Model.MaxTokens != 2000 {
		t.Fatalf("expected default max_tokens 2000, got %d", cfg.Model.MaxTokens)
	}
	if cfg.MinAccuracy != 0.8 {
		t.Fatalf("expected min_accuracy 0.8, got %v", cfg.MinAccuracy)
	}
	if cfg.MinFaithfulness != 0.80 {
		t.Fatalf("expected default min_faithfulness 0.80, got %v", cfg.MinFaithfulness)
	}
	if cfg.MinSafetyScore != 4.0 {
		t.Fatalf("expected default min_safety_score 4.0, got %v", cfg.MinSafetyScore)
	}
	if cfg.MaxCostPerQuery != 0.10 {
		t.Fatalf("expected default max_cost_per_query 0.10, got %v", cfg.MaxCostPerQuery)
	}
	if cfg.MaxP95Latency != 3000.0 {
		t.Fatalf("expected default max_p95_latency 3000, got %v", cfg.MaxP95Latency)
	}
	if cfg.RequestTimeout() != 120*time.Second {
		t.Fatalf("expected default request timeout of 120s, got %v", cfg.RequestTimeout())
	}
	if cfg.ConfigPath != path {
		t.Fatalf("expected ConfigPath %q, got %q", path, cfg.ConfigPath)
	}

	invalidYAML := "model: [unclosed"
	badPath := writeConfig(t, invalidYAML)
	if _, err := Load(badPath); err == nil {
		t.Fatal("Load() with invalid YAML should have failed")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() with nonexistent file: expected ErrNotFound, got %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	config := `
model:
  provider: openai
  model_name: gpt-4o
`
	t.Setenv("EVAL_MODEL_NAME", "gpt-4o-mini")
	t.Setenv("MIN_ACCURACY", "0.9")
	t.Setenv("EVAL_VERBOSE", "true")

	cfg, err := Load(writeConfig(t, config))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Model.ModelName != "gpt-4o-mini" {
		t.Fatalf("expected env override for model name, got %q", cfg.Model.ModelName)
	}
	if cfg.MinAccuracy != 0.9 {
		t.Fatalf("expected env override min_accuracy 0.9, got %v", cfg.MinAccuracy)
	}
	if !cfg.Verbose {
		t.Fatal("expected env override verbose=true")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Model: ModelConfig{
				Provider:    "openai",
				ModelName:   "gpt-4o",
				Temperature: 0.7,
				MaxTokens:   2000,
			},
			JudgeProvider:   "anthropic",
			MinAccuracy:     0.75,
			MinFaithfulness: 0.80,
			MinSafetyScore:  4.0,
			MaxCostPerQuery: 0.10,
			MaxP95Latency:   3000.0,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}, wantErr: false},
		{name: "uppercase provider normalized", mutate: func(c *Config) { c.Model.Provider = "Anthropic" }, wantErr: false},
		{name: "unsupported provider", mutate: func(c *Config) { c.Model.Provider = "fireworks" }, wantErr: true},
		{name: "missing model name", mutate: func(c *Config) { c.Model.ModelName = " " }, wantErr: true},
		{name: "temperature too high", mutate: func(c *Config) { c.Model.Temperature = 2.5 }, wantErr: true},
		{name: "non-positive max tokens", mutate: func(c *Config) { c.Model.MaxTokens = 0 }, wantErr: true},
		{name: "bad judge provider", mutate: func(c *Config) { c.JudgeProvider = "groq" }, wantErr: true},
		{name: "accuracy above one", mutate: func(c *Config) { c.MinAccuracy = 1.5 }, wantErr: true},
		{name: "safety below one", mutate: func(c *Config) { c.MinSafetyScore = 0.5 }, wantErr: true},
		{name: "zero cost budget", mutate: func(c *Config) { c.MaxCostPerQuery = 0 }, wantErr: true},
		{name: "negative subset", mutate: func(c *Config) { c.SubsetSize = -1 }, wantErr: true},
		{name: "bad webhook type", mutate: func(c *Config) {
			c.Webhooks = []WebhookConfig{{Type: "teams", URL: "https://example.com"}}
		}, wantErr: true},
		{name: "webhook missing url", mutate: func(c *Config) {
			c.Webhooks = []WebhookConfig{{Type: "slack"}}
		}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected error wrapping ErrInvalid, got %v", err)
			}
		})
	}
}

func TestParseProvider(t *testing.T) {
	if p, err := ParseProvider(" Groq "); err != nil || p != ProviderGroq {
		t.Fatalf("ParseProvider(Groq)=%q,%v", p, err)
	}
	if _, err := ParseProvider("fireworks"); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestAccessorDefaults(t *testing.T) {
	var cfg Config
	if got := cfg.LogFilePath(); got != "medeval.log" {
		t.Fatalf("LogFilePath=%q", got)
	}
	if got := cfg.DatasetFile(); got != "data/golden_dataset.json" {
		t.Fatalf("DatasetFile=%q", got)
	}
	if got := cfg.OutputDirectory(); got != "eval_results" {
		t.Fatalf("OutputDirectory=%q", got)
	}
	if got := cfg.JudgeModelName(); got != "claude-3-5-sonnet-20241022" {
		t.Fatalf("JudgeModelName=%q", got)
	}
	if got := cfg.JudgeProviderName(); got != "anthropic" {
		t.Fatalf("JudgeProviderName=%q", got)
	}
	if got := cfg.RequestTimeout(); got != 120*time.Second {
		t.Fatalf("RequestTimeout=%v", got)
	}
}

func TestAPIKeyResolution(t *testing.T) {
	model := ModelConfig{Provider: "groq", ModelName: "llama-3.3-70b"}
	if got := model.APIKeyEnvName(); got != "GROQ_API_KEY" {
		t.Fatalf("APIKeyEnvName=%q want GROQ_API_KEY", got)
	}

	model.APIKeyEnv = "CUSTOM_KEY"
	if got := model.APIKeyEnvName(); got != "CUSTOM_KEY" {
		t.Fatalf("APIKeyEnvName override=%q want CUSTOM_KEY", got)
	}

	t.Setenv("CUSTOM_KEY", "sk-test-123")
	if got := model.APIKey(); got != "sk-test-123" {
		t.Fatalf("APIKey=%q want sk-test-123", got)
	}
}
