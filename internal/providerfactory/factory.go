// internal/providerfactory/factory.go
package providerfactory

import (
	"fmt"
	"time"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/appconfig"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/providers"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/providers/anthropic"
	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/providers/openaicompat"
)

// NewChatProvider selects and configures the chat provider for a model. The
// provider name and its API key are resolved once here, at startup; nothing
// downstream consults the environment.
func NewChatProvider(model appconfig.ModelConfig, timeout time.Duration) (providers.ChatProvider, error) {
	provider, err := appconfig.ParseProvider(model.Provider)
	if err != nil {
		return nil, err
	}

	apiKey := model.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("missing API key for provider %s: set %s", provider, model.APIKeyEnvName())
	}

	switch provider {
	case appconfig.ProviderOpenAI:
		return openaicompat.New(openaicompat.Options{
			Name:     "openai",
			APIKey:   apiKey,
			JSONMode: true,
			Timeout:  timeout,
		})
	case appconfig.ProviderGroq:
		return openaicompat.New(openaicompat.Options{
			Name:    "groq",
			APIKey:  apiKey,
			BaseURL: openaicompat.GroqBaseURL,
			Timeout: timeout,
		})
	case appconfig.ProviderGrok:
		return openaicompat.New(openaicompat.Options{
			Name:    "grok",
			APIKey:  apiKey,
			BaseURL: openaicompat.GrokBaseURL,
			Timeout: timeout,
		})
	case appconfig.ProviderAnthropic:
		return anthropic.New(apiKey, timeout)
	default:
		return nil, fmt.Errorf("unsupported provider %q", model.Provider)
	}
}

// NewJudgeProvider configures the provider used by the safety and quality
// judges. Judges are restricted to OpenAI or Anthropic.
func NewJudgeProvider(cfg *appconfig.Config) (providers.ChatProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}

	judgeProvider, err := appconfig.ParseProvider(cfg.JudgeProviderName())
	if err != nil {
		return nil, err
	}
	if judgeProvider != appconfig.ProviderOpenAI && judgeProvider != appconfig.ProviderAnthropic {
		return nil, fmt.Errorf("unsupported judge provider %q (must be openai or anthropic)", judgeProvider)
	}

	model := appconfig.ModelConfig{
		Provider:  string(judgeProvider),
		ModelName: cfg.JudgeModelName(),
	}
	return NewChatProvider(model, cfg.RequestTimeout())
}
