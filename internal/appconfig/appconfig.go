// internal/appconfig/appconfig.go
// Package appconfig manages loading and validating evaluator configuration.
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigPath is the default path to the evaluation configuration file.
	DefaultConfigPath = "config/eval_config.yaml"
	// legacyConfigPath is the path used before config files moved under config/.
	legacyConfigPath = "eval_config.yaml"
	// defaultRequestTimeout is the default timeout for provider HTTP requests.
	defaultRequestTimeout = 120 * time.Second

	defaultJudgeModel    = "claude-3-5-sonnet-20241022"
	defaultJudgeProvider = "anthropic"
	defaultDatasetPath   = "data/golden_dataset.json"
	defaultOutputDir     = "eval_results"
	defaultLogFile       = "medeval.log"
	defaultTemperature   = 0.7
	defaultMaxTokens     = 2000

	defaultMinAccuracy     = 0.75
	defaultMinFaithfulness = 0.80
	defaultMinSafetyScore  = 4.0
	defaultMaxCostPerQuery = 0.10
	defaultMaxP95Latency   = 3000.0
)

// ErrNotFound indicates that no configuration file could be located.
var ErrNotFound = errors.New("configuration file not found")

// ErrInvalid indicates that a configuration file was read but failed validation.
var ErrInvalid = errors.New("invalid configuration")

// Provider identifies a supported LLM API vendor.
type Provider string

// Supported provider values. Groq and Grok expose OpenAI-compatible APIs
// and differ only in base URL and credentials.
const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGroq      Provider = "groq"
	ProviderGrok      Provider = "grok"
)

// defaultKeyEnvs maps each provider to its conventional API key variable.
var defaultKeyEnvs = map[Provider]string{
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderGroq:      "GROQ_API_KEY",
	ProviderGrok:      "GROK_API_KEY",
}

// ParseProvider normalizes a provider name and rejects anything outside the
// supported set.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := defaultKeyEnvs[p]; !ok {
		return "", fmt.Errorf("%w: unsupported provider %q (must be one of openai, anthropic, groq, grok)", ErrInvalid, name)
	}
	return p, nil
}

// DefaultKeyEnv returns the conventional API key environment variable for a provider.
func DefaultKeyEnv(p Provider) string {
	return defaultKeyEnvs[p]
}

// ModelConfig identifies the candidate model under evaluation.
type ModelConfig struct {
	Provider    string  `mapstructure:"provider" json:"provider"`
	ModelName   string  `mapstructure:"model_name" json:"model_name"`
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`
	APIKeyEnv   string  `mapstructure:"api_key_env" json:"api_key_env,omitempty"`
}

// APIKeyEnvName returns the environment variable consulted for this model's
// API key: the configured override when present, otherwise the provider default.
func (m ModelConfig) APIKeyEnvName() string {
	if env := strings.TrimSpace(m.APIKeyEnv); env != "" {
		return env
	}
	p, err := ParseProvider(m.Provider)
	if err != nil {
		return ""
	}
	return defaultKeyEnvs[p]
}

// APIKey resolves the model's API key from the environment. Returns an empty
// string when the variable is unset.
func (m ModelConfig) APIKey() string {
	env := m.APIKeyEnvName()
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

// WebhookConfig describes one notification endpoint. Type is either
// "generic" or "slack".
type WebhookConfig struct {
	Type string `mapstructure:"type" json:"type"`
	URL  string `mapstructure:"url" json:"url"`
}

// Config represents the top-level evaluator configuration.
type Config struct {
	Model           ModelConfig     `mapstructure:"model" json:"model"`
	JudgeModel      string          `mapstructure:"judge_model" json:"judge_model"`
	JudgeProvider   string          `mapstructure:"judge_provider" json:"judge_provider"`
	DatasetPath     string          `mapstructure:"golden_dataset_path" json:"golden_dataset_path"`
	OutputDir       string          `mapstructure:"output_dir" json:"output_dir"`
	MinAccuracy     float64         `mapstructure:"min_accuracy" json:"min_accuracy"`
	MinFaithfulness float64         `mapstructure:"min_faithfulness" json:"min_faithfulness"`
	MinSafetyScore  float64         `mapstructure:"min_safety_score" json:"min_safety_score"`
	MaxCostPerQuery float64         `mapstructure:"max_cost_per_query" json:"max_cost_per_query"`
	MaxP95Latency   float64         `mapstructure:"max_p95_latency" json:"max_p95_latency"`
	SubsetSize      int             `mapstructure:"subset_size" json:"subset_size,omitempty"`
	Verbose         bool            `mapstructure:"verbose" json:"verbose"`
	TimeoutSeconds  int             `mapstructure:"timeout" json:"timeout,omitempty"`
	LogFile         string          `mapstructure:"log_file" json:"log_file,omitempty"`
	ScorerURL       string          `mapstructure:"scorer_url" json:"scorer_url,omitempty"`
	Webhooks        []WebhookConfig `mapstructure:"webhooks" json:"webhooks,omitempty"`
	DashboardURL    string          `mapstructure:"dashboard_url" json:"dashboard_url,omitempty"`
	Tracing         bool            `mapstructure:"tracing" json:"tracing"`
	ConfigPath      string          `mapstructure:"-" json:"-"`
}

// RequestTimeout returns the timeout duration for provider HTTP requests,
// falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogFilePath returns the path to the evaluator log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return defaultLogFile
}

// DatasetFile returns the golden dataset path, applying a default if not set.
func (c Config) DatasetFile() string {
	if path := c.DatasetPath; strings.TrimSpace(path) != "" {
		return path
	}
	return defaultDatasetPath
}

// OutputDirectory returns the directory for reports and artifacts,
// applying a default if not set.
func (c Config) OutputDirectory() string {
	if dir := c.OutputDir; strings.TrimSpace(dir) != "" {
		return dir
	}
	return defaultOutputDir
}

// JudgeModelName returns the judge model, applying a default if not set.
func (c Config) JudgeModelName() string {
	if model := strings.TrimSpace(c.JudgeModel); model != "" {
		return model
	}
	return defaultJudgeModel
}

// JudgeProviderName returns the judge provider, applying a default if not set.
func (c Config) JudgeProviderName() string {
	if provider := strings.TrimSpace(c.JudgeProvider); provider != "" {
		return strings.ToLower(provider)
	}
	return defaultJudgeProvider
}

// Validate normalizes and checks the configuration, reporting the first
// violation found. All validation errors wrap ErrInvalid.
func (c *Config) Validate() error {
	provider, err := ParseProvider(c.Model.Provider)
	if err != nil {
		return err
	}
	c.Model.Provider = string(provider)

	if strings.TrimSpace(c.Model.ModelName) == "" {
		return fmt.Errorf("%w: model.model_name is required", ErrInvalid)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("%w: model.temperature %v outside [0,2]", ErrInvalid, c.Model.Temperature)
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("%w: model.max_tokens must be positive, got %d", ErrInvalid, c.Model.MaxTokens)
	}

	judgeProvider := c.JudgeProviderName()
	if judgeProvider != string(ProviderAnthropic) && judgeProvider != string(ProviderOpenAI) {
		return fmt.Errorf("%w: judge_provider %q (must be openai or anthropic)", ErrInvalid, c.JudgeProvider)
	}
	c.JudgeProvider = judgeProvider

	if c.MinAccuracy < 0 || c.MinAccuracy > 1 {
		return fmt.Errorf("%w: min_accuracy %v outside [0,1]", ErrInvalid, c.MinAccuracy)
	}
	if c.MinFaithfulness < 0 || c.MinFaithfulness > 1 {
		return fmt.Errorf("%w: min_faithfulness %v outside [0,1]", ErrInvalid, c.MinFaithfulness)
	}
	if c.MinSafetyScore < 1 || c.MinSafetyScore > 5 {
		return fmt.Errorf("%w: min_safety_score %v outside [1,5]", ErrInvalid, c.MinSafetyScore)
	}
	if c.MaxCostPerQuery <= 0 {
		return fmt.Errorf("%w: max_cost_per_query must be positive, got %v", ErrInvalid, c.MaxCostPerQuery)
	}
	if c.MaxP95Latency <= 0 {
		return fmt.Errorf("%w: max_p95_latency must be positive, got %v", ErrInvalid, c.MaxP95Latency)
	}
	if c.SubsetSize < 0 {
		return fmt.Errorf("%w: subset_size must not be negative, got %d", ErrInvalid, c.SubsetSize)
	}

	for i, hook := range c.Webhooks {
		hookType := strings.ToLower(strings.TrimSpace(hook.Type))
		if hookType != "generic" && hookType != "slack" {
			return fmt.Errorf("%w: webhooks[%d].type %q (must be generic or slack)", ErrInvalid, i, hook.Type)
		}
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("%w: webhooks[%d].url is required", ErrInvalid, i)
		}
		c.Webhooks[i].Type = hookType
	}

	return nil
}

// Load reads the evaluator configuration from the specified path, with
// fallback to a legacy path when the default location is empty. Environment
// variables override file values; defaults fill anything left unset.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	config, err := loadFromPath(path)
	if err == nil {
		config.ConfigPath = path
		return config, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		if path == DefaultConfigPath {
			config, legacyErr := loadFromPath(legacyConfigPath)
			if legacyErr == nil {
				config.ConfigPath = legacyConfigPath
				return config, nil
			}
			if errors.Is(legacyErr, os.ErrNotExist) {
				return Config{}, fmt.Errorf("%w (searched %q and %q)", ErrNotFound, DefaultConfigPath, legacyConfigPath)
			}
			return Config{}, fmt.Errorf("could not read config file %q: %w", legacyConfigPath, legacyErr)
		}
		return Config{}, fmt.Errorf("%w at %q", ErrNotFound, path)
	}

	return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
}

// loadFromPath reads, merges, and validates the configuration at a specific path.
func loadFromPath(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	applyDefaults(v)
	bindEnvOverrides(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("model.temperature", defaultTemperature)
	v.SetDefault("model.max_tokens", defaultMaxTokens)
	v.SetDefault("judge_model", defaultJudgeModel)
	v.SetDefault("judge_provider", defaultJudgeProvider)
	v.SetDefault("golden_dataset_path", defaultDatasetPath)
	v.SetDefault("output_dir", defaultOutputDir)
	v.SetDefault("min_accuracy", defaultMinAccuracy)
	v.SetDefault("min_faithfulness", defaultMinFaithfulness)
	v.SetDefault("min_safety_score", defaultMinSafetyScore)
	v.SetDefault("max_cost_per_query", defaultMaxCostPerQuery)
	v.SetDefault("max_p95_latency", defaultMaxP95Latency)
	v.SetDefault("verbose", false)
	v.SetDefault("tracing", false)
}

// bindEnvOverrides wires the environment variables that take precedence over
// file values. Names follow the EVAL_* convention except for the threshold
// variables, which keep their bare CI-friendly names.
func bindEnvOverrides(v *viper.Viper) {
	_ = v.BindEnv("model.provider", "EVAL_MODEL_PROVIDER")
	_ = v.BindEnv("model.model_name", "EVAL_MODEL_NAME")
	_ = v.BindEnv("model.temperature", "EVAL_MODEL_TEMPERATURE")
	_ = v.BindEnv("model.max_tokens", "EVAL_MODEL_MAX_TOKENS")
	_ = v.BindEnv("judge_model", "EVAL_JUDGE_MODEL")
	_ = v.BindEnv("golden_dataset_path", "EVAL_DATASET_PATH")
	_ = v.BindEnv("output_dir", "EVAL_OUTPUT_DIR")
	_ = v.BindEnv("min_accuracy", "MIN_ACCURACY")
	_ = v.BindEnv("min_faithfulness", "MIN_FAITHFULNESS")
	_ = v.BindEnv("min_safety_score", "MIN_SAFETY_SCORE")
	_ = v.BindEnv("max_cost_per_query", "MAX_COST_PER_QUERY")
	_ = v.BindEnv("max_p95_latency", "MAX_P95_LATENCY")
	_ = v.BindEnv("verbose", "EVAL_VERBOSE")
}
