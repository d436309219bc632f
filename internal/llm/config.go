package llm

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "anthropic", "openai", "gemini", "openrouter", "mock"
	Provider string `yaml:"provider"`

	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Retry      RetryConfig      `yaml:"retry"`

	// Timeout bounds a single attempt. Backoff sleeps are not counted.
	// Default: 60s.
	Timeout time.Duration `yaml:"timeout"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: "claude-haiku"
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`    // Default: "gpt-4o-mini"
	BaseURL string `yaml:"base_url"` // Optional. Override for compatible APIs.

	// HTTPClient overrides the SDK's default client. Not read from YAML.
	HTTPClient *http.Client `yaml:"-"`
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: "gemini-flash"
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`    // Default: "google/gemini-2.0-flash-exp"
	BaseURL string `yaml:"base_url"` // Default: "https://openrouter.ai/api/v1"

	// Attribution headers shown on the OpenRouter dashboard. Default AppName: "lumen".
	AppName string `yaml:"app_name"`
	SiteURL string `yaml:"site_url"`
}

// RetryConfig configures backoff for rate-limited requests.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`

	// maxRetriesSet records an explicit max_retries, so 0 survives
	// ApplyDefaults.
	maxRetriesSet bool
}

func (r *RetryConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxRetries *int          `yaml:"max_retries"`
		BaseDelay  time.Duration `yaml:"base_delay"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*r = RetryConfig{BaseDelay: raw.BaseDelay}
	if raw.MaxRetries != nil {
		if *raw.MaxRetries < 0 {
			return fmt.Errorf("max_retries must not be negative, got %d", *raw.MaxRetries)
		}
		r.MaxRetries = *raw.MaxRetries
		r.maxRetriesSet = true
	}
	return nil
}

// DefaultConfig selects Anthropic's small model with three retries.
func DefaultConfig() Config {
	return Config{
		Provider: "anthropic",
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "google/gemini-2.0-flash-exp",
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  3 * time.Second,
		},
		Timeout: 60 * time.Second,
	}
}

// ApplyEnv overrides fields from LUMEN_* environment variables.
func (cfg *Config) ApplyEnv() {
	for _, o := range []struct {
		env string
		dst *string
	}{
		{"LUMEN_LLM_PROVIDER", &cfg.Provider},
		{"LUMEN_ANTHROPIC_API_KEY", &cfg.Anthropic.APIKey},
		{"LUMEN_ANTHROPIC_MODEL", &cfg.Anthropic.Model},
		{"LUMEN_OPENAI_API_KEY", &cfg.OpenAI.APIKey},
		{"LUMEN_OPENAI_MODEL", &cfg.OpenAI.Model},
		{"LUMEN_OPENAI_BASE_URL", &cfg.OpenAI.BaseURL},
		{"LUMEN_GEMINI_API_KEY", &cfg.Gemini.APIKey},
		{"LUMEN_GEMINI_MODEL", &cfg.Gemini.Model},
		{"LUMEN_OPENROUTER_API_KEY", &cfg.OpenRouter.APIKey},
		{"LUMEN_OPENROUTER_MODEL", &cfg.OpenRouter.Model},
	} {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

// ApplyDefaults fills zero values from DefaultConfig, leaving set fields alone.
func (cfg *Config) ApplyDefaults() {
	def := DefaultConfig()
	if cfg.Provider == "" {
		cfg.Provider = def.Provider
	}
	if cfg.Anthropic.Model == "" {
		cfg.Anthropic.Model = def.Anthropic.Model
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = def.OpenAI.Model
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = def.Gemini.Model
	}
	if cfg.OpenRouter.Model == "" {
		cfg.OpenRouter.Model = def.OpenRouter.Model
	}
	if cfg.Retry.MaxRetries == 0 && !cfg.Retry.maxRetriesSet {
		cfg.Retry.MaxRetries = def.Retry.MaxRetries
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = def.Retry.BaseDelay
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
}

// DiscoverConfig looks for the vendors' own API key variables, in the
// order Gemini, OpenAI, Anthropic, OpenRouter, and selects the first
// provider found. ok is false when none is set.
func DiscoverConfig() (cfg Config, ok bool) {
	cfg = DefaultConfig()
	for _, c := range []struct {
		provider string
		env      string
		key      *string
	}{
		{"gemini", "GEMINI_API_KEY", &cfg.Gemini.APIKey},
		{"openai", "OPENAI_API_KEY", &cfg.OpenAI.APIKey},
		{"anthropic", "ANTHROPIC_API_KEY", &cfg.Anthropic.APIKey},
		{"openrouter", "OPENROUTER_API_KEY", &cfg.OpenRouter.APIKey},
	} {
		if k := os.Getenv(c.env); k != "" {
			cfg.Provider = c.provider
			*c.key = k
			return cfg, true
		}
	}
	return Config{}, false
}

// Validate checks that the selected provider is known and has a key.
func (c Config) Validate() error {
	var key string
	switch c.Provider {
	case "mock":
		return nil
	case "anthropic":
		key = c.Anthropic.APIKey
	case "openai":
		key = c.OpenAI.APIKey
	case "gemini":
		key = c.Gemini.APIKey
	case "openrouter":
		key = c.OpenRouter.APIKey
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("LUMEN_%s_API_KEY is required for the %s provider", strings.ToUpper(c.Provider), c.Provider)
	}
	return nil
}
