package llm

import (
	"fmt"
	"os"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "gemini", "anthropic", "openai", "openrouter", "mock"
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// RouterModel overrides the model used for intent routing. Empty means
	// the provider's chat model.
	RouterModel string

	// Timeout bounds a single chat turn's LLM call, retries included.
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey string
	Model  string // Default: "claude-haiku"
}

type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o-mini"
	BaseURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string // Default: "gemini-flash-lite"
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string // Default: "google/gemini-2.5-flash-lite"
	BaseURL string // Default: "https://openrouter.ai/api/v1"
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "gemini",
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash-lite",
		},
		OpenRouter: OpenRouterConfig{
			Model: "google/gemini-2.5-flash-lite",
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			InitialWait: 1 * time.Second,
			MaxWait:     20 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 60 * time.Second,
	}
}

// ConfigFromEnv builds a Config from ALGOTUTOR_* environment variables,
// falling back to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	applyEnv(&cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&cfg.Provider, "ALGOTUTOR_LLM_PROVIDER")
	setString(&cfg.RouterModel, "ALGOTUTOR_ROUTER_MODEL")

	setString(&cfg.Anthropic.APIKey, "ALGOTUTOR_ANTHROPIC_API_KEY")
	setString(&cfg.Anthropic.Model, "ALGOTUTOR_ANTHROPIC_MODEL")

	setString(&cfg.OpenAI.APIKey, "ALGOTUTOR_OPENAI_API_KEY")
	setString(&cfg.OpenAI.Model, "ALGOTUTOR_OPENAI_MODEL")
	setString(&cfg.OpenAI.BaseURL, "ALGOTUTOR_OPENAI_BASE_URL")

	setString(&cfg.Gemini.APIKey, "ALGOTUTOR_GEMINI_API_KEY")
	setString(&cfg.Gemini.Model, "ALGOTUTOR_GEMINI_MODEL")

	setString(&cfg.OpenRouter.APIKey, "ALGOTUTOR_OPENROUTER_API_KEY")
	setString(&cfg.OpenRouter.Model, "ALGOTUTOR_OPENROUTER_MODEL")
	setString(&cfg.OpenRouter.BaseURL, "ALGOTUTOR_OPENROUTER_BASE_URL")

	if v := os.Getenv("ALGOTUTOR_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
}

// DiscoverConfig probes standard API key env vars in priority order
// (Gemini, then GOOGLE_API_KEY, OpenAI, Anthropic, OpenRouter) and returns
// a Config for the first provider whose key is found. Returns
// (Config{}, false) if none found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	for _, key := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if k := os.Getenv(key); k != "" {
			cfg.Provider = "gemini"
			cfg.Gemini.APIKey = k
			return cfg, true
		}
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider = "openrouter"
		cfg.OpenRouter.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// ResolveConfig prefers explicit ALGOTUTOR_* settings and falls back to
// key discovery when no provider key is set explicitly.
func ResolveConfig() Config {
	cfg := ConfigFromEnv()
	if cfg.Validate() == nil || os.Getenv("ALGOTUTOR_LLM_PROVIDER") != "" {
		return cfg
	}
	if discovered, ok := DiscoverConfig(); ok {
		applyEnv(&discovered)
		return discovered
	}
	return cfg
}

// ForRouting returns a copy of c tuned for the intent router: the router
// model when set, and fewer retry attempts.
func (c Config) ForRouting() Config {
	rc := c
	if c.RouterModel != "" {
		switch c.Provider {
		case "anthropic":
			rc.Anthropic.Model = c.RouterModel
		case "openai":
			rc.OpenAI.Model = c.RouterModel
		case "gemini":
			rc.Gemini.Model = c.RouterModel
		case "openrouter":
			rc.OpenRouter.Model = c.RouterModel
		}
	}
	if rc.Retry.MaxAttempts > 3 {
		rc.Retry.MaxAttempts = 3
	}
	return rc
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("ALGOTUTOR_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("ALGOTUTOR_OPENAI_API_KEY is required for the openai provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("ALGOTUTOR_GEMINI_API_KEY is required for the gemini provider")
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("ALGOTUTOR_OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
