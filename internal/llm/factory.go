package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/algotutor/internal/store"
)

// NewProvider creates a Provider from configuration, wrapped so that every
// attempt is recorded and transient failures are retried.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return NewOfflineProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// caller -> retry -> logging -> base
	if eventRepo != nil {
		base = WithLogging(base, cfg.Provider, eventRepo)
	}
	return WithRetry(base, cfg.Retry), nil
}

// Providers bundles the chat provider and the (usually cheaper) routing
// provider built from one Config.
type Providers struct {
	Chat   Provider
	Router Provider
}

// NewProviders builds both providers. When no router model is configured
// the chat provider is reused with the routing retry budget.
func NewProviders(ctx context.Context, cfg Config, eventRepo store.EventRepo) (*Providers, error) {
	chat, err := NewProvider(ctx, cfg, eventRepo)
	if err != nil {
		return nil, err
	}
	router, err := NewProvider(ctx, cfg.ForRouting(), eventRepo)
	if err != nil {
		return nil, fmt.Errorf("router provider: %w", err)
	}
	return &Providers{Chat: chat, Router: router}, nil
}
