package llm

import "fmt"

const openRouterURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider is the Chat Completions client aimed at OpenRouter.
// Model IDs carry the vendor ("google/gemini-2.5-flash-lite") and are
// sent unchanged.
type OpenRouterProvider struct {
	*OpenAIProvider
}

func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = openRouterURL
	}
	return &OpenRouterProvider{newChatCompletions(cfg.APIKey, base, cfg.Model)}, nil
}
