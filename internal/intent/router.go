// Package intent decides which persona should answer a user message.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/algotutor/internal/llm"
	"github.com/abhisek/algotutor/internal/tutor"
)

// FallbackReasoning is reported whenever routing fails and the current
// persona is kept.
const FallbackReasoning = "Error in routing"

// Decision is the router's verdict for one message.
type Decision struct {
	Target    tutor.Persona `json:"target_agent"`
	Reasoning string        `json:"reasoning"`
}

// Router classifies user messages with a lightweight LLM call.
type Router struct {
	provider  llm.Provider
	maxTokens int
}

// NewRouter returns a Router backed by provider.
func NewRouter(provider llm.Provider) *Router {
	return &Router{provider: provider, maxTokens: 256}
}

// Route returns the persona that should handle userInput. It never fails:
// any provider, parse or validation error keeps the current persona and
// reports FallbackReasoning.
func (r *Router) Route(ctx context.Context, userInput string, current tutor.Persona) Decision {
	d, err := r.classify(ctx, userInput, current)
	if err != nil {
		slog.WarnContext(ctx, "intent routing failed, keeping current persona",
			"persona", current, "error", err)
		return Decision{Target: current, Reasoning: FallbackReasoning}
	}
	return d
}

func (r *Router) classify(ctx context.Context, userInput string, current tutor.Persona) (Decision, error) {
	if r.provider == nil {
		return Decision{}, errors.New("no provider configured")
	}

	ctx = llm.WithPurpose(ctx, llm.PurposeRouting)
	resp, err := r.provider.Generate(ctx, llm.Request{
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: BuildPrompt(userInput, current)}},
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("generate: %w", err)
	}

	return ParseDecision(resp.Text())
}

// ParseDecision extracts a Decision from raw model output. A surrounding
// ```json fence (or a bare ``` fence) is stripped before decoding.
func ParseDecision(text string) (Decision, error) {
	raw := json.RawMessage(stripFence(text))
	if len(raw) == 0 {
		return Decision{}, errors.New("empty routing response")
	}
	if err := llm.ValidateJSON(routeSchema, raw); err != nil {
		return Decision{}, err
	}

	var d Decision
	if err := json.Unmarshal(raw, &d); err != nil {
		return Decision{}, fmt.Errorf("decode routing response: %w", err)
	}
	return d, nil
}

func stripFence(text string) string {
	s := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimPrefix(s, "```json")
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
	default:
		return s
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
