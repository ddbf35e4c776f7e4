// Package llm talks to the chat models behind the tutor and the intent
// router. Providers are plain text in, plain text out; the router parses
// its own JSON.
package llm

import (
	"context"
	"strings"
)

// Provider generates one assistant turn.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID is the model requests are sent to.
	ModelID() string
}

// Request is a system prompt plus the conversation so far.
type Request struct {
	System string

	// Messages is oldest first. A tutor turn carries the recent transcript
	// and the new student message; a routing call carries one message.
	Messages []Message

	MaxTokens int

	// Temperature 0 leaves the provider default.
	Temperature float64
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema used by ValidateJSON.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the model's reply.
type Response struct {
	// Content holds the reply text as the model produced it. It may be
	// empty; callers decide what an empty turn means.
	Content string

	Usage Usage

	// Model is the model that actually answered, which can differ from
	// ModelID behind OpenRouter.
	Model string

	// StopReason is one of "end", "max_tokens" or "blocked".
	StopReason string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Text returns the reply as a string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return r.Content
}

// normalizeTurns prepares a transcript for providers that insist on
// strictly alternating turns starting with the user. Blank messages are
// dropped, leading assistant turns are skipped and consecutive turns of
// the same role are joined.
func normalizeTurns(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if len(out) == 0 && m.Role == RoleAssistant {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	return out
}
