package agent

import "time"

// Config tunes the chat LLM call.
type Config struct {
	// MaxTokens caps the tutor reply.
	MaxTokens int

	// Temperature for the tutor reply.
	Temperature float64

	// HistoryLimit is how many prior transcript messages are replayed to
	// the model on each turn.
	HistoryLimit int

	// Timeout bounds the reply call, retries included. Zero disables it.
	Timeout time.Duration

	// SessionIdleTTL is how long an idle session stays cached in memory.
	SessionIdleTTL time.Duration
}

// DefaultConfig returns the agent defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:      2048,
		Temperature:    0.7,
		HistoryLimit:   20,
		Timeout:        60 * time.Second,
		SessionIdleTTL: 30 * time.Minute,
	}
}
