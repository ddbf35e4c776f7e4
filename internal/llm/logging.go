package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/algotutor/internal/store"
)

// LoggingProvider records each call it forwards as an LLM request event.
type LoggingProvider struct {
	inner    Provider
	provider string
	events   store.EventRepo
}

// WithLogging wraps p. name is the provider family stored with the event.
// It sits under the retry decorator so each attempt is its own event.
func WithLogging(p Provider, name string, events store.EventRepo) Provider {
	return &LoggingProvider{inner: p, provider: name, events: events}
}

func (l *LoggingProvider) ModelID() string { return l.inner.ModelID() }

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	ev := store.LLMRequestEventData{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: transcript(req),
	}
	if resp != nil {
		if resp.Model != "" {
			ev.Model = resp.Model
		}
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = resp.Text()
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}

	if logErr := l.events.AppendLLMRequest(context.WithoutCancel(ctx), ev); logErr != nil {
		slog.Warn("record llm request failed", "purpose", ev.Purpose, "error", logErr)
	}

	attrs := []any{
		"provider", l.provider,
		"model", ev.Model,
		"purpose", ev.Purpose,
		"latency_ms", ev.LatencyMs,
		"tokens", ev.InputTokens + ev.OutputTokens,
	}
	if s := SessionFrom(ctx); s != "" {
		attrs = append(attrs, "session", s)
	}
	if resp != nil && resp.StopReason != "end" {
		attrs = append(attrs, "stop", resp.StopReason)
	}
	if err != nil {
		slog.Debug("llm request failed", append(attrs, "error", err)...)
	} else {
		slog.Debug("llm request", attrs...)
	}
	return resp, err
}

// transcript renders req the way `algotutor llm view` prints it.
func transcript(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	return b.String()
}
