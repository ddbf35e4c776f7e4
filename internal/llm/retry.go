package llm

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"
)

// RetryProvider retries transient failures with capped exponential
// backoff. Rejections and cancellations fail at once; an invalid reply is
// tried one more time since a second sample often parses.
type RetryProvider struct {
	inner Provider
	cfg   RetryConfig
}

// WithRetry wraps p. MaxAttempts below 1 is treated as 1.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	cfg.MaxAttempts = max(cfg.MaxAttempts, 1)
	return &RetryProvider{inner: p, cfg: cfg}
}

func (r *RetryProvider) ModelID() string { return r.inner.ModelID() }

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	invalidSeen := false
	for attempt := 1; ; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}

		retry := retryable(err)
		var inv *ErrInvalidResponse
		if errors.As(err, &inv) {
			retry = !invalidSeen
			invalidSeen = true
		}
		if !retry || attempt >= r.cfg.MaxAttempts {
			return nil, err
		}

		wait := r.wait(attempt, err)
		slog.Warn("llm call failed, retrying",
			"purpose", PurposeFrom(ctx),
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// retryable reports whether err may go away on its own.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rejected *ErrRejected
	return !errors.As(err, &rejected)
}

// wait is the pause after the given 1-based attempt. A provider supplied
// Retry-After wins over the computed backoff.
func (r *RetryProvider) wait(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	d := r.cfg.InitialWait
	for i := 1; i < attempt && d < r.cfg.MaxWait; i++ {
		d = time.Duration(float64(d) * r.cfg.Multiplier)
	}
	if r.cfg.MaxWait > 0 {
		d = min(d, r.cfg.MaxWait)
	}

	// +/-20% jitter
	jitter := time.Duration((rand.Float64()*0.4 - 0.2) * float64(d))
	return max(d+jitter, 0)
}
