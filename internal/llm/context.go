package llm

import "context"

// Purposes recorded with every request. The llm CLI filters on them.
const (
	PurposeRouting = "routing"
	PurposeTutor   = "tutor"
)

type ctxKey int

const (
	purposeKey ctxKey = iota
	sessionKey
)

// WithPurpose labels the calls made with ctx, e.g. PurposeRouting.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// WithSession tags ctx with the tutoring session the call belongs to.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey, sessionID)
}

// SessionFrom returns the session set by WithSession, if any.
func SessionFrom(ctx context.Context) string {
	v, _ := ctx.Value(sessionKey).(string)
	return v
}
