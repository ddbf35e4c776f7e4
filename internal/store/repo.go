package store

import (
	"context"
	"encoding/json"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // LLM events only; empty matches all
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// PurposeUsage aggregates token usage for one purpose label.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates token usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo records and queries LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns a single event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)

	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)
}

// TraceEventRecord is one persisted trace event.
type TraceEventRecord struct {
	ID         int
	Sequence   int64
	SessionID  string
	TurnID     string
	EventType  string
	Data       json.RawMessage
	DurationMs *float64
	Timestamp  time.Time
}

// TraceSession summarises the stored events of one session.
type TraceSession struct {
	SessionID string
	Turns     int
	Events    int
	First     time.Time
	Last      time.Time
}

// TraceRepo persists chat-turn traces.
type TraceRepo interface {
	AppendTraceEvents(ctx context.Context, events []TraceEventRecord) error

	// QueryTrace returns a session's events in sequence order.
	QueryTrace(ctx context.Context, sessionID string, opts QueryOpts) ([]TraceEventRecord, error)

	// ListTraceSessions returns sessions ordered by most recent activity.
	ListTraceSessions(ctx context.Context, limit int) ([]TraceSession, error)
}

// ProfileRecord is the persisted form of a learner profile. Data holds the
// serialised profile snapshot; State duplicates its teaching state for
// listing without decoding.
type ProfileRecord struct {
	SessionID string
	UserID    string
	State     string
	Data      json.RawMessage
	UpdatedAt time.Time
}

// ProfileRepo stores the latest profile per session.
type ProfileRepo interface {
	Save(ctx context.Context, rec ProfileRecord) error

	// Load returns the profile for sessionID, or nil if none is stored.
	Load(ctx context.Context, sessionID string) (*ProfileRecord, error)

	// Delete removes the profile. Deleting a missing profile is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns stored profiles, most recently updated first.
	List(ctx context.Context, limit int) ([]ProfileRecord, error)
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
