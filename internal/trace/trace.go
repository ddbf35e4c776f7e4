// Package trace records the steps of a chat turn (routing, state changes,
// tool calls, LLM calls) with timings, and writes them to files or the
// store for later inspection.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType classifies a trace event.
type EventType string

const (
	SessionStart    EventType = "session_start"
	UserInput       EventType = "user_input"
	IntentRouting   EventType = "intent_routing"
	StateTransition EventType = "state_transition"
	ToolCall        EventType = "tool_call"
	ToolResponse    EventType = "tool_response"
	LLMRequest      EventType = "llm_request"
	LLMResponse     EventType = "llm_response"
	AgentResponse   EventType = "agent_response"
	Error           EventType = "error"
)

// Event is a single step of a chat turn.
type Event struct {
	Timestamp  time.Time      `json:"timestamp"`
	Type       EventType      `json:"event_type"`
	Data       map[string]any `json:"data"`
	DurationMs float64        `json:"duration_ms"`
}

// Tracer collects the events of one chat turn. It is safe for concurrent
// use. A nil *Tracer discards everything, so callers need not check
// whether tracing is enabled.
type Tracer struct {
	sessionID string
	turnID    string
	start     time.Time

	mu     sync.Mutex
	events []Event
}

// New starts a tracer for one turn of sessionID.
func New(sessionID string) *Tracer {
	return &Tracer{
		sessionID: sessionID,
		turnID:    uuid.NewString(),
		start:     time.Now(),
	}
}

func (t *Tracer) SessionID() string { return t.sessionID }
func (t *Tracer) TurnID() string    { return t.turnID }
func (t *Tracer) Start() time.Time  { return t.start }

// Log records an untimed event.
func (t *Tracer) Log(typ EventType, data map[string]any) {
	t.LogTimed(typ, data, 0)
}

// LogTimed records an event that took d.
func (t *Tracer) LogTimed(typ EventType, data map[string]any, d time.Duration) {
	if t == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	e := Event{
		Timestamp:  time.Now().UTC(),
		Type:       typ,
		Data:       maps.Clone(data),
		DurationMs: float64(d.Microseconds()) / 1000,
	}

	t.mu.Lock()
	t.events = append(t.events, e)
	t.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (t *Tracer) Events() []Event {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.events)
}

// Tools returns the tool names of every tool_call event, in order.
func (t *Tracer) Tools() []string {
	var tools []string
	for _, e := range t.Events() {
		if e.Type != ToolCall {
			continue
		}
		if name, ok := e.Data["tool"].(string); ok {
			tools = append(tools, name)
		}
	}
	return tools
}

// Document is the JSON form of a saved trace.
type Document struct {
	SessionID  string    `json:"session_id"`
	TurnID     string    `json:"turn_id"`
	StartTime  time.Time `json:"start_time"`
	DurationMs float64   `json:"duration_ms"`
	Events     []Event   `json:"events"`
}

// Document snapshots the trace for serialisation.
func (t *Tracer) Document() Document {
	return Document{
		SessionID:  t.sessionID,
		TurnID:     t.turnID,
		StartTime:  t.start.UTC(),
		DurationMs: float64(time.Since(t.start).Microseconds()) / 1000,
		Events:     t.Events(),
	}
}

// Save writes the trace as indented JSON to path.
func (t *Tracer) Save(path string) error {
	b, err := json.MarshalIndent(t.Document(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}

// Render writes a human-readable dump of the trace to w.
func (t *Tracer) Render(w io.Writer) {
	RenderDocument(w, t.Document())
}

const maxValueLen = 100

// RenderDocument writes a human-readable dump of doc to w. Values longer
// than 100 characters are truncated.
func RenderDocument(w io.Writer, doc Document) {
	rule := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\nAGENT TRACE - Session: %s\n%s\n", rule, doc.SessionID, rule)

	for i, e := range doc.Events {
		fmt.Fprintf(w, "\n[%d] %s\n", i+1, e.Timestamp.Format(time.RFC3339Nano))
		fmt.Fprintf(w, "    Type: %s\n", e.Type)
		if e.DurationMs > 0 {
			fmt.Fprintf(w, "    Duration: %.2fms\n", e.DurationMs)
		}
		fmt.Fprintln(w, "    Data:")
		for _, k := range slices.Sorted(maps.Keys(e.Data)) {
			v := Preview(fmt.Sprint(e.Data[k]), maxValueLen)
			fmt.Fprintf(w, "      %s: %s\n", k, v)
		}
	}

	fmt.Fprintf(w, "\n%s\nTotal Duration: %.2fms\n%s\n", rule, doc.DurationMs, rule)
}

// Preview shortens s to n characters for trace payloads. It never splits
// a multi-byte character.
func Preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + "..."
		}
		i++
	}
	return s
}
