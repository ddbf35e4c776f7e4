package trace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/abhisek/algotutor/internal/store"
)

// Sink receives a completed turn trace.
type Sink interface {
	Write(ctx context.Context, t *Tracer) error
}

// FileSink saves each trace as {Dir}/{session}_{YYYYmmdd_HHMMSS}.json.
type FileSink struct {
	Dir string
}

func (s FileSink) Write(_ context.Context, t *Tracer) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create trace dir: %w", err)
	}
	return t.Save(s.Path(t))
}

// Path returns the file a trace is written to. The turn ID suffix keeps
// two turns within the same second apart.
func (s FileSink) Path(t *Tracer) string {
	name := fmt.Sprintf("%s_%s_%s.json",
		sanitize(t.SessionID()), t.Start().Format("20060102_150405"), t.TurnID()[:8])
	return filepath.Join(s.Dir, name)
}

// StoreSink appends trace events to the trace repository.
type StoreSink struct {
	Repo store.TraceRepo
}

func (s StoreSink) Write(ctx context.Context, t *Tracer) error {
	events := t.Events()
	records := make([]store.TraceEventRecord, 0, len(events))
	for _, e := range events {
		data, err := json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("marshal %s data: %w", e.Type, err)
		}
		rec := store.TraceEventRecord{
			SessionID: t.SessionID(),
			TurnID:    t.TurnID(),
			EventType: string(e.Type),
			Data:      data,
			Timestamp: e.Timestamp,
		}
		if e.DurationMs > 0 {
			d := e.DurationMs
			rec.DurationMs = &d
		}
		records = append(records, rec)
	}
	return s.Repo.AppendTraceEvents(ctx, records)
}

// MultiSink fans a trace out to several sinks and joins their errors.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, t *Tracer) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromRecords rebuilds a Document from stored events of one session. An
// event whose payload does not decode keeps the raw text under "raw".
func FromRecords(sessionID string, recs []store.TraceEventRecord) Document {
	doc := Document{SessionID: sessionID}
	for i, r := range recs {
		if i == 0 {
			doc.StartTime = r.Timestamp
			doc.TurnID = r.TurnID
		}
		e := Event{Timestamp: r.Timestamp, Type: EventType(r.EventType), Data: map[string]any{}}
		if err := json.Unmarshal(r.Data, &e.Data); err != nil {
			slog.Warn("unreadable trace event payload",
				"session_id", sessionID, "sequence", r.Sequence, "error", err)
			e.Data = map[string]any{"raw": string(r.Data)}
		}
		if r.DurationMs != nil {
			e.DurationMs = *r.DurationMs
		}
		doc.Events = append(doc.Events, e)
	}
	if n := len(recs); n > 0 {
		doc.DurationMs = float64(recs[n-1].Timestamp.Sub(recs[0].Timestamp).Microseconds()) / 1000
	}
	return doc
}

func sanitize(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r == '/' || r == '\\' || r == ':' || r == ' ' {
			out[i] = '_'
		}
	}
	return string(out)
}
