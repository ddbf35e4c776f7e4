package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

const traceEventsTable = "trace_events"

type traceRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *traceRepo) AppendTraceEvents(ctx context.Context, events []TraceEventRecord) error {
	for _, e := range events {
		seqNum, err := r.seq.Next(ctx)
		if err != nil {
			return err
		}
		data := e.Data
		if len(data) == 0 {
			data = []byte("{}")
		}
		var dur any
		if e.DurationMs != nil {
			dur = *e.DurationMs
		}

		query, args := builder().Insert(traceEventsTable).
			Columns("sequence", "timestamp", "session_id", "turn_id", "event_type", "data", "duration_ms").
			Values(seqNum, toMillis(e.Timestamp), e.SessionID, e.TurnID, e.EventType, string(data), dur).
			Query()
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert trace event: %w", err)
		}
	}
	return nil
}

func (r *traceRepo) QueryTrace(ctx context.Context, sessionID string, opts QueryOpts) ([]TraceEventRecord, error) {
	sel := builder().Select("id", "sequence", "timestamp", "session_id", "turn_id", "event_type", "data", "duration_ms").
		From(entsql.Table(traceEventsTable)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("sequence")
	applyQueryOpts(sel, opts)

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	var out []TraceEventRecord
	for rows.Next() {
		var e TraceEventRecord
		var ts int64
		var data string
		var dur sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.Sequence, &ts, &e.SessionID, &e.TurnID, &e.EventType, &data, &dur); err != nil {
			return nil, fmt.Errorf("scan trace event: %w", err)
		}
		e.Timestamp = fromMillis(ts)
		e.Data = []byte(data)
		if dur.Valid {
			d := dur.Float64
			e.DurationMs = &d
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *traceRepo) ListTraceSessions(ctx context.Context, limit int) ([]TraceSession, error) {
	sel := builder().Select(
		"session_id",
		entsql.As("COUNT(DISTINCT turn_id)", "turns"),
		entsql.As(entsql.Count("*"), "events"),
		entsql.As(entsql.Min("timestamp"), "first_ts"),
		entsql.As(entsql.Max("timestamp"), "last_ts"),
	).
		From(entsql.Table(traceEventsTable)).
		GroupBy("session_id").
		OrderBy(entsql.Desc("last_ts"))
	if limit > 0 {
		sel.Limit(limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trace sessions: %w", err)
	}
	defer rows.Close()

	var out []TraceSession
	for rows.Next() {
		var s TraceSession
		var first, last int64
		if err := rows.Scan(&s.SessionID, &s.Turns, &s.Events, &first, &last); err != nil {
			return nil, fmt.Errorf("scan trace session: %w", err)
		}
		s.First = fromMillis(first)
		s.Last = fromMillis(last)
		out = append(out, s)
	}
	return out, rows.Err()
}
