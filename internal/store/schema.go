package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Tables are append-only except profiles, which holds the latest snapshot
// per session. Every append-only row carries a global sequence number.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS llm_request_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL UNIQUE,
		timestamp INTEGER NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_llm_request_events_purpose ON llm_request_events (purpose)`,

	`CREATE TABLE IF NOT EXISTS trace_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL UNIQUE,
		timestamp INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		turn_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		data TEXT NOT NULL DEFAULT '{}',
		duration_ms REAL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trace_events_session ON trace_events (session_id, sequence)`,

	`CREATE TABLE IF NOT EXISTS profiles (
		session_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' || r == '(' {
			return s[:i]
		}
	}
	return s
}
