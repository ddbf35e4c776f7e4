package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const profilesTable = "profiles"

// sqliteProfileRepo keeps one row per session, replaced on every save.
type sqliteProfileRepo struct {
	db *sql.DB
}

func (r *sqliteProfileRepo) Save(ctx context.Context, rec ProfileRecord) error {
	if rec.SessionID == "" {
		return errors.New("profile session ID is required")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}

	query, args := builder().Insert(profilesTable).
		Columns("session_id", "user_id", "state", "data", "updated_at").
		Values(rec.SessionID, rec.UserID, rec.State, string(rec.Data), toMillis(rec.UpdatedAt)).
		OnConflict(
			entsql.ConflictColumns("session_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save profile %s: %w", rec.SessionID, err)
	}
	return nil
}

func (r *sqliteProfileRepo) Load(ctx context.Context, sessionID string) (*ProfileRecord, error) {
	query, args := builder().Select("session_id", "user_id", "state", "data", "updated_at").
		From(entsql.Table(profilesTable)).
		Where(entsql.EQ("session_id", sessionID)).
		Query()

	rec, err := scanProfile(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", sessionID, err)
	}
	return rec, nil
}

func (r *sqliteProfileRepo) Delete(ctx context.Context, sessionID string) error {
	query, args := builder().Delete(profilesTable).
		Where(entsql.EQ("session_id", sessionID)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete profile %s: %w", sessionID, err)
	}
	return nil
}

func (r *sqliteProfileRepo) List(ctx context.Context, limit int) ([]ProfileRecord, error) {
	sel := builder().Select("session_id", "user_id", "state", "data", "updated_at").
		From(entsql.Table(profilesTable)).
		OrderBy(entsql.Desc("updated_at"))
	if limit > 0 {
		sel.Limit(limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []ProfileRecord
	for rows.Next() {
		rec, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanProfile(row rowScanner) (*ProfileRecord, error) {
	var rec ProfileRecord
	var data string
	var updated int64
	if err := row.Scan(&rec.SessionID, &rec.UserID, &rec.State, &data, &updated); err != nil {
		return nil, err
	}
	rec.Data = []byte(data)
	rec.UpdatedAt = fromMillis(updated)
	return &rec, nil
}
