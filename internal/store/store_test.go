package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestSequenceCounterMonotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	prev := int64(0)
	for range 5 {
		n, err := s.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if n <= prev {
			t.Fatalf("sequence not increasing: %d after %d", n, prev)
		}
		prev = n
	}
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "gemini", Model: "gemini-2.5-flash-lite", Purpose: "routing", InputTokens: 100, OutputTokens: 10, LatencyMs: 120, Success: true},
		{Provider: "gemini", Model: "gemini-2.5-flash-lite", Purpose: "chat", InputTokens: 900, OutputTokens: 300, LatencyMs: 800, Success: true, RequestBody: "[user]\nhi", ResponseBody: "hello"},
		{Provider: "gemini", Model: "gemini-2.5-flash", Purpose: "chat", InputTokens: 50, LatencyMs: 400, Success: false, ErrorMessage: "rate limited"},
	}
	for _, e := range events {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if all[0].ErrorMessage != "rate limited" {
		t.Fatalf("expected newest first, got %+v", all[0])
	}

	chat, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "chat", Limit: 1})
	if err != nil {
		t.Fatalf("query chat: %v", err)
	}
	if len(chat) != 1 || chat[0].Purpose != "chat" {
		t.Fatalf("unexpected filtered result: %+v", chat)
	}

	got, err := repo.GetLLMEvent(ctx, all[1].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.ResponseBody != "hello" || !got.Success {
		t.Fatalf("unexpected event: %+v", got)
	}

	missing, err := repo.GetLLMEvent(ctx, 9999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for missing event")
	}

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("usage by purpose: %v", err)
	}
	if len(byPurpose) != 2 || byPurpose[0].Purpose != "chat" || byPurpose[0].Calls != 2 {
		t.Fatalf("unexpected purpose usage: %+v", byPurpose)
	}
	if byPurpose[0].InputTokens != 950 || byPurpose[0].AvgLatencyMs != 600 {
		t.Fatalf("unexpected chat aggregates: %+v", byPurpose[0])
	}

	byModel, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		t.Fatalf("usage by model: %v", err)
	}
	if len(byModel) != 2 || byModel[0].Model != "gemini-2.5-flash-lite" {
		t.Fatalf("unexpected model usage: %+v", byModel)
	}
}

func TestTraceEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.TraceRepo()
	ctx := context.Background()

	dur := 12.5
	now := time.Now().UTC()
	err := repo.AppendTraceEvents(ctx, []TraceEventRecord{
		{SessionID: "s1", TurnID: "t1", EventType: "user_input", Data: json.RawMessage(`{"input":"hi"}`), Timestamp: now},
		{SessionID: "s1", TurnID: "t1", EventType: "intent_routing", DurationMs: &dur, Timestamp: now},
		{SessionID: "s2", TurnID: "t9", EventType: "user_input", Timestamp: now.Add(time.Second)},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := repo.QueryTrace(ctx, "s1", QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].EventType != "user_input" || string(events[0].Data) != `{"input":"hi"}` {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[0].DurationMs != nil {
		t.Fatal("expected nil duration for first event")
	}
	if events[1].DurationMs == nil || *events[1].DurationMs != 12.5 {
		t.Fatalf("unexpected duration: %v", events[1].DurationMs)
	}
	if string(events[1].Data) != "{}" {
		t.Fatalf("empty data should be stored as {}, got %s", events[1].Data)
	}

	sessions, err := repo.ListTraceSessions(ctx, 10)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].SessionID != "s2" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
	if sessions[1].Events != 2 || sessions[1].Turns != 1 {
		t.Fatalf("unexpected s1 summary: %+v", sessions[1])
	}
}

func TestSQLiteProfileRepo(t *testing.T) {
	s := openTestStore(t)
	testProfileRepo(t, s.ProfileRepo())
}

func TestMemoryProfileRepo(t *testing.T) {
	testProfileRepo(t, NewMemoryProfileRepo())
}

// testProfileRepo exercises the ProfileRepo contract shared by every backend.
func testProfileRepo(t *testing.T, repo ProfileRepo) {
	t.Helper()
	ctx := context.Background()

	rec, err := repo.Load(ctx, "missing")
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if rec != nil {
		t.Fatal("expected nil for missing profile")
	}

	base := time.Now().UTC().Truncate(time.Millisecond)
	if err := repo.Save(ctx, ProfileRecord{SessionID: "a", State: "INTAKE", Data: json.RawMessage(`{"v":1}`), UpdatedAt: base}); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := repo.Save(ctx, ProfileRecord{SessionID: "b", UserID: "u", State: "GUIDANCE", Data: json.RawMessage(`{"v":2}`), UpdatedAt: base.Add(time.Second)}); err != nil {
		t.Fatalf("save b: %v", err)
	}
	// Overwrite a.
	if err := repo.Save(ctx, ProfileRecord{SessionID: "a", State: "ASSESSMENT", Data: json.RawMessage(`{"v":3}`), UpdatedAt: base.Add(2 * time.Second)}); err != nil {
		t.Fatalf("save a again: %v", err)
	}

	rec, err = repo.Load(ctx, "a")
	if err != nil {
		t.Fatalf("load a: %v", err)
	}
	if rec == nil || rec.State != "ASSESSMENT" || string(rec.Data) != `{"v":3}` {
		t.Fatalf("unexpected profile: %+v", rec)
	}
	if !rec.UpdatedAt.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("updated_at = %v, want %v", rec.UpdatedAt, base.Add(2*time.Second))
	}

	list, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].SessionID != "a" || list[1].UserID != "u" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete twice: %v", err)
	}
	rec, err = repo.Load(ctx, "a")
	if err != nil {
		t.Fatalf("load deleted: %v", err)
	}
	if rec != nil {
		t.Fatal("expected profile to be deleted")
	}

	if err := repo.Save(ctx, ProfileRecord{}); err == nil {
		t.Fatal("expected error for empty session ID")
	}
}
