package store

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// MemoryProfileRepo keeps profiles in process memory. Profiles are lost on
// exit.
type MemoryProfileRepo struct {
	mu       sync.RWMutex
	profiles map[string]ProfileRecord
}

func NewMemoryProfileRepo() *MemoryProfileRepo {
	return &MemoryProfileRepo{profiles: make(map[string]ProfileRecord)}
}

func (m *MemoryProfileRepo) Save(_ context.Context, rec ProfileRecord) error {
	if rec.SessionID == "" {
		return errors.New("profile session ID is required")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	rec.Data = slices.Clone(rec.Data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[rec.SessionID] = rec
	return nil
}

func (m *MemoryProfileRepo) Load(_ context.Context, sessionID string) (*ProfileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.profiles[sessionID]
	if !ok {
		return nil, nil
	}
	rec.Data = slices.Clone(rec.Data)
	return &rec, nil
}

func (m *MemoryProfileRepo) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, sessionID)
	return nil
}

func (m *MemoryProfileRepo) List(_ context.Context, limit int) ([]ProfileRecord, error) {
	m.mu.RLock()
	out := make([]ProfileRecord, 0, len(m.profiles))
	for _, rec := range m.profiles {
		out = append(out, rec)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b ProfileRecord) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
