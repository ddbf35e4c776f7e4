package llm

import (
	"context"
	"strings"
	"sync"
)

// MockResponse is one scripted reply.
type MockResponse struct {
	Content string
	Usage   Usage
	Err     error
}

// MockProvider replays scripted replies and records every request.
// Replies queued with OnPurpose are served to calls of that purpose
// first; everything else comes from the shared queue. When both are
// empty Fallback answers, or the call fails as unavailable.
type MockProvider struct {
	mu        sync.Mutex
	shared    []MockResponse
	byPurpose map[string][]MockResponse

	// Fallback, when set, answers calls nothing was queued for.
	Fallback func(purpose string, req Request) MockResponse

	Calls    []Request
	Purposes []string
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{shared: responses, byPurpose: map[string][]MockResponse{}}
}

// NewOfflineProvider is the "mock" provider: it routes everything to the
// tutor and echoes the student, so the tutor runs without an API key.
func NewOfflineProvider() *MockProvider {
	m := NewMockProvider()
	m.Fallback = func(purpose string, req Request) MockResponse {
		if purpose == PurposeRouting {
			return MockResponse{Content: `{"target_agent":"TUTOR","reasoning":"offline"}`}
		}
		last := ""
		if n := len(req.Messages); n > 0 {
			last = req.Messages[n-1].Content
		}
		// Tutor turns look like "<tool context>\nUser: <text>\nDirective: <d>".
		if i := strings.LastIndex(last, "\nUser: "); i >= 0 {
			last = last[i+len("\nUser: "):]
		}
		if i := strings.LastIndex(last, "\nDirective: "); i >= 0 {
			last = last[:i]
		}
		return MockResponse{Content: "(offline) You said: " + strings.TrimSpace(last)}
	}
	return m
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	purpose := PurposeFrom(ctx)

	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	m.Purposes = append(m.Purposes, purpose)
	next, ok := m.pop(purpose)
	fallback := m.Fallback
	m.mu.Unlock()

	switch {
	case ok:
	case fallback != nil:
		next = fallback(purpose, req)
	default:
		return nil, &ErrProviderUnavailable{}
	}

	if next.Err != nil {
		return nil, next.Err
	}
	return &Response{
		Content:    next.Content,
		Usage:      next.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

func (m *MockProvider) pop(purpose string) (MockResponse, bool) {
	if q := m.byPurpose[purpose]; len(q) > 0 {
		m.byPurpose[purpose] = q[1:]
		return q[0], true
	}
	if len(m.shared) > 0 {
		r := m.shared[0]
		m.shared = m.shared[1:]
		return r, true
	}
	return MockResponse{}, false
}

func (m *MockProvider) ModelID() string { return "mock" }

// AddResponse queues resp on the shared queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shared = append(m.shared, resp)
}

// OnPurpose queues replies for calls made with WithPurpose(purpose).
func (m *MockProvider) OnPurpose(purpose string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byPurpose[purpose] = append(m.byPurpose[purpose], responses...)
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
