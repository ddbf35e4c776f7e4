package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/algotutor/internal/store"
)

func TestMockProvider_SharedQueue(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: "first", Usage: Usage{InputTokens: 10}},
		MockResponse{Err: &ErrRateLimit{}},
	)

	resp, err := mock.Generate(context.Background(), Request{System: "sys"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "first" || resp.Usage.InputTokens != 10 || resp.Model != "mock" {
		t.Fatalf("resp = %+v", resp)
	}

	var rl *ErrRateLimit
	if _, err := mock.Generate(context.Background(), Request{}); !errors.As(err, &rl) {
		t.Fatalf("want scripted ErrRateLimit, got %v", err)
	}

	var un *ErrProviderUnavailable
	if _, err := mock.Generate(context.Background(), Request{}); !errors.As(err, &un) {
		t.Fatalf("empty queue: want ErrProviderUnavailable, got %v", err)
	}
	if mock.CallCount() != 3 || mock.Calls[0].System != "sys" {
		t.Fatalf("calls = %d, first system %q", mock.CallCount(), mock.Calls[0].System)
	}
}

func TestMockProvider_PurposeQueues(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: "shared"})
	mock.OnPurpose(PurposeRouting, MockResponse{Content: `{"target_agent":"STUDENT"}`})

	tutorCtx := WithPurpose(context.Background(), PurposeTutor)
	routeCtx := WithPurpose(context.Background(), PurposeRouting)

	got, _ := mock.Generate(tutorCtx, Request{})
	if got.Text() != "shared" {
		t.Fatalf("tutor call got %q", got.Text())
	}
	got, _ = mock.Generate(routeCtx, Request{})
	if got.Text() != `{"target_agent":"STUDENT"}` {
		t.Fatalf("routing call got %q", got.Text())
	}
	if len(mock.Purposes) != 2 || mock.Purposes[0] != PurposeTutor || mock.Purposes[1] != PurposeRouting {
		t.Fatalf("purposes = %v", mock.Purposes)
	}
}

func TestOfflineProvider(t *testing.T) {
	p := NewOfflineProvider()

	route, err := p.Generate(WithPurpose(context.Background(), PurposeRouting), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateJSON(nil, json.RawMessage(route.Content)); err != nil {
		t.Fatalf("routing reply is not JSON: %v", err)
	}

	reply, err := p.Generate(WithPurpose(context.Background(), PurposeTutor), Request{
		Messages: []Message{{Role: RoleUser, Content: "\n[System] Code Execution Result: {}\n\nUser: hello\nDirective: GIVE_HINT"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text() != "(offline) You said: hello" {
		t.Fatalf("reply = %q", reply.Text())
	}
}

func TestContextLabels(t *testing.T) {
	ctx := context.Background()
	if PurposeFrom(ctx) != "unknown" || SessionFrom(ctx) != "" {
		t.Fatal("empty context should carry no labels")
	}
	ctx = WithSession(WithPurpose(ctx, PurposeRouting), "telegram:42")
	if PurposeFrom(ctx) != PurposeRouting {
		t.Fatalf("purpose = %q", PurposeFrom(ctx))
	}
	if SessionFrom(ctx) != "telegram:42" {
		t.Fatalf("session = %q", SessionFrom(ctx))
	}
}

func TestNormalizeTurns(t *testing.T) {
	in := []Message{
		{Role: RoleAssistant, Content: "Welcome back!"},
		{Role: RoleUser, Content: "teach me BFS"},
		{Role: RoleUser, Content: ""},
		{Role: RoleUser, Content: "on a grid"},
		{Role: RoleAssistant, Content: "What does a queue give you?"},
		{Role: RoleAssistant, Content: " "},
		{Role: RoleUser, Content: "FIFO order"},
	}
	got := normalizeTurns(in)
	want := []Message{
		{Role: RoleUser, Content: "teach me BFS\n\non a grid"},
		{Role: RoleAssistant, Content: "What does a queue give you?"},
		{Role: RoleUser, Content: "FIFO order"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d turns, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("turn %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if in[1].Content != "teach me BFS" {
		t.Fatal("input slice was modified")
	}
}

type recordingEvents struct {
	store.EventRepo
	got []store.LLMRequestEventData
	err error
}

func (r *recordingEvents) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.got = append(r.got, data)
	return r.err
}

func TestLoggingProvider(t *testing.T) {
	events := &recordingEvents{err: errors.New("disk full")}
	mock := NewMockProvider(
		MockResponse{Content: "Think about duplicates.", Usage: Usage{InputTokens: 30, OutputTokens: 5}},
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("503")}},
	)
	p := WithLogging(mock, "gemini", events)
	ctx := WithPurpose(context.Background(), PurposeTutor)
	req := Request{System: "be Socratic", Messages: []Message{{Role: RoleUser, Content: "Contains Duplicate"}}}

	if _, err := p.Generate(ctx, req); err != nil {
		t.Fatalf("a failing event store must not fail the call: %v", err)
	}
	if _, err := p.Generate(ctx, req); err == nil {
		t.Fatal("expected provider error to pass through")
	}

	if len(events.got) != 2 {
		t.Fatalf("recorded %d events, want 2", len(events.got))
	}
	ok, failed := events.got[0], events.got[1]
	if !ok.Success || ok.Provider != "gemini" || ok.Model != "mock" || ok.Purpose != PurposeTutor {
		t.Fatalf("success event = %+v", ok)
	}
	if ok.InputTokens != 30 || ok.ResponseBody != "Think about duplicates." {
		t.Fatalf("success event = %+v", ok)
	}
	if !strings.Contains(ok.RequestBody, "[system]\nbe Socratic") || !strings.Contains(ok.RequestBody, "[user]\nContains Duplicate") {
		t.Fatalf("request body = %q", ok.RequestBody)
	}
	if failed.Success || !strings.Contains(failed.ErrorMessage, "503") {
		t.Fatalf("failure event = %+v", failed)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "anthropic without key",
			cfg:     Config{Provider: "anthropic"},
			wantErr: true,
		},
		{
			name:    "anthropic with key",
			cfg:     Config{Provider: "anthropic", Anthropic: AnthropicConfig{APIKey: "sk-test"}},
			wantErr: false,
		},
		{
			name:    "openai without key",
			cfg:     Config{Provider: "openai"},
			wantErr: true,
		},
		{
			name:    "openai with key",
			cfg:     Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "sk-test"}},
			wantErr: false,
		},
		{
			name:    "gemini without key",
			cfg:     Config{Provider: "gemini"},
			wantErr: true,
		},
		{
			name:    "openrouter with key",
			cfg:     Config{Provider: "openrouter", OpenRouter: OpenRouterConfig{APIKey: "sk-or"}},
			wantErr: false,
		},
		{
			name:    "mock needs no key",
			cfg:     Config{Provider: "mock"},
			wantErr: false,
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "unknown"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ForRouting(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gemini.APIKey = "k"
	cfg.RouterModel = "gemini-2.0-flash-lite"

	rc := cfg.ForRouting()
	if rc.Gemini.Model != "gemini-2.0-flash-lite" {
		t.Fatalf("router model = %q", rc.Gemini.Model)
	}
	if rc.Retry.MaxAttempts != 3 {
		t.Fatalf("router attempts = %d, want 3", rc.Retry.MaxAttempts)
	}
	if cfg.Gemini.Model != "gemini-flash-lite" {
		t.Fatal("ForRouting must not mutate the receiver")
	}
}

func TestDiscoverConfig(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
	if _, ok := DiscoverConfig(); ok {
		t.Fatal("expected no provider without keys")
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	cfg, ok := DiscoverConfig()
	if !ok {
		t.Fatal("expected a provider")
	}
	if cfg.Provider != "gemini" || cfg.Gemini.APIKey != "g-key" {
		t.Fatalf("got provider %q key %q, want gemini/g-key", cfg.Provider, cfg.Gemini.APIKey)
	}
}

func TestResponseText(t *testing.T) {
	var nilResp *Response
	if nilResp.Text() != "" {
		t.Fatal("nil response should yield empty text")
	}
	r := &Response{Content: "plain words"}
	if r.Text() != "plain words" {
		t.Fatalf("Text() = %q", r.Text())
	}
}
