package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOpenRouterProvider(t *testing.T) {
	if _, err := NewOpenRouterProvider(OpenRouterConfig{Model: "google/gemini-2.5-flash-lite"}); err == nil {
		t.Fatal("expected error without key")
	}

	p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or", Model: "gemini-flash-lite"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "gemini-flash-lite" {
		t.Fatalf("OpenRouter IDs are sent unchanged, got %q", p.ModelID())
	}
}

func TestOpenRouterProvider_UsesBaseURL(t *testing.T) {
	var path, auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, auth = r.URL.Path, r.Header.Get("Authorization")
		completion(w, "Try a sliding window.", "stop")
	}))
	t.Cleanup(srv.Close)

	p, err := NewOpenRouterProvider(OpenRouterConfig{
		APIKey:  "sk-or",
		Model:   "meta-llama/llama-3.1-8b-instruct",
		BaseURL: srv.URL + "/api/v1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "longest substring"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Try a sliding window." {
		t.Fatalf("text = %q", resp.Text())
	}
	if path != "/api/v1/chat/completions" || auth != "Bearer sk-or" {
		t.Fatalf("path %q auth %q", path, auth)
	}
}
