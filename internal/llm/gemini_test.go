package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"
)

func geminiServer(t *testing.T, handler http.HandlerFunc) *GeminiProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL + "/"},
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return &GeminiProvider{client: client, model: "gemini-2.5-flash-lite"}
}

func TestGeminiProvider_TutorTurn(t *testing.T) {
	var sent struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		SystemInstruction *struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"systemInstruction"`
	}
	p := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "gemini-2.5-flash-lite:generateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&sent)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": "What is the invariant of your window?"}}},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 200, "candidatesTokenCount": 12, "totalTokenCount": 212},
			"modelVersion":  "gemini-2.5-flash-lite",
		})
	})

	resp, err := p.Generate(context.Background(), Request{
		System: "You are a DSA tutor.",
		Messages: []Message{
			{Role: RoleUser, Content: "sliding window"},
			{Role: RoleAssistant, Content: "Which problem?"},
			{Role: RoleUser, Content: "Longest substring without repeats"},
		},
		MaxTokens:   256,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "What is the invariant of your window?" {
		t.Fatalf("text = %q", resp.Text())
	}
	if resp.Usage.TotalTokens != 212 || resp.StopReason != "end" {
		t.Fatalf("usage %+v stop %q", resp.Usage, resp.StopReason)
	}
	if len(sent.Contents) != 3 || sent.Contents[1].Role != "model" {
		t.Fatalf("contents = %+v", sent.Contents)
	}
	if sent.SystemInstruction == nil || sent.SystemInstruction.Parts[0].Text != "You are a DSA tutor." {
		t.Fatalf("system instruction = %+v", sent.SystemInstruction)
	}
}

func TestGeminiProvider_RateLimited(t *testing.T) {
	p := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "message": "quota", "status": "RESOURCE_EXHAUSTED"},
		})
	})
	_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}, MaxTokens: 8})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("want ErrRateLimit, got %T (%v)", err, err)
	}
}

func TestGeminiStop(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{"no candidates", &genai.GenerateContentResponse{}, "end"},
		{"stop", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonStop}}}, "end"},
		{"max tokens", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonMaxTokens}}}, "max_tokens"},
		{"safety", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}}, "blocked"},
		{"prompt blocked", &genai.GenerateContentResponse{PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety}}, "blocked"},
	}
	for _, tt := range tests {
		if got := geminiStop(tt.resp); got != tt.want {
			t.Errorf("%s: geminiStop = %q, want %q", tt.name, got, tt.want)
		}
	}
}
