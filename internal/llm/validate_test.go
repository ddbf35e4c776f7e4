package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func hintSchema() *Schema {
	return &Schema{
		Name: "test-hint",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"problem": map[string]any{"type": "string"},
				"level":   map[string]any{"type": "integer", "minimum": 1, "maximum": 3},
				"style":   map[string]any{"type": "string", "enum": []any{"socratic", "direct"}},
				"steps": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required": []any{"problem", "level"},
		},
	}
}

func TestValidateJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"complete", `{"problem":"two-sum","level":2,"style":"socratic","steps":["hash map"]}`, true},
		{"required only", `{"problem":"two-sum","level":1}`, true},
		{"missing level", `{"problem":"two-sum"}`, false},
		{"level as string", `{"problem":"two-sum","level":"two"}`, false},
		{"level out of range", `{"problem":"two-sum","level":4}`, false},
		{"unknown style", `{"problem":"two-sum","level":1,"style":"lecture"}`, false},
		{"bad step item", `{"problem":"two-sum","level":1,"steps":[1]}`, false},
		{"array payload", `[]`, false},
		{"not json", `Sure! Here is the JSON`, false},
		{"empty", ``, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSON(hintSchema(), json.RawMessage(tt.raw))
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var inv *ErrInvalidResponse
			if !errors.As(err, &inv) {
				t.Fatalf("want *ErrInvalidResponse, got %T (%v)", err, err)
			}
			if inv.Content != tt.raw {
				t.Fatalf("content = %q, want the raw input", inv.Content)
			}
		})
	}
}

func TestValidateJSON_NilSchema(t *testing.T) {
	if err := ValidateJSON(nil, json.RawMessage(`{"anything":"goes"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateJSON(nil, json.RawMessage(`{`)); err == nil {
		t.Fatal("nil schema still requires JSON")
	}
}
