package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func testSchema() *Schema {
	return &Schema{
		Name:        "test-card",
		Description: "A flashcard",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question":    map[string]any{"type": "string"},
				"bloom_level": map[string]any{"type": "integer", "minimum": 1},
				"style":       map[string]any{"type": "string", "enum": []any{"recall", "apply", "analyze"}},
			},
			"required": []any{"question", "bloom_level"},
		},
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		valid bool
	}{
		{"all fields", `{"question":"What is JIT?","bloom_level":1,"style":"recall"}`, true},
		{"optional omitted", `{"question":"Define lean.","bloom_level":2}`, true},
		{"missing required", `{"question":"Define waste."}`, false},
		{"wrong type", `{"question":"Define waste.","bloom_level":"one"}`, false},
		{"below minimum", `{"question":"Define waste.","bloom_level":0}`, false},
		{"bad enum", `{"question":"Define waste.","bloom_level":1,"style":"guess"}`, false},
		{"not json", `{not json}`, false},
		{"empty", ``, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(testSchema(), json.RawMessage(tt.raw))
			if tt.valid {
				if err != nil {
					t.Fatalf("expected no error, got: %v", err)
				}
				return
			}
			var invErr *ErrInvalidResponse
			if !errors.As(err, &invErr) {
				t.Fatalf("expected ErrInvalidResponse, got: %T (%v)", err, err)
			}
			if string(invErr.Content) != tt.raw {
				t.Errorf("Content = %s, want the raw output", invErr.Content)
			}
		})
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`not even json`)); err != nil {
		t.Fatalf("expected no error with nil schema, got: %v", err)
	}
}

func TestValidateResponse_NestedObjects(t *testing.T) {
	schema := &Schema{
		Name:        "test-nested",
		Description: "Nested test",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"concept": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
					},
					"required": []any{"name"},
				},
				"page_numbers": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "integer"},
				},
			},
			"required": []any{"concept", "page_numbers"},
		},
	}

	valid := json.RawMessage(`{"concept":{"name":"Six Sigma"},"page_numbers":[3,4]}`)
	if err := validateResponse(schema, valid); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	invalid := json.RawMessage(`{"concept":{"name":"Six Sigma"},"page_numbers":["three"]}`)
	if err := validateResponse(schema, invalid); err == nil {
		t.Fatal("expected error for wrong array item type")
	}
}
