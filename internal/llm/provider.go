package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Provider is a generative backend. Implementations translate Request to
// their SDK and normalize output, stop reasons and errors.
type Provider interface {
	// Generate runs one completion. With a Schema set, Content is JSON that
	// validated against it; otherwise it is the text as a JSON string.
	Generate(ctx context.Context, req Request) (*Response, error)

	ModelID() string
}

type Request struct {
	System   string
	Messages []Message

	// Schema requests structured output through the backend's native
	// mechanism (tool use, json_schema, response schema).
	Schema *Schema

	MaxTokens   int
	Temperature float64 // 0 when unset
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Schema names a JSON Schema. Name doubles as the tool or schema name sent
// to the backend, so keep it kebab-case ("concept-extract").
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string // model that actually served the call

	// StopReason is one of "end", "max_tokens", "error".
	StopReason string
}

// Decode unmarshals Content into v. A mismatch is reported as
// *ErrInvalidResponse so callers treat it like any other malformed output.
func (r *Response) Decode(what string, v any) error {
	if err := json.Unmarshal(r.Content, v); err != nil {
		return &ErrInvalidResponse{Content: r.Content, Err: fmt.Errorf("parse %s: %w", what, err)}
	}
	return nil
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
