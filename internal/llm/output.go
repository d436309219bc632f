package llm

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyResponse is wrapped in ErrInvalidResponse when a provider returns
// no usable text.
var ErrEmptyResponse = errors.New("empty response")

// ErrRefused is wrapped in ErrInvalidResponse when the provider stopped for
// a refusal or a safety filter.
var ErrRefused = errors.New("response withheld by provider")

// decodeOutput turns provider text into Response.Content. With a schema the
// text is unwrapped from a markdown fence, rejected when generation stopped
// at the token limit, and validated. Without one it is returned as a JSON
// string.
func decodeOutput(schema *Schema, text, stopReason string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if stopReason == "error" {
		return nil, &ErrInvalidResponse{Content: json.RawMessage(text), Err: ErrRefused}
	}
	if schema == nil {
		if text == "" {
			return nil, &ErrInvalidResponse{Err: ErrEmptyResponse}
		}
		b, err := json.Marshal(text)
		if err != nil {
			return nil, &ErrInvalidResponse{Err: err}
		}
		return b, nil
	}

	text = stripFence(text)
	if text == "" {
		return nil, &ErrInvalidResponse{Err: ErrEmptyResponse}
	}
	content := json.RawMessage(text)
	if stopReason == "max_tokens" {
		return nil, &ErrMaxTokensExceeded{Content: content}
	}
	if err := validateResponse(schema, content); err != nil {
		return nil, err
	}
	return content, nil
}

// stripFence removes a surrounding ``` or ```json fence.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	nl := strings.IndexByte(text, '\n')
	if nl < 0 {
		return ""
	}
	text = strings.TrimSpace(text[nl+1:])
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(h http.Header, now time.Time) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}
