package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRateLimit is a throttling response (HTTP 429, or 529 on Anthropic).
// It is the only error RetryProvider retries. RetryAfter carries the
// server's hint when one was sent.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s: %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse means the model answered, but the content is empty,
// refused, not JSON, or fails the request schema.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid model output: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable covers transport failures, 5xx responses and a
// disabled provider.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err == nil {
		return "generative service unavailable"
	}
	return fmt.Sprintf("generative service unavailable: %v", e.Err)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded means structured output was cut off at MaxTokens.
// Content holds the partial text.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return fmt.Sprintf("model output truncated at max tokens (%d bytes received)", len(e.Content))
}

// IsMalformed reports whether err is a usable-looking answer that cannot
// be parsed. Retrying the same prompt right away is unlikely to help.
func IsMalformed(err error) bool {
	var invalid *ErrInvalidResponse
	var truncated *ErrMaxTokensExceeded
	return errors.As(err, &invalid) || errors.As(err, &truncated)
}

// IsTransient reports whether err should leave work queued for a later
// attempt: throttling, outages and per-attempt timeouts.
func IsTransient(err error) bool {
	var rl *ErrRateLimit
	var down *ErrProviderUnavailable
	return errors.As(err, &rl) || errors.As(err, &down) || errors.Is(err, context.DeadlineExceeded)
}
