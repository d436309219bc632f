package llm

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestDecodeOutput(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		stop    string
		want    string
		wantErr error
	}{
		{"plain json", `{"question":"What is JIT?","bloom_level":1}`, "end", `{"question":"What is JIT?","bloom_level":1}`, nil},
		{"json fence", "```json\n{\"question\":\"Q\",\"bloom_level\":2}\n```", "end", `{"question":"Q","bloom_level":2}`, nil},
		{"bare fence", "```\n{\"question\":\"Q\",\"bloom_level\":2}\n```", "end", `{"question":"Q","bloom_level":2}`, nil},
		{"surrounding space", "  {\"question\":\"Q\",\"bloom_level\":3}\n", "end", `{"question":"Q","bloom_level":3}`, nil},
		{"empty", "   ", "end", "", ErrEmptyResponse},
		{"empty fence", "```json\n```", "end", "", ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeOutput(testSchema(), tt.text, tt.stop)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("content = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecodeOutput_Truncated(t *testing.T) {
	_, err := decodeOutput(testSchema(), `{"question":"What is`, "max_tokens")
	var mt *ErrMaxTokensExceeded
	if !errors.As(err, &mt) {
		t.Fatalf("expected ErrMaxTokensExceeded, got %T (%v)", err, err)
	}
	if string(mt.Content) != `{"question":"What is` {
		t.Errorf("content = %s", mt.Content)
	}
}

func TestDecodeOutput_Refused(t *testing.T) {
	for _, schema := range []*Schema{nil, testSchema()} {
		_, err := decodeOutput(schema, "I can't help with that.", "error")
		if !errors.Is(err, ErrRefused) {
			t.Fatalf("schema=%v: expected ErrRefused, got %v", schema != nil, err)
		}
		if !IsMalformed(err) {
			t.Fatalf("refusal should count as malformed: %v", err)
		}
	}
}

func TestDecodeOutput_SchemaViolation(t *testing.T) {
	_, err := decodeOutput(testSchema(), `{"question":"Q"}`, "end")
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %T (%v)", err, err)
	}
}

func TestDecodeOutput_NoSchemaWrapsText(t *testing.T) {
	got, err := decodeOutput(nil, "Think about inventory costs.", "end")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `"Think about inventory costs."` {
		t.Errorf("content = %s", got)
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"missing", "", 0},
		{"seconds", "7", 7 * time.Second},
		{"http date", now.Add(30 * time.Second).Format(http.TimeFormat), 30 * time.Second},
		{"past date", now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"garbage", "soon", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Retry-After", tt.header)
			}
			if got := retryAfter(h, now); got != tt.want {
				t.Errorf("retryAfter = %s, want %s", got, tt.want)
			}
		})
	}
}
