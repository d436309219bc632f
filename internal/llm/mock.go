package llm

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
)

const mockModel = "mock"

// MockResponse is one scripted reply. Err wins over Content when set.
type MockResponse struct {
	Content    json.RawMessage
	Usage      Usage
	StopReason string // "end" when empty
	Err        error
}

// MockJSON scripts a reply whose content is v marshalled to JSON. It panics
// on values json cannot encode; callers pass literals.
func MockJSON(v any) MockResponse {
	b, err := json.Marshal(v)
	if err != nil {
		panic("llm: MockJSON: " + err.Error())
	}
	return MockResponse{Content: b}
}

// MockProvider replays scripted responses in order and records each
// request it receives. Once the script runs out every call fails with
// ErrProviderUnavailable, which the pipeline treats as transient.
type MockProvider struct {
	mu     sync.Mutex
	script []MockResponse
	Calls  []Request
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{script: responses}
}

func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	if len(m.script) == 0 {
		return nil, &ErrProviderUnavailable{}
	}
	next := m.script[0]
	m.script = m.script[1:]

	if next.Err != nil {
		return nil, next.Err
	}
	stop := next.StopReason
	if stop == "" {
		stop = "end"
	}
	return &Response{
		Content:    next.Content,
		Usage:      next.Usage,
		Model:      mockModel,
		StopReason: stop,
	}, nil
}

func (m *MockProvider) ModelID() string { return mockModel }

// AddResponse appends to the script.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, resp)
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Requests returns a copy of the recorded requests, safe to read while
// other goroutines keep calling Generate.
func (m *MockProvider) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Calls)
}

// Pending reports how many scripted responses have not been consumed.
func (m *MockProvider) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.script)
}
