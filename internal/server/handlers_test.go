package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lumen/internal/config"
	"github.com/abhisek/lumen/internal/economy"
	"github.com/abhisek/lumen/internal/extract"
	"github.com/abhisek/lumen/internal/ingest"
	"github.com/abhisek/lumen/internal/llm"
	"github.com/abhisek/lumen/internal/mastery"
	"github.com/abhisek/lumen/internal/queue"
	"github.com/abhisek/lumen/internal/questions"
	"github.com/abhisek/lumen/internal/review"
	"github.com/abhisek/lumen/internal/store"
	"github.com/abhisek/lumen/internal/study"
)

type testEnv struct {
	store   *store.Store
	handler http.Handler
}

func newTestEnv(t *testing.T, seed bool, responses ...llm.MockResponse) *testEnv {
	t.Helper()
	s, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	if seed {
		_, err = s.EnsureSeeded(context.Background())
		require.NoError(t, err)
	}

	provider := llm.NewMockProvider(responses...)
	ledger := economy.NewLedger(s, nil)
	deps := Deps{
		Queue: queue.New(s,
			extract.New(provider, s, extract.DefaultConfig(), nil),
			questions.New(provider, s, questions.DefaultConfig(), nil), nil),
		Decks:     study.NewDeckBuilder(s),
		Review:    review.New(s, mastery.NewEngine(s, nil), provider, nil),
		Economy:   ledger,
		Ecosystem: economy.NewViewer(s, time.Now),
		Ingest:    ingest.NewService(s, ingest.DefaultMaxChars, nil),
		Library:   s,
	}
	srv := New(deps, config.ServerConfig{WriteTimeout: 30 * time.Second}, nil)
	return &testEnv{store: s, handler: srv.Handler()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestGenerate_ReturnsDeck(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var deck study.Deck
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deck))
	assert.NotEmpty(t, deck.Flashcards)
	assert.LessOrEqual(t, len(deck.Flashcards), study.DefaultDeckSize)
	assert.Nil(t, deck.TargetedConcept)
}

func TestGenerate_Targeted(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/generate", map[string]string{"conceptId": "demo-concept-jit"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var deck study.Deck
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deck))
	require.NotNil(t, deck.TargetedConcept)
	assert.Equal(t, "demo-concept-jit", *deck.TargetedConcept)
}

func TestGenerate_NoContent(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/api/generate", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no content ready", decodeBody(t, rec)["error"])
}

func TestProcessQueue_Idle(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/process-queue", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, string(queue.StatusIdle), decodeBody(t, rec)["status"])
}

func TestProcessQueue_ProcessesUploadedDocument(t *testing.T) {
	env := newTestEnv(t, false, llm.MockResponse{
		Content: json.RawMessage(`{"concepts":[{"name":"Kanban","topic":"Production Systems","description":"Visual pull signals."}]}`),
	})

	rec := env.do(t, http.MethodPost, "/api/documents", map[string]any{
		"name":  "notes.pdf",
		"pages": []map[string]any{{"pageNumber": 1, "content": "Kanban uses cards to signal demand."}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decodeBody(t, rec)["chunksCount"])

	rec = env.do(t, http.MethodPost, "/api/process-queue", map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, string(queue.StatusProcessed), body["status"])
	assert.EqualValues(t, 1, body["conceptsExtracted"])
}

func TestInteraction(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/interaction", map[string]any{
		"flashcardId":      "demo-concept-scm-card-1",
		"isCorrect":        true,
		"confidenceBefore": 80,
		"timeTakenMs":      4200,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["interactionId"])
	assert.Greater(t, body["xp"].(float64), 0.0)
	assert.NotNil(t, body["masteryUpdate"])
}

func TestConceptInteractions(t *testing.T) {
	env := newTestEnv(t, true)

	for _, correct := range []bool{true, false} {
		rec := env.do(t, http.MethodPost, "/api/interaction", map[string]any{
			"flashcardId":      "demo-concept-scm-card-1",
			"isCorrect":        correct,
			"confidenceBefore": 60,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/api/concepts/demo-concept-scm/interactions?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decodeBody(t, rec)["interactions"].([]any)
	assert.Len(t, list, 1)

	rec = env.do(t, http.MethodGet, "/api/concepts/unknown/interactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["interactions"])

	rec = env.do(t, http.MethodGet, "/api/concepts/demo-concept-scm/interactions?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueueStatus(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/api/documents", map[string]any{
		"name":  "notes.pdf",
		"pages": []map[string]any{{"pageNumber": 1, "content": "Kanban uses cards to signal demand."}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/queue", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	chunks := decodeBody(t, rec)["chunks"].(map[string]any)
	assert.EqualValues(t, 1, chunks["pending"])
	assert.EqualValues(t, 0, chunks["failed"])
}

func TestInteraction_Errors(t *testing.T) {
	env := newTestEnv(t, true)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"malformed body", `{"flashcardId":`, http.StatusBadRequest},
		{"missing confidence", map[string]any{"flashcardId": "demo-concept-scm-card-1", "isCorrect": true}, http.StatusBadRequest},
		{"unknown card", map[string]any{"flashcardId": "nope", "isCorrect": true, "confidenceBefore": 50}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/interaction", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeBody(t, rec)["error"])
		})
	}
}

func TestEvaluate(t *testing.T) {
	env := newTestEnv(t, true, llm.MockResponse{
		Content: json.RawMessage(`{"is_correct":true,"socratic_feedback":"Nicely put."}`),
	})

	rec := env.do(t, http.MethodPost, "/api/evaluate", map[string]any{
		"cardId":          "demo-concept-scm-card-1",
		"userAnswer":      "Maximize customer value.",
		"confidenceLevel": 70,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["isCorrect"])
	assert.Equal(t, "Nicely put.", body["feedback"])
	assert.Greater(t, body["capitalDelta"].(float64), 0.0)
}

func TestEvaluate_RateLimited(t *testing.T) {
	env := newTestEnv(t, true, llm.MockResponse{Err: &llm.ErrRateLimit{Err: errors.New("429")}})

	rec := env.do(t, http.MethodPost, "/api/evaluate", map[string]any{
		"cardId":          "demo-concept-scm-card-1",
		"userAnswer":      "Something.",
		"confidenceLevel": 70,
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "generative service is rate limited", decodeBody(t, rec)["error"])
}

func TestRemediate_UnknownCard(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/remediate", map[string]string{"cardId": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListFlashcards(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/flashcards?conceptId=demo-concept-scm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Flashcards []store.Flashcard `json:"flashcards"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Flashcards, 2)

	rec = env.do(t, http.MethodGet, "/api/flashcards?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEcosystem(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/ecosystem", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var eco economy.Ecosystem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eco))
	assert.Equal(t, 5, eco.Stats.TotalConcepts)
	assert.Equal(t, 1, eco.Stats.VentureLevel)
}

func TestUpgrade(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/ecosystem/upgrade", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "insufficient funds", body["error"])
	assert.EqualValues(t, 500, body["needed"])
	assert.EqualValues(t, 0, body["have"])

	_, err := env.store.DB().Exec(`UPDATE player_resources SET capital = 600`)
	require.NoError(t, err)

	rec = env.do(t, http.MethodPost, "/api/ecosystem/upgrade", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decodeBody(t, rec)
	assert.EqualValues(t, 2, body["newLevel"])
	assert.EqualValues(t, 100, body["capitalRemaining"])
}

func TestDocuments(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/api/documents", map[string]any{"name": "blank.pdf", "pages": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/documents", map[string]any{"pages": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name is required", decodeBody(t, rec)["error"])

	rec = env.do(t, http.MethodGet, "/api/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Documents []store.Document `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Documents)
}
