package queue

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lumen/internal/extract"
	"github.com/abhisek/lumen/internal/llm"
	"github.com/abhisek/lumen/internal/questions"
	"github.com/abhisek/lumen/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createDocument(t *testing.T, s *store.Store, pages ...string) []store.Chunk {
	t.Helper()
	var in []store.PageText
	for i, p := range pages {
		in = append(in, store.PageText{PageNumber: i + 1, Content: p})
	}
	_, chunks, err := s.CreateDocument(context.Background(), "notes.pdf", in)
	require.NoError(t, err)
	return chunks
}

func newScheduler(s *store.Store, p llm.Provider) *Scheduler {
	ex := extract.New(p, s, extract.DefaultConfig(), nil, extract.WithRand(rand.New(rand.NewPCG(1, 1))))
	gen := questions.New(p, s, questions.DefaultConfig(), nil)
	return New(s, ex, gen, nil)
}

func conceptsResponse(names ...string) llm.MockResponse {
	type c struct {
		Name        string `json:"name"`
		Topic       string `json:"topic"`
		Description string `json:"description"`
	}
	var out struct {
		Concepts []c `json:"concepts"`
	}
	for _, n := range names {
		out.Concepts = append(out.Concepts, c{Name: n, Topic: "Operations", Description: n + " description"})
	}
	b, _ := json.Marshal(out)
	return llm.MockResponse{Content: b}
}

func questionsResponse(n int) llm.MockResponse {
	items := make([]questions.Item, n)
	for i := range items {
		items[i] = questions.Item{Question: "Why does it matter?", TargetExplanation: "It reduces waste."}
	}
	b, _ := json.Marshal(map[string]any{"questions": items})
	return llm.MockResponse{Content: b}
}

func chunkStatus(t *testing.T, s *store.Store, id string) store.ChunkStatus {
	t.Helper()
	cs, err := s.GetChunks(context.Background(), []string{id})
	require.NoError(t, err)
	require.Len(t, cs, 1)
	return cs[0].Status
}

func TestStep_IdleOnEmptyStore(t *testing.T) {
	s := openTestStore(t)
	mock := llm.NewMockProvider()

	res, err := newScheduler(s, mock).Step(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, res.Status)
	assert.Equal(t, 0, mock.CallCount())
}

func TestStep_ProcessesPendingChunk(t *testing.T) {
	s := openTestStore(t)
	chunks := createDocument(t, s, "Lean removes waste.")
	mock := llm.NewMockProvider(conceptsResponse("Lean Manufacturing", "Waste"))

	res, err := newScheduler(s, mock).Step(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, res.Status)
	assert.Equal(t, chunks[0].ID, res.ChunkID)
	assert.Equal(t, 2, res.ConceptsExtracted)
	assert.Equal(t, store.ChunkCompleted, chunkStatus(t, s, chunks[0].ID))

	concepts, err := s.ListConcepts(context.Background())
	require.NoError(t, err)
	require.Len(t, concepts, 2)
	for _, c := range concepts {
		assert.Equal(t, 1, c.NeedsGenerationLevel)
		assert.Equal(t, []string{chunks[0].ID}, []string(c.SourceChunkIDs))
	}
}

func TestStep_EmptyExtractionFailsChunk(t *testing.T) {
	s := openTestStore(t)
	chunks := createDocument(t, s, "Table of contents.")
	mock := llm.NewMockProvider(conceptsResponse())

	res, err := newScheduler(s, mock).Step(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, res.Status)
	assert.Equal(t, 0, res.ConceptsExtracted)
	assert.Equal(t, store.ChunkFailed, chunkStatus(t, s, chunks[0].ID))
}

func TestStep_TransientErrorReleasesChunk(t *testing.T) {
	s := openTestStore(t)
	chunks := createDocument(t, s, "Some text.")
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrRateLimit{Err: errors.New("429")}})

	_, err := newScheduler(s, mock).Step(context.Background(), "")
	var rl *llm.ErrRateLimit
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, store.ChunkPending, chunkStatus(t, s, chunks[0].ID))
}

func TestStep_LostClaimsAreNotIdle(t *testing.T) {
	s := openTestStore(t)
	createDocument(t, s, "Contended text.")
	_, err := s.DB().Exec(`CREATE TRIGGER steal_claims BEFORE UPDATE OF status ON chunks
		WHEN NEW.status = 'processing' BEGIN SELECT RAISE(IGNORE); END`)
	require.NoError(t, err)

	res, err := newScheduler(s, llm.NewMockProvider()).Step(context.Background(), "")
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Nil(t, res)
}

func TestStep_GeneratesQuestionsWhenNoChunksPending(t *testing.T) {
	s := openTestStore(t)
	createDocument(t, s, "Kanban limits work in progress.")
	mock := llm.NewMockProvider(conceptsResponse("Kanban"), questionsResponse(3))
	q := newScheduler(s, mock)

	_, err := q.Step(context.Background(), "")
	require.NoError(t, err)

	res, err := q.Step(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, StatusGenerated, res.Status)
	assert.Equal(t, 3, res.CardsGenerated)
	assert.Equal(t, 1, res.Level)

	c, err := s.GetConcept(context.Background(), res.ConceptID)
	require.NoError(t, err)
	assert.Equal(t, 2, c.NeedsGenerationLevel)
	assert.False(t, c.NeedsQuestions())
}

func TestStep_TargetConceptTakesPriority(t *testing.T) {
	s := openTestStore(t)
	chunks := createDocument(t, s, "First.", "Second.")
	cs, err := s.InsertConcepts(context.Background(), []store.NewConcept{{
		Name: "Target", Topic: "T", SourceChunkIDs: []string{chunks[0].ID},
	}})
	require.NoError(t, err)
	mock := llm.NewMockProvider(questionsResponse(2))

	res, err := newScheduler(s, mock).Step(context.Background(), cs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusGenerated, res.Status)
	assert.Equal(t, cs[0].ID, res.ConceptID)
	// Chunks were left alone.
	assert.Equal(t, store.ChunkPending, chunkStatus(t, s, chunks[0].ID))
	assert.Equal(t, store.ChunkPending, chunkStatus(t, s, chunks[1].ID))
}

func TestStep_UnknownOrSatisfiedTargetFallsThrough(t *testing.T) {
	s := openTestStore(t)
	chunks := createDocument(t, s, "Text.")
	mock := llm.NewMockProvider(conceptsResponse("Something"))

	res, err := newScheduler(s, mock).Step(context.Background(), "no-such-concept")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, res.Status)
	assert.Equal(t, chunks[0].ID, res.ChunkID)
}

func TestStep_MalformedGenerationIsSkipped(t *testing.T) {
	s := openTestStore(t)
	createDocument(t, s, "Text.")
	mock := llm.NewMockProvider(conceptsResponse("Six Sigma"), llm.MockResponse{Content: json.RawMessage(`{oops`)})
	q := newScheduler(s, mock)

	results, err := q.RunUntilIdle(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	last := results[1]
	assert.Equal(t, StatusGenerated, last.Status)
	assert.True(t, last.Skipped)

	c, err := s.GetConcept(context.Background(), last.ConceptID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.NeedsGenerationLevel)
}

func TestRunUntilIdle_DrainsPipeline(t *testing.T) {
	s := openTestStore(t)
	createDocument(t, s, "Page one.", "Page two.")
	mock := llm.NewMockProvider(
		conceptsResponse("Alpha"),
		conceptsResponse("Beta"),
		questionsResponse(2),
		questionsResponse(2),
	)

	results, err := newScheduler(s, mock).RunUntilIdle(context.Background(), 0)
	require.NoError(t, err)

	var statuses []Status
	for _, r := range results {
		statuses = append(statuses, r.Status)
	}
	assert.Equal(t, []Status{StatusProcessed, StatusProcessed, StatusGenerated, StatusGenerated, StatusIdle}, statuses)

	cards, err := s.ListFlashcards(context.Background(), store.FlashcardFilter{})
	require.NoError(t, err)
	assert.Len(t, cards, 4)
}

func TestRunUntilIdle_RespectsMax(t *testing.T) {
	s := openTestStore(t)
	createDocument(t, s, "One.", "Two.", "Three.")
	mock := llm.NewMockProvider(conceptsResponse("A"), conceptsResponse("B"))

	results, err := newScheduler(s, mock).RunUntilIdle(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRecoverStale(t *testing.T) {
	s := openTestStore(t)
	chunks := createDocument(t, s, "Text.")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return base })

	claimed, err := s.ClaimPendingChunk(context.Background())
	require.NoError(t, err)
	require.NotNil(t, claimed)

	q := newScheduler(s, llm.NewMockProvider())
	q.now = func() time.Time { return base.Add(5 * time.Minute) }
	n, err := q.RecoverStale(context.Background(), 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	q.now = func() time.Time { return base.Add(time.Hour) }
	n, err = q.RecoverStale(context.Background(), 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, store.ChunkPending, chunkStatus(t, s, chunks[0].ID))
}

type countingExtractor struct {
	mu   sync.Mutex
	seen map[string]int
}

func (e *countingExtractor) ExtractForChunk(_ context.Context, c store.Chunk) ([]store.Concept, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen[c.ID]++
	return []store.Concept{{ID: c.ID + "-concept"}}, nil
}

type noopGenerator struct{}

func (noopGenerator) Generate(context.Context, *store.Concept) (*questions.Result, error) {
	return &questions.Result{}, nil
}

func TestStep_ConcurrentCallsNeverShareAChunk(t *testing.T) {
	s := openTestStore(t)
	createDocument(t, s, "1.", "2.", "3.", "4.", "5.", "6.")
	ex := &countingExtractor{seen: map[string]int{}}
	q := New(s, ex, noopGenerator{}, nil)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = q.Step(context.Background(), "")
		}()
	}
	wg.Wait()

	// A caller that kept losing claim races gave up with ErrConflict; drain
	// whatever is left sequentially.
	for {
		res, err := q.Step(context.Background(), "")
		require.NoError(t, err)
		if res.Status == StatusIdle {
			break
		}
	}

	assert.Len(t, ex.seen, 6)
	for id, n := range ex.seen {
		assert.Equal(t, 1, n, "chunk %s processed more than once", id)
	}
}
