package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an optimistic update keeps losing to
	// concurrent writers.
	ErrConflict = errors.New("concurrent update conflict")
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
	Filter string    // purpose filter for LLM events
}

// DocumentRepo stores ingested documents and their chunks.
type DocumentRepo interface {
	// CreateDocument inserts a document and all of its chunks as pending,
	// in one transaction.
	CreateDocument(ctx context.Context, name string, pages []PageText) (*Document, []Chunk, error)
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context) ([]Document, error)
	// DocumentsWithoutConcepts returns ids of documents that have chunks but
	// no concepts.
	DocumentsWithoutConcepts(ctx context.Context) ([]string, error)
}

// ChunkRepo is the ChunkStore.
type ChunkRepo interface {
	ChunksForDocument(ctx context.Context, documentID string) ([]Chunk, error)
	GetChunks(ctx context.Context, ids []string) ([]Chunk, error)

	// ClaimPendingChunk atomically moves one pending chunk to processing
	// and returns it. Returns (nil, nil) when no chunk is pending and
	// ErrConflict when concurrent claimers kept winning.
	ClaimPendingChunk(ctx context.Context) (*Chunk, error)

	// SetChunkStatus finishes a claimed chunk.
	SetChunkStatus(ctx context.Context, id string, status ChunkStatus) error

	// ResetStaleChunks returns processing chunks untouched since before
	// cutoff to pending. Returns the number of chunks reset.
	ResetStaleChunks(ctx context.Context, cutoff time.Time) (int, error)

	CountChunksByStatus(ctx context.Context) (map[ChunkStatus]int, error)
}

// ConceptRepo stores concepts and their mastery state.
type ConceptRepo interface {
	InsertConcepts(ctx context.Context, concepts []NewConcept) ([]Concept, error)
	GetConcept(ctx context.Context, id string) (*Concept, error)
	ListConcepts(ctx context.Context) ([]Concept, error)

	// NextConceptNeedingQuestions returns one concept whose current level
	// lacks questions, or nil.
	NextConceptNeedingQuestions(ctx context.Context) (*Concept, error)

	// StudyCandidates returns up to limit concepts in review-urgency order:
	// never reviewed first, then lowest mastery, then oldest review.
	StudyCandidates(ctx context.Context, limit int) ([]Concept, error)

	// WeakestInTopic returns up to limit concepts sharing topic, excluding
	// excludeID, lowest mastery first.
	WeakestInTopic(ctx context.Context, topic, excludeID string, limit int) ([]Concept, error)

	// MarkGenerationDone sets needs_generation_level to BloomDone.
	MarkGenerationDone(ctx context.Context, id string) error
}

// FlashcardRepo stores generated questions.
type FlashcardRepo interface {
	// SaveGeneratedCards inserts cards and sets the concept's
	// needs_generation_level in one transaction.
	SaveGeneratedCards(ctx context.Context, conceptID string, nextLevel int, cards []Flashcard) error
	GetFlashcard(ctx context.Context, id string) (*Flashcard, error)
	ListFlashcards(ctx context.Context, f FlashcardFilter) ([]Flashcard, error)
}

// FlashcardFilter narrows ListFlashcards. Zero values are ignored.
type FlashcardFilter struct {
	ConceptIDs    []string
	DocumentID    string
	MaxBloomLevel int
	Limit         int
}

// InteractionRepo is the append-only review log.
type InteractionRepo interface {
	// RecordReview applies a review's mastery update, interaction row and
	// capital credit in one transaction. The mastery write is a
	// compare-and-swap on review_count, which it increments. Reports false,
	// writing nothing, when that compare-and-swap lost.
	RecordReview(ctx context.Context, w ReviewWrite) (capital int64, applied bool, err error)
	InteractionTotals(ctx context.Context) (count int, totalXP int64, err error)
	InteractionsForConcept(ctx context.Context, conceptID string, limit int) ([]ReviewInteraction, error)
}

// ResourceRepo stores the singleton player economy row.
type ResourceRepo interface {
	// Resources returns the player row, creating it on first access.
	Resources(ctx context.Context) (*PlayerResources, error)

	// Debit subtracts cost and sets the venture level if capital is still
	// at least cost and the level still equals fromLevel. Reports whether
	// the debit applied.
	Debit(ctx context.Context, cost int64, fromLevel, toLevel int) (bool, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)
	LLMUsageStats(ctx context.Context) ([]LLMUsage, error)
}

// Repository is the full persistence surface, constructed once and passed
// to every component.
type Repository interface {
	DocumentRepo
	ChunkRepo
	ConceptRepo
	FlashcardRepo
	InteractionRepo
	ResourceRepo
	EventRepo

	// EnsureSeeded loads the demo deck when the store holds no concepts.
	// Safe to call repeatedly.
	EnsureSeeded(ctx context.Context) (bool, error)
}
