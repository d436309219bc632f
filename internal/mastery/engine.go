package mastery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/lumen/internal/store"
)

// DefaultMaxAttempts bounds the compare-and-swap loop in Engine.Record.
const DefaultMaxAttempts = 5

// ConceptStore is the persistence Engine needs.
type ConceptStore interface {
	GetConcept(ctx context.Context, id string) (*store.Concept, error)
	RecordReview(ctx context.Context, w store.ReviewWrite) (int64, bool, error)
}

// Review is one answered card. Interaction.ConceptID selects the concept
// whose mastery moves; a nil ConceptID records the review alone.
type Review struct {
	IsCorrect   bool
	Confidence  int
	Interaction *store.ReviewInteraction
	Coins       int64
}

// Recorded is what Engine.Record persisted.
type Recorded struct {
	// Transition is nil when the review touched no concept.
	Transition *Transition
	Capital    int64
}

// Engine applies review outcomes to persisted concepts.
type Engine struct {
	concepts    ConceptStore
	log         *zap.Logger
	now         func() time.Time
	maxAttempts int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the review timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) { e.maxAttempts = n }
}

// NewEngine creates an Engine over concepts.
func NewEngine(concepts ConceptStore, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		concepts:    concepts,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
		maxAttempts: DefaultMaxAttempts,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Record persists r: the concept's next mastery state, the interaction row
// and the earned coins, all in one store transaction. The mastery write is
// conditional on the concept's review count being unchanged since it was
// read; on a lost race nothing is written and the whole review is retried
// against a fresh read. Returns store.ErrConflict if every attempt loses.
func (e *Engine) Record(ctx context.Context, r Review) (*Recorded, error) {
	conceptID := r.Interaction.ConceptID
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		w := store.ReviewWrite{Interaction: r.Interaction, Coins: r.Coins}
		var t *Transition

		if conceptID != nil {
			c, err := e.concepts.GetConcept(ctx, *conceptID)
			switch {
			case errors.Is(err, store.ErrNotFound):
				e.log.Warn("review concept missing, recording without mastery",
					zap.String("flashcard_id", r.Interaction.FlashcardID),
					zap.String("concept_id", *conceptID))
			case err != nil:
				return nil, err
			default:
				before := State{BloomLevel: c.BloomLevel, MasteryScore: c.MasteryScore, CorrectStreak: c.CorrectStreak}
				after := Apply(before, r.IsCorrect, r.Confidence)
				now := e.now()
				w.Mastery = &store.MasteryUpdate{
					BloomLevel:     after.BloomLevel,
					MasteryScore:   after.MasteryScore,
					CorrectStreak:  after.CorrectStreak,
					LastReviewedAt: now,
				}
				w.ExpectedReviewCount = c.ReviewCount
				t = &Transition{
					ConceptID:  *conceptID,
					Before:     before,
					After:      after,
					Promoted:   after.BloomLevel > before.BloomLevel,
					Demoted:    after.BloomLevel < before.BloomLevel,
					ReviewedAt: now,
				}
			}
		}

		capital, ok, err := e.concepts.RecordReview(ctx, w)
		if w.Mastery != nil && errors.Is(err, store.ErrNotFound) {
			// Deleted between read and write; the next read records without it.
			continue
		}
		if err != nil {
			return nil, err
		}
		if !ok {
			e.log.Debug("mastery update lost race, retrying",
				zap.String("concept_id", *conceptID), zap.Int("attempt", attempt+1))
			continue
		}

		if t != nil && (t.Promoted || t.Demoted) {
			e.log.Info("concept level changed",
				zap.String("concept_id", t.ConceptID),
				zap.Int("from", t.Before.BloomLevel),
				zap.Int("to", t.After.BloomLevel))
		}
		return &Recorded{Transition: t, Capital: capital}, nil
	}
	return nil, fmt.Errorf("record review of %s: %w", r.Interaction.FlashcardID, store.ErrConflict)
}
