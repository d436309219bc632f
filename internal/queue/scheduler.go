// Package queue advances the generation pipeline one unit of work per call:
// a requested concept, else a pending chunk, else a concept lacking
// questions.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/lumen/internal/extract"
	"github.com/abhisek/lumen/internal/llm"
	"github.com/abhisek/lumen/internal/questions"
	"github.com/abhisek/lumen/internal/store"
)

// Status is the outcome kind of one Step.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusProcessed Status = "processed"
	StatusGenerated Status = "generated"
)

// Result is what a Step did.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`

	ChunkID           string `json:"chunkId,omitempty"`
	ConceptsExtracted int    `json:"conceptsExtracted"`

	ConceptID      string `json:"conceptId,omitempty"`
	CardsGenerated int    `json:"cardsGenerated"`
	Level          int    `json:"level,omitempty"`

	// Skipped is set when question generation hit unusable output and the
	// concept was left for a later pass.
	Skipped bool `json:"skipped,omitempty"`
}

// Store is the persistence the scheduler needs.
type Store interface {
	GetConcept(ctx context.Context, id string) (*store.Concept, error)
	NextConceptNeedingQuestions(ctx context.Context) (*store.Concept, error)
	ClaimPendingChunk(ctx context.Context) (*store.Chunk, error)
	SetChunkStatus(ctx context.Context, id string, status store.ChunkStatus) error
	ResetStaleChunks(ctx context.Context, cutoff time.Time) (int, error)
}

// ChunkExtractor turns one chunk into stored concepts.
type ChunkExtractor interface {
	ExtractForChunk(ctx context.Context, chunk store.Chunk) ([]store.Concept, error)
}

// QuestionGenerator creates flashcards for a concept.
type QuestionGenerator interface {
	Generate(ctx context.Context, c *store.Concept) (*questions.Result, error)
}

// Scheduler is the pull-based generation coordinator. It holds no state
// between calls; concurrent Steps are safe because chunk claiming is an
// atomic conditional update.
type Scheduler struct {
	store     Store
	extractor ChunkExtractor
	generator QuestionGenerator
	log       *zap.Logger
	now       func() time.Time
}

// New creates a Scheduler.
func New(s Store, extractor ChunkExtractor, generator QuestionGenerator, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		store:     s,
		extractor: extractor,
		generator: generator,
		log:       log,
		now:       time.Now,
	}
}

// Step performs at most one unit of work. targetConceptID may be empty.
func (s *Scheduler) Step(ctx context.Context, targetConceptID string) (*Result, error) {
	if targetConceptID != "" {
		c, err := s.store.GetConcept(ctx, targetConceptID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			s.log.Debug("target concept not found", zap.String("concept_id", targetConceptID))
		case err != nil:
			return nil, err
		case c.NeedsQuestions():
			s.log.Info("prioritizing target concept", zap.String("concept_id", c.ID))
			return s.generate(ctx, c)
		}
	}

	chunk, err := s.store.ClaimPendingChunk(ctx)
	if err != nil {
		return nil, err
	}
	if chunk != nil {
		return s.processChunk(ctx, chunk)
	}

	c, err := s.store.NextConceptNeedingQuestions(ctx)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return s.generate(ctx, c)
	}

	return &Result{Status: StatusIdle, Message: "no chunks or concepts pending processing"}, nil
}

// RunUntilIdle calls Step until the pipeline is idle, a work item is
// skipped, or max steps have run (max <= 0 means no limit).
func (s *Scheduler) RunUntilIdle(ctx context.Context, max int) ([]Result, error) {
	var results []Result
	for max <= 0 || len(results) < max {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.Step(ctx, "")
		if err != nil {
			return results, err
		}
		results = append(results, *res)
		if res.Status == StatusIdle || res.Skipped {
			break
		}
	}
	return results, nil
}

// RecoverStale returns chunks stuck in processing for longer than
// olderThan to pending, e.g. after a crash mid-extraction.
func (s *Scheduler) RecoverStale(ctx context.Context, olderThan time.Duration) (int, error) {
	n, err := s.store.ResetStaleChunks(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("reset stale chunks", zap.Int("count", n))
	}
	return n, nil
}

func (s *Scheduler) processChunk(ctx context.Context, chunk *store.Chunk) (*Result, error) {
	log := s.log.With(zap.String("chunk_id", chunk.ID))
	log.Info("processing chunk")

	concepts, err := s.extractor.ExtractForChunk(ctx, *chunk)
	if err != nil {
		if isMalformed(err) {
			log.Warn("chunk produced no usable concepts", zap.Error(err))
			if serr := s.store.SetChunkStatus(ctx, chunk.ID, store.ChunkFailed); serr != nil {
				return nil, serr
			}
			return &Result{
				Status:  StatusProcessed,
				ChunkID: chunk.ID,
				Message: "no concepts extracted",
			}, nil
		}

		// Transient failure: release the claim so a later pass retries.
		if serr := s.store.SetChunkStatus(context.WithoutCancel(ctx), chunk.ID, store.ChunkPending); serr != nil {
			log.Error("release chunk claim", zap.Error(serr))
		}
		return nil, fmt.Errorf("process chunk %s: %w", chunk.ID, err)
	}

	if err := s.store.SetChunkStatus(ctx, chunk.ID, store.ChunkCompleted); err != nil {
		return nil, err
	}
	return &Result{
		Status:            StatusProcessed,
		ChunkID:           chunk.ID,
		ConceptsExtracted: len(concepts),
	}, nil
}

func (s *Scheduler) generate(ctx context.Context, c *store.Concept) (*Result, error) {
	log := s.log.With(zap.String("concept_id", c.ID), zap.Int("level", c.BloomLevel))
	log.Info("generating questions", zap.String("concept", c.Name))

	res, err := s.generator.Generate(ctx, c)
	if err != nil {
		if isMalformed(err) {
			log.Warn("question generation skipped", zap.Error(err))
			return &Result{
				Status:    StatusGenerated,
				ConceptID: c.ID,
				Level:     c.BloomLevel,
				Message:   "generation produced no usable questions",
				Skipped:   true,
			}, nil
		}
		return nil, fmt.Errorf("generate questions for %s: %w", c.ID, err)
	}

	out := &Result{
		Status:         StatusGenerated,
		ConceptID:      c.ID,
		CardsGenerated: len(res.Cards),
		Level:          res.Level,
	}
	if res.Done {
		out.Message = "concept has no further levels to generate"
	}
	return out, nil
}

// isMalformed reports whether err means the service answered with output
// that cannot be used. Such items are skipped rather than retried now.
func isMalformed(err error) bool {
	return llm.IsMalformed(err) ||
		errors.Is(err, extract.ErrNoConcepts) ||
		errors.Is(err, questions.ErrNoQuestions)
}
