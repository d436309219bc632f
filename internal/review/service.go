// Package review records answered flashcards and runs them through scoring,
// mastery, and the capital ledger.
package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/lumen/internal/llm"
	"github.com/abhisek/lumen/internal/mastery"
	"github.com/abhisek/lumen/internal/scoring"
	"github.com/abhisek/lumen/internal/store"
)

// Store is the persistence the review flows need.
type Store interface {
	GetFlashcard(ctx context.Context, id string) (*store.Flashcard, error)
	GetConcept(ctx context.Context, id string) (*store.Concept, error)
}

// Recorder persists one review's mastery change, interaction and coins
// together.
type Recorder interface {
	Record(ctx context.Context, r mastery.Review) (*mastery.Recorded, error)
}

// Service implements the review flows.
type Service struct {
	store    Store
	recorder Recorder
	provider llm.Provider
	log      *zap.Logger
	now      func() time.Time
}

// New creates a Service. provider may be a disabled provider, in which
// case Evaluate and Remediate fail and RecordInteraction still works.
func New(s Store, r Recorder, provider llm.Provider, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    s,
		recorder: r,
		provider: provider,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// InteractionInput is one self-graded answer. Pointer fields are required.
type InteractionInput struct {
	FlashcardID      string `json:"flashcardId"`
	IsCorrect        *bool  `json:"isCorrect"`
	ConfidenceBefore *int   `json:"confidenceBefore"`
	TimeTakenMs      int64  `json:"timeTakenMs"`
}

// Outcome is the effect of one recorded answer.
type Outcome struct {
	scoring.Reward
	InteractionID string              `json:"interactionId"`
	MasteryUpdate *mastery.Transition `json:"masteryUpdate"`
	Capital       int64               `json:"capital"`
}

func validateConfidence(field string, c *int) error {
	if c == nil {
		return invalid(field, "is required")
	}
	if *c < 0 || *c > 100 {
		return invalid(field, fmt.Sprintf("must be between 0 and 100, got %d", *c))
	}
	return nil
}

func (in InteractionInput) validate() error {
	if in.FlashcardID == "" {
		return invalid("flashcardId", "is required")
	}
	if in.IsCorrect == nil {
		return invalid("isCorrect", "is required")
	}
	if err := validateConfidence("confidenceBefore", in.ConfidenceBefore); err != nil {
		return err
	}
	if in.TimeTakenMs < 0 {
		return invalid("timeTakenMs", "must not be negative")
	}
	return nil
}

// RecordInteraction scores the answer at the card's bloom level, updates the
// card's concept, appends the interaction, and credits the earned coins.
func (s *Service) RecordInteraction(ctx context.Context, in InteractionInput) (*Outcome, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	card, err := s.store.GetFlashcard(ctx, in.FlashcardID)
	if err != nil {
		return nil, err
	}
	return s.record(ctx, card, *in.IsCorrect, *in.ConfidenceBefore, in.TimeTakenMs)
}

func (s *Service) record(ctx context.Context, card *store.Flashcard, isCorrect bool, confidence int, timeTakenMs int64) (*Outcome, error) {
	reward := scoring.Calculate(isCorrect, confidence, card.BloomLevel)

	interaction := &store.ReviewInteraction{
		ID:                  uuid.NewString(),
		FlashcardID:         card.ID,
		ConceptID:           card.ConceptID,
		IsCorrect:           isCorrect,
		ConfidenceBefore:    confidence,
		BloomLevel:          card.BloomLevel,
		TimeTakenMs:         timeTakenMs,
		XPEarned:            reward.XP,
		CoinsEarned:         reward.Coins,
		CalibrationAccuracy: reward.CalibrationAccuracy,
		Timestamp:           s.now(),
	}
	rec, err := s.recorder.Record(ctx, mastery.Review{
		IsCorrect:   isCorrect,
		Confidence:  confidence,
		Interaction: interaction,
		Coins:       int64(reward.Coins),
	})
	if err != nil {
		return nil, fmt.Errorf("record review: %w", err)
	}
	out := &Outcome{
		Reward:        reward,
		InteractionID: interaction.ID,
		MasteryUpdate: rec.Transition,
		Capital:       rec.Capital,
	}

	s.log.Debug("recorded interaction",
		zap.String("flashcard_id", card.ID),
		zap.Bool("correct", isCorrect),
		zap.Int("xp", reward.XP),
		zap.String("feedback", string(reward.FeedbackType)))
	return out, nil
}
