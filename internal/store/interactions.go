package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const interactionColumns = `id, flashcard_id, concept_id, is_correct, confidence_before, bloom_level,
	time_taken_ms, xp_earned, coins_earned, calibration_accuracy, timestamp`

func (s *Store) fillInteraction(in *ReviewInteraction) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = s.now()
	}
}

func insertInteraction(ctx context.Context, db sqlx.ExtContext, in *ReviewInteraction) error {
	_, err := sqlx.NamedExecContext(ctx, db, `INSERT INTO review_interactions (`+interactionColumns+`) VALUES (
		:id, :flashcard_id, :concept_id, :is_correct, :confidence_before, :bloom_level,
		:time_taken_ms, :xp_earned, :coins_earned, :calibration_accuracy, :timestamp)`, in)
	if err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

// errReviewRaced rolls back a RecordReview whose mastery write lost.
var errReviewRaced = errors.New("review lost mastery race")

// RecordReview writes one answered card in a single transaction: the
// conditional mastery update, the interaction row and the capital credit.
// Either all three apply or none do. applied is false when the mastery
// write found a review_count other than w.ExpectedReviewCount.
func (s *Store) RecordReview(ctx context.Context, w ReviewWrite) (capital int64, applied bool, err error) {
	in := w.Interaction
	if in == nil {
		return 0, false, errors.New("record review: interaction is required")
	}
	if w.Mastery != nil && in.ConceptID == nil {
		return 0, false, errors.New("record review: mastery update without concept")
	}
	s.fillInteraction(in)

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		if w.Mastery != nil {
			ok, err := updateMastery(ctx, tx, *in.ConceptID, w.ExpectedReviewCount, *w.Mastery)
			if err != nil {
				return err
			}
			if !ok {
				return errReviewRaced
			}
		}
		if err := insertInteraction(ctx, tx, in); err != nil {
			return err
		}
		balance, err := credit(ctx, tx, w.Coins, in.Timestamp)
		if err != nil {
			return err
		}
		capital = balance
		return nil
	})
	if errors.Is(err, errReviewRaced) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return capital, true, nil
}

func (s *Store) InteractionTotals(ctx context.Context) (int, int64, error) {
	var row struct {
		N  int   `db:"n"`
		XP int64 `db:"xp"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT COUNT(*) AS n, COALESCE(SUM(xp_earned), 0) AS xp FROM review_interactions`)
	if err != nil {
		return 0, 0, fmt.Errorf("interaction totals: %w", err)
	}
	return row.N, row.XP, nil
}

func (s *Store) InteractionsForConcept(ctx context.Context, conceptID string, limit int) ([]ReviewInteraction, error) {
	if limit <= 0 {
		limit = -1
	}
	var out []ReviewInteraction
	err := s.db.SelectContext(ctx, &out, `SELECT `+interactionColumns+` FROM review_interactions
		WHERE concept_id = ? ORDER BY timestamp DESC LIMIT ?`, conceptID, limit)
	if err != nil {
		return nil, fmt.Errorf("interactions for concept %s: %w", conceptID, err)
	}
	return out, nil
}
