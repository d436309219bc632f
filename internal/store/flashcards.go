package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const flashcardColumns = `id, concept_id, document_id, page_number, source_snippet, question,
	explanation, bloom_level, options, correct_answer, created_at`

// SaveGeneratedCards is all-or-nothing: either every card is stored and the
// concept advances to nextLevel, or nothing changes.
func (s *Store) SaveGeneratedCards(ctx context.Context, conceptID string, nextLevel int, cards []Flashcard) error {
	now := s.now()
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for i := range cards {
			c := &cards[i]
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			if c.ConceptID == nil {
				cid := conceptID
				c.ConceptID = &cid
			}
			c.CreatedAt = now
			if err := insertFlashcard(ctx, tx, c); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE concepts SET needs_generation_level = ? WHERE id = ?`, nextLevel, conceptID)
		if err != nil {
			return fmt.Errorf("advance generation level: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func insertFlashcard(ctx context.Context, tx *sqlx.Tx, c *Flashcard) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO flashcards (`+flashcardColumns+`) VALUES (
		:id, :concept_id, :document_id, :page_number, :source_snippet, :question,
		:explanation, :bloom_level, :options, :correct_answer, :created_at)`, c)
	if err != nil {
		return fmt.Errorf("insert flashcard: %w", err)
	}
	return nil
}

func (s *Store) GetFlashcard(ctx context.Context, id string) (*Flashcard, error) {
	var f Flashcard
	err := s.db.GetContext(ctx, &f, `SELECT `+flashcardColumns+` FROM flashcards WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get flashcard %s: %w", id, err)
	}
	return &f, nil
}

func (s *Store) ListFlashcards(ctx context.Context, f FlashcardFilter) ([]Flashcard, error) {
	sel := builder().Select(splitColumns(flashcardColumns)...).From(entsql.Table("flashcards"))

	var preds []*entsql.Predicate
	if len(f.ConceptIDs) > 0 {
		ids := make([]any, len(f.ConceptIDs))
		for i, id := range f.ConceptIDs {
			ids[i] = id
		}
		preds = append(preds, entsql.In("concept_id", ids...))
	}
	if f.DocumentID != "" {
		preds = append(preds, entsql.EQ("document_id", f.DocumentID))
	}
	if f.MaxBloomLevel > 0 {
		preds = append(preds, entsql.LTE("bloom_level", f.MaxBloomLevel))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy("created_at", "id")
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}

	q, args := sel.Query()
	var cards []Flashcard
	if err := s.db.SelectContext(ctx, &cards, q, args...); err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}
	return cards, nil
}

// splitColumns turns a comma-separated column list into names.
func splitColumns(cols string) []string {
	parts := strings.Split(cols, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
