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

const conceptColumns = `id, document_id, name, topic, description, bloom_level, mastery_score,
	correct_streak, last_reviewed_at, review_count, needs_generation_level, source_chunk_ids, created_at`

// InsertConcepts stores new concepts at bloom level 1 with zero mastery.
// Every concept must reference at least one source chunk.
func (s *Store) InsertConcepts(ctx context.Context, concepts []NewConcept) ([]Concept, error) {
	now := s.now()
	out := make([]Concept, 0, len(concepts))
	for _, nc := range concepts {
		if len(nc.SourceChunkIDs) == 0 {
			return nil, fmt.Errorf("concept %q has no source chunks", nc.Name)
		}
		c := Concept{
			ID:                   uuid.NewString(),
			Name:                 strings.TrimSpace(nc.Name),
			Topic:                strings.TrimSpace(nc.Topic),
			Description:          strings.TrimSpace(nc.Description),
			BloomLevel:           MinBloomLevel,
			MasteryScore:         0,
			NeedsGenerationLevel: MinBloomLevel,
			SourceChunkIDs:       StringList(nc.SourceChunkIDs),
			CreatedAt:            now,
		}
		if nc.DocumentID != "" {
			docID := nc.DocumentID
			c.DocumentID = &docID
		}
		out = append(out, c)
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for i := range out {
			if err := insertConcept(ctx, tx, &out[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func insertConcept(ctx context.Context, tx *sqlx.Tx, c *Concept) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO concepts (`+conceptColumns+`) VALUES (
		:id, :document_id, :name, :topic, :description, :bloom_level, :mastery_score,
		:correct_streak, :last_reviewed_at, :review_count, :needs_generation_level, :source_chunk_ids, :created_at)`, c)
	if err != nil {
		return fmt.Errorf("insert concept %q: %w", c.Name, err)
	}
	return nil
}

func (s *Store) GetConcept(ctx context.Context, id string) (*Concept, error) {
	return getConcept(ctx, s.db, id)
}

func getConcept(ctx context.Context, q sqlx.QueryerContext, id string) (*Concept, error) {
	var c Concept
	err := sqlx.GetContext(ctx, q, &c, `SELECT `+conceptColumns+` FROM concepts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get concept %s: %w", id, err)
	}
	return &c, nil
}

func (s *Store) ListConcepts(ctx context.Context) ([]Concept, error) {
	var cs []Concept
	if err := s.db.SelectContext(ctx, &cs,
		`SELECT `+conceptColumns+` FROM concepts ORDER BY topic, created_at`); err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}
	return cs, nil
}

func (s *Store) NextConceptNeedingQuestions(ctx context.Context) (*Concept, error) {
	var c Concept
	err := s.db.GetContext(ctx, &c, `SELECT `+conceptColumns+` FROM concepts
		WHERE needs_generation_level <= bloom_level AND needs_generation_level < ?
		ORDER BY created_at LIMIT 1`, BloomDone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next concept needing questions: %w", err)
	}
	return &c, nil
}

func (s *Store) StudyCandidates(ctx context.Context, limit int) ([]Concept, error) {
	var cs []Concept
	err := s.db.SelectContext(ctx, &cs, `SELECT `+conceptColumns+` FROM concepts
		ORDER BY (last_reviewed_at IS NOT NULL), mastery_score ASC, last_reviewed_at ASC, created_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("study candidates: %w", err)
	}
	return cs, nil
}

func (s *Store) WeakestInTopic(ctx context.Context, topic, excludeID string, limit int) ([]Concept, error) {
	var cs []Concept
	err := s.db.SelectContext(ctx, &cs, `SELECT `+conceptColumns+` FROM concepts
		WHERE topic = ? AND id <> ?
		ORDER BY mastery_score ASC, created_at ASC
		LIMIT ?`, topic, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("weakest in topic %q: %w", topic, err)
	}
	return cs, nil
}

// updateMastery is a compare-and-swap keyed on review_count, which every
// mastery write increments.
func updateMastery(ctx context.Context, db sqlx.ExtContext, id string, expectedReviewCount int, upd MasteryUpdate) (bool, error) {
	q, args := builder().Update("concepts").
		Set("bloom_level", upd.BloomLevel).
		Set("mastery_score", upd.MasteryScore).
		Set("correct_streak", upd.CorrectStreak).
		Set("last_reviewed_at", upd.LastReviewedAt.UTC()).
		Set("review_count", expectedReviewCount+1).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("review_count", expectedReviewCount))).
		Query()
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("update mastery %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return true, nil
	}
	if _, err := getConcept(ctx, db, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Store) MarkGenerationDone(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE concepts SET needs_generation_level = ? WHERE id = ?`, BloomDone, id)
	if err != nil {
		return fmt.Errorf("mark generation done %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
