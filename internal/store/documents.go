package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const chunkColumns = "id, document_id, page_number, seq, content, status, updated_at"

func (s *Store) CreateDocument(ctx context.Context, name string, pages []PageText) (*Document, []Chunk, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil, fmt.Errorf("document name is required")
	}

	now := s.now()
	doc := &Document{ID: uuid.NewString(), Name: name, UploadedAt: now}
	chunks := make([]Chunk, 0, len(pages))
	for i, p := range pages {
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			PageNumber: p.PageNumber,
			Seq:        i,
			Content:    p.Content,
			Status:     ChunkPending,
			UpdatedAt:  now,
		})
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO documents (id, name, uploaded_at) VALUES (:id, :name, :uploaded_at)`, doc); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		for i := range chunks {
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO chunks (`+chunkColumns+`)
				 VALUES (:id, :document_id, :page_number, :seq, :content, :status, :updated_at)`, &chunks[i]); err != nil {
				return fmt.Errorf("insert chunk %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return doc, chunks, nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	var d Document
	err := s.db.GetContext(ctx, &d, `SELECT id, name, uploaded_at FROM documents WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return &d, nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document
	if err := s.db.SelectContext(ctx, &docs,
		`SELECT id, name, uploaded_at FROM documents ORDER BY uploaded_at DESC`); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (s *Store) DocumentsWithoutConcepts(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT d.id FROM documents d
		WHERE EXISTS (SELECT 1 FROM chunks c WHERE c.document_id = d.id)
		  AND NOT EXISTS (SELECT 1 FROM concepts k WHERE k.document_id = d.id)
		ORDER BY d.uploaded_at`)
	if err != nil {
		return nil, fmt.Errorf("documents without concepts: %w", err)
	}
	return ids, nil
}

func (s *Store) ChunksForDocument(ctx context.Context, documentID string) ([]Chunk, error) {
	var chunks []Chunk
	err := s.db.SelectContext(ctx, &chunks,
		`SELECT `+chunkColumns+` FROM chunks WHERE document_id = ? ORDER BY seq`, documentID)
	if err != nil {
		return nil, fmt.Errorf("chunks for document %s: %w", documentID, err)
	}
	return chunks, nil
}

func (s *Store) GetChunks(ctx context.Context, ids []string) ([]Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q, qargs := builder().Select(splitColumns(chunkColumns)...).
		From(entsql.Table("chunks")).
		Where(entsql.In("id", args...)).
		OrderBy("seq").
		Query()

	var chunks []Chunk
	if err := s.db.SelectContext(ctx, &chunks, q, qargs...); err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	return chunks, nil
}

// ClaimPendingChunk picks the oldest pending chunk and claims it with a
// conditional update. If another caller claimed it first, the next
// candidate is tried. Returns ErrConflict when every attempt loses, so a
// nil chunk always means nothing is pending.
func (s *Store) ClaimPendingChunk(ctx context.Context) (*Chunk, error) {
	const maxAttempts = 5
	for range maxAttempts {
		var c Chunk
		err := s.db.GetContext(ctx, &c,
			`SELECT `+chunkColumns+` FROM chunks WHERE status = ? ORDER BY updated_at, seq LIMIT 1`, ChunkPending)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("select pending chunk: %w", err)
		}

		now := s.now()
		claimed, err := s.transitionChunk(ctx, c.ID, ChunkPending, ChunkProcessing, now)
		if err != nil {
			return nil, err
		}
		if claimed {
			c.Status = ChunkProcessing
			c.UpdatedAt = now
			return &c, nil
		}
	}
	return nil, fmt.Errorf("claim pending chunk: %w", ErrConflict)
}

// transitionChunk sets status to `to` only if it currently equals `from`.
func (s *Store) transitionChunk(ctx context.Context, id string, from, to ChunkStatus, now time.Time) (bool, error) {
	q, args := builder().Update("chunks").
		Set("status", string(to)).
		Set("updated_at", now).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("status", string(from)))).
		Query()
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("transition chunk %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *Store) SetChunkStatus(ctx context.Context, id string, status ChunkStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chunks SET status = ?, updated_at = ? WHERE id = ?`, string(status), s.now(), id)
	if err != nil {
		return fmt.Errorf("set chunk %s status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ResetStaleChunks(ctx context.Context, cutoff time.Time) (int, error) {
	q, args := builder().Update("chunks").
		Set("status", string(ChunkPending)).
		Set("updated_at", s.now()).
		Where(entsql.And(
			entsql.EQ("status", string(ChunkProcessing)),
			entsql.LT("updated_at", cutoff.UTC()),
		)).
		Query()
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("reset stale chunks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (s *Store) CountChunksByStatus(ctx context.Context) (map[ChunkStatus]int, error) {
	var rows []struct {
		Status ChunkStatus `db:"status"`
		N      int         `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS n FROM chunks GROUP BY status`); err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	out := make(map[ChunkStatus]int, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}
