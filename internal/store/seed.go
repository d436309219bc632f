package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Document struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"document"`
	Chunks []struct {
		ID      string `yaml:"id"`
		Page    int    `yaml:"page"`
		Content string `yaml:"content"`
	} `yaml:"chunks"`
	Concepts []struct {
		ID          string   `yaml:"id"`
		Name        string   `yaml:"name"`
		Topic       string   `yaml:"topic"`
		Description string   `yaml:"description"`
		Chunks      []string `yaml:"chunks"`
		Cards       []struct {
			Question    string `yaml:"question"`
			Explanation string `yaml:"explanation"`
		} `yaml:"cards"`
	} `yaml:"concepts"`
}

func loadSeed() (*seedFile, error) {
	var f seedFile
	if err := yaml.Unmarshal(seedYAML, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &f, nil
}

// EnsureSeeded loads the demo deck if no concepts exist. Reports whether
// anything was inserted. Demo rows have fixed ids, so concurrent or repeated
// calls never duplicate them.
func (s *Store) EnsureSeeded(ctx context.Context) (bool, error) {
	seed, err := loadSeed()
	if err != nil {
		return false, err
	}

	seeded := false
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM concepts`); err != nil {
			return fmt.Errorf("count concepts: %w", err)
		}
		if n > 0 {
			return nil
		}

		now := s.now()
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO documents (id, name, uploaded_at) VALUES (?, ?, ?)`,
			seed.Document.ID, seed.Document.Name, now); err != nil {
			return fmt.Errorf("seed document: %w", err)
		}

		chunks := make(map[string]Chunk, len(seed.Chunks))
		for i, sc := range seed.Chunks {
			c := Chunk{
				ID:         sc.ID,
				DocumentID: seed.Document.ID,
				PageNumber: sc.Page,
				Seq:        i,
				Content:    sc.Content,
				Status:     ChunkCompleted,
				UpdatedAt:  now,
			}
			if _, err := tx.NamedExecContext(ctx, `INSERT OR IGNORE INTO chunks (`+chunkColumns+`)
				VALUES (:id, :document_id, :page_number, :seq, :content, :status, :updated_at)`, &c); err != nil {
				return fmt.Errorf("seed chunk %s: %w", sc.ID, err)
			}
			chunks[c.ID] = c
		}

		for _, sc := range seed.Concepts {
			docID := seed.Document.ID
			concept := Concept{
				ID:                   sc.ID,
				DocumentID:           &docID,
				Name:                 sc.Name,
				Topic:                sc.Topic,
				Description:          sc.Description,
				BloomLevel:           MinBloomLevel,
				NeedsGenerationLevel: MinBloomLevel + 1,
				SourceChunkIDs:       StringList(sc.Chunks),
				CreatedAt:            now,
			}
			if err := insertConcept(ctx, tx, &concept); err != nil {
				return err
			}

			primary := chunks[sc.Chunks[0]]
			for i, card := range sc.Cards {
				conceptID := sc.ID
				fc := Flashcard{
					ID:            fmt.Sprintf("%s-card-%d", sc.ID, i+1),
					ConceptID:     &conceptID,
					DocumentID:    seed.Document.ID,
					PageNumber:    primary.PageNumber,
					SourceSnippet: truncate(primary.Content, 500),
					Question:      card.Question,
					Explanation:   card.Explanation,
					BloomLevel:    MinBloomLevel,
					CreatedAt:     now,
				}
				if err := insertFlashcard(ctx, tx, &fc); err != nil {
					return err
				}
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return seeded, nil
}

// truncate returns at most n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
