package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ChunkStatus is the processing state of an ingested chunk.
type ChunkStatus string

const (
	ChunkPending    ChunkStatus = "pending"
	ChunkProcessing ChunkStatus = "processing"
	ChunkCompleted  ChunkStatus = "completed"
	ChunkFailed     ChunkStatus = "failed"
)

// Bloom taxonomy bounds. A concept whose needs_generation_level reaches
// BloomDone has no further questions to generate.
const (
	MinBloomLevel = 1
	MaxBloomLevel = 5
	BloomDone     = 5
)

// Document is an ingested source file. Immutable after creation.
type Document struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploadedAt"`
}

// Chunk is a bounded unit of document text tied to a page.
type Chunk struct {
	ID         string      `db:"id" json:"id"`
	DocumentID string      `db:"document_id" json:"documentId"`
	PageNumber int         `db:"page_number" json:"pageNumber"`
	Seq        int         `db:"seq" json:"-"`
	Content    string      `db:"content" json:"content"`
	Status     ChunkStatus `db:"status" json:"status"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updatedAt"`
}

// PageText is one (pageNumber, content) pair produced by the chunk producer.
type PageText struct {
	PageNumber int    `json:"pageNumber"`
	Content    string `json:"content"`
}

// Concept is an extracted unit of knowledge and its mastery state.
type Concept struct {
	ID                   string     `db:"id" json:"id"`
	DocumentID           *string    `db:"document_id" json:"documentId,omitempty"`
	Name                 string     `db:"name" json:"name"`
	Topic                string     `db:"topic" json:"topic"`
	Description          string     `db:"description" json:"description"`
	BloomLevel           int        `db:"bloom_level" json:"bloomLevel"`
	MasteryScore         float64    `db:"mastery_score" json:"masteryScore"`
	CorrectStreak        int        `db:"correct_streak" json:"correctStreak"`
	LastReviewedAt       *time.Time `db:"last_reviewed_at" json:"lastReviewedAt,omitempty"`
	ReviewCount          int        `db:"review_count" json:"reviewCount"`
	NeedsGenerationLevel int        `db:"needs_generation_level" json:"needsGenerationLevel"`
	SourceChunkIDs       StringList `db:"source_chunk_ids" json:"sourceChunkIds"`
	CreatedAt            time.Time  `db:"created_at" json:"createdAt"`
}

// NeedsQuestions reports whether the concept's current level still lacks
// generated questions.
func (c *Concept) NeedsQuestions() bool {
	return c.NeedsGenerationLevel <= c.BloomLevel && c.NeedsGenerationLevel < BloomDone
}

// NewConcept describes a concept to insert. Mastery fields start at their
// initial values.
type NewConcept struct {
	DocumentID     string
	Name           string
	Topic          string
	Description    string
	SourceChunkIDs []string
}

// Flashcard is a generated question. Immutable once created.
type Flashcard struct {
	ID            string     `db:"id" json:"id"`
	ConceptID     *string    `db:"concept_id" json:"conceptId,omitempty"`
	DocumentID    string     `db:"document_id" json:"documentId"`
	PageNumber    int        `db:"page_number" json:"pageNumber"`
	SourceSnippet string     `db:"source_snippet" json:"sourceSnippet"`
	Question      string     `db:"question" json:"question"`
	Explanation   string     `db:"explanation" json:"explanation"`
	BloomLevel    int        `db:"bloom_level" json:"bloomLevel"`
	Options       StringList `db:"options" json:"options,omitempty"`
	CorrectAnswer *string    `db:"correct_answer" json:"correctAnswer,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
}

// ReviewInteraction is one answered flashcard. Append-only.
type ReviewInteraction struct {
	ID                  string    `db:"id" json:"id"`
	FlashcardID         string    `db:"flashcard_id" json:"flashcardId"`
	ConceptID           *string   `db:"concept_id" json:"conceptId,omitempty"`
	IsCorrect           bool      `db:"is_correct" json:"isCorrect"`
	ConfidenceBefore    int       `db:"confidence_before" json:"confidenceBefore"`
	BloomLevel          int       `db:"bloom_level" json:"bloomLevel"`
	TimeTakenMs         int64     `db:"time_taken_ms" json:"timeTakenMs"`
	XPEarned            int       `db:"xp_earned" json:"xpEarned"`
	CoinsEarned         int       `db:"coins_earned" json:"coinsEarned"`
	CalibrationAccuracy float64   `db:"calibration_accuracy" json:"calibrationAccuracy"`
	Timestamp           time.Time `db:"timestamp" json:"timestamp"`
}

// PlayerResources is the singleton economy row.
type PlayerResources struct {
	ID           int       `db:"id" json:"-"`
	Capital      int64     `db:"capital" json:"capital"`
	VentureLevel int       `db:"venture_level" json:"ventureLevel"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// MasteryUpdate is the new mastery state a review writes.
type MasteryUpdate struct {
	BloomLevel     int
	MasteryScore   float64
	CorrectStreak  int
	LastReviewedAt time.Time
}

// ReviewWrite is everything one answered card persists.
type ReviewWrite struct {
	Interaction *ReviewInteraction
	Coins       int64

	// Mastery, when set, is written to Interaction.ConceptID if its
	// review_count still equals ExpectedReviewCount.
	Mastery             *MasteryUpdate
	ExpectedReviewCount int
}

// StringList is a []string persisted as a JSON array. An empty list is
// stored as NULL.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan StringList: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan StringList: %w", err)
	}
	*l = out
	return nil
}

// Contains reports whether s is in the list.
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}
