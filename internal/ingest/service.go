package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/lumen/internal/store"
)

// ErrNoText means the source produced no usable text.
var ErrNoText = errors.New("document contains no extractable text")

// DocumentCreator stores a document with its chunks.
type DocumentCreator interface {
	CreateDocument(ctx context.Context, name string, pages []store.PageText) (*store.Document, []store.Chunk, error)
}

// Service ingests documents.
type Service struct {
	docs     DocumentCreator
	maxChars int
	log      *zap.Logger
}

// NewService creates a Service. maxChars <= 0 uses DefaultMaxChars.
func NewService(docs DocumentCreator, maxChars int, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Service{docs: docs, maxChars: maxChars, log: log}
}

// Ingest chunks pages and stores them as a new document, every chunk
// pending extraction.
func (s *Service) Ingest(ctx context.Context, name string, pages []store.PageText) (*store.Document, []store.Chunk, error) {
	chunks := Chunk(pages, s.maxChars)
	if len(chunks) == 0 {
		return nil, nil, ErrNoText
	}
	doc, stored, err := s.docs.CreateDocument(ctx, name, chunks)
	if err != nil {
		return nil, nil, fmt.Errorf("store document: %w", err)
	}
	s.log.Info("ingested document",
		zap.String("document_id", doc.ID), zap.String("name", name), zap.Int("chunks", len(stored)))
	return doc, stored, nil
}

// IngestFile reads path and ingests it under its base name.
func (s *Service) IngestFile(ctx context.Context, name, path string) (*store.Document, []store.Chunk, error) {
	pages, err := ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return s.Ingest(ctx, name, pages)
}
