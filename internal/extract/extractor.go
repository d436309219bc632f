// Package extract turns ingested chunks into persisted concepts using the
// generative text service.
package extract

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/lumen/internal/llm"
	"github.com/abhisek/lumen/internal/store"
)

// ErrNoConcepts means the service answered but produced nothing usable.
var ErrNoConcepts = errors.New("no concepts extracted")

// Store is the persistence the extractor needs.
type Store interface {
	ChunksForDocument(ctx context.Context, documentID string) ([]store.Chunk, error)
	InsertConcepts(ctx context.Context, concepts []store.NewConcept) ([]store.Concept, error)
	DocumentsWithoutConcepts(ctx context.Context) ([]string, error)
}

// Extractor extracts concepts for whole documents or single chunks.
type Extractor struct {
	provider llm.Provider
	store    Store
	config   Config
	log      *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithRand sets the source used to pick fallback chunks.
func WithRand(r *rand.Rand) Option {
	return func(e *Extractor) { e.rnd = r }
}

// New creates an Extractor.
func New(provider llm.Provider, s Store, cfg Config, log *zap.Logger, opts ...Option) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	now := uint64(time.Now().UnixNano())
	e := &Extractor{
		provider: provider,
		store:    s,
		config:   cfg,
		log:      log,
		rnd:      rand.New(rand.NewPCG(now, now>>1)),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

type conceptOutput struct {
	Name           string   `json:"name"`
	Topic          string   `json:"topic"`
	Description    string   `json:"description"`
	SourceChunkIDs []string `json:"source_chunk_ids"`
}

type conceptsOutput struct {
	Concepts []conceptOutput `json:"concepts"`
}

// ExtractForDocument extracts concepts across all chunks of a document.
// A failed or empty generative call is logged and leaves the document
// without concepts, so EnsureConceptsExist can retry it; only store errors
// are returned.
func (e *Extractor) ExtractForDocument(ctx context.Context, documentID string) ([]store.Concept, error) {
	chunks, err := e.store.ChunksForDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	if len(chunks) == 0 {
		e.log.Info("document has no chunks", zap.String("document_id", documentID))
		return nil, nil
	}

	out, err := e.generate(llm.WithPurpose(ctx, llm.PurposeConceptExtract), documentSystemPrompt,
		buildDocumentMessage(chunks, e.config), DocumentSchema)
	if err != nil {
		e.log.Warn("document concept extraction failed",
			zap.String("document_id", documentID), zap.Error(err))
		return nil, nil
	}

	owned := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		owned[c.ID] = true
	}

	var batch []store.NewConcept
	for _, raw := range out {
		nc, ok := normalize(raw)
		if !ok {
			continue
		}
		for _, id := range raw.SourceChunkIDs {
			if owned[id] && !contains(nc.SourceChunkIDs, id) {
				nc.SourceChunkIDs = append(nc.SourceChunkIDs, id)
			}
		}
		if len(nc.SourceChunkIDs) == 0 {
			nc.SourceChunkIDs = []string{chunks[e.intN(len(chunks))].ID}
		}
		nc.DocumentID = documentID
		batch = append(batch, nc)
	}
	if len(batch) == 0 {
		e.log.Warn("document concept extraction returned nothing usable", zap.String("document_id", documentID))
		return nil, nil
	}

	inserted, err := e.store.InsertConcepts(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("store concepts: %w", err)
	}
	e.log.Info("extracted concepts", zap.String("document_id", documentID), zap.Int("count", len(inserted)))
	return inserted, nil
}

// ExtractForChunk runs a focused extraction over one chunk and stores the
// result anchored to that chunk. Generative errors are returned so the
// caller can decide the chunk's fate; ErrNoConcepts means the call
// succeeded but yielded nothing.
func (e *Extractor) ExtractForChunk(ctx context.Context, chunk store.Chunk) ([]store.Concept, error) {
	out, err := e.generate(llm.WithPurpose(ctx, llm.PurposeChunkExtract), chunkSystemPrompt,
		buildChunkMessage(chunk, e.config), ChunkSchema)
	if err != nil {
		return nil, err
	}

	var batch []store.NewConcept
	for _, raw := range out {
		if e.config.MaxChunkConcepts > 0 && len(batch) == e.config.MaxChunkConcepts {
			break
		}
		nc, ok := normalize(raw)
		if !ok {
			continue
		}
		nc.DocumentID = chunk.DocumentID
		nc.SourceChunkIDs = []string{chunk.ID}
		batch = append(batch, nc)
	}
	if len(batch) == 0 {
		return nil, ErrNoConcepts
	}

	inserted, err := e.store.InsertConcepts(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("store concepts: %w", err)
	}
	return inserted, nil
}

// EnsureConceptsExist extracts concepts for every document that has chunks
// but no concepts. One document failing does not stop the others. Returns
// the number of concepts created.
func (e *Extractor) EnsureConceptsExist(ctx context.Context) (int, error) {
	ids, err := e.store.DocumentsWithoutConcepts(ctx)
	if err != nil {
		return 0, fmt.Errorf("find documents without concepts: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	e.log.Info("extracting concepts for documents", zap.Int("documents", len(ids)))

	var (
		mu    sync.Mutex
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	if e.config.Concurrency > 0 {
		g.SetLimit(e.config.Concurrency)
	}
	for _, id := range ids {
		g.Go(func() error {
			inserted, err := e.ExtractForDocument(gctx, id)
			if err != nil {
				e.log.Warn("concept extraction failed", zap.String("document_id", id), zap.Error(err))
				return nil
			}
			mu.Lock()
			total += len(inserted)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, ctx.Err()
}

func (e *Extractor) generate(ctx context.Context, system, user string, schema *llm.Schema) ([]conceptOutput, error) {
	resp, err := e.provider.Generate(ctx, llm.Request{
		System:      system,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: user}},
		Schema:      schema,
		MaxTokens:   e.config.MaxTokens,
		Temperature: e.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM extraction failed: %w", err)
	}

	var out conceptsOutput
	if err := resp.Decode("concepts", &out); err != nil {
		return nil, err
	}
	return out.Concepts, nil
}

func (e *Extractor) intN(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rnd.IntN(n)
}

// normalize trims a raw concept and rejects nameless ones.
func normalize(raw conceptOutput) (store.NewConcept, bool) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return store.NewConcept{}, false
	}
	topic := strings.TrimSpace(raw.Topic)
	if topic == "" {
		topic = "General"
	}
	return store.NewConcept{
		Name:        name,
		Topic:       topic,
		Description: strings.TrimSpace(raw.Description),
	}, true
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
