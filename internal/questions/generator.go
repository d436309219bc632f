// Package questions generates level-appropriate flashcards for concepts.
package questions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/lumen/internal/llm"
	"github.com/abhisek/lumen/internal/store"
)

// ErrNoQuestions means the service answered but every item failed
// validation.
var ErrNoQuestions = errors.New("no valid questions generated")

// Store is the persistence the generator needs.
type Store interface {
	GetChunks(ctx context.Context, ids []string) ([]store.Chunk, error)
	ListFlashcards(ctx context.Context, f store.FlashcardFilter) ([]store.Flashcard, error)
	SaveGeneratedCards(ctx context.Context, conceptID string, nextLevel int, cards []store.Flashcard) error
	MarkGenerationDone(ctx context.Context, id string) error
}

// Item is one generated question before it becomes a flashcard.
type Item struct {
	Question          string   `json:"question"`
	TargetExplanation string   `json:"target_explanation"`
	Options           []string `json:"options"`
	CorrectAnswer     string   `json:"correct_answer"`
}

type itemsOutput struct {
	Questions []Item `json:"questions"`
}

// Result reports what a generation attempt did.
type Result struct {
	ConceptID string
	Level     int
	Cards     []store.Flashcard
	// Done is set when the concept has nothing left to generate and was
	// marked finished instead.
	Done bool
}

// Generator produces flashcards for one concept at a time.
type Generator struct {
	provider llm.Provider
	store    Store
	config   Config
	log      *zap.Logger
}

// New creates a Generator.
func New(provider llm.Provider, s Store, cfg Config, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{provider: provider, store: s, config: cfg, log: log}
}

// Generate creates questions at the concept's current bloom level and
// advances its needs_generation_level past it. A failed or empty
// generation leaves the concept unchanged so a later pass retries it.
func (g *Generator) Generate(ctx context.Context, c *store.Concept) (*Result, error) {
	level := max(c.BloomLevel, store.MinBloomLevel)
	res := &Result{ConceptID: c.ID, Level: level}

	if level > MaxGeneratedLevel {
		if err := g.store.MarkGenerationDone(ctx, c.ID); err != nil {
			return nil, err
		}
		res.Done = true
		return res, nil
	}

	chunks, err := g.sourceChunks(ctx, c)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		g.log.Info("concept has no source chunks left", zap.String("concept_id", c.ID))
		if err := g.store.MarkGenerationDone(ctx, c.ID); err != nil {
			return nil, err
		}
		res.Done = true
		return res, nil
	}

	prior, err := g.priorQuestions(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	resp, err := g.provider.Generate(llm.WithPurpose(ctx, llm.PurposeQuestionGen), llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(c, level, chunks, prior, g.config)},
		},
		Schema:      QuestionSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var out itemsOutput
	if err := resp.Decode("questions", &out); err != nil {
		return nil, err
	}

	primary := chunks[0]
	snippet := truncate(primary.Content, g.config.SnippetChars)
	cards := make([]store.Flashcard, 0, len(out.Questions))
	for i := range out.Questions {
		item := normalize(out.Questions[i])
		if verr := g.validate(&item); verr != nil {
			g.log.Warn("dropping generated question",
				zap.String("concept_id", c.ID), zap.String("validator", verr.Validator), zap.String("reason", verr.Message))
			continue
		}
		card := store.Flashcard{
			DocumentID:    primary.DocumentID,
			PageNumber:    primary.PageNumber,
			SourceSnippet: snippet,
			Question:      item.Question,
			Explanation:   item.TargetExplanation,
			BloomLevel:    level,
		}
		if len(item.Options) > 0 {
			answer := item.CorrectAnswer
			card.Options = store.StringList(item.Options)
			card.CorrectAnswer = &answer
		}
		cards = append(cards, card)
	}
	if len(cards) == 0 {
		return nil, ErrNoQuestions
	}

	if err := g.store.SaveGeneratedCards(ctx, c.ID, level+1, cards); err != nil {
		return nil, fmt.Errorf("save questions: %w", err)
	}
	g.log.Info("generated questions",
		zap.String("concept_id", c.ID), zap.Int("level", level), zap.Int("count", len(cards)))

	res.Cards = cards
	return res, nil
}

// sourceChunks loads the concept's chunks in the order the concept lists
// them.
func (g *Generator) sourceChunks(ctx context.Context, c *store.Concept) ([]store.Chunk, error) {
	found, err := g.store.GetChunks(ctx, c.SourceChunkIDs)
	if err != nil {
		return nil, fmt.Errorf("load source chunks: %w", err)
	}
	byID := make(map[string]store.Chunk, len(found))
	for _, ch := range found {
		byID[ch.ID] = ch
	}
	chunks := make([]store.Chunk, 0, len(found))
	for _, id := range c.SourceChunkIDs {
		if ch, ok := byID[id]; ok {
			chunks = append(chunks, ch)
		}
	}
	return chunks, nil
}

func (g *Generator) priorQuestions(ctx context.Context, conceptID string) ([]string, error) {
	cards, err := g.store.ListFlashcards(ctx, store.FlashcardFilter{ConceptIDs: []string{conceptID}})
	if err != nil {
		return nil, fmt.Errorf("load prior questions: %w", err)
	}
	prior := make([]string, len(cards))
	for i, c := range cards {
		prior[i] = c.Question
	}
	return prior, nil
}

func (g *Generator) validate(item *Item) *ValidationError {
	for _, v := range g.config.Validators {
		if verr := v.Validate(item); verr != nil {
			return verr
		}
	}
	return nil
}

func normalize(item Item) Item {
	item.Question = strings.TrimSpace(item.Question)
	item.TargetExplanation = strings.TrimSpace(item.TargetExplanation)
	item.CorrectAnswer = strings.TrimSpace(item.CorrectAnswer)
	opts := item.Options[:0:0]
	for _, o := range item.Options {
		if o = strings.TrimSpace(o); o != "" {
			opts = append(opts, o)
		}
	}
	item.Options = opts
	return item
}
