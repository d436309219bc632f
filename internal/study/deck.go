package study

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/abhisek/lumen/internal/store"
)

// ErrNoContent means no flashcards exist yet for the selected concepts.
var ErrNoContent = errors.New("no content ready")

// Default deck sizing.
const (
	DefaultBatchSize = 5
	DefaultDeckSize  = 10
)

// CardSource lists flashcards.
type CardSource interface {
	ListFlashcards(ctx context.Context, f store.FlashcardFilter) ([]store.Flashcard, error)
}

// Source is everything the deck builder reads.
type Source interface {
	ConceptSource
	CardSource
}

// Card is a flashcard with its concept's name and topic attached.
type Card struct {
	store.Flashcard
	ConceptName string `json:"conceptName"`
	Topic       string `json:"topic"`
}

// ConceptSummary describes a concept included in a deck.
type ConceptSummary struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Topic        string  `json:"topic"`
	BloomLevel   int     `json:"bloomLevel"`
	MasteryScore float64 `json:"mastery"`
}

// Deck is one study session's worth of cards.
type Deck struct {
	Flashcards      []Card           `json:"flashcards"`
	TargetedConcept *string          `json:"targetedConcept"`
	ConceptsUsed    []ConceptSummary `json:"conceptsUsed"`
}

// DeckBuilder composes shuffled study decks.
type DeckBuilder struct {
	prioritizer *Prioritizer
	cards       CardSource
	batchSize   int
	deckSize    int

	mu  sync.Mutex
	rnd *rand.Rand
}

// DeckOption customizes a DeckBuilder.
type DeckOption func(*DeckBuilder)

// WithRand sets the shuffle source. Tests pass a seeded one.
func WithRand(r *rand.Rand) DeckOption {
	return func(b *DeckBuilder) { b.rnd = r }
}

// WithSizes overrides the concept batch size and the deck size. Zero keeps
// the default.
func WithSizes(batchSize, deckSize int) DeckOption {
	return func(b *DeckBuilder) {
		if batchSize > 0 {
			b.batchSize = batchSize
		}
		if deckSize > 0 {
			b.deckSize = deckSize
		}
	}
}

// NewDeckBuilder creates a DeckBuilder.
func NewDeckBuilder(src Source, opts ...DeckOption) *DeckBuilder {
	seed := uint64(time.Now().UnixNano())
	b := &DeckBuilder{
		prioritizer: NewPrioritizer(src),
		cards:       src,
		batchSize:   DefaultBatchSize,
		deckSize:    DefaultDeckSize,
		rnd:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build returns a deck for conceptID, or for the prioritized batch when
// conceptID is empty or its targeted review has no cards yet.
func (b *DeckBuilder) Build(ctx context.Context, conceptID string) (*Deck, error) {
	deck := &Deck{}

	if conceptID != "" {
		deck.TargetedConcept = &conceptID
		concepts, err := b.prioritizer.Targeted(ctx, conceptID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if len(concepts) > 0 {
			cards, err := b.cardsFor(ctx, concepts)
			if err != nil {
				return nil, err
			}
			if len(cards) > 0 {
				return b.finish(deck, concepts, cards), nil
			}
		}
	}

	concepts, err := b.prioritizer.Select(ctx, b.batchSize)
	if err != nil {
		return nil, err
	}
	cards, err := b.cardsFor(ctx, concepts)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, ErrNoContent
	}
	return b.finish(deck, concepts, cards), nil
}

// cardsFor collects cards at or below each concept's bloom level.
func (b *DeckBuilder) cardsFor(ctx context.Context, concepts []store.Concept) ([]Card, error) {
	if len(concepts) == 0 {
		return nil, nil
	}
	byID := make(map[string]store.Concept, len(concepts))
	ids := make([]string, 0, len(concepts))
	for _, c := range concepts {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	all, err := b.cards.ListFlashcards(ctx, store.FlashcardFilter{ConceptIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("load flashcards: %w", err)
	}
	cards := make([]Card, 0, len(all))
	for _, f := range all {
		if f.ConceptID == nil {
			continue
		}
		c, ok := byID[*f.ConceptID]
		if !ok || f.BloomLevel > c.BloomLevel {
			continue
		}
		cards = append(cards, Card{Flashcard: f, ConceptName: c.Name, Topic: c.Topic})
	}
	return cards, nil
}

func (b *DeckBuilder) finish(deck *Deck, concepts []store.Concept, cards []Card) *Deck {
	b.mu.Lock()
	b.rnd.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	b.mu.Unlock()

	if len(cards) > b.deckSize {
		cards = cards[:b.deckSize]
	}
	deck.Flashcards = cards
	deck.ConceptsUsed = make([]ConceptSummary, len(concepts))
	for i, c := range concepts {
		deck.ConceptsUsed[i] = ConceptSummary{
			ID:           c.ID,
			Name:         c.Name,
			Topic:        c.Topic,
			BloomLevel:   c.BloomLevel,
			MasteryScore: c.MasteryScore,
		}
	}
	return deck
}
