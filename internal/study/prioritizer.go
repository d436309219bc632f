// Package study selects which concepts and flashcards to review next.
package study

import (
	"context"
	"fmt"

	"github.com/abhisek/lumen/internal/store"
)

// TargetedPeers is how many same-topic concepts join a targeted review.
const TargetedPeers = 2

// ConceptSource supplies concepts in review-urgency order.
type ConceptSource interface {
	StudyCandidates(ctx context.Context, limit int) ([]store.Concept, error)
	GetConcept(ctx context.Context, id string) (*store.Concept, error)
	WeakestInTopic(ctx context.Context, topic, excludeID string, limit int) ([]store.Concept, error)
}

// Prioritizer picks concepts for a study session.
type Prioritizer struct {
	concepts ConceptSource
}

// NewPrioritizer creates a Prioritizer.
func NewPrioritizer(concepts ConceptSource) *Prioritizer {
	return &Prioritizer{concepts: concepts}
}

// Select returns up to limit concepts, most urgent first, spread across
// topics. Twice the limit is fetched so interleaving has room to work.
func (p *Prioritizer) Select(ctx context.Context, limit int) ([]store.Concept, error) {
	if limit <= 0 {
		return nil, nil
	}
	candidates, err := p.concepts.StudyCandidates(ctx, 2*limit)
	if err != nil {
		return nil, fmt.Errorf("load study candidates: %w", err)
	}
	return Interleave(candidates, limit), nil
}

// Targeted returns the concept followed by up to TargetedPeers others in
// its topic with the lowest mastery.
func (p *Prioritizer) Targeted(ctx context.Context, conceptID string) ([]store.Concept, error) {
	c, err := p.concepts.GetConcept(ctx, conceptID)
	if err != nil {
		return nil, err
	}
	peers, err := p.concepts.WeakestInTopic(ctx, c.Topic, c.ID, TargetedPeers)
	if err != nil {
		return nil, fmt.Errorf("load topic peers: %w", err)
	}
	return append([]store.Concept{*c}, peers...), nil
}

// Interleave picks up to limit concepts from candidates, which must already
// be in priority order. The first pass takes at most one concept per topic;
// the second fills remaining slots with the leftovers in order.
func Interleave(candidates []store.Concept, limit int) []store.Concept {
	if limit <= 0 {
		return nil
	}
	out := make([]store.Concept, 0, min(limit, len(candidates)))
	taken := make(map[string]bool, len(candidates))
	topics := make(map[string]bool)

	for _, c := range candidates {
		if len(out) == limit {
			return out
		}
		if topics[c.Topic] || taken[c.ID] {
			continue
		}
		topics[c.Topic] = true
		taken[c.ID] = true
		out = append(out, c)
	}
	for _, c := range candidates {
		if len(out) == limit {
			break
		}
		if taken[c.ID] {
			continue
		}
		taken[c.ID] = true
		out = append(out, c)
	}
	return out
}
