package mastery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abhisek/lumen/internal/store"
)

// fakeConcepts is an in-memory ConceptStore. racesLeft makes the next N
// RecordReview calls lose as if another writer got there first.
type fakeConcepts struct {
	concepts     map[string]*store.Concept
	interactions []store.ReviewInteraction
	capital      int64
	racesLeft    int
	writes       int
	insertErr    error
}

func (f *fakeConcepts) GetConcept(_ context.Context, id string) (*store.Concept, error) {
	c, ok := f.concepts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConcepts) RecordReview(_ context.Context, w store.ReviewWrite) (int64, bool, error) {
	f.writes++
	var c *store.Concept
	if w.Mastery != nil {
		var ok bool
		if c, ok = f.concepts[*w.Interaction.ConceptID]; !ok {
			return 0, false, store.ErrNotFound
		}
		if f.racesLeft > 0 {
			f.racesLeft--
			c.ReviewCount++
			return 0, false, nil
		}
		if c.ReviewCount != w.ExpectedReviewCount {
			return 0, false, nil
		}
	}
	if f.insertErr != nil {
		return 0, false, f.insertErr
	}
	if c != nil {
		c.BloomLevel = w.Mastery.BloomLevel
		c.MasteryScore = w.Mastery.MasteryScore
		c.CorrectStreak = w.Mastery.CorrectStreak
		ts := w.Mastery.LastReviewedAt
		c.LastReviewedAt = &ts
		c.ReviewCount++
	}
	f.interactions = append(f.interactions, *w.Interaction)
	f.capital += w.Coins
	return f.capital, true, nil
}

func newFake() *fakeConcepts {
	return &fakeConcepts{concepts: map[string]*store.Concept{
		"c1": {ID: "c1", BloomLevel: 2, MasteryScore: 0.4, CorrectStreak: 1, ReviewCount: 3},
	}}
}

func review(conceptID string, isCorrect bool, confidence int) Review {
	in := &store.ReviewInteraction{ID: "i-" + conceptID, FlashcardID: "card-" + conceptID}
	if conceptID != "" {
		in.ConceptID = &conceptID
	}
	return Review{IsCorrect: isCorrect, Confidence: confidence, Interaction: in, Coins: 5}
}

func TestEngine_Record(t *testing.T) {
	fake := newFake()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	e := NewEngine(fake, nil, WithClock(func() time.Time { return now }))

	rec, err := e.Record(context.Background(), review("c1", true, 80))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	tr := rec.Transition
	if !tr.Promoted || tr.Demoted {
		t.Errorf("promoted=%v demoted=%v, want promotion", tr.Promoted, tr.Demoted)
	}
	if tr.Before.BloomLevel != 2 || tr.After.BloomLevel != 3 {
		t.Errorf("levels %d -> %d, want 2 -> 3", tr.Before.BloomLevel, tr.After.BloomLevel)
	}
	if rec.Capital != 5 {
		t.Errorf("Capital = %d, want 5", rec.Capital)
	}

	c := fake.concepts["c1"]
	if c.ReviewCount != 4 {
		t.Errorf("ReviewCount = %d, want 4", c.ReviewCount)
	}
	if c.LastReviewedAt == nil || !c.LastReviewedAt.Equal(now) {
		t.Errorf("LastReviewedAt = %v, want %v", c.LastReviewedAt, now)
	}
	if len(fake.interactions) != 1 {
		t.Errorf("interactions = %d, want 1", len(fake.interactions))
	}
}

func TestEngine_RetriesLostRace(t *testing.T) {
	fake := newFake()
	fake.racesLeft = 2
	e := NewEngine(fake, nil)

	rec, err := e.Record(context.Background(), review("c1", false, 20))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if fake.writes != 3 {
		t.Errorf("writes = %d, want 3", fake.writes)
	}
	// Recomputed from the re-read concept, which the racing writers moved on.
	if got := fake.concepts["c1"].ReviewCount; got != 6 {
		t.Errorf("ReviewCount = %d, want 6", got)
	}
	if len(fake.interactions) != 1 || rec.Capital != 5 {
		t.Errorf("interactions = %d capital = %d, want one credited review", len(fake.interactions), rec.Capital)
	}
}

func TestEngine_ConflictAfterMaxAttempts(t *testing.T) {
	fake := newFake()
	fake.racesLeft = 10
	e := NewEngine(fake, nil, WithMaxAttempts(3))

	_, err := e.Record(context.Background(), review("c1", true, 50))
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if fake.writes != 3 {
		t.Errorf("writes = %d, want 3", fake.writes)
	}
	if len(fake.interactions) != 0 || fake.capital != 0 {
		t.Errorf("interactions = %d capital = %d, want nothing written", len(fake.interactions), fake.capital)
	}
}

func TestEngine_MissingConceptRecordsWithoutMastery(t *testing.T) {
	fake := newFake()
	e := NewEngine(fake, nil)

	rec, err := e.Record(context.Background(), review("missing", true, 50))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.Transition != nil {
		t.Errorf("Transition = %+v, want nil", rec.Transition)
	}
	if len(fake.interactions) != 1 || rec.Capital != 5 {
		t.Errorf("interactions = %d capital = %d, want one credited review", len(fake.interactions), rec.Capital)
	}
}

func TestEngine_NoConcept(t *testing.T) {
	fake := newFake()
	e := NewEngine(fake, nil)

	rec, err := e.Record(context.Background(), review("", false, 10))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.Transition != nil {
		t.Errorf("Transition = %+v, want nil", rec.Transition)
	}
	if fake.concepts["c1"].ReviewCount != 3 {
		t.Error("unrelated concept was touched")
	}
}

func TestEngine_WriteErrorPropagates(t *testing.T) {
	fake := newFake()
	fake.insertErr = errors.New("disk full")
	e := NewEngine(fake, nil)

	_, err := e.Record(context.Background(), review("c1", true, 90))
	if !errors.Is(err, fake.insertErr) {
		t.Fatalf("err = %v, want %v", err, fake.insertErr)
	}
	if fake.writes != 1 {
		t.Errorf("writes = %d, want 1", fake.writes)
	}
	if c := fake.concepts["c1"]; c.ReviewCount != 3 || c.MasteryScore != 0.4 {
		t.Errorf("concept changed to %+v", c)
	}
}
