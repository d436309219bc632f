package study

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/abhisek/lumen/internal/store"
)

func concept(id, topic string) store.Concept {
	return store.Concept{ID: id, Name: id, Topic: topic, BloomLevel: 1}
}

func ids(cs []store.Concept) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestInterleave(t *testing.T) {
	candidates := []store.Concept{
		concept("a1", "A"),
		concept("a2", "A"),
		concept("b1", "B"),
		concept("a3", "A"),
		concept("c1", "C"),
		concept("b2", "B"),
	}

	tests := []struct {
		limit int
		want  []string
	}{
		{0, nil},
		{1, []string{"a1"}},
		{3, []string{"a1", "b1", "c1"}},
		{4, []string{"a1", "b1", "c1", "a2"}},
		{6, []string{"a1", "b1", "c1", "a2", "a3", "b2"}},
		{10, []string{"a1", "b1", "c1", "a2", "a3", "b2"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit=%d", tt.limit), func(t *testing.T) {
			got := ids(Interleave(candidates, tt.limit))
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("Interleave = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInterleave_Properties(t *testing.T) {
	rnd := rand.New(rand.NewPCG(7, 11))
	for iter := 0; iter < 500; iter++ {
		n := rnd.IntN(20)
		topics := 1 + rnd.IntN(6)
		candidates := make([]store.Concept, n)
		for i := range candidates {
			candidates[i] = concept(fmt.Sprintf("c%d", i), fmt.Sprintf("t%d", rnd.IntN(topics)))
		}
		limit := rnd.IntN(10)

		got := Interleave(candidates, limit)
		if len(got) > limit {
			t.Fatalf("len = %d exceeds limit %d", len(got), limit)
		}
		if len(got) != min(limit, n) {
			t.Fatalf("len = %d, want %d", len(got), min(limit, n))
		}

		seen := map[string]bool{}
		gotTopics := map[string]bool{}
		for _, c := range got {
			if seen[c.ID] {
				t.Fatalf("duplicate concept %s in %v", c.ID, ids(got))
			}
			seen[c.ID] = true
			gotTopics[c.Topic] = true
		}

		distinct := map[string]bool{}
		for _, c := range candidates {
			distinct[c.Topic] = true
		}
		if len(distinct) >= limit && len(gotTopics) != limit {
			t.Fatalf("got %d topics with %d available and limit %d", len(gotTopics), len(distinct), limit)
		}
	}
}

type fakeConcepts struct {
	all        []store.Concept
	fetchLimit int
}

func (f *fakeConcepts) StudyCandidates(_ context.Context, limit int) ([]store.Concept, error) {
	f.fetchLimit = limit
	if limit > len(f.all) {
		limit = len(f.all)
	}
	return f.all[:limit], nil
}

func (f *fakeConcepts) GetConcept(_ context.Context, id string) (*store.Concept, error) {
	for i := range f.all {
		if f.all[i].ID == id {
			c := f.all[i]
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeConcepts) WeakestInTopic(_ context.Context, topic, excludeID string, limit int) ([]store.Concept, error) {
	var out []store.Concept
	for _, c := range f.all {
		if c.Topic == topic && c.ID != excludeID && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestPrioritizer_SelectFetchesTwiceTheLimit(t *testing.T) {
	src := &fakeConcepts{all: []store.Concept{
		concept("a1", "A"), concept("a2", "A"), concept("a3", "A"), concept("b1", "B"),
	}}
	got, err := NewPrioritizer(src).Select(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if src.fetchLimit != 4 {
		t.Errorf("fetch limit = %d, want 4", src.fetchLimit)
	}
	if fmt.Sprint(ids(got)) != "[a1 b1]" {
		t.Errorf("Select = %v, want [a1 b1]", ids(got))
	}
}

func TestPrioritizer_Targeted(t *testing.T) {
	src := &fakeConcepts{all: []store.Concept{
		concept("x", "Other"), concept("a1", "A"), concept("a2", "A"), concept("a3", "A"), concept("a4", "A"),
	}}
	got, err := NewPrioritizer(src).Targeted(context.Background(), "a3")
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(ids(got)) != "[a3 a1 a2]" {
		t.Errorf("Targeted = %v, want [a3 a1 a2]", ids(got))
	}

	if _, err := NewPrioritizer(src).Targeted(context.Background(), "missing"); err != store.ErrNotFound {
		t.Errorf("Targeted(missing) err = %v, want ErrNotFound", err)
	}
}
