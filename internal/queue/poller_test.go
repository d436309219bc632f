package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lumen/internal/llm"
	"github.com/abhisek/lumen/internal/store"
)

func TestNewPoller_RejectsNonPositiveInterval(t *testing.T) {
	s := openTestStore(t)
	_, err := NewPoller(newScheduler(s, llm.NewMockProvider()), 0, 0, nil)
	assert.Error(t, err)
}

func TestPoller_ProcessesInBackground(t *testing.T) {
	s := openTestStore(t)
	chunks := createDocument(t, s, "Takt time paces production to demand.")
	mock := llm.NewMockProvider(conceptsResponse("Takt Time"), questionsResponse(1))

	p, err := NewPoller(newScheduler(s, mock), 20*time.Millisecond, time.Second, nil)
	require.NoError(t, err)
	p.Start()
	defer p.Stop()
	assert.True(t, p.Running())

	require.Eventually(t, func() bool {
		cards, err := s.ListFlashcards(context.Background(), store.FlashcardFilter{})
		return err == nil && len(cards) == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, store.ChunkCompleted, chunkStatus(t, s, chunks[0].ID))
}
