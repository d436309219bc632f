package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/abhisek/lumen/internal/llm"
	"github.com/abhisek/lumen/internal/store"
)

// Poller drives the Scheduler in the background, one Step per tick.
// Ticks never overlap.
type Poller struct {
	scheduler *gocron.Scheduler
	queue     *Scheduler
	timeout   time.Duration
	log       *zap.Logger
}

// NewPoller creates a Poller that steps q every interval. Each step is
// bounded by timeout when it is positive.
func NewPoller(q *Scheduler, interval, timeout time.Duration, log *zap.Logger) (*Poller, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", interval)
	}
	if log == nil {
		log = zap.NewNop()
	}
	p := &Poller{
		scheduler: gocron.NewScheduler(time.UTC),
		queue:     q,
		timeout:   timeout,
		log:       log,
	}
	p.scheduler.SingletonModeAll()
	if _, err := p.scheduler.Every(interval).Do(p.tick); err != nil {
		return nil, fmt.Errorf("schedule queue poll: %w", err)
	}
	return p, nil
}

// Start begins polling without blocking.
func (p *Poller) Start() {
	p.scheduler.StartAsync()
}

// Stop halts polling. An in-flight step is allowed to finish.
func (p *Poller) Stop() {
	p.scheduler.Stop()
}

// Running reports whether the poller has been started and not stopped.
func (p *Poller) Running() bool {
	return p.scheduler.IsRunning()
}

func (p *Poller) tick() {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	res, err := p.queue.Step(ctx, "")
	if err != nil {
		// Throttling, outages and lost claims clear up on their own; the
		// item stays queued.
		if llm.IsTransient(err) || errors.Is(err, store.ErrConflict) {
			p.log.Warn("queue step deferred", zap.Error(err))
			return
		}
		p.log.Error("queue step failed", zap.Error(err))
		return
	}
	if res.Status != StatusIdle {
		p.log.Debug("queue step",
			zap.String("status", string(res.Status)),
			zap.String("chunk_id", res.ChunkID),
			zap.String("concept_id", res.ConceptID))
	}
}
