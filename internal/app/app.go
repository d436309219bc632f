// Package app wires the store, the generative provider and the study
// services into one graph that the commands and the HTTP server share.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/lumen/internal/config"
	"github.com/abhisek/lumen/internal/economy"
	"github.com/abhisek/lumen/internal/extract"
	"github.com/abhisek/lumen/internal/ingest"
	"github.com/abhisek/lumen/internal/llm"
	"github.com/abhisek/lumen/internal/mastery"
	"github.com/abhisek/lumen/internal/queue"
	"github.com/abhisek/lumen/internal/questions"
	"github.com/abhisek/lumen/internal/review"
	"github.com/abhisek/lumen/internal/server"
	"github.com/abhisek/lumen/internal/store"
	"github.com/abhisek/lumen/internal/study"
)

// Options configures New. Provider, when set, replaces the one built
// from Config.LLM.
type Options struct {
	Config   *config.Config
	Logger   *zap.Logger
	Provider llm.Provider
	// SkipSeed leaves an empty database empty.
	SkipSeed bool
}

// App holds every long-lived component.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     *store.Store
	Provider  llm.Provider
	Extractor *extract.Extractor
	Generator *questions.Generator
	Scheduler *queue.Scheduler
	Mastery   *mastery.Engine
	Ledger    *economy.Ledger
	Viewer    *economy.Viewer
	Review    *review.Service
	Decks     *study.DeckBuilder
	Ingest    *ingest.Service
}

// New opens the database at cfg.Database.Path and builds the service graph.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	dsn := cfg.Database.Path
	if dsn == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve DB path: %w", err)
		}
		dsn = p
	}
	st, err := store.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if !opts.SkipSeed {
		seeded, err := st.EnsureSeeded(ctx)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("seed demo content: %w", err)
		}
		if seeded {
			log.Info("Loaded demo deck into empty database")
		}
	}

	provider := opts.Provider
	if provider == nil {
		provider = newProvider(ctx, cfg.LLM, st, log)
	}

	a := &App{
		Config:   cfg,
		Logger:   log,
		Store:    st,
		Provider: provider,
	}

	a.Extractor = extract.New(provider, st, extract.DefaultConfig(), log.Named("extract"),
		extract.WithRand(newRand(cfg.Study.Seed, 1)))
	a.Generator = questions.New(provider, st, questions.DefaultConfig(), log.Named("questions"))
	a.Scheduler = queue.New(st, a.Extractor, a.Generator, log.Named("queue"))
	a.Mastery = mastery.NewEngine(st, log.Named("mastery"))
	a.Ledger = economy.NewLedger(st, log.Named("economy"))
	a.Viewer = economy.NewViewer(st, time.Now)
	a.Review = review.New(st, a.Mastery, provider, log.Named("review"))
	a.Decks = study.NewDeckBuilder(st,
		study.WithSizes(cfg.Study.BatchSize, cfg.Study.DeckSize),
		study.WithRand(newRand(cfg.Study.Seed, 2)))
	a.Ingest = ingest.NewService(st, ingest.DefaultMaxChars, log.Named("ingest"))

	return a, nil
}

// newProvider builds the configured provider. Without one the app still
// serves the existing deck; generative calls fail as unavailable.
func newProvider(ctx context.Context, cfg llm.Config, sink llm.EventSink, log *zap.Logger) llm.Provider {
	if cfg.Provider == "" {
		log.Warn("LLM provider not configured, AI features will be unavailable")
		return llm.Disabled(errors.New("no LLM provider configured"))
	}
	p, err := llm.NewProvider(ctx, cfg, sink, log.Named("llm"))
	if err != nil {
		log.Warn("LLM provider unavailable, AI features will be unavailable", zap.Error(err))
		return llm.Disabled(err)
	}
	return p
}

// newRand returns a seeded generator, or a time-seeded one for seed 0.
// stream separates generators that share a seed.
func newRand(seed int64, stream uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), stream))
	}
	return rand.New(rand.NewPCG(uint64(seed), stream))
}

// ServerDeps returns the handler dependencies.
func (a *App) ServerDeps() server.Deps {
	return server.Deps{
		Queue:     a.Scheduler,
		Decks:     a.Decks,
		Review:    a.Review,
		Economy:   a.Ledger,
		Ecosystem: a.Viewer,
		Ingest:    a.Ingest,
		Library:   a.Store,
	}
}

// Run serves the HTTP API until ctx is done. When the queue is enabled a
// background poller drains the generation pipeline alongside it.
func (a *App) Run(ctx context.Context) error {
	if n, err := a.Scheduler.RecoverStale(ctx, a.Config.Queue.StaleAfter); err != nil {
		a.Logger.Warn("stale chunk recovery failed", zap.Error(err))
	} else if n > 0 {
		a.Logger.Info("Recovered stale chunks", zap.Int("count", n))
	}

	if a.Config.Queue.Enabled {
		poller, err := queue.NewPoller(a.Scheduler, a.Config.Queue.PollInterval,
			a.Config.Server.WriteTimeout, a.Logger.Named("poller"))
		if err != nil {
			return fmt.Errorf("create poller: %w", err)
		}
		poller.Start()
		defer poller.Stop()
	}

	srv := server.New(a.ServerDeps(), a.Config.Server, a.Logger.Named("server"))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	a.Logger.Info("Shutting down server")
	return srv.Stop(shutdownCtx)
}

// Close releases the database.
func (a *App) Close() error {
	return a.Store.Close()
}
