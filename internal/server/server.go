// Package server provides the HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/abhisek/lumen/internal/config"
	"github.com/abhisek/lumen/internal/economy"
	"github.com/abhisek/lumen/internal/queue"
	"github.com/abhisek/lumen/internal/review"
	"github.com/abhisek/lumen/internal/store"
	"github.com/abhisek/lumen/internal/study"
)

// Stepper advances the generation pipeline.
type Stepper interface {
	Step(ctx context.Context, targetConceptID string) (*queue.Result, error)
}

// DeckBuilder composes study decks.
type DeckBuilder interface {
	Build(ctx context.Context, conceptID string) (*study.Deck, error)
}

// Reviewer runs the review flows.
type Reviewer interface {
	RecordInteraction(ctx context.Context, in review.InteractionInput) (*review.Outcome, error)
	Evaluate(ctx context.Context, in review.EvaluateInput) (*review.Evaluation, error)
	Remediate(ctx context.Context, cardID string) (*review.Remediation, error)
}

// Upgrader buys venture levels.
type Upgrader interface {
	AttemptUpgrade(ctx context.Context) (*economy.UpgradeResult, error)
}

// EcosystemViewer builds the ecosystem view.
type EcosystemViewer interface {
	Ecosystem(ctx context.Context) (*economy.Ecosystem, error)
}

// Ingester stores uploaded documents.
type Ingester interface {
	Ingest(ctx context.Context, name string, pages []store.PageText) (*store.Document, []store.Chunk, error)
}

// Library lists stored documents, flashcards, review history and the
// chunk backlog.
type Library interface {
	ListDocuments(ctx context.Context) ([]store.Document, error)
	ListFlashcards(ctx context.Context, f store.FlashcardFilter) ([]store.Flashcard, error)
	InteractionsForConcept(ctx context.Context, conceptID string, limit int) ([]store.ReviewInteraction, error)
	CountChunksByStatus(ctx context.Context) (map[store.ChunkStatus]int, error)
}

// Deps are the components the handlers call.
type Deps struct {
	Queue     Stepper
	Decks     DeckBuilder
	Review    Reviewer
	Economy   Upgrader
	Ecosystem EcosystemViewer
	Ingest    Ingester
	Library   Library
}

// Server is the HTTP server for the study API.
type Server struct {
	deps   Deps
	config config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// New creates a server with the given dependencies.
func New(deps Deps, cfg config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{deps: deps, config: cfg, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.config.WriteTimeout > 0 {
		r.Use(middleware.Timeout(s.config.WriteTimeout))
	}

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Post("/process-queue", s.handleProcessQueue)
		r.Get("/queue", s.handleQueueStatus)
		r.Post("/interaction", s.handleInteraction)
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/remediate", s.handleRemediate)
		r.Get("/flashcards", s.handleListFlashcards)
		r.Get("/concepts/{id}/interactions", s.handleConceptInteractions)
		r.Get("/ecosystem", s.handleEcosystem)
		r.Post("/ecosystem/upgrade", s.handleUpgrade)
		r.Post("/documents", s.handleCreateDocument)
		r.Get("/documents", s.handleListDocuments)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout + 5*time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", s.config.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
