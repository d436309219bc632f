package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/abhisek/lumen/internal/economy"
	"github.com/abhisek/lumen/internal/ingest"
	"github.com/abhisek/lumen/internal/llm"
	"github.com/abhisek/lumen/internal/review"
	"github.com/abhisek/lumen/internal/store"
	"github.com/abhisek/lumen/internal/study"
)

// maxBodyBytes bounds request bodies. Document uploads carry full text.
const maxBodyBytes = 50 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ConceptID string `json:"conceptId"`
	}
	if !s.decode(w, r, &body, true) {
		return
	}
	deck, err := s.deps.Decks.Build(r.Context(), body.ConceptID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, deck)
}

func (s *Server) handleProcessQueue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TargetConceptID string `json:"targetConceptId"`
	}
	if !s.decode(w, r, &body, true) {
		return
	}
	res, err := s.deps.Queue.Step(r.Context(), body.TargetConceptID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.deps.Library.CountChunksByStatus(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	chunks := make(map[store.ChunkStatus]int, 4)
	for _, st := range []store.ChunkStatus{store.ChunkPending, store.ChunkProcessing, store.ChunkCompleted, store.ChunkFailed} {
		chunks[st] = counts[st]
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	var in review.InteractionInput
	if !s.decode(w, r, &in, false) {
		return
	}
	out, err := s.deps.Review.RecordInteraction(r.Context(), in)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var in review.EvaluateInput
	if !s.decode(w, r, &in, false) {
		return
	}
	out, err := s.deps.Review.Evaluate(r.Context(), in)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleRemediate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CardID string `json:"cardId"`
	}
	if !s.decode(w, r, &body, false) {
		return
	}
	out, err := s.deps.Review.Remediate(r.Context(), body.CardID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleListFlashcards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.FlashcardFilter{DocumentID: q.Get("documentId")}
	if id := q.Get("conceptId"); id != "" {
		f.ConceptIDs = []string{id}
	}
	var err error
	if f.MaxBloomLevel, err = intParam(q.Get("maxBloomLevel")); err != nil {
		s.respondError(w, http.StatusBadRequest, "maxBloomLevel must be an integer")
		return
	}
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		s.respondError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}

	cards, err := s.deps.Library.ListFlashcards(r.Context(), f)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if cards == nil {
		cards = []store.Flashcard{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"flashcards": cards})
}

func (s *Server) handleConceptInteractions(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	list, err := s.deps.Library.InteractionsForConcept(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if list == nil {
		list = []store.ReviewInteraction{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"interactions": list})
}

func (s *Server) handleEcosystem(w http.ResponseWriter, r *http.Request) {
	eco, err := s.deps.Ecosystem.Ecosystem(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, eco)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Economy.AttemptUpgrade(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string           `json:"name"`
		Pages []store.PageText `json:"pages"`
	}
	if !s.decode(w, r, &body, false) {
		return
	}
	if body.Name == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	doc, chunks, err := s.deps.Ingest.Ingest(r.Context(), body.Name, body.Pages)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{
		"documentId":  doc.ID,
		"name":        doc.Name,
		"chunksCount": len(chunks),
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Library.ListDocuments(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// decode reads a JSON body into v. With optional set, an empty body is
// accepted. Reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	s.respondError(w, http.StatusBadRequest, "invalid request body")
	return false
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// respondErr maps a component error to a status and a short message.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	var (
		verr        *review.ValidationError
		funds       *economy.InsufficientFundsError
		rateLimit   *llm.ErrRateLimit
		unavailable *llm.ErrProviderUnavailable
	)
	switch {
	case errors.As(err, &verr):
		s.respondError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, store.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "not found")
	case errors.As(err, &funds):
		s.respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "insufficient funds",
			"needed": funds.Needed,
			"have":   funds.Have,
		})
	case errors.Is(err, economy.ErrMaxLevel):
		s.respondError(w, http.StatusBadRequest, "max level reached")
	case errors.Is(err, study.ErrNoContent):
		s.respondError(w, http.StatusBadRequest, "no content ready")
	case errors.Is(err, ingest.ErrNoText):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConflict):
		s.respondError(w, http.StatusConflict, "concurrent update, try again")
	case errors.As(err, &rateLimit):
		s.logger.Warn("generative service rate limited", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "generative service is rate limited")
	case errors.As(err, &unavailable):
		s.logger.Warn("generative service unavailable", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "generative service unavailable")
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
