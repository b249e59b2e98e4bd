package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/habitlens/habitlens/internal/connections"
	"github.com/habitlens/habitlens/internal/insights"
	"github.com/habitlens/habitlens/internal/miner"
	"github.com/habitlens/habitlens/internal/pattern"
	"github.com/habitlens/habitlens/internal/workflow"
)

// PatternReader serves pattern lookups for the connection and
// comparison endpoints.
type PatternReader interface {
	FetchPatterns(ctx context.Context, userID string, minSupport, limit int) ([]pattern.Pattern, error)
	FetchPattern(ctx context.Context, id uuid.UUID) (pattern.Pattern, error)
}

// InsightFeedback records user feedback on an insight.
type InsightFeedback interface {
	UpdateInsightStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Server is the operational surface for the batch pipeline.
type Server struct {
	miner       *miner.Miner
	synthesizer *insights.Synthesizer
	patterns    PatternReader
	feedback    InsightFeedback
	auth        *Authenticator

	minSupport   int
	patternLimit int
}

func New(m *miner.Miner, s *insights.Synthesizer, patterns PatternReader, feedback InsightFeedback, auth *Authenticator, minSupport, patternLimit int) *Server {
	return &Server{
		miner:        m,
		synthesizer:  s,
		patterns:     patterns,
		feedback:     feedback,
		auth:         auth,
		minSupport:   minSupport,
		patternLimit: patternLimit,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.auth.Middleware)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/users/{userID}/patterns/mine", s.handleMine)
		r.Post("/users/{userID}/insights/generate", s.handleGenerateInsights)
		r.Get("/users/{userID}/connections", s.handleConnections)
		r.Get("/patterns/{patternID}/comparison", s.handleComparison)
		r.Post("/insights/{insightID}/status", s.handleInsightStatus)
	})

	return r
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	result, err := s.miner.Mine(r.Context(), userID)
	if err != nil {
		// Partial success still reports accurate counts.
		log.Error().Err(err).Str("user_id", userID).Msg("Mining failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":           err.Error(),
			"patterns_found":  result.PatternsFound,
			"patterns_stored": result.PatternsStored,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGenerateInsights(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	result, err := s.synthesizer.Generate(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Insight generation failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":    err.Error(),
			"insights": result.Insights,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	patterns, err := s.patterns.FetchPatterns(r.Context(), userID, s.minSupport, s.patternLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load patterns")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connections": connections.Detect(patterns),
	})
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "patternID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pattern id")
		return
	}

	p, err := s.patterns.FetchPattern(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "pattern not found")
		return
	}

	writeJSON(w, http.StatusOK, workflow.Compare(p))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleInsightStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "insightID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid insight id")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !insights.ValidStatus(req.Status) {
		writeError(w, http.StatusUnprocessableEntity, "invalid status value")
		return
	}

	if err := s.feedback.UpdateInsightStatus(r.Context(), id, req.Status); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "insight not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update insight")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
