// Package api exposes the operational HTTP surface: health, aggregate stats,
// failure listing, and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"job-skill-pipeline/internal/models"
	"job-skill-pipeline/internal/telemetry"
)

// StatsStore is the read-only slice of the persistence layer the server needs.
type StatsStore interface {
	Stats(ctx context.Context) (models.JobStats, error)
	ListFailures(ctx context.Context, limit int) ([]models.FailedEntry, error)
}

// RunReporter reports the most recent scheduler run.
type RunReporter interface {
	LastRun() (models.RunStats, bool)
}

// Server wires the ops HTTP handlers.
type Server struct {
	store StatsStore
	runs  RunReporter
	log   *zap.Logger
}

// New constructs the server. runs may be nil in one-shot mode.
func New(store StatsStore, runs RunReporter, log *zap.Logger) *Server {
	return &Server{store: store, runs: runs, log: log}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Get("/stats", s.handleStats)
	r.Get("/failures", s.handleFailures)
	r.Get("/runs/last", s.handleLastRun)
	return r
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.log.Error("stats query failed", zap.Error(err))
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleFailures(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListFailures(r.Context(), 100)
	if err != nil {
		s.log.Error("failure listing failed", zap.Error(err))
		http.Error(w, "failures unavailable", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.FailedEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleLastRun(w http.ResponseWriter, _ *http.Request) {
	if s.runs == nil {
		http.Error(w, "no run history", http.StatusNotFound)
		return
	}
	stats, ok := s.runs.LastRun()
	if !ok {
		http.Error(w, "no run history", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
