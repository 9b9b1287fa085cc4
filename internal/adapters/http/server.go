package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/coastalkit/nestor/pkg/domain"
	"github.com/coastalkit/nestor/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes read-only pipeline status over HTTP: per-case phase
// records, a health probe and prometheus metrics. Runs are submitted through
// the CLI, never over the network; the server only observes.
type Server struct {
	store   ports.PhaseStore
	logger  *slog.Logger
	version string
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) ServerOption {
	return func(s *Server) { s.version = v }
}

// NewHandler builds the HTTP handler. The metrics endpoint serves the given
// registry, which the orchestrator's Metrics must be registered with.
func NewHandler(store ports.PhaseStore, reg *prometheus.Registry, opts ...ServerOption) http.Handler {
	s := &Server{store: store, version: "dev"}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/info", s.info)
	r.Get("/api/v1/phases", s.listPhases)
	r.Get("/api/v1/phase", s.getPhase)
	if reg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "nestor",
		"version": s.version,
	})
}

// listPhases returns every known case key with its current phase record.
func (s *Server) listPhases(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.List(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("list error: %v", err), http.StatusInternalServerError)
		return
	}

	out := make(map[string]*domain.PhaseState, len(keys))
	for _, key := range keys {
		state, err := s.store.Load(r.Context(), key)
		if err != nil {
			if errors.Is(err, domain.ErrPhaseStateNotFound) {
				continue
			}
			http.Error(w, fmt.Sprintf("load error: %v", err), http.StatusInternalServerError)
			return
		}
		out[key] = state
	}
	s.writeJSON(w, http.StatusOK, out)
}

// getPhase returns one phase record. Case keys are filesystem paths, so they
// arrive as the "case" query parameter rather than a path segment.
func (s *Server) getPhase(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("case")
	if key == "" {
		http.Error(w, "missing case parameter", http.StatusBadRequest)
		return
	}

	state, err := s.store.Load(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrPhaseStateNotFound) {
			http.Error(w, "no phase record for case", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("load error: %v", err), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}
