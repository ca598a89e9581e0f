// Package diag exposes the operator-facing HTTP surface: health probes,
// Prometheus metrics, read-only statistics and ledger queries, and a
// websocket event stream. It is diagnostics only; uploads and deletes go
// through the Go API, not HTTP.
package diag

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"assetstore/internal/events"
	"assetstore/internal/metrics"
	"assetstore/internal/storage"
	"assetstore/internal/store"
)

type Dependencies struct {
	Service *storage.Service
	Store   *store.Store
	Metrics *metrics.Metrics
	Hub     *events.Hub
}

type server struct {
	svc     *storage.Service
	store   *store.Store
	metrics *metrics.Metrics
	hub     *events.Hub
}

func New(dep Dependencies) http.Handler {
	s := &server{
		svc:     dep.Service,
		store:   dep.Store,
		metrics: dep.Metrics,
		hub:     dep.Hub,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(securityHeaders)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Method(http.MethodGet, "/metrics", dep.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/files", s.handleListFiles)
		// Remote identifiers contain slashes, so the lookup route is a
		// wildcard.
		r.Get("/files/*", s.handleGetFile)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.Get("/ws", s.handleWS)
	})

	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store_unavailable\n"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("db_error\n"))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}
