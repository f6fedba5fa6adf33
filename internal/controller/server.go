// Package controller contains the controller-specific logic for the HTTP API.
package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"simplane/internal/controller/handlers"
	"simplane/internal/controller/middleware"
)

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// Config holds the server's wiring knobs.
type Config struct {
	Addr      string
	APIToken  string  // empty disables auth
	RateLimit float64 // requests/sec per client, 0 disables
}

// New creates a new controller server around the given handlers.
func New(cfg Config, h *handlers.Handlers) *Server {
	authMW := middleware.Auth(cfg.APIToken)
	limitMW := middleware.RateLimit(cfg.RateLimit)
	protect := func(hf http.HandlerFunc) http.Handler {
		return limitMW(authMW(hf))
	}

	mux := http.NewServeMux()

	mux.Handle("POST /jobs", protect(h.StartJob))
	mux.Handle("GET /jobs", protect(h.ListJobs))
	mux.Handle("GET /jobs/{id}", protect(h.GetJob))
	mux.Handle("GET /jobs/{id}/activity", protect(h.GetActivity))
	mux.Handle("POST /jobs/{id}/stop", protect(h.StopJob))
	mux.Handle("POST /jobs/{id}/pause", protect(h.PauseJob))
	mux.Handle("POST /jobs/{id}/resume", protect(h.ResumeJob))
	mux.Handle("POST /jobs/{id}/generate", protect(h.GenerateNow))
	mux.Handle("DELETE /jobs/{id}", protect(h.DeleteJob))

	// Probes and metrics stay unauthenticated for the scrapers.
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
