// Package server exposes a Molder over HTTP.
//
// Routes:
//
//	GET  /healthz                  liveness and model count
//	GET  /models                   declared models with descriptions
//	GET  /models/{model}/schema    compiled document of one model
//	POST /models/{model}/validate  sanitize and validate a JSON body
//	GET  /metrics                  Prometheus exposition
//
// The served Molder is held behind an atomic pointer. Swap replaces it as a
// whole, so in-flight requests finish against the instance they started
// with.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/roach88/molder/internal/metrics"
	"github.com/roach88/molder/internal/payload"
	"github.com/roach88/molder/pkg/molder"
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address used by ListenAndServe.
	Addr string

	// MaxBodyBytes bounds validate request bodies. Zero uses
	// payload.DefaultMaxBytes.
	MaxBodyBytes int64

	// Metrics records request metrics when set.
	Metrics *metrics.Collector

	// Gatherer backs /metrics. Nil serves the default registry.
	Gatherer prometheus.Gatherer

	Logger zerolog.Logger
}

// Server serves one Molder at a time.
type Server struct {
	current atomic.Pointer[molder.Molder]
	opts    Options
	pool    payload.Pool
	router  chi.Router
	logger  zerolog.Logger
}

// New creates a server serving m.
func New(m *molder.Molder, opts Options) *Server {
	s := &Server{opts: opts, logger: opts.Logger}
	s.current.Store(m)
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Molder returns the instance currently served.
func (s *Server) Molder() *molder.Molder {
	return s.current.Load()
}

// Swap replaces the served Molder and returns the previous one.
func (s *Server) Swap(m *molder.Molder) *molder.Molder {
	return s.current.Swap(m)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(s.logger))
	r.Use(middleware.Recoverer)
	if s.opts.Metrics != nil {
		r.Use(metricsMiddleware(s.opts.Metrics))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/models", s.handleModels)
	r.Route("/models/{model}", func(r chi.Router) {
		r.Get("/schema", s.handleSchema)
		r.Post("/validate", s.handleValidate)
	})

	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

// ListenAndServe serves on Options.Addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.opts.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
