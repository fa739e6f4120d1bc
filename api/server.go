// Package api exposes the vault and the retrieval index over HTTP REST.
//
// Endpoints:
//
//	GET    /health                      liveness probe
//	GET    /ready                       readiness probe (vault root + index ping)
//	POST   /api/documents               save a document (optional async index push)
//	GET    /api/documents/...           read / list
//	PATCH  /api/documents/.../metadata  merge metadata
//	PUT    /api/documents/.../content   replace body
//	POST   /api/documents/.../grade     record a grading outcome
//	POST   /api/documents/.../review    copy into the review category
//	DELETE /api/documents/...           delete
//	GET    /api/weakest                 lowest-accuracy listing
//	GET    /api/stats                   per (owner, subject) statistics
//	POST   /api/cards                   create a knowledge card
//	GET    /api/cards                   knowledge cards by tags
//	POST   /api/index/workspaces        ensure a workspace exists
//	POST   /api/index/push              synchronous single-document push
//	POST   /api/index/batch             bounded concurrent batch push
//	POST   /api/index/query             retrieval query
//	GET    /api/index/ping              index service probe
//	POST   /api/assessments             create an assessment session
//	GET    /api/assessments             session history
//	GET    /api/assessments/{id}        read a session
//	POST   /api/assessments/{id}/grade  grade a session
//
// File structure mirrors the handler split: server.go holds lifecycle,
// middleware.go the chain, response.go the JSON helpers, and one file per
// handler group.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/linchen0/tutorvault/internal/assess"
	"github.com/linchen0/tutorvault/internal/index"
	"github.com/linchen0/tutorvault/internal/log"
	"github.com/linchen0/tutorvault/internal/vault"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8400"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against slow-header clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout = 60 * time.Second

	// IdleTimeout bounds keep-alive connections between requests.
	IdleTimeout = 120 * time.Second
)

// Options configures the server beyond its collaborators.
type Options struct {
	// RateLimitRPS is tokens per second per client IP. Zero disables
	// rate limiting.
	RateLimitRPS float64

	// RateLimitBurst is the per-IP token bucket size.
	RateLimitBurst int

	// TrustProxy enables X-Real-IP / X-Forwarded-For client addressing.
	TrustProxy bool
}

// Server is the HTTP server over the vault and index gateway.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
	opts   Options

	health    *HealthHandler
	documents *DocumentHandler
	index     *IndexHandler
	assess    *AssessHandler
}

// NewServer wires all routes. gateway and worker may be nil when no index
// service is configured; index routes then answer 503.
func NewServer(store *vault.Store, gateway *index.Gateway, worker *index.Worker, sessions assess.Store, logger log.Logger, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:       mux,
		logger:    logger,
		opts:      opts,
		health:    NewHealthHandler(store, gateway, logger),
		documents: NewDocumentHandler(store, worker, logger),
		index:     NewIndexHandler(store, gateway, logger),
		assess:    NewAssessHandler(store, sessions, logger),
	}

	s.health.RegisterRoutes(mux)
	s.documents.RegisterRoutes(mux)
	s.index.RegisterRoutes(mux)
	s.assess.RegisterRoutes(mux)

	return s
}

// Handler returns the mux with middleware applied.
// Order: recovery outermost, then rate limiting, then logging.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		recoveryMiddleware(s.logger),
	}
	if s.opts.RateLimitRPS > 0 {
		rl := newRateLimiter(s.opts.RateLimitRPS, s.opts.RateLimitBurst)
		middlewares = append(middlewares, rateLimitMiddleware(rl, s.opts.TrustProxy, s.logger))
	}
	middlewares = append(middlewares, loggingMiddleware(s.logger))
	return chain(s.mux, middlewares...)
}

// Run starts the server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
