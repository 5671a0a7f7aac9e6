// Package gateway exposes the summarization pipeline over HTTP: job
// submission, status polling, a websocket progress stream, and basic
// process health endpoints.
package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cruxrec/cruxrec/pkg/cache"
	"github.com/cruxrec/cruxrec/pkg/config"
	"github.com/cruxrec/cruxrec/pkg/logging"
	"github.com/cruxrec/cruxrec/pkg/pipeline"
)

// Gateway is the HTTP server fronting the pipeline.
type Gateway struct {
	cfg     config.GatewayConfig
	router  chi.Router
	server  *http.Server
	jobs    *jobManager
	store   *cache.Cache
	logger  *zap.Logger
	started time.Time
}

// New creates a gateway around an existing pipeline and cache.
func New(cfg config.GatewayConfig, pipe *pipeline.Pipeline, store *cache.Cache) *Gateway {
	logger := logging.GetLogger("services")

	g := &Gateway{
		cfg:    cfg,
		router: chi.NewRouter(),
		jobs:   newJobManager(pipe, cfg.MaxJobs, logger),
		store:  store,
		logger: logger,
	}

	g.router.Use(middleware.RequestID)
	g.router.Use(middleware.Recoverer)

	g.router.Get("/health", g.healthHandler)
	g.router.Route("/v1", func(r chi.Router) {
		r.Get("/status", g.statusHandler)

		// Job submission carries its own timeout; the websocket route must
		// stay outside any per-request timeout middleware.
		r.Group(func(r chi.Router) {
			if cfg.Timeout > 0 {
				r.Use(middleware.Timeout(cfg.Timeout.Std()))
			}
			r.Post("/summarize", g.summarizeHandler)
			r.Post("/transcribe", g.transcribeHandler)
			r.Get("/jobs", g.listJobsHandler)
			r.Get("/jobs/{id}", g.jobHandler)
			r.Post("/cache/purge", g.cachePurgeHandler)
		})
		r.Get("/jobs/{id}/ws", g.jobWebsocketHandler)
	})

	g.logger.Info("Gateway initialized",
		zap.String("listen_addr", cfg.ListenAddr),
		zap.Int("max_jobs", cfg.MaxJobs))
	return g
}

// Router returns the configured handler, mainly for tests.
func (g *Gateway) Router() http.Handler {
	return g.router
}

// Start begins serving. It returns once the listener is bound; serving
// continues in the background until Stop.
func (g *Gateway) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", g.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", g.cfg.ListenAddr, err)
	}

	g.server = &http.Server{
		Addr:        g.cfg.ListenAddr,
		Handler:     g.router,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	g.started = time.Now()

	g.logger.Info("Gateway server starting", zap.String("listen_addr", g.cfg.ListenAddr))
	go func() {
		if err := g.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			g.logger.Error("Gateway server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully and waits for running jobs.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	g.logger.Info("Gateway server stopping")
	if err := g.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown gateway: %w", err)
	}

	done := make(chan struct{})
	go func() {
		g.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		g.logger.Warn("Gateway stopped with jobs still running")
	}
	return nil
}
