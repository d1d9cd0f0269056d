// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package api is the composition root of the HTTP transport: it builds the
// chi router, mounts the account and health handlers, and runs the server.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/accounts/internal/platform/constants"
	"github.com/taibuivan/accounts/internal/platform/metrics"
	"github.com/taibuivan/accounts/internal/platform/middleware"
	"github.com/taibuivan/accounts/internal/users/account"
)

// ServerConfig is the part of the application config the router needs.
type ServerConfig interface {
	middleware.AppConfig
	Port() string
}

// Handlers lists what [NewServer] mounts. Metrics is optional.
type Handlers struct {
	Liveness  http.HandlerFunc // GET /health
	Readiness http.HandlerFunc // GET /ready
	Account   *account.Handler // /api/v1/auth and /api/v1/users
	Metrics   *metrics.Metrics // request instrumentation and GET /metrics
}

// Server owns the router and the listening [http.Server].
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

// NewServer builds the router and the server around it. Nothing listens
// until [Server.Run] or [Server.ListenAndServe] is called.
func NewServer(cfg ServerConfig, log *slog.Logger, verifier middleware.TokenVerifier, h Handlers) *Server {
	return &Server{
		log: log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port(),
			Handler:           newRouter(cfg, log, verifier, h),
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		},
	}
}

func newRouter(cfg ServerConfig, log *slog.Logger, verifier middleware.TokenVerifier, h Handlers) chi.Router {
	router := chi.NewRouter()

	// Request id and logger come first so every later layer can log with them.
	router.Use(middleware.RequestID(), middleware.StructuredLogger(log))
	if h.Metrics != nil {
		router.Use(h.Metrics.Middleware)
	}
	router.Use(
		chimw.Timeout(constants.GlobalRequestTimeout),
		middleware.PanicRecovery(log),
		middleware.CORS(cfg),
		chimw.CleanPath,
	)

	router.Get("/health", h.Liveness)
	router.Get("/ready", h.Readiness)
	if h.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", h.Metrics.Handler())
	}

	// Bearer tokens are only read on the user resource, so a stale
	// Authorization header never blocks login, registration or reset.
	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Mount("/auth", h.Account.AuthRoutes())
		v1.With(middleware.Authenticate(verifier)).Mount("/users", h.Account.UserRoutes())
	})

	return router
}

// Handler returns the wired router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the server stops. It returns
// [http.ErrServerClosed] after a [Server.Shutdown].
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and waits up to timeout for
// in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully. A listener
// failure is returned as is; a clean stop returns nil.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	failed := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
		close(failed)
	}()

	select {
	case err := <-failed:
		return err
	case <-ctx.Done():
	}

	s.log.Info("server_shutting_down", slog.Duration("timeout", shutdownTimeout))
	if err := s.Shutdown(shutdownTimeout); err != nil {
		return err
	}
	return <-failed
}
