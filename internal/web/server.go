// Package web provides the JSON API for the dashboard.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/clusterdash/internal/cluster"
	"github.com/koustreak/clusterdash/internal/logger"
	"github.com/koustreak/clusterdash/internal/metrics"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr    string
	Session *cluster.Session
	Actions *cluster.Actions
	Logger  *logger.Logger
}

// Server is the HTTP server for the dashboard API.
type Server struct {
	config  ServerConfig
	router  *chi.Mux
	handler *Handler
	log     *logger.Logger
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		log:    cfg.Logger.With().Str("component", "web").Logger(),
	}

	s.handler = NewHandler(cfg.Session, cfg.Actions, s.log)
	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(accessLog(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(requestTimeout))
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handler.Health)
		r.Get("/status", s.handler.Status)
		r.Post("/connect", s.handler.Connect)
		r.Post("/disconnect", s.handler.Disconnect)
		r.Get("/actions", s.handler.ListActions)
		r.Post("/actions/{name}", s.handler.RunAction)
	})
}

// Router returns the chi router for external use.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("starting web server on http://%s", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
