// Package server implements the engai HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/tuannvm/engai/internal/runner"
	"github.com/tuannvm/engai/internal/usage"
)

// Generator runs generations and reports usage. *runner.Service
// implements it.
type Generator interface {
	Generate(ctx context.Context, req runner.GenerateRequest) (*runner.Generation, error)
	Usage() usage.Snapshot
}

var _ Generator = (*runner.Service)(nil)

// Config configures the HTTP server.
type Config struct {
	ServiceName  string
	Port         int
	WriteTimeout time.Duration
	CORSOrigins  []string
	Logger       *slog.Logger

	// MCP, when set, is mounted at /mcp.
	MCP http.Handler
}

// Server serves the generation API.
type Server struct {
	gen    Generator
	config Config
	logger *slog.Logger
	router chi.Router
}

// New creates a server backed by gen.
func New(gen Generator, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Minute
	}

	s := &Server{gen: gen, config: cfg, logger: cfg.Logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(tracingMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Get("/usage", s.handleUsage)
		r.Get("/health", s.handleHealth)
	})
	if s.config.MCP != nil {
		r.Handle("/mcp", s.config.MCP)
	}
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.config.WriteTimeout, // a generation runs several LLM calls
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		errCh <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", "addr", addr, "service", s.config.ServiceName)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-errCh
}
