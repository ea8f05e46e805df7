// Package server provides the HTTP API for Kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/composer"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/history"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/session"
)

// maxUploadBytes caps multipart uploads.
const maxUploadBytes = 50 << 20

// Server is the HTTP server for the Kotae API.
type Server struct {
	extractor *extract.Extractor
	chunker   *chunker.Chunker
	embedder  llm.Embedder
	store     *session.Store
	engine    *search.Engine
	composer  *composer.Composer
	history   *history.Store
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	extractor *extract.Extractor,
	ch *chunker.Chunker,
	embedder llm.Embedder,
	store *session.Store,
	engine *search.Engine,
	comp *composer.Composer,
	hist *history.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		extractor: extractor,
		chunker:   ch,
		embedder:  embedder,
		store:     store,
		engine:    engine,
		composer:  comp,
		history:   hist,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Post("/api/v1/upload", s.handleUpload)
	r.Post("/api/v1/chat", s.handleChat)
	r.Delete("/api/v1/sessions/{id}", s.handleClearSession)
	r.Get("/api/v1/sessions/{id}/stats", s.handleSessionStats)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops. When a session idle
// TTL is configured, a background pruner reclaims abandoned sessions.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	if ttl := s.config.Session.IdleTTL.Std(); ttl > 0 {
		go s.pruneLoop(ttl, s.config.Session.PruneInterval.Std())
	}

	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) pruneLoop(ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if n := s.store.PruneIdle(ttl); n > 0 {
			s.logger.Info("pruned idle sessions", zap.Int("count", n))
		}
	}
}
