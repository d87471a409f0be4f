// Package web serves a read-only HTTP view over the catalog: identity
// statistics and ledger records, plus an async reindex endpoint. It never
// runs the tracking loop, so the catalog keeps its single-writer model.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/person-tracker/internal/catalog"
	"github.com/kozaktomas/person-tracker/internal/gallery"
)

// Server exposes the stats API.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	store      *catalog.Store
	embed      catalog.EmbedFunc
	logger     *slog.Logger
	jobs       *JobManager

	mu      sync.RWMutex
	gallery *gallery.Gallery
}

// NewServer creates the server over an already-loaded gallery. embed is
// needed only by the reindex endpoint to rebuild references from disk.
func NewServer(host string, port int, store *catalog.Store, g *gallery.Gallery, embed catalog.EmbedFunc, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:  r,
		store:   store,
		embed:   embed,
		logger:  logger,
		jobs:    NewJobManager(),
		gallery: g,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Get("/identities", s.handleIdentities)
		r.Get("/identities/{name}", s.handleIdentity)
		r.Post("/reindex", s.handleReindex)
		r.Get("/jobs/{jobID}", s.handleJob)
	})
}

// Start runs the HTTP server until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("stats server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down stats server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// currentGallery returns the gallery snapshot handlers should read from.
func (s *Server) currentGallery() *gallery.Gallery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gallery
}

// swapGallery installs a freshly reindexed gallery.
func (s *Server) swapGallery(g *gallery.Gallery) {
	s.mu.Lock()
	s.gallery = g
	s.mu.Unlock()
}
