// Package server provides the HTTP API for Rinsho.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/rinsho/internal/config"
	"github.com/hyperjump/rinsho/internal/kb"
	"github.com/hyperjump/rinsho/internal/retrieval"
	"go.uber.org/zap"
)

// Server is the HTTP server for the Rinsho API.
type Server struct {
	svc       *retrieval.Service
	knowledge *kb.KnowledgeBase
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(svc *retrieval.Service, knowledge *kb.KnowledgeBase, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		svc:       svc,
		knowledge: knowledge,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all API routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/search/category", s.handleSearchByCategory)
	r.Post("/api/v1/documents", s.handleAddDocuments)
	r.Post("/api/v1/index/rebuild", s.handleRebuildIndex)
	r.Post("/api/v1/index/save", s.handleSaveIndex)
	r.Get("/api/v1/stats", s.handleStats)
	r.Get("/api/v1/knowledge/criteria", s.handleCriteria)
	r.Get("/api/v1/knowledge/treatments", s.handleTreatments)
	r.Get("/api/v1/knowledge/disorders/{name}", s.handleDisorderInfo)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
