// Package server provides the HTTP API for docqa.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/corpus"
	"github.com/hyperjump/docqa/internal/indexer"
	"github.com/hyperjump/docqa/internal/search"
	"github.com/hyperjump/docqa/pkg/utils"
	"go.uber.org/zap"
)

// Server is the HTTP server for the docqa API.
type Server struct {
	engine  *search.Engine
	indexer *indexer.Indexer
	corpus  *corpus.Corpus
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	c *corpus.Corpus,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:  engine,
		indexer: idx,
		corpus:  c,
		config:  cfg,
		logger:  utils.OrNop(logger),
	}
}

// Router returns the API handler with its middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors)
	r.Use(middleware.Compress(5))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(seconds(s.config.Server.IngestTimeoutSecs, 300)))
		r.Post("/upload", s.handleUpload)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(seconds(s.config.Server.RequestTimeoutSecs, 120)))
		r.Post("/ask", s.handleAsk)
		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Get("/status", s.handleStatus)
		r.Get("/health", s.handleHealth)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
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

// cors allows any origin, method and header.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}
