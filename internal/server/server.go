// Package server provides the HTTP API for Wortwerk.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/deutschlab/wortwerk/internal/config"
	"github.com/deutschlab/wortwerk/internal/llm"
	"github.com/deutschlab/wortwerk/internal/models"
	"github.com/deutschlab/wortwerk/internal/transcribe"
	"github.com/deutschlab/wortwerk/internal/vocab"
	"github.com/deutschlab/wortwerk/internal/watcher"
)

// Server is the HTTP server for the Wortwerk API.
type Server struct {
	resolver    *vocab.Resolver
	llm         llm.Client
	transcriber transcribe.Transcriber
	watch       *watcher.Watcher
	config      *config.Config
	logger      *zap.Logger
	server      *http.Server

	eventsMu sync.Mutex
	events   []models.Event
}

// NewServer creates a server with the given dependencies. watch may be nil
// when directory watching is disabled.
func NewServer(
	resolver *vocab.Resolver,
	client llm.Client,
	transcriber transcribe.Transcriber,
	watch *watcher.Watcher,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		resolver:    resolver,
		llm:         client,
		transcriber: transcriber,
		watch:       watch,
		config:      cfg,
		logger:      logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/generate/listening", s.handleGenerate(models.SkillListening))
	r.Post("/api/v1/generate/reading", s.handleGenerate(models.SkillReading))
	r.Post("/api/v1/generate/writing", s.handleGenerate(models.SkillWriting))
	r.Post("/api/v1/generate/speaking", s.handleGenerate(models.SkillSpeaking))
	r.Post("/api/v1/vocabulary", s.handleVocabulary)
	r.Post("/api/v1/transcribe", s.handleTranscribe)
	r.Post("/api/v1/validate/speaking", s.handleValidateSpeaking)
	r.Post("/api/v1/events", s.handleEventPost)
	r.Get("/api/v1/events", s.handleEventList)
	r.Get("/api/v1/status", s.handleStatus)
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
