// Package server exposes the question answering service over HTTP:
// chat (plain and WebSocket), document management, conversations,
// analytics and cache control.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/docqa-io/docqa/internal/analytics"
	"github.com/docqa-io/docqa/internal/answer"
	"github.com/docqa-io/docqa/internal/cache"
	"github.com/docqa-io/docqa/internal/conversation"
	"github.com/docqa-io/docqa/internal/embeddings"
	"github.com/docqa-io/docqa/internal/index"
	"github.com/docqa-io/docqa/internal/ingest"
)

// Config holds server configuration.
type Config struct {
	Port     int
	DataDir  string // directory for the index snapshot and stored files
	AllowAll bool   // allow all CORS origins (dev mode)
}

// Deps are the collaborators the handlers need. All are required except
// Logger.
type Deps struct {
	Answer        *answer.Service
	Ingestor      *ingest.Ingestor
	Index         index.Store
	Cache         *cache.Service
	Conversations *conversation.Store
	Analytics     *analytics.Store
	Embedder      embeddings.Embedder
	Logger        *logrus.Logger
}

// Server is the HTTP front of the knowledge base.
type Server struct {
	cfg        Config
	deps       Deps
	log        *logrus.Logger
	router     chi.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// New creates a Server with all dependencies wired.
func New(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		log:      deps.Logger,
		upgrader: newUpgrader(cfg.AllowAll),
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// The chat socket outlives any single request, so it mounts outside
	// the timeout group; each ask gets its own deadline in the handler.
	r.Get("/api/chat/ws", s.handleChatWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Get("/healthz", s.handleHealth)
		s.RegisterRoutes(r)
	})

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.log.WithField("addr", addr).Info("docqa server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the server gracefully and snapshots the index so a
// restart does not require re-ingestion.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cfg.DataDir != "" && s.deps.Index != nil {
		if err := s.deps.Index.Persist(s.cfg.DataDir); err != nil {
			s.log.WithError(err).Warn("persisting index snapshot on shutdown")
		}
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":        "ok",
		"embedder":      s.deps.Embedder.Name(),
		"index_records": s.deps.Index.Count(),
	}
	if s.deps.Cache != nil {
		health["cache_backend"] = s.deps.Cache.Stats(r.Context()).Backend
	}
	writeJSON(w, http.StatusOK, health)
}
