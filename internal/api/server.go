package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/searchkit/docindex/internal/config"
	"github.com/searchkit/docindex/internal/embed"
	"github.com/searchkit/docindex/internal/pipeline"
)

// Server is the HTTP API server for docindex.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	embedder     embed.Provider // nil means keyword-only search
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. The embedder, when set,
// vectorizes search queries so hybrid search works without clients shipping
// their own vectors.
func NewServer(orch *pipeline.Orchestrator, embedder embed.Provider, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		embedder:     embedder,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/healthz", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Get("/api/docs", s.handleListDocs)
		r.Delete("/api/docs/{name}", s.handleDeleteDoc)

		r.Post("/api/search", s.handleSearch)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
