package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/lessongest/internal/config"
	"github.com/dgallion1/lessongest/internal/contentstore"
	"github.com/dgallion1/lessongest/internal/pipeline"
	"github.com/dgallion1/lessongest/internal/resolve"
)

// Server is the HTTP API server for lessongest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	resolver     *resolve.Resolver
	store        *contentstore.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. store may be nil, in
// which case the lesson endpoints answer 503.
func NewServer(orch *pipeline.Orchestrator, store *contentstore.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		resolver:     resolve.New(cfg.ResolveOptions()),
		store:        store,
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
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.Server.APIKey, s.log))

		r.Post("/api/build", s.handleBuild)
		r.Post("/api/merge", s.handleMerge)
		r.Post("/api/resolve", s.handleResolve)

		r.Post("/api/convert", s.handleConvert)
		r.Get("/api/convert/{jobID}/status", s.handleConvertStatus)
		r.Get("/api/convert/{jobID}/result", s.handleConvertResult)

		r.Get("/api/lessons/{lessonID}/{lang}", s.handleGetLesson)
		r.Delete("/api/lessons/{lessonID}/{lang}", s.handleDeleteLesson)

		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
