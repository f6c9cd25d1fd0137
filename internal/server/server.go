package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"tailscale.com/client/local"

	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	svc     *session.Service
	db      *storage.DB
	log     *slog.Logger
	apiKey  string
	router  chi.Router
	tsLocal *local.Client
}

// New creates a new Server with all routes configured. An empty apiKey leaves
// mutating routes open, which is only sensible behind the tsnet listener or
// in local development.
func New(svc *session.Service, db *storage.DB, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		svc:    svc,
		db:     db,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.identity)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Read endpoints (identity only; tsnet handles access)
		r.Get("/me", s.handleMe)
		r.Get("/sessions", s.handleSessionHistory)
		r.Get("/sessions/active", s.handleActiveSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/templates", s.handleListTemplates)
		r.Get("/templates/{id}", s.handleGetTemplate)
		r.Get("/catalog", s.handleListCatalog)
		r.Get("/catalog/{id}", s.handleGetCatalogExercise)
		r.Get("/warmup/strategies", s.handleWarmupStrategies)
		r.Get("/import/logs", s.handleImportLogs)

		// Mutating endpoints (API key required when configured)
		r.Group(func(r chi.Router) {
			if s.apiKey != "" {
				r.Use(APIKeyAuth(s.apiKey))
			}
			r.Post("/sessions", s.handleStartSession)
			r.Post("/sessions/{id}/pause", s.handlePauseSession)
			r.Post("/sessions/{id}/resume", s.handleResumeSession)
			r.Post("/sessions/{id}/end", s.handleEndSession)
			r.Delete("/sessions/{id}", s.handleCancelSession)
			r.Post("/sessions/{id}/warmup", s.handleInsertWarmupAll)
			r.Put("/sessions/{id}/exercises/order", s.handleReorderExercises)

			r.Post("/sessions/{id}/exercises/{exerciseID}/sets", s.handleAddSet)
			r.Patch("/sessions/{id}/exercises/{exerciseID}/sets/{setID}", s.handleUpdateSet)
			r.Delete("/sessions/{id}/exercises/{exerciseID}/sets/{setID}", s.handleRemoveSet)
			r.Post("/sessions/{id}/exercises/{exerciseID}/sets/{setID}/toggle", s.handleToggleSet)
			r.Put("/sessions/{id}/exercises/{exerciseID}/sets/{setID}/rest", s.handleSetSetRest)
			r.Post("/sessions/{id}/exercises/{exerciseID}/warmup", s.handleInsertWarmup)
			r.Put("/sessions/{id}/exercises/{exerciseID}/note", s.handleSetNote)
			r.Put("/sessions/{id}/exercises/{exerciseID}/finished", s.handleSetFinished)
			r.Put("/sessions/{id}/exercises/{exerciseID}/rest", s.handleSetExerciseRest)

			r.Post("/sessions/{id}/groups/{groupID}/advance", s.handleAdvanceRound)
			r.Post("/sessions/{id}/groups/{groupID}/exercises/{exerciseID}/sets/{setID}/complete", s.handleCompleteGroupSet)

			r.Post("/import", s.handleImportHistory)
		})
	})
}
