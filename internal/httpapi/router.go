// Package httpapi is the thin HTTP boundary exposing the core's
// render-start/status/cancel operations and story-index reads (spec §6,
// "interface the core exposes"). It never holds domain logic itself —
// every handler delegates straight into internal/orchestrator,
// internal/loaders, and internal/voice.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/arksynth/arksynth/internal/loaders"
	"github.com/arksynth/arksynth/internal/orchestrator"
)

// Server wires the render orchestrator and shared loaders to a chi
// router.
type Server struct {
	orch    *orchestrator.Orchestrator
	loaders *loaders.Loaders
}

// New builds a Server over an already-constructed orchestrator and
// loaders handle.
func New(orch *orchestrator.Orchestrator, l *loaders.Loaders) *Server {
	return &Server{orch: orch, loaders: l}
}

// Router builds the chi.Mux, following the teacher's middleware stack
// (request logging, panic recovery, a request timeout, permissive CORS
// for the local desktop UI).
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
	}))

	r.Route("/episodes/{episodeID}", func(r chi.Router) {
		r.Post("/render", s.handleRenderEpisode)
		r.Get("/progress", s.handleProgress)
		r.Post("/cancel", s.handleCancel)
	})
	r.Get("/groups/{groupID}/episodes", s.handleGroupEpisodes)
	r.Post("/aliases", s.handleAddAlias)
	r.Delete("/aliases/{name}", s.handleRemoveAlias)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
