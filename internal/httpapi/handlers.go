package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arksynth/arksynth/internal/orchestrator"
)

type renderRequest struct {
	Force bool `json:"force"`
}

// handleRenderEpisode starts (or reattaches to) a single-episode render.
func (s *Server) handleRenderEpisode(w http.ResponseWriter, r *http.Request) {
	episodeID := chi.URLParam(r, "episodeID")

	var req renderRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode request body: %w", err))
			return
		}
	}

	episode, err := s.loaders.Index().Episode(episodeID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	if err := s.orch.StartRender(r.Context(), episode, req.Force); err != nil {
		writeRenderErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"episode_id": episodeID, "status": "started"})
}

// handleGroupEpisodes lists the episode ids belonging to a story group, in
// render order.
func (s *Server) handleGroupEpisodes(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	episodeIDs, err := s.loaders.Index().EpisodesInGroup(groupID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"episode_ids": episodeIDs})
}

// handleProgress streams render progress as server-sent events until the
// client disconnects or the render reaches a terminal status.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	episodeID := chi.URLParam(r, "episodeID")
	events, unsubscribe := s.orch.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.EpisodeID != episodeID {
				continue
			}
			payload, err := json.Marshal(e)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			if e.Status == orchestrator.StatusCompleted || e.Status == orchestrator.StatusFailed || e.Status == orchestrator.StatusCancelled {
				return
			}
		}
	}
}

// handleCancel cancels whatever job currently occupies the orchestrator's
// job slot.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.orch.Cancel()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

type aliasRequest struct {
	Name        string `json:"name"`
	CharacterID string `json:"character_id"`
}

// handleAddAlias records a new display-name -> character-id alias.
func (s *Server) handleAddAlias(w http.ResponseWriter, r *http.Request) {
	var req aliasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request body: %w", err))
		return
	}
	if req.Name == "" || req.CharacterID == "" {
		writeError(w, http.StatusBadRequest, errors.New("name and character_id are required"))
		return
	}

	resolver, err := s.loaders.VoiceResolver()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := resolver.AddAlias(req.Name, req.CharacterID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

// handleRemoveAlias drops an existing alias.
func (s *Server) handleRemoveAlias(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	resolver, err := s.loaders.VoiceResolver()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := resolver.RemoveAlias(name); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// writeRenderErr maps an orchestrator error to the HTTP status it implies.
func writeRenderErr(w http.ResponseWriter, err error) {
	if errors.Is(err, orchestrator.ErrBusy) {
		writeError(w, http.StatusConflict, err)
		return
	}
	var rerr *orchestrator.RenderError
	if errors.As(err, &rerr) {
		switch rerr.Kind {
		case orchestrator.KindInvalid, orchestrator.KindMalformed:
			writeError(w, http.StatusBadRequest, err)
		case orchestrator.KindMissingResource:
			writeError(w, http.StatusNotFound, err)
		case orchestrator.KindTransient:
			writeError(w, http.StatusBadGateway, err)
		case orchestrator.KindCancelled:
			writeError(w, http.StatusConflict, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}
