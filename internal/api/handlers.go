// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/podops/overseer/internal/episode"
	"github.com/podops/overseer/internal/intake"
	"github.com/podops/overseer/internal/model"
	"github.com/podops/overseer/internal/state"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	health := map[string]string{"status": "ok", "fast_store": "ok", "durable_store": "ok"}
	code := http.StatusOK
	if err := s.State.Ping(ctx); err != nil {
		health["fast_store"] = err.Error()
		health["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	if err := s.Store.DB.PingContext(ctx); err != nil {
		health["durable_store"] = err.Error()
		health["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

func (s *Server) handleCadenceStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"groups": s.Cadence.StatusAll()})
}

func (s *Server) handleProductionStatus(w http.ResponseWriter, r *http.Request) {
	lock, err := s.State.InspectProductionLock(r.Context())
	if err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	if lock == nil {
		writeJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": true, "lock": lock})
}

func (s *Server) handleProductionPause(w http.ResponseWriter, r *http.Request) {
	err := s.State.SetProductionLock(r.Context(), state.ProductionLock{
		StartedAt: time.Now().UTC(),
		Manual:    true,
	}, s.ManualPauseTTL)
	if err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleProductionResume(w http.ResponseWriter, r *http.Request) {
	if err := s.State.ClearProductionLock(r.Context(), true); err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

func (s *Server) handleReviewMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"counters": s.Router.Snapshot(r.Context()),
		"settings": s.State.ReviewSettings(r.Context()),
	})
}

func (s *Server) handleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	var settings state.ReviewSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, err)
		return
	}
	if err := s.State.UpdateReviewSettings(r.Context(), settings); err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State.ReviewSettings(r.Context()))
}

func (s *Server) handleCollectionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Store.ListCollectionStats(r.Context())
	if err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": stats})
}

func (s *Server) handleGroupUpsert(w http.ResponseWriter, r *http.Request) {
	var g model.PodcastGroup
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeError(w, err)
		return
	}
	if g.ID == "" || g.Name == "" {
		writeError(w, errors.New("group id and name are required"))
		return
	}
	if err := s.Store.UpsertGroup(r.Context(), &g); err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	id, err := s.Generator.Generate(r.Context(), groupID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"episode_id": id})
	case errors.Is(err, episode.ErrLockHeld):
		writeConflict(w, err)
	case errors.Is(err, episode.ErrInsufficientContent),
		errors.Is(err, episode.ErrGroupInactive),
		errors.Is(err, episode.ErrGroupMisconfigured):
		writeJSON(w, http.StatusPreconditionFailed, map[string]string{"error": err.Error(), "episode_id": id})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error(), "episode_id": id})
	}
}

func (s *Server) handleArticleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub intake.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, err)
		return
	}
	id, err := s.Intake.Submit(r.Context(), sub)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"article_id": id})
	case errors.Is(err, intake.ErrDuplicate):
		writeConflict(w, err)
	default:
		writeError(w, err)
	}
}
