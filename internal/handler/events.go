package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/Nanai10a/genkai-point-server/internal/errors"
	"github.com/Nanai10a/genkai-point-server/internal/httputil"
	"github.com/Nanai10a/genkai-point-server/internal/service"
)

// EventsHandler receives presence events from the platform gateway.
type EventsHandler struct {
	lifecycle *service.LifecycleService
}

func NewEventsHandler(lifecycle *service.LifecycleService) *EventsHandler {
	return &EventsHandler{lifecycle: lifecycle}
}

type presenceRequest struct {
	UserID uint64 `json:"userId"`
	Type   string `json:"type"`
}

type snapshotRequest struct {
	UserIDs []uint64 `json:"userIds"`
}

// Presence handles a single voice-channel join or leave.
func (h *EventsHandler) Presence(w http.ResponseWriter, r *http.Request) {
	var req presenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.UserID == 0 {
		httputil.WriteError(w, apperrors.InvalidInput("userId", "required"))
		return
	}

	now := time.Now().UTC()

	var err error
	switch req.Type {
	case "join":
		err = h.lifecycle.HandleJoin(r.Context(), req.UserID, now)
	case "leave":
		err = h.lifecycle.HandleLeave(r.Context(), req.UserID, now)
	default:
		httputil.WriteError(w, apperrors.InvalidInput("type", "must be join or leave"))
		return
	}

	if err != nil {
		log.Error().Err(err).
			Uint64("userId", req.UserID).
			Str("type", req.Type).
			Msg("presence event failed")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

// Snapshot handles the full presence set delivered after a gateway
// (re)connect and triggers reconciliation.
func (h *EventsHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	now := time.Now().UTC()

	if err := h.lifecycle.Reconcile(r.Context(), req.UserIDs, now); err != nil {
		log.Error().Err(err).
			Int("presentCount", len(req.UserIDs)).
			Msg("reconciliation failed")
		httputil.WriteError(w, err)
		return
	}

	log.Info().Int("presentCount", len(req.UserIDs)).Msg("reconciliation complete")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}
