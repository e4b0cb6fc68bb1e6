package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/Nanai10a/genkai-point-server/internal/errors"
	"github.com/Nanai10a/genkai-point-server/internal/httputil"
	"github.com/Nanai10a/genkai-point-server/internal/service"
)

// CommandHandler receives chat messages from the gateway. Replies travel
// back over the outbound broker, not this response.
type CommandHandler struct {
	commands *service.CommandService
}

func NewCommandHandler(commands *service.CommandService) *CommandHandler {
	return &CommandHandler{commands: commands}
}

type commandRequest struct {
	Content    string `json:"content"`
	AuthorID   uint64 `json:"authorId"`
	AuthorName string `json:"authorName"`
}

func (h *CommandHandler) Command(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.AuthorID == 0 {
		httputil.WriteError(w, apperrors.InvalidInput("authorId", "required"))
		return
	}

	replied, err := h.commands.Respond(r.Context(), req.Content, req.AuthorID, req.AuthorName)
	if err != nil {
		log.Error().Err(err).
			Uint64("authorId", req.AuthorID).
			Msg("command failed")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"replied": replied,
	})
}
