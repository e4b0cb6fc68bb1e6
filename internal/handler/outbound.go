package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nanai10a/genkai-point-server/internal/notify"
)

const heartbeatInterval = 30 * time.Second

// OutboundHandler streams outbound chat messages to the gateway over SSE.
type OutboundHandler struct {
	broker *notify.Broker
}

func NewOutboundHandler(broker *notify.Broker) *OutboundHandler {
	return &OutboundHandler{broker: broker}
}

func (h *OutboundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.broker.Subscribe()
	defer h.broker.Unsubscribe(client)

	log.Info().Msg("outbound stream established")

	ctx := r.Context()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-client.Done:
			return

		case msg := <-client.Messages:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Error().Err(err).Msg("failed to marshal outbound message")
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
