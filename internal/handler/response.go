package handler

import (
	"net/http"

	"github.com/Nanai10a/genkai-point-server/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}
