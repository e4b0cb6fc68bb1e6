package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/Nanai10a/genkai-point-server/internal/errors"
	"github.com/Nanai10a/genkai-point-server/internal/httputil"
)

// GatewayAuthMiddleware guards the event API with the shared gateway token.
// An empty configured token disables the check (local development).
type GatewayAuthMiddleware struct {
	token string
}

func NewGatewayAuthMiddleware(token string) *GatewayAuthMiddleware {
	return &GatewayAuthMiddleware{token: token}
}

func (m *GatewayAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.token == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			httputil.WriteError(w, apperrors.Unauthorized("Missing authentication token"))
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) != 1 {
			log.Warn().Msg("auth middleware: invalid token attempt")
			httputil.WriteError(w, apperrors.Unauthorized("Invalid token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
