package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatewayAuthMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("empty configured token disables the check", func(t *testing.T) {
		m := NewGatewayAuthMiddleware("")
		rec := httptest.NewRecorder()

		m.Handler(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects missing token", func(t *testing.T) {
		m := NewGatewayAuthMiddleware("secret-token")
		rec := httptest.NewRecorder()

		m.Handler(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects wrong token", func(t *testing.T) {
		m := NewGatewayAuthMiddleware("secret-token")
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer wrong")

		m.Handler(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepts bearer token", func(t *testing.T) {
		m := NewGatewayAuthMiddleware("secret-token")
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer secret-token")

		m.Handler(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("accepts query token", func(t *testing.T) {
		m := NewGatewayAuthMiddleware("secret-token")
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/?token=secret-token", nil)

		m.Handler(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
