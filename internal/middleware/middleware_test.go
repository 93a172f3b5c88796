package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kevin07696/gocardless-service/internal/auth"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequireSecret(t *testing.T) {
	guard := RequireSecret(AdminSecretHeader, auth.NewSharedSecret("host-secret"), zap.NewNop())(okHandler)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"matching secret", "host-secret", http.StatusOK},
		{"wrong secret", "guess", http.StatusUnauthorized},
		{"missing secret", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/host/orders/1/notes", nil)
			if tt.header != "" {
				req.Header.Set(AdminSecretHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			guard.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequireSecret_UnsetSecretRejectsAll(t *testing.T) {
	guard := RequireSecret(AdminSecretHeader, auth.NewSharedSecret(""), zap.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/host/orders/1/notes", nil)
	req.Header.Set(AdminSecretHeader, "")
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	t.Run("production sends HSTS", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewSecurityHeaders(false).Middleware(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})

	t.Run("development omits HSTS", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewSecurityHeaders(true).Middleware(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	})
}
