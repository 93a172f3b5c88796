package middleware

import (
	"net/http"

	"github.com/kevin07696/gocardless-service/internal/auth"
	"github.com/kevin07696/gocardless-service/internal/handlers/response"
	"go.uber.org/zap"
)

// AdminSecretHeader authenticates the host platform
const AdminSecretHeader = "X-Admin-Secret"

// RequireSecret rejects requests whose header does not carry the secret
func RequireSecret(header string, secret auth.SharedSecret, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secret.Matches(r.Header.Get(header)) {
				logger.Warn("Rejected unauthenticated request",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr))
				response.Message(w, logger, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
