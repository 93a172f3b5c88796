package observability

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewOpsRouter serves /metrics, /health and /ready. These live on their own
// port so they never pass through the public rate limiter.
func NewOpsRouter(healthChecker *HealthChecker) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())

	if healthChecker != nil {
		r.Get("/health", healthChecker.HealthHandler())
	}

	// A degraded scheme cache does not take the service out of rotation
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if healthChecker != nil && healthChecker.Check(r.Context()).Status == statusUnhealthy {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	return r
}

// StartMetricsServer serves NewOpsRouter on addr in the background. The
// caller owns shutdown.
func StartMetricsServer(addr string, healthChecker *HealthChecker, logger *zap.Logger) *http.Server {
	server := &http.Server{
		Addr:         addr,
		Handler:      NewOpsRouter(healthChecker),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		logger.Info("Metrics server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	return server
}
