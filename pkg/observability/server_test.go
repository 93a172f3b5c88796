package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpsRouter(t *testing.T) {
	router := NewOpsRouter(NewHealthChecker(nil, nil))

	t.Run("ready without dependencies", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ready", rec.Body.String())
	})

	t.Run("health reports unconfigured checks", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"database":"not configured"`)
		assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		RecordWebhookDelivery("accepted")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "webhook_deliveries_total")
	})
}

func TestHealthChecker_OptionalFailureIsDegraded(t *testing.T) {
	hc := NewHealthChecker(nil, nil)
	hc.AddOptional("kafka", func(context.Context) error { return errors.New("connection refused") })

	status := hc.Check(context.Background())
	assert.Equal(t, statusDegraded, status.Status)
	assert.Equal(t, "degraded: connection refused", status.Checks["kafka"])

	rec := httptest.NewRecorder()
	NewOpsRouter(hc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
