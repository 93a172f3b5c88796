package cron

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kevin07696/gocardless-service/internal/auth"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockPurger struct {
	mock.Mock
}

func (m *mockPurger) PurgeEvents(ctx context.Context, db ports.DBTX, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, db, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func TestEventCleanupHandler_CleanupEvents(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		body       string
		cutoff     time.Time
		purgeErr   error
		wantStatus int
	}{
		{"default retention", "", now.AddDate(0, 0, -90), nil, http.StatusOK},
		{"custom retention", `{"retention_days":30}`, now.AddDate(0, 0, -30), nil, http.StatusOK},
		{"capped retention", `{"retention_days":99999}`, now.AddDate(0, 0, -3650), nil, http.StatusOK},
		{"retention too short", `{"retention_days":1}`, time.Time{}, nil, http.StatusBadRequest},
		{"store failure", "", now.AddDate(0, 0, -90), errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			purger := new(mockPurger)
			if !tt.cutoff.IsZero() {
				purger.On("PurgeEvents", mock.Anything, nil, tt.cutoff).Return(int64(4), tt.purgeErr)
			}
			h := NewEventCleanupHandler(purger, auth.NewSharedSecret("cron-secret"), zap.NewNop())
			h.now = func() time.Time { return now }

			req := httptest.NewRequest(http.MethodPost, "/cron/cleanup-events", strings.NewReader(tt.body))
			req.Header.Set(CronSecretHeader, "cron-secret")
			rec := httptest.NewRecorder()
			h.CleanupEvents(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"deleted_rows":4`)
			}
			purger.AssertExpectations(t)
		})
	}

	t.Run("unauthorized", func(t *testing.T) {
		purger := new(mockPurger)
		h := NewEventCleanupHandler(purger, auth.NewSharedSecret("cron-secret"), zap.NewNop())

		rec := httptest.NewRecorder()
		h.CleanupEvents(rec, httptest.NewRequest(http.MethodPost, "/cron/cleanup-events", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		purger.AssertNotCalled(t, "PurgeEvents", mock.Anything, mock.Anything, mock.Anything)
	})
}
