package cron

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kevin07696/gocardless-service/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) RunDueStatusChecks(ctx context.Context, limit int32) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

func TestStatusCheckHandler_RunStatusChecks(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		body       string
		setup      func(*mockChecker)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing secret",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong secret",
			secret:     "nope",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "default batch size",
			secret: "cron-secret",
			setup: func(m *mockChecker) {
				m.On("RunDueStatusChecks", mock.Anything, int32(50)).Return(3, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"processed":3`,
		},
		{
			name:   "batch size from body",
			secret: "cron-secret",
			body:   `{"batch_size":10}`,
			setup: func(m *mockChecker) {
				m.On("RunDueStatusChecks", mock.Anything, int32(10)).Return(0, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "batch size out of range",
			secret:     "cron-secret",
			body:       `{"batch_size":5000}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "store failure",
			secret: "cron-secret",
			setup: func(m *mockChecker) {
				m.On("RunDueStatusChecks", mock.Anything, int32(50)).Return(1, errors.New("db down"))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "status check run failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := new(mockChecker)
			if tt.setup != nil {
				tt.setup(checker)
			}
			h := NewStatusCheckHandler(checker, auth.NewSharedSecret("cron-secret"), 50, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/cron/status-checks", strings.NewReader(tt.body))
			if tt.secret != "" {
				req.Header.Set(CronSecretHeader, tt.secret)
			}
			rec := httptest.NewRecorder()
			h.RunStatusChecks(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			if tt.setup == nil {
				checker.AssertNotCalled(t, "RunDueStatusChecks", mock.Anything, mock.Anything)
			}
			checker.AssertExpectations(t)
		})
	}
}
