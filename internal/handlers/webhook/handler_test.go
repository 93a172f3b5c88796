package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockReceiver struct {
	mock.Mock
}

func (m *mockReceiver) Ingest(ctx context.Context, body []byte, signature string) error {
	return m.Called(ctx, body, signature).Error(0)
}

func TestHandler_Receive(t *testing.T) {
	body := `{"events":[{"id":"EV1"}]}`

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"accepted", nil, http.StatusNoContent, ""},
		{"bad signature", domain.ErrInvalidSignature, 498, "Invalid signature"},
		{"no events", domain.ErrInvalidPayload, http.StatusBadRequest, "missing events in payload"},
		{"queue down", errors.New("broker down"), http.StatusInternalServerError, "could not queue webhook"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receiver := new(mockReceiver)
			receiver.On("Ingest", mock.Anything, []byte(body), "abc123").Return(tt.err)
			h := NewHandler(receiver, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/webhooks/gocardless", strings.NewReader(body))
			req.Header.Set(SignatureHeader, "abc123")
			rec := httptest.NewRecorder()
			h.Receive(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			} else {
				assert.Empty(t, rec.Body.String())
			}
		})
	}
}
