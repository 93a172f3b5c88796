package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/handlers/response"
	"go.uber.org/zap"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw body
const SignatureHeader = "Webhook-Signature"

const maxBodyBytes = 1 << 20

// Receiver verifies and enqueues a delivery
type Receiver interface {
	Ingest(ctx context.Context, body []byte, signature string) error
}

// Handler accepts GoCardless webhook deliveries
type Handler struct {
	receiver Receiver
	logger   *zap.Logger
}

func NewHandler(receiver Receiver, logger *zap.Logger) *Handler {
	return &Handler{
		receiver: receiver,
		logger:   logger,
	}
}

// Receive handles POST /webhooks/gocardless. The response only acknowledges
// the enqueue; events are processed in the background.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		response.Message(w, h.logger, http.StatusBadRequest, "could not read request body")
		return
	}

	err = h.receiver.Ingest(r.Context(), body, r.Header.Get(SignatureHeader))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, domain.ErrInvalidSignature):
		response.Message(w, h.logger, response.StatusInvalidToken, "Invalid signature")
	case errors.Is(err, domain.ErrInvalidPayload):
		response.Message(w, h.logger, http.StatusBadRequest, domain.UserMessage(err))
	default:
		h.logger.Error("Failed to accept webhook", zap.Error(err))
		response.Message(w, h.logger, http.StatusInternalServerError, "could not queue webhook")
	}
}
