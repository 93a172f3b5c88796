// Package response writes the JSON bodies shared by every HTTP handler.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/pkg/encoding"
	"go.uber.org/zap"
)

// StatusInvalidToken is the non-standard status GoCardless expects for a
// webhook with a bad signature
const StatusInvalidToken = 498

// JSON writes v with the given status. v is encoded before any header is
// written, so an encoding failure still produces a clean 500.
func JSON(w http.ResponseWriter, logger *zap.Logger, status int, v interface{}) {
	buf := encoding.GetBuffer()
	defer encoding.PutBuffer(buf)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"internal error"}` + "\n"))
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Debug("Failed to write response", zap.Error(err))
	}
}

// Message writes {"message": msg}
func Message(w http.ResponseWriter, logger *zap.Logger, status int, msg string) {
	JSON(w, logger, status, map[string]string{"message": msg})
}

// Error maps err to a status and writes its message. Errors that are not
// domain errors are logged and reported as a generic 500.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
		Message(w, logger, status, "internal error")
		return
	}

	msg := domain.UserMessage(err)
	if msg == "" {
		msg = err.Error()
	}
	Message(w, logger, status, msg)
}

// StatusFor maps domain error codes to HTTP statuses
func StatusFor(err error) int {
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrorCodeOrderNotFound, domain.ErrorCodeResourceNotFound, domain.ErrorCodeTokenNotFound:
		return http.StatusNotFound
	case domain.ErrorCodeValidationFailed, domain.ErrorCodeValidationMissingField,
		domain.ErrorCodeWebhookInvalidPayload, domain.ErrorCodeTokenInvalid:
		return http.StatusBadRequest
	case domain.ErrorCodeWebhookInvalidSignature:
		return StatusInvalidToken
	case domain.ErrorCodeOrderMismatch, domain.ErrorCodeGatewayMismatch:
		return http.StatusForbidden
	case domain.ErrorCodePaymentInvalidState, domain.ErrorCodeVersionConflict,
		domain.ErrorCodeAmountMismatch, domain.ErrorCodeBillingRequestInvalid,
		domain.ErrorCodeBillingRequestNotFulfilled:
		return http.StatusConflict
	case domain.ErrorCodeRemoteAPI, domain.ErrorCodeUnexpectedResponse, domain.ErrorCodeMandateRetryExhausted:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
