package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestDomainErrors_Messages tests that every sentinel carries a readable message
func TestDomainErrors_Messages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{name: "order_not_found", err: ErrOrderNotFound, contains: "order not found"},
		{name: "order_mismatch", err: ErrOrderMismatch, contains: "does not match"},
		{name: "resource_not_found", err: ErrResourceNotFound, contains: "resource not found"},
		{name: "version_conflict", err: ErrVersionConflict, contains: "modified concurrently"},
		{name: "token_not_found", err: ErrTokenNotFound, contains: "payment token not found"},
		{name: "invalid_billing_request", err: ErrInvalidBillingRequest, contains: "invalid billing request"},
		{name: "not_fulfilled", err: ErrNotFulfilled, contains: "not fulfilling or fulfilled"},
		{name: "amount_mismatch", err: ErrAmountMismatch, contains: "does not match payment amount"},
		{name: "mandate_retry_exhausted", err: ErrMandateRetryExhausted, contains: "mandate replaced too many times"},
		{name: "invalid_signature", err: ErrInvalidSignature, contains: "invalid signature"},
		{name: "invalid_payload", err: ErrInvalidPayload, contains: "missing events"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatalf("expected error to be defined, got nil")
			}
			if !strings.Contains(strings.ToLower(tt.err.Error()), tt.contains) {
				t.Errorf("error message %q does not contain %q", tt.err.Error(), tt.contains)
			}
		})
	}
}

// TestDomainErrors_Wrapping tests that wrapped errors keep their code and cause
func TestDomainErrors_Wrapping(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	wrapped := WrapError(ErrorCodeDatabaseError, "failed to load order", cause)

	if !errors.Is(wrapped, cause) {
		t.Errorf("errors.Is failed: wrapped error does not match its cause")
	}
	if !errors.Is(wrapped, ErrDatabaseError) {
		t.Errorf("errors.Is failed: wrapped error does not match sentinel with same code")
	}
	if GetErrorCode(fmt.Errorf("outer: %w", wrapped)) != ErrorCodeDatabaseError {
		t.Errorf("GetErrorCode did not unwrap through fmt.Errorf")
	}
}

// TestDomainErrors_IsComparison tests that errors.Is distinguishes codes
func TestDomainErrors_IsComparison(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		shouldNot error
	}{
		{
			name:      "fresh_not_fulfilled_matches_sentinel",
			err:       NewDomainError(ErrorCodeBillingRequestNotFulfilled, "billing request BR123 is pending"),
			target:    ErrNotFulfilled,
			shouldNot: ErrInvalidBillingRequest,
		},
		{
			name:      "amount_mismatch_is_not_order_mismatch",
			err:       WrapError(ErrorCodeAmountMismatch, "payment PM1", nil),
			target:    ErrAmountMismatch,
			shouldNot: ErrOrderMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.target)
			}
			if errors.Is(tt.err, tt.shouldNot) {
				t.Errorf("errors.Is(%v, %v) = true, want false", tt.err, tt.shouldNot)
			}
		})
	}
}

// TestDomainErrors_Categories tests the category helpers
func TestDomainErrors_Categories(t *testing.T) {
	if !IsNotFoundError(ErrTokenNotFound) {
		t.Errorf("token not found should be a not-found error")
	}
	if !IsValidationError(NewDomainError(ErrorCodeValidationMissingField, "order id")) {
		t.Errorf("missing field should be a validation error")
	}
	if !IsRemoteError(WrapError(ErrorCodeRemoteAPI, "create payment", errors.New("boom"))) {
		t.Errorf("remote api error should be a remote error")
	}
	if IsRemoteError(errors.New("plain")) {
		t.Errorf("plain error should not be a remote error")
	}
}

// TestDomainErrors_UniqueMessages tests that no two sentinels share a message
func TestDomainErrors_UniqueMessages(t *testing.T) {
	all := []*DomainError{
		ErrOrderNotFound, ErrOrderMismatch, ErrResourceNotFound, ErrVersionConflict,
		ErrTokenNotFound, ErrTokenInvalid, ErrInvalidBillingRequest, ErrNotFulfilled,
		ErrAmountMismatch, ErrPaymentInvalidState, ErrMandateRetryExhausted, ErrGatewayMismatch,
		ErrValidationFailed, ErrValidationMissingField, ErrUnexpectedResponse,
		ErrInvalidSignature, ErrInvalidPayload, ErrDatabaseError,
	}

	seen := make(map[string]ErrorCode)
	for _, err := range all {
		if code, ok := seen[err.Message]; ok {
			t.Errorf("message %q used by both %s and %s", err.Message, code, err.Code)
		}
		seen[err.Message] = err.Code
	}
}
