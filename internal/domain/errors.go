package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Order Errors (ORDER_*)
	ErrorCodeOrderNotFound ErrorCode = "ORDER_NOT_FOUND"
	ErrorCodeOrderMismatch ErrorCode = "ORDER_MISMATCH"

	// Resource Errors (RESOURCE_*)
	ErrorCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrorCodeVersionConflict  ErrorCode = "VERSION_CONFLICT"

	// Payment Token Errors (TOKEN_*)
	ErrorCodeTokenNotFound ErrorCode = "TOKEN_NOT_FOUND"
	ErrorCodeTokenInvalid  ErrorCode = "TOKEN_INVALID"

	// Billing Request Errors (BILLING_REQUEST_*)
	ErrorCodeBillingRequestInvalid      ErrorCode = "BILLING_REQUEST_INVALID"
	ErrorCodeBillingRequestNotFulfilled ErrorCode = "BILLING_REQUEST_NOT_FULFILLED"

	// Payment Errors (PAYMENT_*)
	ErrorCodeAmountMismatch        ErrorCode = "AMOUNT_MISMATCH"
	ErrorCodePaymentInvalidState   ErrorCode = "PAYMENT_INVALID_STATE"
	ErrorCodeMandateRetryExhausted ErrorCode = "MANDATE_RETRY_EXHAUSTED"
	ErrorCodeGatewayMismatch       ErrorCode = "GATEWAY_MISMATCH"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationMissingField ErrorCode = "VALIDATION_MISSING_FIELD"

	// Remote API Errors
	ErrorCodeRemoteAPI          ErrorCode = "REMOTE_API_ERROR"
	ErrorCodeUnexpectedResponse ErrorCode = "UNEXPECTED_RESPONSE"

	// Webhook Errors (WEBHOOK_*)
	ErrorCodeWebhookInvalidSignature ErrorCode = "WEBHOOK_INVALID_SIGNATURE"
	ErrorCodeWebhookInvalidPayload   ErrorCode = "WEBHOOK_INVALID_PAYLOAD"

	// Internal Errors (INTERNAL_*)
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code, so sentinel values work with errors.Is
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeOrderNotFound ||
		code == ErrorCodeResourceNotFound ||
		code == ErrorCodeTokenNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationMissingField
}

// IsRemoteError checks if an error originated at the GoCardless API
func IsRemoteError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeRemoteAPI ||
		code == ErrorCodeUnexpectedResponse
}

var (
	ErrOrderNotFound    = NewDomainError(ErrorCodeOrderNotFound, "order not found")
	ErrOrderMismatch    = NewDomainError(ErrorCodeOrderMismatch, "order does not match remote metadata")
	ErrResourceNotFound = NewDomainError(ErrorCodeResourceNotFound, "resource not found")
	ErrVersionConflict  = NewDomainError(ErrorCodeVersionConflict, "resource snapshot was modified concurrently")

	ErrTokenNotFound = NewDomainError(ErrorCodeTokenNotFound, "payment token not found")
	ErrTokenInvalid  = NewDomainError(ErrorCodeTokenInvalid, "invalid payment method, please setup a new direct debit account")

	ErrInvalidBillingRequest = NewDomainError(ErrorCodeBillingRequestInvalid, "invalid billing request")
	ErrNotFulfilled          = NewDomainError(ErrorCodeBillingRequestNotFulfilled, "billing request is not fulfilling or fulfilled")

	ErrAmountMismatch        = NewDomainError(ErrorCodeAmountMismatch, "order total does not match payment amount")
	ErrPaymentInvalidState   = NewDomainError(ErrorCodePaymentInvalidState, "payment is in invalid state for this operation")
	ErrMandateRetryExhausted = NewDomainError(ErrorCodeMandateRetryExhausted, "mandate replaced too many times while creating payment")
	ErrGatewayMismatch       = NewDomainError(ErrorCodeGatewayMismatch, "order is not paid via gocardless")

	ErrValidationFailed       = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrValidationMissingField = NewDomainError(ErrorCodeValidationMissingField, "required field missing")

	ErrUnexpectedResponse = NewDomainError(ErrorCodeUnexpectedResponse, "unexpected response from gocardless")

	ErrInvalidSignature = NewDomainError(ErrorCodeWebhookInvalidSignature, "invalid signature")
	ErrInvalidPayload   = NewDomainError(ErrorCodeWebhookInvalidPayload, "missing events in payload")

	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)
