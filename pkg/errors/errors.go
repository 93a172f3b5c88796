package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of error for handling
type ErrorCategory string

const (
	CategoryNetworkError   ErrorCategory = "network_error"
	CategorySystemError    ErrorCategory = "system_error"
	CategoryInvalidRequest ErrorCategory = "invalid_request"
	CategoryCircuitOpen    ErrorCategory = "circuit_open"
)

// GatewayError represents a failure talking to an upstream gateway that is
// not an API-level error response
type GatewayError struct {
	Code        string
	Message     string
	IsRetriable bool
	Category    ErrorCategory
	Err         error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError creates a new gateway error
func NewGatewayError(code, message string, category ErrorCategory, retriable bool, err error) *GatewayError {
	return &GatewayError{
		Code:        code,
		Message:     message,
		Category:    category,
		IsRetriable: retriable,
		Err:         err,
	}
}

// NewNetworkError wraps a transport failure. Network errors are retriable.
func NewNetworkError(err error) *GatewayError {
	return NewGatewayError("NETWORK_ERROR", "failed to connect to gateway", CategoryNetworkError, true, err)
}

// IsRetriable reports whether err is a GatewayError marked retriable
func IsRetriable(err error) bool {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.IsRetriable
	}
	return false
}
