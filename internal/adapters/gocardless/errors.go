package gocardless

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const reasonMandateReplaced = "mandate_replaced"

// ErrorDetail is one entry of the errors array of an API error response
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
	Links   struct {
		NewMandate string `json:"new_mandate,omitempty"`
	} `json:"links"`
}

// APIError is an error response returned by the GoCardless API
type APIError struct {
	StatusCode   int
	Type         string
	Code         int
	Message      string
	RequestID    string
	Errors       []ErrorDetail
	NewMandateID string
}

type errorEnvelope struct {
	Error struct {
		Type      string        `json:"type"`
		Code      int           `json:"code"`
		Message   string        `json:"message"`
		RequestID string        `json:"request_id"`
		Errors    []ErrorDetail `json:"errors"`
	} `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gocardless api error %d: %s", e.Code, e.Message)
}

// ReplacementMandate returns the new mandate id when the error reports that
// the mandate used for the request was replaced
func (e *APIError) ReplacementMandate() (string, bool) {
	if e.Code != http.StatusUnprocessableEntity || e.NewMandateID == "" {
		return "", false
	}
	if !strings.Contains(e.Message, reasonMandateReplaced) {
		return "", false
	}
	return e.NewMandateID, true
}

// UserMessage returns the API message, including field details
func (e *APIError) UserMessage() string {
	return e.Message
}

// IsServerError reports whether the API failed on its side
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// IsMandateReplaced returns the new mandate id carried by a mandate_replaced error
func IsMandateReplaced(err error) (string, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "", false
	}
	return apiErr.ReplacementMandate()
}

// parseAPIError builds an APIError from a non-2xx response. The message is
// extended with "field - reason - message" for every detail entry.
func parseAPIError(statusCode int, body []byte, method, path string) *APIError {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error.Message == "" {
		return &APIError{
			StatusCode: statusCode,
			Code:       statusCode,
			Message:    http.StatusText(statusCode),
		}
	}

	apiErr := &APIError{
		StatusCode: statusCode,
		Type:       env.Error.Type,
		Code:       env.Error.Code,
		Message:    env.Error.Message,
		RequestID:  env.Error.RequestID,
		Errors:     env.Error.Errors,
	}
	if apiErr.Code == 0 {
		apiErr.Code = statusCode
	}

	if path == "refunds" && method == http.MethodPost &&
		apiErr.Type == "invalid_api_usage" && apiErr.Code == http.StatusForbidden &&
		apiErr.Message == "Forbidden request" {
		apiErr.Message = "GoCardless refund endpoint is disabled by default. Please contact api@gocardless.com to enable it for you."
		return apiErr
	}

	if len(env.Error.Errors) == 0 {
		return apiErr
	}

	details := make([]string, 0, len(env.Error.Errors))
	for _, detail := range env.Error.Errors {
		var item strings.Builder
		if detail.Field != "" {
			item.WriteString(detail.Field + " - ")
		}
		if detail.Reason != "" {
			item.WriteString(detail.Reason + " - ")
			if detail.Reason == reasonMandateReplaced && detail.Links.NewMandate != "" {
				apiErr.NewMandateID = detail.Links.NewMandate
			}
		}
		item.WriteString(detail.Message)
		details = append(details, item.String())
	}
	apiErr.Message += ". Error details: " + strings.Join(details, ", ")

	return apiErr
}
