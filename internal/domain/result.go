package domain

import "errors"

// Checkout result values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Result is returned by the browser-driven checkout flows. Failures never
// surface as errors; they carry a message for the customer instead.
type Result struct {
	Result        string `json:"result"`
	Message       string `json:"message,omitempty"`
	Redirect      string `json:"redirect,omitempty"`
	FlowID        string `json:"billing_request_flow_id,omitempty"`
	SecurityToken string `json:"security_token,omitempty"`
}

// Succeeded reports whether the flow completed
func (r *Result) Succeeded() bool {
	return r.Result == ResultSuccess
}

// Success builds a successful result
func Success(redirect string) *Result {
	return &Result{Result: ResultSuccess, Redirect: redirect}
}

// Failure builds a failed result with a customer-facing message
func Failure(message string) *Result {
	return &Result{Result: ResultFailure, Message: message}
}

// userMessager is implemented by remote errors with a message safe to show customers
type userMessager interface {
	UserMessage() string
}

// UserMessage renders err for a customer. Domain error messages are joined
// with the remote message they wrap; anything else yields "".
func UserMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		if domainErr.Err != nil {
			if inner := UserMessage(domainErr.Err); inner != "" {
				return domainErr.Message + ": " + inner
			}
		}
		return domainErr.Message
	}

	var um userMessager
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return ""
}
