package resilience

import (
	"context"
	"time"
)

// Timeouts bounds work that runs outside a client request.
//
// Each bound sits above the GoCardless client timeout (30s by default) so a
// single slow API call fails on its own rather than cancelling the whole unit.
type Timeouts struct {
	StatusCheckRun time.Duration // one cron batch of payment status checks
	EventCleanup   time.Duration // one purge of the webhook event log
	WebhookPayload time.Duration // all events of one queued webhook payload
}

// DefaultTimeouts returns production bounds
func DefaultTimeouts() Timeouts {
	return Timeouts{
		StatusCheckRun: 5 * time.Minute,
		EventCleanup:   time.Minute,
		WebhookPayload: 2 * time.Minute,
	}
}

// StatusCheckContext bounds a status check batch
func (t Timeouts) StatusCheckContext(parent context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(parent, t.StatusCheckRun)
}

// CleanupContext bounds an event log purge
func (t Timeouts) CleanupContext(parent context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(parent, t.EventCleanup)
}

// WebhookContext bounds the processing of one webhook payload
func (t Timeouts) WebhookContext(parent context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(parent, t.WebhookPayload)
}

// withTimeout leaves parent unbounded when d is not positive
func withTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
