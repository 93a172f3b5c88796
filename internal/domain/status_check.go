package domain

import "time"

// StatusCheck is a scheduled poll of a temporarily activated order's payment
type StatusCheck struct {
	OrderID  string
	RunAt    time.Time
	Attempts int
}

// StatusCheckDelay is how long after the charge date the payment is polled
const StatusCheckDelay = 24 * time.Hour
