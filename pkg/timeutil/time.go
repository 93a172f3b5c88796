// Package timeutil keeps every timestamp the service produces in UTC.
package timeutil

import "time"

// ChargeDateLayout is the layout of GoCardless charge dates
const ChargeDateLayout = "2006-01-02"

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}

// Timestamp formats t as RFC 3339 in UTC
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseChargeDate parses a charge date as midnight UTC
func ParseChargeDate(value string) (time.Time, error) {
	return time.ParseInLocation(ChargeDateLayout, value, time.UTC)
}

