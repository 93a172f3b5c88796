package gocardless

import (
	"strings"
	"time"
)

const (
	// APIVersion is sent with every request as GoCardless-Version
	APIVersion = "2015-07-06"

	LiveBaseURL    = "https://api.gocardless.com/"
	SandboxBaseURL = "https://api-sandbox.gocardless.com/"

	liveDashboardURL    = "https://manage.gocardless.com/"
	sandboxDashboardURL = "https://manage-sandbox.gocardless.com/"
)

// Config holds GoCardless API client configuration
type Config struct {
	AccessToken   string
	Sandbox       bool
	BaseURL       string // overrides the environment URL, used by tests
	Timeout       time.Duration
	MaxGetRetries int
}

// DefaultConfig returns the client defaults for an environment
func DefaultConfig(accessToken string, sandbox bool) Config {
	return Config{
		AccessToken:   accessToken,
		Sandbox:       sandbox,
		Timeout:       30 * time.Second,
		MaxGetRetries: 2,
	}
}

func (c Config) baseURL() string {
	if c.BaseURL != "" {
		if !strings.HasSuffix(c.BaseURL, "/") {
			return c.BaseURL + "/"
		}
		return c.BaseURL
	}
	if c.Sandbox {
		return SandboxBaseURL
	}
	return LiveBaseURL
}

// PaymentURLFormat returns the dashboard URL format for payments, with a %s for the id
func PaymentURLFormat(sandbox bool) string {
	return dashboardURL(sandbox) + "payments/%s"
}

// MandateURLFormat returns the dashboard URL format for mandates, with a %s for the id
func MandateURLFormat(sandbox bool) string {
	return dashboardURL(sandbox) + "mandates/%s"
}

func dashboardURL(sandbox bool) string {
	if sandbox {
		return sandboxDashboardURL
	}
	return liveDashboardURL
}
