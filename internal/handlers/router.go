// Package handlers assembles the HTTP routes of the service.
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kevin07696/gocardless-service/internal/auth"
	"github.com/kevin07696/gocardless-service/internal/handlers/admin"
	"github.com/kevin07696/gocardless-service/internal/handlers/checkout"
	"github.com/kevin07696/gocardless-service/internal/handlers/cron"
	"github.com/kevin07696/gocardless-service/internal/handlers/webhook"
	"github.com/kevin07696/gocardless-service/internal/middleware"
	pkgmw "github.com/kevin07696/gocardless-service/pkg/middleware"
	"github.com/kevin07696/gocardless-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// RouterConfig carries the handlers and route guards
type RouterConfig struct {
	Webhook      *webhook.Handler
	Checkout     *checkout.Handler
	Admin        *admin.Handler
	StatusChecks *cron.StatusCheckHandler
	EventCleanup *cron.EventCleanupHandler

	AdminSecret    auth.SharedSecret
	RateLimiter    *pkgmw.RateLimiter
	RequestTimeout time.Duration
	Development    bool
	Logger         *zap.Logger
}

// NewRouter builds the HTTP handler.
//
// Public routes (webhooks, checkout completion) are rate limited and carry
// their own proof: a signature or a security token. Host routes require
// X-Admin-Secret. Cron handlers check X-Cron-Secret themselves.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(observability.HTTPMetrics)
	r.Use(middleware.NewSecurityHeaders(cfg.Development).Middleware)
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	limit := func(string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.RateLimiter != nil {
		limit = cfg.RateLimiter.Limit
	}
	r.With(limit("webhook")).Post("/webhooks/gocardless", cfg.Webhook.Receive)
	r.With(limit("checkout")).Post("/checkout/complete", cfg.Checkout.Complete)

	r.Route("/host", func(r chi.Router) {
		r.Use(middleware.RequireSecret(middleware.AdminSecretHeader, cfg.AdminSecret, cfg.Logger))
		r.Use(chimw.Compress(5, "application/json"))

		r.Post("/checkout/flows", cfg.Checkout.CreateFlow)
		r.Post("/checkout/saved-token", cfg.Checkout.PayWithSavedToken)
		r.Get("/customers/{customerID}/tokens", cfg.Checkout.ListTokens)
		r.Delete("/customers/{customerID}/tokens/{tokenID}", cfg.Checkout.DeleteToken)

		r.Route("/orders/{orderID}", func(r chi.Router) {
			r.Put("/", cfg.Admin.UpsertOrder)
			r.Get("/notes", cfg.Admin.Notes)
			r.Post("/payment/cancel", cfg.Admin.CancelPayment)
			r.Post("/payment/retry", cfg.Admin.RetryPayment)
			r.Post("/refunds", cfg.Admin.Refund)
			r.Post("/status-check", cfg.Admin.CheckStatus)
		})

		r.Post("/renewals/{orderID}/payment", cfg.Admin.RenewalPayment)
		r.Post("/pre-orders/{orderID}/release", cfg.Admin.ReleasePreOrder)
		r.Put("/subscriptions/{subscriptionID}/mandate", cfg.Admin.SetSubscriptionMandate)
		r.Post("/subscriptions/{subscriptionID}/payment-method", cfg.Admin.UpdatePaymentMethod)
	})

	r.Route("/cron", func(r chi.Router) {
		r.Get("/health", cfg.StatusChecks.HealthCheck)
		r.Post("/status-checks", cfg.StatusChecks.RunStatusChecks)
		r.Post("/cleanup-events", cfg.EventCleanup.CleanupEvents)
	})

	return otelhttp.NewHandler(r, "gocardless-service")
}
