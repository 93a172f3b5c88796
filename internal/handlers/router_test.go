package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kevin07696/gocardless-service/internal/auth"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/kevin07696/gocardless-service/internal/handlers/admin"
	"github.com/kevin07696/gocardless-service/internal/handlers/checkout"
	"github.com/kevin07696/gocardless-service/internal/handlers/cron"
	"github.com/kevin07696/gocardless-service/internal/handlers/webhook"
	"github.com/kevin07696/gocardless-service/internal/middleware"
	"github.com/kevin07696/gocardless-service/internal/services/billingrequest"
	checkoutsvc "github.com/kevin07696/gocardless-service/internal/services/checkout"
	"github.com/kevin07696/gocardless-service/internal/services/payment"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubReceiver struct{}

func (stubReceiver) Ingest(context.Context, []byte, string) error { return nil }

type stubFlows struct{}

func (stubFlows) CreateFlow(context.Context, checkoutsvc.FlowRequest) *domain.Result {
	return domain.Success("")
}

func (stubFlows) PayWithSavedToken(context.Context, checkoutsvc.SavedTokenRequest) *domain.Result {
	return domain.Success("")
}

func (stubFlows) SavedTokens(context.Context, string) ([]*domain.PaymentToken, error) {
	return nil, nil
}

func (stubFlows) DeleteSavedToken(context.Context, string, string) error { return nil }

type stubCompleter struct{}

func (stubCompleter) Complete(context.Context, billingrequest.CompleteRequest) *domain.Result {
	return domain.Success("/done")
}

type stubVerifier struct{}

func (stubVerifier) Verify(token, orderID string) error {
	if token != "good" {
		return domain.ErrTokenInvalid
	}
	return nil
}

type stubPayments struct{}

func (stubPayments) CancelPayment(context.Context, string) (string, error) { return "cancelled", nil }
func (stubPayments) RetryPayment(context.Context, string) (string, error)  { return "retried", nil }
func (stubPayments) Refund(context.Context, payment.RefundRequest) (*domain.Refund, error) {
	return &domain.Refund{ID: "RF1"}, nil
}
func (stubPayments) CheckPaymentStatus(context.Context, string) (string, error) { return "pending", nil }

type stubOrders struct{}

func (stubOrders) Upsert(context.Context, ports.DBTX, *domain.Order) error { return nil }
func (stubOrders) ListNotes(context.Context, ports.DBTX, string) ([]domain.OrderNote, error) {
	return nil, nil
}

type stubChecker struct{}

func (stubChecker) RunDueStatusChecks(context.Context, int32) (int, error) { return 0, nil }

type stubPurger struct{}

func (stubPurger) PurgeEvents(context.Context, ports.DBTX, time.Time) (int64, error) { return 0, nil }

func newTestRouter() http.Handler {
	logger := zap.NewNop()
	cronSecret := auth.NewSharedSecret("cron-secret")
	return NewRouter(RouterConfig{
		Webhook:        webhook.NewHandler(stubReceiver{}, logger),
		Checkout:       checkout.NewHandler(stubFlows{}, stubCompleter{}, stubVerifier{}, logger),
		Admin:          admin.NewHandler(stubPayments{}, stubOrders{}, stubOrders{}, logger),
		StatusChecks:   cron.NewStatusCheckHandler(stubChecker{}, cronSecret, 10, logger),
		EventCleanup:   cron.NewEventCleanupHandler(stubPurger{}, cronSecret, logger),
		AdminSecret:    auth.NewSharedSecret("host-secret"),
		RequestTimeout: 5 * time.Second,
		Logger:         logger,
	})
}

func TestRouter(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		headers    map[string]string
		wantStatus int
	}{
		{
			name:       "webhook is public",
			method:     http.MethodPost,
			path:       "/webhooks/gocardless",
			body:       `{"events":[]}`,
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "checkout completion needs a security token",
			method:     http.MethodPost,
			path:       "/checkout/complete",
			body:       `{"order_id":"1","billing_request_id":"BRQ1","security_token":"bad"}`,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "checkout completion with a security token",
			method:     http.MethodPost,
			path:       "/checkout/complete",
			body:       `{"order_id":"1","billing_request_id":"BRQ1","security_token":"good"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "host routes need the admin secret",
			method:     http.MethodPost,
			path:       "/host/orders/1/payment/cancel",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "host payment cancel",
			method:     http.MethodPost,
			path:       "/host/orders/1/payment/cancel",
			headers:    map[string]string{middleware.AdminSecretHeader: "host-secret"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "host order upsert",
			method:     http.MethodPut,
			path:       "/host/orders/1",
			body:       `{"currency":"GBP","total":"1.00"}`,
			headers:    map[string]string{middleware.AdminSecretHeader: "host-secret"},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "subscriptions disabled",
			method:     http.MethodPost,
			path:       "/host/renewals/1/payment",
			body:       `{"amount":"1.00"}`,
			headers:    map[string]string{middleware.AdminSecretHeader: "host-secret"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "cron needs its secret",
			method:     http.MethodPost,
			path:       "/cron/status-checks",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "cron status checks",
			method:     http.MethodPost,
			path:       "/cron/status-checks",
			headers:    map[string]string{cron.CronSecretHeader: "cron-secret"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/nope",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		})
	}
}
