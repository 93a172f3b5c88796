package gocardless

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/kevin07696/gocardless-service/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig("test-token", true)
	cfg.BaseURL = server.URL
	client := NewClient(cfg, server.Client(), zap.NewNop())
	client.backoff = &resilience.FixedBackoff{Delay: 0}
	return client
}

func TestClient_CreatePayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, APIVersion, r.Header.Get("GoCardless-Version"))

		body, _ := io.ReadAll(r.Body)
		var req map[string]map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &req))
		payment := req["payments"]
		assert.EqualValues(t, 2500, payment["amount"])
		assert.Equal(t, "GBP", payment["currency"])
		assert.Equal(t, true, payment["retry_if_possible"])
		assert.Equal(t, map[string]interface{}{"mandate": "MD001"}, payment["links"])
		assert.Equal(t, map[string]interface{}{"order_id": "42"}, payment["metadata"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"payments":{"id":"PM001","amount":2500,"currency":"GBP","status":"pending_submission","charge_date":"2024-03-01","links":{"mandate":"MD001"}}}`))
	})

	payment, err := client.CreatePayment(context.Background(), &ports.CreatePaymentParams{
		Amount:          2500,
		Currency:        "GBP",
		Description:     "Order #42",
		MandateID:       "MD001",
		Metadata:        map[string]string{"order_id": "42"},
		RetryIfPossible: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "PM001", payment.ID)
	assert.Equal(t, domain.PaymentPendingSubmission, payment.Status)
	assert.Equal(t, "MD001", payment.Links.Mandate)
}

func TestClient_CreatePayment_MandateReplaced(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"type":"invalid_state","code":422,"message":"Mandate replaced",
			"errors":[{"reason":"mandate_replaced","message":"The mandate has been replaced","links":{"new_mandate":"MD002"}}]}}`))
	})

	_, err := client.CreatePayment(context.Background(), &ports.CreatePaymentParams{Amount: 100, Currency: "GBP", MandateID: "MD001"})
	require.Error(t, err)

	newMandate, ok := IsMandateReplaced(err)
	assert.True(t, ok)
	assert.Equal(t, "MD002", newMandate)

	viaPort, ok := ports.ReplacementMandate(err)
	assert.True(t, ok)
	assert.Equal(t, "MD002", viaPort)
	assert.Contains(t, err.Error(), "Error details: mandate_replaced - The mandate has been replaced")
}

func TestClient_CreateRefund_EndpointDisabled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"type":"invalid_api_usage","code":403,"message":"Forbidden request"}}`))
	})

	_, err := client.CreateRefund(context.Background(), &ports.CreateRefundParams{PaymentID: "PM001", Amount: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refund endpoint is disabled")
}

func TestClient_GetPayment_RetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"payments":{"id":"PM001","status":"confirmed"}}`))
	})

	payment, err := client.GetPayment(context.Background(), "PM001")

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentConfirmed, payment.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_CreatePayment_NotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.CreatePayment(context.Background(), &ports.CreatePaymentParams{Amount: 100, Currency: "GBP", MandateID: "MD001"})

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_ClientErrorsDoNotOpenBreaker(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"invalid_api_usage","code":404,"message":"Resource not found"}}`))
	})

	for i := 0; i < 10; i++ {
		_, err := client.GetMandate(context.Background(), "MD404")
		require.Error(t, err)
	}
	assert.Equal(t, StateClosed, client.breaker.State())
}

func TestClient_UnexpectedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"billing_requests":{"status":"pending"}}`))
	})

	_, err := client.CreateBillingRequest(context.Background(), &ports.CreateBillingRequestParams{
		MandateRequest: &domain.MandateRequest{Currency: "GBP"},
	})

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeUnexpectedResponse))
}

func TestClient_ListCreditors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/creditors", r.URL.Path)
		w.Write([]byte(`{"creditors":[{"id":"CR1","scheme_identifiers":[{"scheme":"faster_payments","status":"active"}]}]}`))
	})

	creditors, err := client.ListCreditors(context.Background())

	require.NoError(t, err)
	require.Len(t, creditors, 1)
	assert.Equal(t, "faster_payments", creditors[0].SchemeIdentifiers[0].Scheme)
}

func TestConfig_BaseURL(t *testing.T) {
	assert.Equal(t, LiveBaseURL, DefaultConfig("t", false).baseURL())
	assert.Equal(t, SandboxBaseURL, DefaultConfig("t", true).baseURL())
	assert.Equal(t, "https://manage-sandbox.gocardless.com/payments/%s", PaymentURLFormat(true))
	assert.Equal(t, "https://manage.gocardless.com/mandates/%s", MandateURLFormat(false))
}
