// Package admin serves the routes the host platform calls on behalf of store
// administrators: order sync, payment actions and subscription upkeep.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/kevin07696/gocardless-service/internal/handlers/response"
	"github.com/kevin07696/gocardless-service/internal/services/payment"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Payments are the administrator payment actions
type Payments interface {
	CancelPayment(ctx context.Context, orderID string) (string, error)
	RetryPayment(ctx context.Context, orderID string) (string, error)
	Refund(ctx context.Context, req payment.RefundRequest) (*domain.Refund, error)
	CheckPaymentStatus(ctx context.Context, orderID string) (string, error)
}

// Orders mirrors host orders and reads their notes
type Orders interface {
	Upsert(ctx context.Context, tx ports.DBTX, order *domain.Order) error
}

// Notes lists the audit notes of an order
type Notes interface {
	ListNotes(ctx context.Context, db ports.DBTX, orderID string) ([]domain.OrderNote, error)
}

// Subscriptions is the subscription upkeep the host schedules
type Subscriptions interface {
	ProcessRenewal(ctx context.Context, orderID string, amount decimal.Decimal) error
	SetMandate(ctx context.Context, subscriptionID, mandateID string) error
	UpdateFailingPaymentMethod(ctx context.Context, subscriptionID, renewalOrderID string) error
}

// PreOrders charges released pre-orders
type PreOrders interface {
	Release(ctx context.Context, orderID string) error
}

// Handler serves the host admin routes
type Handler struct {
	payments      Payments
	orders        Orders
	notes         Notes
	subscriptions Subscriptions
	preOrders     PreOrders
	logger        *zap.Logger
}

// NewHandler creates the admin handler. Subscription and pre-order routes
// answer 404 unless WithSubscriptions and WithPreOrders are set.
func NewHandler(payments Payments, orders Orders, notes Notes, logger *zap.Logger) *Handler {
	return &Handler{
		payments: payments,
		orders:   orders,
		notes:    notes,
		logger:   logger,
	}
}

func (h *Handler) WithSubscriptions(s Subscriptions) *Handler {
	h.subscriptions = s
	return h
}

func (h *Handler) WithPreOrders(p PreOrders) *Handler {
	h.preOrders = p
	return h
}

// OrderRequest is the host copy of an order
type OrderRequest struct {
	Number               string                `json:"number"`
	CustomerID           string                `json:"customer_id"`
	Kind                 string                `json:"kind"`
	ParentID             string                `json:"parent_id"`
	Status               string                `json:"status"`
	PaymentMethod        string                `json:"payment_method"`
	Currency             string                `json:"currency"`
	Total                decimal.Decimal       `json:"total"`
	Items                []domain.OrderItem    `json:"items"`
	Billing              domain.BillingDetails `json:"billing"`
	ContainsSubscription bool                  `json:"contains_subscription"`
	PreOrder             string                `json:"pre_order"`
	LegacySubscriptionID string                `json:"legacy_subscription_id"`
}

// RefundBody is the body of POST /host/orders/{orderID}/refunds
type RefundBody struct {
	Amount        decimal.Decimal `json:"amount"`
	TotalRefunded decimal.Decimal `json:"total_refunded"`
	Reason        string          `json:"reason"`
}

// UpsertOrder handles PUT /host/orders/{orderID}
func (h *Handler) UpsertOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Message(w, h.logger, http.StatusBadRequest, "invalid order body")
		return
	}
	if req.Currency == "" || req.Total.IsNegative() {
		response.Message(w, h.logger, http.StatusBadRequest, "currency and a non-negative total are required")
		return
	}

	order := &domain.Order{
		ID:                   chi.URLParam(r, "orderID"),
		Number:               req.Number,
		CustomerID:           req.CustomerID,
		Kind:                 domain.OrderKind(req.Kind),
		ParentID:             req.ParentID,
		Status:               domain.OrderStatus(req.Status),
		PaymentMethod:        req.PaymentMethod,
		Currency:             strings.ToUpper(req.Currency),
		Total:                req.Total,
		Items:                req.Items,
		Billing:              req.Billing,
		ContainsSubscription: req.ContainsSubscription,
		PreOrder:             domain.PreOrderMode(req.PreOrder),
		LegacySubscriptionID: req.LegacySubscriptionID,
	}
	if order.Number == "" {
		order.Number = order.ID
	}

	if err := h.orders.Upsert(r.Context(), nil, order); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Notes handles GET /host/orders/{orderID}/notes
func (h *Handler) Notes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.ListNotes(r.Context(), nil, chi.URLParam(r, "orderID"))
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}

	out := make([]map[string]interface{}, 0, len(notes))
	for _, n := range notes {
		out = append(out, map[string]interface{}{
			"note":       n.Note,
			"created_at": n.CreatedAt,
		})
	}
	response.JSON(w, h.logger, http.StatusOK, map[string]interface{}{"notes": out})
}

// CancelPayment handles POST /host/orders/{orderID}/payment/cancel
func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	h.notice(w, r, h.payments.CancelPayment)
}

// RetryPayment handles POST /host/orders/{orderID}/payment/retry
func (h *Handler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	h.notice(w, r, h.payments.RetryPayment)
}

// CheckStatus handles POST /host/orders/{orderID}/status-check
func (h *Handler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	outcome, err := h.payments.CheckPaymentStatus(r.Context(), orderID)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusOK, map[string]string{"order_id": orderID, "outcome": outcome})
}

// notice runs an action whose result the dashboard shows as a notice
func (h *Handler) notice(w http.ResponseWriter, r *http.Request, action func(context.Context, string) (string, error)) {
	orderID := chi.URLParam(r, "orderID")
	msg, err := action(r.Context(), orderID)
	if err != nil {
		h.logger.Warn("Admin payment action failed",
			zap.String("order_id", orderID),
			zap.Error(err))
		response.Error(w, h.logger, err)
		return
	}
	response.Message(w, h.logger, http.StatusOK, msg)
}

// Refund handles POST /host/orders/{orderID}/refunds
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	var body RefundBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Message(w, h.logger, http.StatusBadRequest, "invalid refund body")
		return
	}

	refund, err := h.payments.Refund(r.Context(), payment.RefundRequest{
		OrderID:       chi.URLParam(r, "orderID"),
		Amount:        body.Amount,
		TotalRefunded: body.TotalRefunded,
		Reason:        body.Reason,
	})
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusCreated, refund)
}

// RenewalPayment handles POST /host/renewals/{orderID}/payment
func (h *Handler) RenewalPayment(w http.ResponseWriter, r *http.Request) {
	if h.subscriptions == nil {
		response.Message(w, h.logger, http.StatusNotFound, "subscriptions are not enabled")
		return
	}

	var body struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.Amount.IsPositive() {
		response.Message(w, h.logger, http.StatusBadRequest, "a positive amount is required")
		return
	}

	if err := h.subscriptions.ProcessRenewal(r.Context(), chi.URLParam(r, "orderID"), body.Amount); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// SetSubscriptionMandate handles PUT /host/subscriptions/{subscriptionID}/mandate
func (h *Handler) SetSubscriptionMandate(w http.ResponseWriter, r *http.Request) {
	if h.subscriptions == nil {
		response.Message(w, h.logger, http.StatusNotFound, "subscriptions are not enabled")
		return
	}

	var body struct {
		MandateID string `json:"mandate_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Message(w, h.logger, http.StatusBadRequest, "invalid body")
		return
	}

	if err := h.subscriptions.SetMandate(r.Context(), chi.URLParam(r, "subscriptionID"), strings.TrimSpace(body.MandateID)); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdatePaymentMethod handles POST /host/subscriptions/{subscriptionID}/payment-method
func (h *Handler) UpdatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	if h.subscriptions == nil {
		response.Message(w, h.logger, http.StatusNotFound, "subscriptions are not enabled")
		return
	}

	var body struct {
		RenewalOrderID string `json:"renewal_order_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RenewalOrderID == "" {
		response.Message(w, h.logger, http.StatusBadRequest, "renewal_order_id is required")
		return
	}

	err := h.subscriptions.UpdateFailingPaymentMethod(r.Context(), chi.URLParam(r, "subscriptionID"), body.RenewalOrderID)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReleasePreOrder handles POST /host/pre-orders/{orderID}/release
func (h *Handler) ReleasePreOrder(w http.ResponseWriter, r *http.Request) {
	if h.preOrders == nil {
		response.Message(w, h.logger, http.StatusNotFound, "pre-orders are not enabled")
		return
	}

	if err := h.preOrders.Release(r.Context(), chi.URLParam(r, "orderID")); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
