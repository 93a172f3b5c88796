package checkout

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/handlers/response"
	"github.com/kevin07696/gocardless-service/internal/services/billingrequest"
	checkoutsvc "github.com/kevin07696/gocardless-service/internal/services/checkout"
	"go.uber.org/zap"
)

// FlowService starts checkouts and manages saved bank accounts
type FlowService interface {
	CreateFlow(ctx context.Context, req checkoutsvc.FlowRequest) *domain.Result
	PayWithSavedToken(ctx context.Context, req checkoutsvc.SavedTokenRequest) *domain.Result
	SavedTokens(ctx context.Context, customerID string) ([]*domain.PaymentToken, error)
	DeleteSavedToken(ctx context.Context, customerID, tokenID string) error
}

// Completer finishes a checkout after the hosted flow returns
type Completer interface {
	Complete(ctx context.Context, req billingrequest.CompleteRequest) *domain.Result
}

// TokenVerifier checks the security token handed out with the flow
type TokenVerifier interface {
	Verify(token, orderID string) error
}

// Handler serves the checkout endpoints
type Handler struct {
	flows     FlowService
	completer Completer
	tokens    TokenVerifier
	logger    *zap.Logger
}

func NewHandler(flows FlowService, completer Completer, tokens TokenVerifier, logger *zap.Logger) *Handler {
	return &Handler{
		flows:     flows,
		completer: completer,
		tokens:    tokens,
		logger:    logger,
	}
}

// CreateFlowRequest is the body of POST /checkout/flows
type CreateFlowRequest struct {
	OrderID             string `json:"order_id"`
	CustomerID          string `json:"customer_id"`
	SaveToken           bool   `json:"save_token"`
	ChangePaymentMethod bool   `json:"change_payment_method"`
}

// CompleteRequest is the body of POST /checkout/complete
type CompleteRequest struct {
	OrderID           string `json:"order_id"`
	BillingRequestID  string `json:"billing_request_id"`
	SaveCustomerToken bool   `json:"save_customer_token"`
	SecurityToken     string `json:"security_token"`
	CustomerID        string `json:"customer_id"`
}

// SavedTokenPaymentRequest is the body of POST /checkout/saved-token
type SavedTokenPaymentRequest struct {
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
	TokenID    string `json:"token_id"`
}

// TokenResponse is a saved bank account as shown to the customer
type TokenResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Scheme      string `json:"scheme"`
	IsDefault   bool   `json:"is_default"`
}

// CreateFlow handles POST /checkout/flows
func (h *Handler) CreateFlow(w http.ResponseWriter, r *http.Request) {
	var req CreateFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		response.JSON(w, h.logger, http.StatusBadRequest, domain.Failure("order_id is required"))
		return
	}

	result := h.flows.CreateFlow(r.Context(), checkoutsvc.FlowRequest{
		OrderID:             req.OrderID,
		CustomerID:          req.CustomerID,
		SaveToken:           req.SaveToken,
		ChangePaymentMethod: req.ChangePaymentMethod,
	})
	response.JSON(w, h.logger, http.StatusOK, result)
}

// Complete handles POST /checkout/complete, called when the customer
// returns from the hosted flow
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" || req.BillingRequestID == "" {
		response.JSON(w, h.logger, http.StatusBadRequest, domain.Failure("order_id and billing_request_id are required"))
		return
	}

	if err := h.tokens.Verify(req.SecurityToken, req.OrderID); err != nil {
		h.logger.Warn("Checkout completion with invalid security token",
			zap.String("order_id", req.OrderID),
			zap.Error(err))
		response.JSON(w, h.logger, http.StatusForbidden, domain.Failure("Invalid security token."))
		return
	}

	result := h.completer.Complete(r.Context(), billingrequest.CompleteRequest{
		OrderID:           req.OrderID,
		BillingRequestID:  req.BillingRequestID,
		SaveCustomerToken: req.SaveCustomerToken,
		ViewerCustomerID:  req.CustomerID,
	})
	response.JSON(w, h.logger, http.StatusOK, result)
}

// PayWithSavedToken handles POST /checkout/saved-token
func (h *Handler) PayWithSavedToken(w http.ResponseWriter, r *http.Request) {
	var req SavedTokenPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" || req.TokenID == "" {
		response.JSON(w, h.logger, http.StatusBadRequest, domain.Failure("order_id and token_id are required"))
		return
	}

	result := h.flows.PayWithSavedToken(r.Context(), checkoutsvc.SavedTokenRequest{
		OrderID:    req.OrderID,
		CustomerID: req.CustomerID,
		TokenID:    req.TokenID,
	})
	response.JSON(w, h.logger, http.StatusOK, result)
}

// ListTokens handles GET /customers/{customerID}/tokens
func (h *Handler) ListTokens(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	tokens, err := h.flows.SavedTokens(r.Context(), customerID)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}

	out := make([]TokenResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, TokenResponse{
			ID:          t.ID,
			DisplayName: t.DisplayName(),
			Scheme:      t.Scheme,
			IsDefault:   t.IsDefault,
		})
	}
	response.JSON(w, h.logger, http.StatusOK, map[string]interface{}{"tokens": out})
}

// DeleteToken handles DELETE /customers/{customerID}/tokens/{tokenID}
func (h *Handler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	err := h.flows.DeleteSavedToken(r.Context(), chi.URLParam(r, "customerID"), chi.URLParam(r, "tokenID"))
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
