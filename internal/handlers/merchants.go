package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/deuna/payment-system/internal/httputil"
	"github.com/deuna/payment-system/internal/ledger"
	"github.com/deuna/payment-system/internal/middleware"
)

type CreateMerchantRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) CreateMerchantHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateMerchantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	acc, err := h.Engine.CreateMerchant(r.Context(), ledger.CreateMerchantRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"merchantId": acc.ID,
		"name":       acc.Name,
		"email":      acc.Email,
	})
}

type CreateOrderRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// CreateOrderHandler issues a pending payment order for the
// authenticated merchant.
func (h *Handler) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := middleware.AccountID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.Engine.CreateOrder(r.Context(), ledger.CreateOrderRequest{
		MerchantID:  merchantID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"orderId":     order.ID,
		"paymentCode": order.PaymentCode,
		"amount":      order.Amount,
		"expiresAt":   order.ExpiresAt,
	})
}

func (h *Handler) OrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	order, err := h.Engine.OrderStatus(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"orderId":   order.ID,
		"status":    order.Status,
		"amount":    order.Amount,
		"paymentId": order.PaymentID,
		"createdAt": order.CreatedAt,
		"expiresAt": order.ExpiresAt,
	})
}
