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

// QueryPaymentCodeHandler resolves a payment code for a payer about to
// pay. Expired and already-processed orders are rejected.
func (h *Handler) QueryPaymentCodeHandler(w http.ResponseWriter, r *http.Request) {
	order, err := h.Engine.QueryByPaymentCode(r.Context(), chi.URLParam(r, "paymentCode"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"orderId":      order.ID,
		"merchantName": order.MerchantName,
		"amount":       order.Amount,
		"description":  order.Description,
		"expiresAt":    order.ExpiresAt,
	})
}

type ProcessPaymentRequest struct {
	PaymentCode string `json:"paymentCode"`
	Method      string `json:"paymentMethod"`
}

// ProcessPaymentHandler settles a pending order against the
// authenticated payer's balance.
func (h *Handler) ProcessPaymentHandler(w http.ResponseWriter, r *http.Request) {
	payerID, ok := middleware.AccountID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ProcessPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaymentCode == "" || req.Method == "" {
		httputil.WriteError(w, http.StatusBadRequest, "paymentCode and paymentMethod are required")
		return
	}

	res, err := h.Engine.SettlePayment(r.Context(), ledger.SettleRequest{
		PaymentCode: req.PaymentCode,
		PayerID:     payerID,
		Method:      req.Method,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"paymentId":   res.PaymentID,
		"orderId":     res.OrderID,
		"amount":      res.Amount,
		"newBalance":  res.NewBalance,
		"status":      "completed",
		"processedAt": res.ProcessedAt,
	})
}

func (h *Handler) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.Engine.GetPayment(r.Context(), chi.URLParam(r, "paymentID"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"paymentId":   p.ID,
		"orderId":     p.OrderID,
		"payerId":     p.PayerID,
		"payerName":   p.PayerName,
		"merchantId":  p.MerchantID,
		"amount":      p.Amount,
		"method":      p.Method,
		"status":      p.Status,
		"processedAt": p.ProcessedAt,
	})
}

type TransferRequest struct {
	ToUserID    string          `json:"toUserId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// TransferHandler moves funds from the authenticated user to a peer.
func (h *Handler) TransferHandler(w http.ResponseWriter, r *http.Request) {
	fromID, ok := middleware.AccountID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ToUserID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "toUserId is required")
		return
	}

	res, err := h.Engine.Transfer(r.Context(), ledger.TransferRequest{
		FromID:      fromID,
		ToID:        req.ToUserID,
		Amount:      req.Amount,
		Description: req.Description,
		Origin:      clientOrigin(r, fromID),
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"fromUserId":    fromID,
		"toUserId":      req.ToUserID,
		"amount":        req.Amount,
		"fee":           res.Fee,
		"totalDebited":  res.TotalDebited,
		"newBalance":    res.NewFromBalance,
		"transactionId": res.TransactionID,
		"warning":       warning(res.AuditWarning),
	})
}
