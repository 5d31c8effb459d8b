package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/deuna/payment-system/internal/httputil"
	"github.com/deuna/payment-system/internal/ledger"
	"github.com/deuna/payment-system/internal/middleware"
)

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	res, err := h.Engine.CreateUser(r.Context(), ledger.CreateUserRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"userId":      res.Account.ID,
		"name":        res.Account.Name,
		"email":       res.Account.Email,
		"balance":     res.Account.Balance,
		"bankBalance": res.BankBalance,
	})
}

func (h *Handler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	acc, err := h.Engine.GetAccount(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"userId":    acc.ID,
		"name":      acc.Name,
		"email":     acc.Email,
		"balance":   acc.Balance,
		"createdAt": acc.CreatedAt,
	})
}

func (h *Handler) UserTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	rows, err := h.Engine.ListTransactions(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"transactions": transactionViews(rows)})
}

type RechargeRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// RechargeHandler funds a user account from the bank. The token subject
// must match the target account: nobody triggers bank-funded recharges
// for someone else.
func (h *Handler) RechargeHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID := chi.URLParam(r, "userID")
	if accountID != userID {
		httputil.WriteError(w, http.StatusForbidden, "cannot recharge another account")
		return
	}

	var req RechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Engine.Recharge(r.Context(), ledger.RechargeRequest{
		AccountID: userID,
		Amount:    req.Amount,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"amountAdded":   req.Amount,
		"newBalance":    res.NewBalance,
		"bankBalance":   res.BankBalance,
		"transactionId": res.TransactionID,
	})
}

type SelfRechargeRequest struct {
	Channel     string          `json:"channel"`
	Carrier     string          `json:"carrier"`
	Destination string          `json:"destination"`
	Amount      decimal.Decimal `json:"amount"`
}

// SelfRechargeHandler pays an external operator with wallet funds.
func (h *Handler) SelfRechargeHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SelfRechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.Channel {
	case ledger.ChannelMobile:
		if req.Carrier == "" || req.Destination == "" {
			httputil.WriteError(w, http.StatusBadRequest, "carrier and destination are required for mobile recharges")
			return
		}
	case ledger.ChannelWallet, ledger.ChannelInternal:
	default:
		httputil.WriteError(w, http.StatusBadRequest, "unknown recharge channel")
		return
	}

	res, err := h.Engine.SelfRecharge(r.Context(), ledger.SelfRechargeRequest{
		AccountID:   accountID,
		Channel:     req.Channel,
		Carrier:     req.Carrier,
		Destination: req.Destination,
		Amount:      req.Amount,
		Origin:      clientOrigin(r, accountID),
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"channel":             req.Channel,
		"amount":              req.Amount,
		"operatorStatus":      res.OperatorStatus,
		"responseCode":        res.ResponseCode,
		"newBalance":          res.NewBalance,
		"transactionId":       res.TransactionID,
		"refundTransactionId": res.RefundTransactionID,
		"warning":             warning(res.AuditWarning),
	})
}

// BankStatusHandler reports the bank account state.
func (h *Handler) BankStatusHandler(w http.ResponseWriter, r *http.Request) {
	bank, err := h.Engine.BankStatus(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"bankId":    bank.ID,
		"name":      bank.Name,
		"balance":   bank.Balance,
		"updatedAt": bank.UpdatedAt,
	})
}

// BankTransactionsHandler lists the bank-side ledger rows.
func (h *Handler) BankTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Engine.BankTransactions(r.Context(), 0)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	bank, err := h.Engine.BankStatus(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"currentBalance": bank.Balance,
		"transactions":   transactionViews(rows),
	})
}
