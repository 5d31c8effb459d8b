package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/deuna/payment-system/configs"
	"github.com/deuna/payment-system/internal/audit"
	"github.com/deuna/payment-system/internal/httputil"
	"github.com/deuna/payment-system/internal/logger"
	"github.com/deuna/payment-system/internal/middleware"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"accountId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Kind      string `json:"kind"`
	Balance   string `json:"balance"`
}

// LoginHandler authenticates a user or merchant and issues a bearer
// token for the protected endpoints.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	acc, err := h.Engine.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	claims := jwt.MapClaims{
		"sub":  acc.ID,
		"kind": string(acc.Kind),
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(configs.AppConfig.JWT.SECRET))
	if err != nil {
		logger.Log.Error("failed to sign jwt", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:     signed,
		AccountID: acc.ID,
		Name:      acc.Name,
		Email:     acc.Email,
		Kind:      string(acc.Kind),
		Balance:   acc.Balance.String(),
	})
}

// MeHandler returns the authenticated account.
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	acc, err := h.Engine.GetAccount(r.Context(), accountID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"accountId": acc.ID,
		"name":      acc.Name,
		"email":     acc.Email,
		"kind":      acc.Kind,
		"balance":   acc.Balance,
		"createdAt": acc.CreatedAt,
	})
}

func clientOrigin(r *http.Request, actor string) audit.Origin {
	return audit.Origin{Actor: actor, RemoteAddr: r.RemoteAddr, UserAgent: r.UserAgent()}
}
