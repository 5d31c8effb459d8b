package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/deuna/payment-system/internal/httputil"
	"github.com/deuna/payment-system/internal/ledger"
	"github.com/deuna/payment-system/internal/logger"
	"github.com/deuna/payment-system/internal/models"
)

// Handler carries the ledger engine behind the HTTP API.
type Handler struct {
	Engine *ledger.Engine
}

func New(engine *ledger.Engine) *Handler {
	return &Handler{Engine: engine}
}

// writeLedgerError maps engine errors to HTTP responses, attaching the
// structured context the typed errors carry so clients can explain the
// failure without re-querying.
func writeLedgerError(w http.ResponseWriter, err error) {
	var insufficient *ledger.InsufficientFundsError
	if errors.As(err, &insufficient) {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":          err.Error(),
			"currentBalance": insufficient.Balance,
			"required":       insufficient.Required,
			"missing":        insufficient.Missing(),
		})
		return
	}
	var daily *ledger.DailyLimitError
	if errors.As(err, &daily) {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":      err.Error(),
			"limit":      daily.Limit,
			"spentToday": daily.SpentToday,
			"requested":  daily.Requested,
		})
		return
	}

	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrSameAccount),
		errors.Is(err, ledger.ErrOrderExpired),
		errors.Is(err, ledger.ErrOrderAlreadyProcessed):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInvalidCredentials):
		httputil.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, ledger.ErrOrderNotFound),
		errors.Is(err, ledger.ErrPaymentNotFound):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrDuplicateIdentity):
		httputil.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrCodeSpaceExhausted),
		errors.Is(err, ledger.ErrTransientStoreFailure):
		httputil.WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Log.Error("unhandled ledger error", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// warning renders a non-fatal audit failure for response payloads.
func warning(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// transactionViews renders ledger rows with the API's camelCase keys.
func transactionViews(rows []models.Transaction) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]any{
			"transactionId": row.ID,
			"kind":          row.Kind,
			"amount":        row.Amount,
			"balanceBefore": row.BalanceBefore,
			"balanceAfter":  row.BalanceAfter,
			"relatedId":     row.RelatedID,
			"description":   row.Description,
			"createdAt":     row.CreatedAt,
		})
	}
	return out
}
