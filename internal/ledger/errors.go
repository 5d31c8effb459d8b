package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for every failure mode of the ledger. Handlers map
// these to HTTP status codes; callers match with errors.Is.
var (
	ErrInvalidAmount         = errors.New("ledger: invalid amount")
	ErrNotFound              = errors.New("ledger: account not found")
	ErrOrderNotFound         = errors.New("ledger: payment order not found")
	ErrPaymentNotFound       = errors.New("ledger: payment not found")
	ErrDuplicateIdentity     = errors.New("ledger: email already registered")
	ErrInsufficientFunds     = errors.New("ledger: insufficient funds")
	ErrInsufficientBankFunds = errors.New("ledger: insufficient bank funds")
	ErrOrderExpired          = errors.New("ledger: payment order expired")
	ErrOrderAlreadyProcessed = errors.New("ledger: payment order already processed")
	ErrSameAccount           = errors.New("ledger: cannot transfer to the same account")
	ErrDailyLimitExceeded    = errors.New("ledger: daily transfer limit exceeded")
	ErrCodeSpaceExhausted    = errors.New("ledger: could not allocate a unique payment code")
	ErrTransientStoreFailure = errors.New("ledger: transient store failure")
	ErrAuditWriteFailed      = errors.New("ledger: audit write failed")
	ErrInvalidCredentials    = errors.New("ledger: invalid credentials")
)

// InsufficientFundsError carries the balances the caller needs to
// explain the failure without re-querying.
type InsufficientFundsError struct {
	Bank     bool
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	who := "account"
	if e.Bank {
		who = "bank"
	}
	return fmt.Sprintf("ledger: %s balance %s below required %s", who, e.Balance, e.Required)
}

func (e *InsufficientFundsError) Unwrap() error {
	if e.Bank {
		return ErrInsufficientBankFunds
	}
	return ErrInsufficientFunds
}

// Missing returns how much is lacking.
func (e *InsufficientFundsError) Missing() decimal.Decimal {
	return e.Required.Sub(e.Balance)
}

// DailyLimitError reports a rejected transfer against the rolling
// calendar-day limit.
type DailyLimitError struct {
	Limit      decimal.Decimal
	SpentToday decimal.Decimal
	Requested  decimal.Decimal
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf("ledger: transfer of %s exceeds daily limit %s (already sent %s today)",
		e.Requested, e.Limit, e.SpentToday)
}

func (e *DailyLimitError) Unwrap() error { return ErrDailyLimitExceeded }

// IsRetryable reports whether the caller may safely retry the whole
// operation. Only transient store failures qualify; everything else is
// terminal for the request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientStoreFailure)
}
