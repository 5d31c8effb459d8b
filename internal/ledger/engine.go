// Package ledger implements the money-movement engine: account funding,
// recharges, payment settlement and peer transfers over an abstract
// transactional store. Every operation is an all-or-nothing unit of
// work; balances change only through the store's guarded ApplyDelta and
// every change is explained by exactly one immutable transaction row.
package ledger

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/deuna/payment-system/internal/audit"
	"github.com/deuna/payment-system/internal/ids"
	"github.com/deuna/payment-system/internal/models"
	"github.com/deuna/payment-system/internal/store"
)

// Config carries the policy knobs that are not part of the fee/limit
// Policy itself.
type Config struct {
	UserGrant    decimal.Decimal // bank-funded starting balance for new users
	OrderTTL     time.Duration   // payment order lifetime
	CodeRetryCap int             // attempts to find a free payment code

	// FeeToBank credits transfer fees to the bank account instead of
	// burning them.
	FeeToBank bool

	// RefundOnOperatorFailure compensates a self-service recharge with a
	// refund row when the external operator fails. When false the debit
	// stands and only the operator outcome is recorded.
	RefundOnOperatorFailure bool
}

func DefaultConfig() Config {
	return Config{
		UserGrant:    decimal.NewFromInt(100),
		OrderTTL:     15 * time.Minute,
		CodeRetryCap: 5,
	}
}

type Engine struct {
	store  store.Store
	policy Policy
	audit  *audit.Recorder
	op     Operator
	cfg    Config
	log    *zap.Logger

	now func() time.Time
}

func NewEngine(s store.Store, policy Policy, rec *audit.Recorder, op Operator, cfg Config, log *zap.Logger) *Engine {
	if cfg.OrderTTL <= 0 {
		cfg.OrderTTL = 15 * time.Minute
	}
	if cfg.CodeRetryCap <= 0 {
		cfg.CodeRetryCap = 5
	}
	return &Engine{
		store:  s,
		policy: policy,
		audit:  rec,
		op:     op,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// Policy exposes the fee/limit rules in effect.
func (e *Engine) Policy() Policy { return e.policy }

// GetAccount returns the account by id.
func (e *Engine) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	acc, err := e.store.AccountByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, ErrNotFound)
	}
	return acc, nil
}

// ListTransactions returns committed rows for the account, most recent
// first.
func (e *Engine) ListTransactions(ctx context.Context, accountID string, limit int) ([]models.Transaction, error) {
	if _, err := e.store.AccountByID(ctx, accountID); err != nil {
		return nil, mapStoreErr(err, ErrNotFound)
	}
	if limit <= 0 {
		limit = 50
	}
	return e.store.TransactionsByAccount(ctx, accountID, limit)
}

// BankStatus returns the single bank account.
func (e *Engine) BankStatus(ctx context.Context) (*models.Account, error) {
	bank, err := e.store.BankAccount(ctx)
	if err != nil {
		return nil, mapStoreErr(err, ErrNotFound)
	}
	return bank, nil
}

// BankTransactions lists the bank-side ledger rows, most recent first.
func (e *Engine) BankTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	bank, err := e.store.BankAccount(ctx)
	if err != nil {
		return nil, mapStoreErr(err, ErrNotFound)
	}
	if limit <= 0 {
		limit = 100
	}
	return e.store.TransactionsByAccount(ctx, bank.ID, limit)
}

// leg is one account side of a money movement.
type leg struct {
	txID      string
	accountID string
	delta     decimal.Decimal
	kind      models.TransactionKind
	related   string
	desc      string
}

// newLeg pre-assigns the transaction id so legs can reference each other
// before any of them is applied.
func newLeg(accountID string, delta decimal.Decimal, kind models.TransactionKind, related, desc string) leg {
	return leg{txID: ids.New(), accountID: accountID, delta: delta, kind: kind, related: related, desc: desc}
}

// applyLegs mutates the balances and appends the matching transaction
// rows inside the unit of work. Accounts are touched in ascending-id
// order so two concurrent multi-account operations can never deadlock
// on row locks; legs against the same account keep their given order.
func (e *Engine) applyLegs(ctx context.Context, tx store.Tx, legs []leg) ([]models.Transaction, error) {
	ordered := make([]leg, len(legs))
	copy(ordered, legs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].accountID < ordered[j].accountID })

	rows := make([]models.Transaction, 0, len(ordered))
	at := e.now()
	for _, l := range ordered {
		after, err := tx.ApplyDelta(ctx, l.accountID, l.delta)
		if err != nil {
			return nil, e.deltaErr(ctx, tx, l, err)
		}
		row := models.Transaction{
			ID:            l.txID,
			AccountID:     l.accountID,
			Kind:          l.kind,
			Amount:        l.delta,
			BalanceBefore: after.Sub(l.delta),
			BalanceAfter:  after,
			RelatedID:     l.related,
			Description:   l.desc,
			CreatedAt:     at,
		}
		if err := tx.AppendTransaction(ctx, &row); err != nil {
			return nil, mapStoreErr(err, ErrTransientStoreFailure)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// orderedPair returns the two account ids in ascending order, the order
// in which rows must be read inside a unit of work.
func orderedPair(a, b string) [2]string {
	if b < a {
		return [2]string{b, a}
	}
	return [2]string{a, b}
}

func (e *Engine) deltaErr(ctx context.Context, tx store.Tx, l leg, err error) error {
	if errors.Is(err, store.ErrInsufficientBalance) {
		acc, lookupErr := tx.AccountByID(ctx, l.accountID)
		if lookupErr != nil {
			return mapStoreErr(lookupErr, ErrNotFound)
		}
		return &InsufficientFundsError{
			Bank:     acc.Kind == models.AccountBank,
			Balance:  acc.Balance,
			Required: l.delta.Neg(),
		}
	}
	return mapStoreErr(err, ErrTransientStoreFailure)
}

// mapStoreErr translates store sentinels into ledger errors, using
// fallback for store.ErrNotFound and unknown failures respectively.
func mapStoreErr(err error, notFound error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFound
	case errors.Is(err, store.ErrDuplicateKey):
		return ErrDuplicateIdentity
	case errors.Is(err, store.ErrTransient), errors.Is(err, store.ErrConflict):
		return ErrTransientStoreFailure
	default:
		return err
	}
}
