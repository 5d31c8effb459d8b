// Package store defines the persistence contract the ledger engine is
// written against. Implementations must provide per-account serialization
// of balance mutations and all-or-nothing units of work.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/deuna/payment-system/internal/models"
)

// Reader is the read-only surface, available both standalone and inside
// a unit of work (where it observes the work's own uncommitted writes).
type Reader interface {
	AccountByID(ctx context.Context, id string) (*models.Account, error)
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// BankAccount returns the single process-wide bank account.
	BankAccount(ctx context.Context) (*models.Account, error)

	OrderByID(ctx context.Context, id string) (*models.PaymentOrder, error)
	OrderByCode(ctx context.Context, code string) (*models.PaymentOrder, error)
	// PendingCodeExists reports whether any order in status pending
	// currently holds the given payment code.
	PendingCodeExists(ctx context.Context, code string) (bool, error)

	PaymentByID(ctx context.Context, id string) (*models.Payment, error)

	// TransactionsByAccount returns committed rows, most recent first.
	TransactionsByAccount(ctx context.Context, accountID string, limit int) ([]models.Transaction, error)
	// SumOutgoingByKindSince sums the absolute value of committed
	// negative-amount rows of the given kind created at or after since.
	SumOutgoingByKindSince(ctx context.Context, accountID string, kind models.TransactionKind, since time.Time) (decimal.Decimal, error)
}

// Tx is the mutation surface inside one atomic unit of work. Every write
// is staged; nothing is visible to other readers until the unit commits.
type Tx interface {
	Reader

	CreateAccount(ctx context.Context, acc *models.Account) error

	// ApplyDelta atomically adds delta to the account balance, failing
	// with ErrInsufficientBalance when the result would be negative, and
	// returns the new balance. Calls against the same account serialize.
	ApplyDelta(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error)

	// AppendTransaction stores an immutable ledger row. Rows are never
	// amended or removed.
	AppendTransaction(ctx context.Context, tx *models.Transaction) error

	CreateOrder(ctx context.Context, order *models.PaymentOrder) error

	// UpdateOrderStatus transitions an order from one status to another,
	// failing with ErrConflict when the current status is not from.
	UpdateOrderStatus(ctx context.Context, orderID string, from, to models.OrderStatus, paymentID string) error

	CreatePayment(ctx context.Context, p *models.Payment) error
}

// Store is the engine's persistence collaborator.
type Store interface {
	Reader

	// Atomic runs fn as one unit of work: either every mutation fn makes
	// commits, or none does. A cross-account mutation inside fn is never
	// observed half-applied by concurrent readers.
	Atomic(ctx context.Context, fn func(tx Tx) error) error

	// AppendAudit writes an audit event outside any financial unit of
	// work. Best effort; a failure must not affect committed state.
	AppendAudit(ctx context.Context, ev *models.AuditEvent) error
}
