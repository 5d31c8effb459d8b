// Package memory is an in-memory Store used by tests and local
// development. Units of work stage their writes and commit under the
// store lock, so readers never observe a half-applied operation and
// concurrent balance mutations serialize.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/deuna/payment-system/internal/models"
	"github.com/deuna/payment-system/internal/store"
)

type Store struct {
	mu sync.RWMutex

	accounts     map[string]models.Account
	emailIndex   map[string]string // lower(email) -> account id
	orders       map[string]models.PaymentOrder
	codeIndex    map[string]string // payment code -> order id
	payments     map[string]models.Payment
	transactions []models.Transaction
	audits       []models.AuditEvent
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts:   make(map[string]models.Account),
		emailIndex: make(map[string]string),
		orders:     make(map[string]models.PaymentOrder),
		codeIndex:  make(map[string]string),
		payments:   make(map[string]models.Payment),
	}
}

// Atomic holds the store write lock for the duration of fn, staging all
// mutations in a transaction overlay. On error the overlay is dropped,
// so rollback is the default.
func (s *Store) Atomic(_ context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTx(s)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) AppendAudit(_ context.Context, ev *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, *ev)
	return nil
}

// AuditEvents returns a snapshot of all recorded audit events. Test helper.
func (s *Store) AuditEvents() []models.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AuditEvent, len(s.audits))
	copy(out, s.audits)
	return out
}

func (s *Store) AccountByID(_ context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountByID(id)
}

func (s *Store) AccountByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emailIndex[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.accountByID(id)
}

func (s *Store) BankAccount(_ context.Context) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bankAccount()
}

func (s *Store) OrderByID(_ context.Context, id string) (*models.PaymentOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.orders[id]; ok {
		cp := o
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) OrderByCode(_ context.Context, code string) (*models.PaymentOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codeIndex[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	o := s.orders[id]
	cp := o
	return &cp, nil
}

func (s *Store) PendingCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codeIndex[code]
	if !ok {
		return false, nil
	}
	return s.orders[id].Status == models.OrderPending, nil
}

func (s *Store) PaymentByID(_ context.Context, id string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.payments[id]; ok {
		cp := p
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) TransactionsByAccount(_ context.Context, accountID string, limit int) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterTransactions(s.transactions, accountID, limit), nil
}

func (s *Store) SumOutgoingByKindSince(_ context.Context, accountID string, kind models.TransactionKind, since time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sumOutgoing(s.transactions, accountID, kind, since), nil
}

// unexported helpers assume the caller holds at least the read lock.

func (s *Store) accountByID(id string) (*models.Account, error) {
	if a, ok := s.accounts[id]; ok {
		cp := a
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) bankAccount() (*models.Account, error) {
	for _, a := range s.accounts {
		if a.Kind == models.AccountBank {
			cp := a
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func filterTransactions(rows []models.Transaction, accountID string, limit int) []models.Transaction {
	out := make([]models.Transaction, 0, limit)
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].AccountID != accountID {
			continue
		}
		out = append(out, rows[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func sumOutgoing(rows []models.Transaction, accountID string, kind models.TransactionKind, since time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		if row.AccountID != accountID || row.Kind != kind {
			continue
		}
		if row.CreatedAt.Before(since) || !row.Amount.IsNegative() {
			continue
		}
		total = total.Add(row.Amount.Neg())
	}
	return total
}
