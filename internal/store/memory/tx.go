package memory

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/deuna/payment-system/internal/models"
	"github.com/deuna/payment-system/internal/store"
)

// memTx stages mutations while the store lock is held. Reads see staged
// writes first, then the committed base state.
type memTx struct {
	s *Store

	accounts map[string]models.Account
	emails   map[string]string
	orders   map[string]models.PaymentOrder
	codes    map[string]string
	payments map[string]models.Payment
	rows     []models.Transaction
}

var _ store.Tx = (*memTx)(nil)

func newTx(s *Store) *memTx {
	return &memTx{
		s:        s,
		accounts: make(map[string]models.Account),
		emails:   make(map[string]string),
		orders:   make(map[string]models.PaymentOrder),
		codes:    make(map[string]string),
		payments: make(map[string]models.Payment),
	}
}

func (t *memTx) commit() {
	for id, a := range t.accounts {
		t.s.accounts[id] = a
	}
	for email, id := range t.emails {
		t.s.emailIndex[email] = id
	}
	for id, o := range t.orders {
		t.s.orders[id] = o
	}
	for code, id := range t.codes {
		t.s.codeIndex[code] = id
	}
	for id, p := range t.payments {
		t.s.payments[id] = p
	}
	t.s.transactions = append(t.s.transactions, t.rows...)
}

func (t *memTx) AccountByID(_ context.Context, id string) (*models.Account, error) {
	if a, ok := t.accounts[id]; ok {
		cp := a
		return &cp, nil
	}
	return t.s.accountByID(id)
}

func (t *memTx) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	key := strings.ToLower(email)
	if id, ok := t.emails[key]; ok {
		return t.AccountByID(ctx, id)
	}
	if id, ok := t.s.emailIndex[key]; ok {
		return t.AccountByID(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (t *memTx) BankAccount(_ context.Context) (*models.Account, error) {
	for _, a := range t.accounts {
		if a.Kind == models.AccountBank {
			cp := a
			return &cp, nil
		}
	}
	return t.s.bankAccount()
}

func (t *memTx) OrderByID(_ context.Context, id string) (*models.PaymentOrder, error) {
	if o, ok := t.orders[id]; ok {
		cp := o
		return &cp, nil
	}
	if o, ok := t.s.orders[id]; ok {
		cp := o
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (t *memTx) OrderByCode(ctx context.Context, code string) (*models.PaymentOrder, error) {
	if id, ok := t.codes[code]; ok {
		return t.OrderByID(ctx, id)
	}
	if id, ok := t.s.codeIndex[code]; ok {
		return t.OrderByID(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (t *memTx) PendingCodeExists(ctx context.Context, code string) (bool, error) {
	o, err := t.OrderByCode(ctx, code)
	if err != nil {
		if err == store.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return o.Status == models.OrderPending, nil
}

func (t *memTx) PaymentByID(_ context.Context, id string) (*models.Payment, error) {
	if p, ok := t.payments[id]; ok {
		cp := p
		return &cp, nil
	}
	if p, ok := t.s.payments[id]; ok {
		cp := p
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (t *memTx) TransactionsByAccount(_ context.Context, accountID string, limit int) ([]models.Transaction, error) {
	combined := make([]models.Transaction, 0, len(t.s.transactions)+len(t.rows))
	combined = append(combined, t.s.transactions...)
	combined = append(combined, t.rows...)
	return filterTransactions(combined, accountID, limit), nil
}

func (t *memTx) SumOutgoingByKindSince(_ context.Context, accountID string, kind models.TransactionKind, since time.Time) (decimal.Decimal, error) {
	total := sumOutgoing(t.s.transactions, accountID, kind, since)
	return total.Add(sumOutgoing(t.rows, accountID, kind, since)), nil
}

func (t *memTx) CreateAccount(ctx context.Context, acc *models.Account) error {
	if _, err := t.AccountByID(ctx, acc.ID); err == nil {
		return store.ErrDuplicateKey
	}
	if acc.Email != "" {
		if _, err := t.AccountByEmail(ctx, acc.Email); err == nil {
			return store.ErrDuplicateKey
		}
		t.emails[strings.ToLower(acc.Email)] = acc.ID
	}
	t.accounts[acc.ID] = *acc
	return nil
}

func (t *memTx) ApplyDelta(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	acc, err := t.AccountByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	next := acc.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, store.ErrInsufficientBalance
	}
	acc.Balance = next
	acc.UpdatedAt = time.Now()
	t.accounts[accountID] = *acc
	return next, nil
}

func (t *memTx) AppendTransaction(_ context.Context, tx *models.Transaction) error {
	t.rows = append(t.rows, *tx)
	return nil
}

func (t *memTx) CreateOrder(ctx context.Context, order *models.PaymentOrder) error {
	if _, err := t.OrderByID(ctx, order.ID); err == nil {
		return store.ErrDuplicateKey
	}
	// Same constraint as the partial unique index: a code may be held by
	// at most one pending order. Terminal holders release it; the code
	// lookup then resolves to the newest order.
	taken, err := t.PendingCodeExists(ctx, order.PaymentCode)
	if err != nil {
		return err
	}
	if taken {
		return store.ErrDuplicateKey
	}
	t.orders[order.ID] = *order
	t.codes[order.PaymentCode] = order.ID
	return nil
}

func (t *memTx) UpdateOrderStatus(ctx context.Context, orderID string, from, to models.OrderStatus, paymentID string) error {
	o, err := t.OrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != from {
		return store.ErrConflict
	}
	o.Status = to
	if paymentID != "" {
		o.PaymentID = paymentID
	}
	t.orders[orderID] = *o
	return nil
}

func (t *memTx) CreatePayment(ctx context.Context, p *models.Payment) error {
	if _, err := t.PaymentByID(ctx, p.ID); err == nil {
		return store.ErrDuplicateKey
	}
	t.payments[p.ID] = *p
	return nil
}
