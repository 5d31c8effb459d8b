package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/deuna/payment-system/internal/models"
	"github.com/deuna/payment-system/internal/store"
)

// querier holds the read queries shared between the store and its
// transactions. With locking set, account reads take FOR UPDATE so
// every policy decision made on an account (balance guard, daily-limit
// sum) happens under that account's row lock.
type querier struct {
	db      *gorm.DB
	locking bool
}

func (q querier) session(ctx context.Context) *gorm.DB {
	return q.db.WithContext(ctx)
}

func (q querier) accountSession(ctx context.Context) *gorm.DB {
	sess := q.session(ctx)
	if q.locking {
		sess = sess.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return sess
}

func (q querier) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	var acc models.Account
	if err := q.accountSession(ctx).First(&acc, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &acc, nil
}

func (q querier) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var acc models.Account
	if err := q.session(ctx).First(&acc, "lower(email) = ?", strings.ToLower(email)).Error; err != nil {
		return nil, translate(err)
	}
	return &acc, nil
}

func (q querier) BankAccount(ctx context.Context) (*models.Account, error) {
	var acc models.Account
	if err := q.accountSession(ctx).First(&acc, "kind = ?", models.AccountBank).Error; err != nil {
		return nil, translate(err)
	}
	return &acc, nil
}

func (q querier) OrderByID(ctx context.Context, id string) (*models.PaymentOrder, error) {
	var o models.PaymentOrder
	if err := q.session(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

// OrderByCode resolves a payment code to its most recent order. Terminal
// orders release their code for reuse, so a code can appear on several
// rows; the newest one is the live order.
func (q querier) OrderByCode(ctx context.Context, code string) (*models.PaymentOrder, error) {
	var o models.PaymentOrder
	err := q.session(ctx).
		Where("payment_code = ?", code).
		Order("created_at DESC").
		First(&o).Error
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (q querier) PendingCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := q.session(ctx).Model(&models.PaymentOrder{}).
		Where("payment_code = ? AND status = ?", code, models.OrderPending).
		Count(&count).Error
	if err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

func (q querier) PaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	var p models.Payment
	if err := q.session(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (q querier) TransactionsByAccount(ctx context.Context, accountID string, limit int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := q.session(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (q querier) SumOutgoingByKindSince(ctx context.Context, accountID string, kind models.TransactionKind, since time.Time) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := q.session(ctx).Model(&models.Transaction{}).
		Select("SUM(-amount)").
		Where("account_id = ? AND kind = ? AND created_at >= ? AND amount < 0", accountID, kind, since).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, translate(err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// pgTx is the mutation surface inside one database transaction.
type pgTx struct {
	querier
}

var _ store.Tx = (*pgTx)(nil)

func (t *pgTx) CreateAccount(ctx context.Context, acc *models.Account) error {
	return translate(t.session(ctx).Create(acc).Error)
}

func (t *pgTx) ApplyDelta(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	acc, err := t.AccountByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	next := acc.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, store.ErrInsufficientBalance
	}
	err = t.session(ctx).Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{"balance": next, "updated_at": time.Now()}).Error
	if err != nil {
		return decimal.Zero, translate(err)
	}
	return next, nil
}

func (t *pgTx) AppendTransaction(ctx context.Context, row *models.Transaction) error {
	return translate(t.session(ctx).Create(row).Error)
}

func (t *pgTx) CreateOrder(ctx context.Context, order *models.PaymentOrder) error {
	return translate(t.session(ctx).Create(order).Error)
}

func (t *pgTx) UpdateOrderStatus(ctx context.Context, orderID string, from, to models.OrderStatus, paymentID string) error {
	updates := map[string]any{"status": to}
	if paymentID != "" {
		updates["payment_id"] = paymentID
	}
	res := t.session(ctx).Model(&models.PaymentOrder{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := t.OrderByID(ctx, orderID); err != nil {
			return err
		}
		return store.ErrConflict
	}
	return nil
}

func (t *pgTx) CreatePayment(ctx context.Context, p *models.Payment) error {
	return translate(t.session(ctx).Create(p).Error)
}
