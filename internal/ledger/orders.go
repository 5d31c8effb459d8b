package ledger

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/deuna/payment-system/internal/ids"
	"github.com/deuna/payment-system/internal/models"
	"github.com/deuna/payment-system/internal/store"
)

// codeSpan covers the 8-digit codes 10000000–99999999.
var codeSpan = big.NewInt(90000000)

func randomPaymentCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+10000000, 10), nil
}

type CreateOrderRequest struct {
	MerchantID   string
	MerchantName string
	Amount       decimal.Decimal
	Description  string
}

// CreateOrder issues a pending payment order with a unique short code
// and a fixed expiry offset. The code space is small, so generation
// retries against currently pending orders up to the configured cap.
// Each insert attempt runs in its own unit of work: a unique violation
// aborts the surrounding database transaction on some backends, so the
// next attempt must start clean.
func (e *Engine) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.PaymentOrder, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	merchant, err := e.store.AccountByID(ctx, req.MerchantID)
	if err != nil {
		return nil, mapStoreErr(err, ErrNotFound)
	}
	if merchant.Kind != models.AccountMerchant {
		return nil, ErrNotFound
	}

	name := req.MerchantName
	if name == "" {
		name = merchant.Name
	}
	desc := req.Description
	if desc == "" {
		desc = "Payment"
	}

	now := e.now()
	for attempt := 0; attempt < e.cfg.CodeRetryCap; attempt++ {
		code, err := randomPaymentCode()
		if err != nil {
			return nil, err
		}
		taken, err := e.store.PendingCodeExists(ctx, code)
		if err != nil {
			return nil, mapStoreErr(err, ErrTransientStoreFailure)
		}
		if taken {
			continue
		}

		candidate := &models.PaymentOrder{
			ID:           ids.New(),
			PaymentCode:  code,
			MerchantID:   merchant.ID,
			MerchantName: name,
			Amount:       req.Amount,
			Description:  desc,
			Status:       models.OrderPending,
			CreatedAt:    now,
			ExpiresAt:    now.Add(e.cfg.OrderTTL),
		}
		err = e.store.Atomic(ctx, func(tx store.Tx) error {
			return tx.CreateOrder(ctx, candidate)
		})
		if err != nil {
			// Lost the code to a concurrent creator between the check and
			// the insert.
			if errors.Is(err, store.ErrDuplicateKey) {
				continue
			}
			return nil, mapStoreErr(err, ErrTransientStoreFailure)
		}
		return candidate, nil
	}
	return nil, ErrCodeSpaceExhausted
}

// OrderStatus returns the order, lazily expiring it first when its
// deadline has passed while still pending.
func (e *Engine) OrderStatus(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	var order *models.PaymentOrder
	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		o, err := tx.OrderByID(ctx, orderID)
		if err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}
		if err := e.expireIfDue(ctx, tx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// QueryByPaymentCode resolves a code for a payer about to settle. Only a
// live pending order qualifies; anything else is rejected with the
// status-specific error.
func (e *Engine) QueryByPaymentCode(ctx context.Context, code string) (*models.PaymentOrder, error) {
	var order *models.PaymentOrder
	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		o, err := tx.OrderByCode(ctx, code)
		if err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}
		if err := e.expireIfDue(ctx, tx, o); err != nil {
			return err
		}
		if err := orderSettleable(o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// expireIfDue transitions a pending order past its deadline to expired,
// updating o in place. Any read path that touches an order goes through
// here, so expiry never needs a background sweeper.
func (e *Engine) expireIfDue(ctx context.Context, tx store.Tx, o *models.PaymentOrder) error {
	if o.Status != models.OrderPending || !e.now().After(o.ExpiresAt) {
		return nil
	}
	if err := tx.UpdateOrderStatus(ctx, o.ID, models.OrderPending, models.OrderExpired, ""); err != nil {
		return mapStoreErr(err, ErrOrderNotFound)
	}
	o.Status = models.OrderExpired
	return nil
}

// orderSettleable rejects terminal orders with the matching error.
func orderSettleable(o *models.PaymentOrder) error {
	switch o.Status {
	case models.OrderPending:
		return nil
	case models.OrderExpired:
		return ErrOrderExpired
	default:
		return ErrOrderAlreadyProcessed
	}
}
