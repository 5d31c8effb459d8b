package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/deuna/payment-system/internal/ids"
	"github.com/deuna/payment-system/internal/models"
	"github.com/deuna/payment-system/internal/store"
)

type SettleRequest struct {
	PaymentCode string
	PayerID     string
	PayerName   string
	Method      string
}

type SettleResult struct {
	PaymentID   string
	OrderID     string
	Amount      decimal.Decimal
	NewBalance  decimal.Decimal
	ProcessedAt time.Time
}

// SettlePayment debits the payer and credits the merchant against a
// pending, unexpired order, creating the 1:1 Payment record and
// completing the order — all in one unit of work. A second settlement
// of the same code fails without touching any balance.
func (e *Engine) SettlePayment(ctx context.Context, req SettleRequest) (*SettleResult, error) {
	res := &SettleResult{}
	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		order, err := tx.OrderByCode(ctx, req.PaymentCode)
		if err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}
		if err := e.expireIfDue(ctx, tx, order); err != nil {
			return err
		}
		if err := orderSettleable(order); err != nil {
			return err
		}

		// Ascending-id reads, matching applyLegs, so concurrent
		// settlements and transfers never deadlock on row locks.
		byID := make(map[string]*models.Account, 2)
		for _, id := range orderedPair(req.PayerID, order.MerchantID) {
			acc, err := tx.AccountByID(ctx, id)
			if err != nil {
				return mapStoreErr(err, ErrNotFound)
			}
			byID[id] = acc
		}
		payer, merchant := byID[req.PayerID], byID[order.MerchantID]
		if payer.Balance.LessThan(order.Amount) {
			return &InsufficientFundsError{Balance: payer.Balance, Required: order.Amount}
		}

		payerName := req.PayerName
		if payerName == "" {
			payerName = payer.Name
		}
		payment := &models.Payment{
			ID:          ids.New(),
			OrderID:     order.ID,
			PayerID:     payer.ID,
			PayerName:   payerName,
			MerchantID:  merchant.ID,
			Amount:      order.Amount,
			Method:      req.Method,
			Status:      models.PaymentCompleted,
			ProcessedAt: e.now(),
		}

		payerLeg := newLeg(payer.ID, order.Amount.Neg(), models.TxPayment, payment.ID,
			fmt.Sprintf("Payment to %s", order.MerchantName))
		merchantLeg := newLeg(merchant.ID, order.Amount, models.TxPayment, payment.ID,
			fmt.Sprintf("Payment from %s", payerName))
		rows, err := e.applyLegs(ctx, tx, []leg{payerLeg, merchantLeg})
		if err != nil {
			return err
		}
		for _, row := range rows {
			if row.AccountID == payer.ID {
				res.NewBalance = row.BalanceAfter
			}
		}

		if err := tx.CreatePayment(ctx, payment); err != nil {
			return mapStoreErr(err, ErrTransientStoreFailure)
		}
		if err := tx.UpdateOrderStatus(ctx, order.ID, models.OrderPending, models.OrderCompleted, payment.ID); err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}

		res.PaymentID = payment.ID
		res.OrderID = order.ID
		res.Amount = order.Amount
		res.ProcessedAt = payment.ProcessedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetPayment returns a settled payment by id.
func (e *Engine) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	p, err := e.store.PaymentByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, ErrPaymentNotFound)
	}
	return p, nil
}
