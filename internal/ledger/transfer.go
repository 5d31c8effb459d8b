package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/deuna/payment-system/internal/audit"
	"github.com/deuna/payment-system/internal/models"
	"github.com/deuna/payment-system/internal/store"
)

type TransferRequest struct {
	FromID      string
	ToID        string
	Amount      decimal.Decimal
	Description string
	Origin      audit.Origin
}

type TransferResult struct {
	TransactionID  string
	Fee            decimal.Decimal
	TotalDebited   decimal.Decimal
	NewFromBalance decimal.Decimal
	NewToBalance   decimal.Decimal

	// AuditWarning carries a non-fatal audit append failure.
	AuditWarning error
}

// Transfer moves funds between two user accounts under the fee and
// daily-limit policy. The payer loses amount+fee; the payee receives
// the amount. The fee leg is recorded under its own kind so the daily
// limit sums pure transfer amounts, and it is either burned or credited
// to the bank depending on configuration.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.FromID == req.ToID {
		return nil, ErrSameAccount
	}

	fee := e.policy.Fee(req.Amount)
	total := req.Amount.Add(fee)

	res := &TransferResult{Fee: fee, TotalDebited: total}
	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		// Both rows are read in ascending-id order, matching applyLegs, so
		// crossing transfers cannot deadlock on row locks. Holding the
		// payer's lock here serializes the daily-limit check: a concurrent
		// transfer from the same payer waits on this row and then sees
		// this one's committed rows in its own sum.
		byID := make(map[string]*models.Account, 2)
		for _, id := range orderedPair(req.FromID, req.ToID) {
			acc, err := tx.AccountByID(ctx, id)
			if err != nil {
				return mapStoreErr(err, ErrNotFound)
			}
			byID[id] = acc
		}
		from, to := byID[req.FromID], byID[req.ToID]
		if from.Balance.LessThan(total) {
			return &InsufficientFundsError{Balance: from.Balance, Required: total}
		}

		spentToday, err := tx.SumOutgoingByKindSince(ctx, from.ID, models.TxTransfer, StartOfDay(e.now()))
		if err != nil {
			return mapStoreErr(err, ErrTransientStoreFailure)
		}
		if err := e.policy.CheckDailyLimit(spentToday, req.Amount); err != nil {
			return err
		}

		outDesc := req.Description
		if outDesc == "" {
			outDesc = fmt.Sprintf("Transfer to %s", to.Name)
		}
		inDesc := req.Description
		if inDesc == "" {
			inDesc = fmt.Sprintf("Transfer received from %s", from.Name)
		}

		outLeg := newLeg(from.ID, req.Amount.Neg(), models.TxTransfer, to.ID, outDesc)
		feeLeg := newLeg(from.ID, fee.Neg(), models.TxFee, outLeg.txID,
			fmt.Sprintf("Transfer fee (%s)", fee))
		inLeg := newLeg(to.ID, req.Amount, models.TxTransfer, from.ID, inDesc)

		legs := []leg{outLeg, feeLeg, inLeg}
		if e.cfg.FeeToBank {
			bank, err := tx.BankAccount(ctx)
			if err != nil {
				return mapStoreErr(err, ErrNotFound)
			}
			legs = append(legs, newLeg(bank.ID, fee, models.TxFee, outLeg.txID,
				fmt.Sprintf("Transfer fee from %s", from.Name)))
		}

		rows, err := e.applyLegs(ctx, tx, legs)
		if err != nil {
			return err
		}
		for _, row := range rows {
			switch {
			case row.AccountID == from.ID:
				res.NewFromBalance = row.BalanceAfter
			case row.AccountID == to.ID:
				res.NewToBalance = row.BalanceAfter
			}
		}
		res.TransactionID = outLeg.txID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if warn := e.audit.Record(ctx, models.AuditCreated, res.TransactionID, req.Origin,
		fmt.Sprintf("Transfer of %s from %s to %s", req.Amount, req.FromID, req.ToID)); warn != nil {
		res.AuditWarning = fmt.Errorf("%w: %v", ErrAuditWriteFailed, warn)
	}
	return res, nil
}
