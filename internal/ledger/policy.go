package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy holds the transfer fee and daily-limit rules. All methods are
// pure; the engine feeds them committed totals from the store.
type Policy struct {
	FeeRate    decimal.Decimal // fraction of the amount, default 0.01
	MinFee     decimal.Decimal // floor, default 0.5
	DailyLimit decimal.Decimal // outgoing transfer cap per calendar day
}

func DefaultPolicy() Policy {
	return Policy{
		FeeRate:    decimal.NewFromFloat(0.01),
		MinFee:     decimal.NewFromFloat(0.5),
		DailyLimit: decimal.NewFromInt(1000),
	}
}

// Fee returns max(amount*FeeRate, MinFee), rounded to minor units.
func (p Policy) Fee(amount decimal.Decimal) decimal.Decimal {
	fee := amount.Mul(p.FeeRate).Round(2)
	if fee.LessThan(p.MinFee) {
		return p.MinFee
	}
	return fee
}

// TotalDebit is the amount the payer loses: amount plus fee.
func (p Policy) TotalDebit(amount decimal.Decimal) decimal.Decimal {
	return amount.Add(p.Fee(amount))
}

// CheckDailyLimit rejects a transfer when the already-committed outgoing
// total for the current day plus the new amount would exceed the limit.
// The fee does not count against the limit.
func (p Policy) CheckDailyLimit(spentToday, amount decimal.Decimal) error {
	if spentToday.Add(amount).GreaterThan(p.DailyLimit) {
		return &DailyLimitError{Limit: p.DailyLimit, SpentToday: spentToday, Requested: amount}
	}
	return nil
}

// StartOfDay returns local midnight for the day containing now. The
// daily limit window opens here.
func StartOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// ValidateAmount enforces the uniform monetary input rule: strictly
// positive with at most two decimal places.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}
