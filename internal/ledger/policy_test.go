package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPolicyFee(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()

	tests := []struct {
		name   string
		amount string
		fee    string
		total  string
	}{
		{"percentage above floor", "100", "1", "101"},
		{"floor applies", "10", "0.5", "10.5"},
		{"exactly at floor", "50", "0.5", "50.5"},
		{"rounded to minor units", "333.33", "3.33", "336.66"},
		{"small amount", "1", "0.5", "1.5"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			amount := dec(tt.amount)
			assert.True(t, p.Fee(amount).Equal(dec(tt.fee)),
				"fee for %s: got %s want %s", tt.amount, p.Fee(amount), tt.fee)
			assert.True(t, p.TotalDebit(amount).Equal(dec(tt.total)),
				"total for %s: got %s want %s", tt.amount, p.TotalDebit(amount), tt.total)
		})
	}
}

func TestPolicyDailyLimit(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()

	require.NoError(t, p.CheckDailyLimit(dec("950"), dec("50")))
	require.NoError(t, p.CheckDailyLimit(dec("0"), dec("1000")))

	err := p.CheckDailyLimit(dec("950"), dec("60"))
	require.ErrorIs(t, err, ErrDailyLimitExceeded)

	var limitErr *DailyLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.True(t, limitErr.SpentToday.Equal(dec("950")))
	assert.True(t, limitErr.Limit.Equal(dec("1000")))
}

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateAmount(dec("0.01")))
	assert.NoError(t, ValidateAmount(dec("100")))
	assert.NoError(t, ValidateAmount(dec("10.50")))

	assert.ErrorIs(t, ValidateAmount(dec("0")), ErrInvalidAmount)
	assert.ErrorIs(t, ValidateAmount(dec("-5")), ErrInvalidAmount)
	assert.ErrorIs(t, ValidateAmount(dec("1.005")), ErrInvalidAmount)
}

func TestStartOfDay(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 14, 17, 45, 3, 12, time.Local)
	start := StartOfDay(now)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.Local), start)
}
