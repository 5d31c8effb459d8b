package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Recharge channels accepted by the self-service recharge operation.
const (
	ChannelMobile   = "celular"
	ChannelWallet   = "billetera"
	ChannelInternal = "interna"
)

// OperatorRequest describes the external top-up the user is buying with
// wallet funds.
type OperatorRequest struct {
	Channel     string
	Carrier     string
	Destination string
	Amount      decimal.Decimal
}

// Operator is the downstream provider that fulfils self-service
// recharges (mobile carrier, external wallet). A returned error means
// the provider rejected or failed the request.
type Operator interface {
	Process(ctx context.Context, req OperatorRequest) (responseCode string, err error)
}

// ErrOperatorFailed wraps any operator rejection.
var ErrOperatorFailed = errors.New("ledger: operator request failed")

// SimulatedOperator approves everything unless Fail is set. It stands in
// for carrier/wallet integrations.
type SimulatedOperator struct {
	Fail bool
}

func (o SimulatedOperator) Process(_ context.Context, _ OperatorRequest) (string, error) {
	if o.Fail {
		return "99", ErrOperatorFailed
	}
	return "00", nil
}
