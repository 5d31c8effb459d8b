package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/deuna/payment-system/internal/audit"
	"github.com/deuna/payment-system/internal/ids"
	"github.com/deuna/payment-system/internal/models"
	"github.com/deuna/payment-system/internal/store"
)

type CreateUserRequest struct {
	Name     string
	Email    string
	Password string
}

type CreateUserResult struct {
	Account     *models.Account
	BankBalance decimal.Decimal
}

// CreateUser onboards a user funded by the bank: the grant is debited
// from the bank and credited to the new account, with one transaction
// row per side. Fails without side effects when the bank cannot cover
// the grant or the email is taken.
func (e *Engine) CreateUser(ctx context.Context, req CreateUserRequest) (*CreateUserResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	grant := e.cfg.UserGrant
	res := &CreateUserResult{}
	err = e.store.Atomic(ctx, func(tx store.Tx) error {
		bank, err := tx.BankAccount(ctx)
		if err != nil {
			return mapStoreErr(err, ErrNotFound)
		}
		if bank.Balance.LessThan(grant) {
			return &InsufficientFundsError{Bank: true, Balance: bank.Balance, Required: grant}
		}

		acc := &models.Account{
			ID:           ids.New(),
			Kind:         models.AccountUser,
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: string(hash),
			Balance:      decimal.Zero,
			CreatedAt:    e.now(),
			UpdatedAt:    e.now(),
		}
		if err := tx.CreateAccount(ctx, acc); err != nil {
			return mapStoreErr(err, ErrNotFound)
		}

		bankLeg := newLeg(bank.ID, grant.Neg(), models.TxUserCreation, acc.ID,
			fmt.Sprintf("Starting balance for user %s", req.Name))
		userLeg := newLeg(acc.ID, grant, models.TxRecharge, bankLeg.txID,
			"Welcome starting balance")
		rows, err := e.applyLegs(ctx, tx, []leg{bankLeg, userLeg})
		if err != nil {
			return err
		}
		for _, row := range rows {
			if row.AccountID == bank.ID {
				res.BankBalance = row.BalanceAfter
			} else {
				acc.Balance = row.BalanceAfter
			}
		}
		res.Account = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("user created",
		zap.String("account_id", res.Account.ID),
		zap.String("bank_balance", res.BankBalance.String()))
	return res, nil
}

type CreateMerchantRequest struct {
	Name     string
	Email    string
	Password string
}

// CreateMerchant registers a merchant account with a zero balance. No
// bank leg is involved.
func (e *Engine) CreateMerchant(ctx context.Context, req CreateMerchantRequest) (*models.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	acc := &models.Account{
		ID:           ids.New(),
		Kind:         models.AccountMerchant,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Balance:      decimal.Zero,
		CreatedAt:    e.now(),
		UpdatedAt:    e.now(),
	}
	err = e.store.Atomic(ctx, func(tx store.Tx) error {
		return mapStoreErrNil(tx.CreateAccount(ctx, acc))
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// Authenticate verifies email + password and returns the account.
func (e *Engine) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	acc, err := e.store.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, mapStoreErr(err, ErrInvalidCredentials)
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

// InitializeBank creates the single bank account with its initial
// deposit if it does not exist yet, and returns it either way.
func (e *Engine) InitializeBank(ctx context.Context, name string, initialBalance decimal.Decimal) (*models.Account, error) {
	if bank, err := e.store.BankAccount(ctx); err == nil {
		return bank, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, mapStoreErr(err, ErrNotFound)
	}

	bank := &models.Account{
		ID:        ids.New(),
		Kind:      models.AccountBank,
		Name:      name,
		Balance:   decimal.Zero,
		CreatedAt: e.now(),
		UpdatedAt: e.now(),
	}
	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		if existing, err := tx.BankAccount(ctx); err == nil {
			bank = existing
			return nil
		}
		if err := tx.CreateAccount(ctx, bank); err != nil {
			return mapStoreErr(err, ErrNotFound)
		}
		deposit := newLeg(bank.ID, initialBalance, models.TxInitialDeposit, "",
			"Initial bank deposit")
		rows, err := e.applyLegs(ctx, tx, []leg{deposit})
		if err != nil {
			return err
		}
		bank.Balance = rows[0].BalanceAfter
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("bank initialized", zap.String("balance", bank.Balance.String()))
	return bank, nil
}

type RechargeRequest struct {
	AccountID string
	Amount    decimal.Decimal
}

type RechargeResult struct {
	TransactionID string
	NewBalance    decimal.Decimal
	BankBalance   decimal.Decimal
}

// Recharge moves funds from the bank into a user account.
func (e *Engine) Recharge(ctx context.Context, req RechargeRequest) (*RechargeResult, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	res := &RechargeResult{}
	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		acc, err := tx.AccountByID(ctx, req.AccountID)
		if err != nil {
			return mapStoreErr(err, ErrNotFound)
		}
		bank, err := tx.BankAccount(ctx)
		if err != nil {
			return mapStoreErr(err, ErrNotFound)
		}
		if bank.Balance.LessThan(req.Amount) {
			return &InsufficientFundsError{Bank: true, Balance: bank.Balance, Required: req.Amount}
		}

		bankLeg := newLeg(bank.ID, req.Amount.Neg(), models.TxUserRecharge, acc.ID,
			fmt.Sprintf("Recharge for user %s", acc.Name))
		userLeg := newLeg(acc.ID, req.Amount, models.TxRecharge, bankLeg.txID,
			"Recharge from bank")
		rows, err := e.applyLegs(ctx, tx, []leg{bankLeg, userLeg})
		if err != nil {
			return err
		}
		for _, row := range rows {
			if row.AccountID == bank.ID {
				res.BankBalance = row.BalanceAfter
			} else {
				res.NewBalance = row.BalanceAfter
				res.TransactionID = row.ID
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

type SelfRechargeRequest struct {
	AccountID   string
	Channel     string
	Carrier     string
	Destination string
	Amount      decimal.Decimal
	Origin      audit.Origin
}

type SelfRechargeResult struct {
	TransactionID       string
	NewBalance          decimal.Decimal
	OperatorStatus      string // "completed" or "failed"
	ResponseCode        string
	RefundTransactionID string

	// AuditWarning carries a non-fatal audit append failure.
	AuditWarning error
}

// SelfRecharge debits the wallet to pay an external operator (mobile
// top-up, external wallet). When the operator fails, the configured
// policy decides between keeping the debit with the failure recorded and
// appending a compensating refund row.
func (e *Engine) SelfRecharge(ctx context.Context, req SelfRechargeRequest) (*SelfRechargeResult, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Recharge %s", req.Channel)
	if req.Channel == ChannelMobile {
		desc = fmt.Sprintf("Recharge %s to %s", req.Channel, req.Destination)
	}

	res := &SelfRechargeResult{OperatorStatus: "completed", ResponseCode: "00"}
	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		acc, err := tx.AccountByID(ctx, req.AccountID)
		if err != nil {
			return mapStoreErr(err, ErrNotFound)
		}
		if acc.Balance.LessThan(req.Amount) {
			return &InsufficientFundsError{Balance: acc.Balance, Required: req.Amount}
		}
		debit := newLeg(acc.ID, req.Amount.Neg(), models.TxRecharge, "", desc)
		rows, err := e.applyLegs(ctx, tx, []leg{debit})
		if err != nil {
			return err
		}
		res.TransactionID = rows[0].ID
		res.NewBalance = rows[0].BalanceAfter
		return nil
	})
	if err != nil {
		return nil, err
	}

	code, opErr := e.op.Process(ctx, OperatorRequest{
		Channel:     req.Channel,
		Carrier:     req.Carrier,
		Destination: req.Destination,
		Amount:      req.Amount,
	})
	res.ResponseCode = code
	if opErr != nil {
		res.OperatorStatus = "failed"
		e.log.Warn("operator request failed",
			zap.String("account_id", req.AccountID),
			zap.String("channel", req.Channel),
			zap.Error(opErr))

		if e.cfg.RefundOnOperatorFailure {
			refundErr := e.store.Atomic(ctx, func(tx store.Tx) error {
				refund := newLeg(req.AccountID, req.Amount, models.TxRefund, res.TransactionID,
					fmt.Sprintf("Refund for failed %s", desc))
				rows, err := e.applyLegs(ctx, tx, []leg{refund})
				if err != nil {
					return err
				}
				res.RefundTransactionID = rows[0].ID
				res.NewBalance = rows[0].BalanceAfter
				return nil
			})
			if refundErr != nil {
				return nil, refundErr
			}
			if warn := e.audit.Record(ctx, models.AuditReversed, res.TransactionID, req.Origin,
				fmt.Sprintf("Refund of %s after operator failure", req.Amount)); warn != nil {
				res.AuditWarning = fmt.Errorf("%w: %v", ErrAuditWriteFailed, warn)
			}
			return res, nil
		}
	}

	if warn := e.audit.Record(ctx, models.AuditCreated, res.TransactionID, req.Origin,
		fmt.Sprintf("Recharge %s for %s", req.Channel, req.Amount)); warn != nil {
		res.AuditWarning = fmt.Errorf("%w: %v", ErrAuditWriteFailed, warn)
	}
	return res, nil
}

// mapStoreErrNil is mapStoreErr tolerating nil.
func mapStoreErrNil(err error) error {
	if err == nil {
		return nil
	}
	return mapStoreErr(err, ErrNotFound)
}
