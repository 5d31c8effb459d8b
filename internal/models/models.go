package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountKind string

const (
	AccountBank     AccountKind = "bank"
	AccountUser     AccountKind = "user"
	AccountMerchant AccountKind = "merchant"
)

type TransactionKind string

const (
	TxRecharge       TransactionKind = "recharge"
	TxPayment        TransactionKind = "payment"
	TxRefund         TransactionKind = "refund"
	TxTransfer       TransactionKind = "transfer"
	TxFee            TransactionKind = "fee"
	TxUserCreation   TransactionKind = "user_creation"
	TxUserRecharge   TransactionKind = "user_recharge"
	TxInitialDeposit TransactionKind = "initial_deposit"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderExpired   OrderStatus = "expired"
	OrderCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type AuditAction string

const (
	AuditCreated   AuditAction = "CREATED"
	AuditValidated AuditAction = "VALIDATED"
	AuditConfirmed AuditAction = "CONFIRMED"
	AuditReversed  AuditAction = "REVERSED"
)

// Account holds the current balance of the bank, a user or a merchant.
// Balance is only ever written through the store's ApplyDelta.
type Account struct {
	ID           string          `gorm:"primaryKey;size:32"`
	Kind         AccountKind     `gorm:"size:16;index;not null"`
	Name         string          `gorm:"size:100;not null"`
	Email        string          `gorm:"size:255;uniqueIndex"`
	PasswordHash string          `gorm:"size:255"`
	Balance      decimal.Decimal `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Transaction is an immutable record of one account-side balance change.
// Invariant: BalanceAfter = BalanceBefore + Amount, and consecutive rows
// for the same account chain without gaps.
type Transaction struct {
	ID            string          `gorm:"primaryKey;size:32"`
	AccountID     string          `gorm:"size:32;index;not null"`
	Kind          TransactionKind `gorm:"size:20;index;not null"`
	Amount        decimal.Decimal `gorm:"not null"`
	BalanceBefore decimal.Decimal `gorm:"not null"`
	BalanceAfter  decimal.Decimal `gorm:"not null"`
	RelatedID     string          `gorm:"size:64"`
	Description   string          `gorm:"size:255"`
	CreatedAt     time.Time       `gorm:"index"`
}

// PaymentOrder is a merchant-issued, time-bounded request for a specific
// amount, looked up by its short payment code. The code is unique among
// pending orders only; terminal orders release it for reuse.
type PaymentOrder struct {
	ID           string          `gorm:"primaryKey;size:32"`
	PaymentCode  string          `gorm:"size:8;index;not null;uniqueIndex:uniq_pending_payment_code,where:status = 'pending'"`
	MerchantID   string          `gorm:"size:32;index;not null"`
	MerchantName string          `gorm:"size:100;not null"`
	Amount       decimal.Decimal `gorm:"not null"`
	Description  string          `gorm:"size:255"`
	Status       OrderStatus     `gorm:"size:12;index;not null"`
	PaymentID    string          `gorm:"size:32"`
	CreatedAt    time.Time
	ExpiresAt    time.Time `gorm:"not null"`
}

type Payment struct {
	ID          string          `gorm:"primaryKey;size:32"`
	OrderID     string          `gorm:"size:32;index;not null"`
	PayerID     string          `gorm:"size:32;index;not null"`
	PayerName   string          `gorm:"size:100"`
	MerchantID  string          `gorm:"size:32;index;not null"`
	Amount      decimal.Decimal `gorm:"not null"`
	Method      string          `gorm:"size:30;not null"`
	Status      PaymentStatus   `gorm:"size:12;not null"`
	ProcessedAt time.Time
}

// AuditEvent is append-only and never read by the ledger itself.
type AuditEvent struct {
	ID            string      `gorm:"primaryKey;size:32"`
	TransactionID string      `gorm:"size:32;index;not null"`
	Actor         string      `gorm:"size:64"`
	Action        AuditAction `gorm:"size:12;not null"`
	RemoteAddr    string      `gorm:"size:64"`
	UserAgent     string      `gorm:"size:255"`
	Detail        string      `gorm:"size:255"`
	CreatedAt     time.Time
}
