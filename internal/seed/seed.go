package seed

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/deuna/payment-system/internal/ledger"
	"github.com/deuna/payment-system/internal/logger"
)

const (
	bankName      = "Banco Central Deuna"
	demoUserEmail = "cliente@demo.com"
	demoShopEmail = "comercio@demo.com"
	demoPassword  = "password123"
)

// Run initializes the bank and creates a demo user and merchant when
// they do not exist yet. Safe to run on every startup.
func Run(engine *ledger.Engine, bankInitialBalance decimal.Decimal) {
	ctx := context.Background()

	bank, err := engine.InitializeBank(ctx, bankName, bankInitialBalance)
	if err != nil {
		logger.Log.Fatal("bank initialization failed", zap.Error(err))
	}

	if _, err := engine.CreateUser(ctx, ledger.CreateUserRequest{
		Name:     "Cliente Demo",
		Email:    demoUserEmail,
		Password: demoPassword,
	}); err != nil && !errors.Is(err, ledger.ErrDuplicateIdentity) {
		logger.Log.Fatal("seed user failed", zap.Error(err))
	}

	if _, err := engine.CreateMerchant(ctx, ledger.CreateMerchantRequest{
		Name:     "Mi Tienda Demo",
		Email:    demoShopEmail,
		Password: demoPassword,
	}); err != nil && !errors.Is(err, ledger.ErrDuplicateIdentity) {
		logger.Log.Fatal("seed merchant failed", zap.Error(err))
	}

	logger.Log.Info("seed applied",
		zap.String("bank_balance", bank.Balance.String()),
		zap.String("demo_password", demoPassword))
}
