package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/deuna/payment-system/configs"
	"github.com/deuna/payment-system/internal/audit"
	"github.com/deuna/payment-system/internal/handlers"
	"github.com/deuna/payment-system/internal/ledger"
	"github.com/deuna/payment-system/internal/logger"
	"github.com/deuna/payment-system/internal/routes"
	"github.com/deuna/payment-system/internal/seed"
	"github.com/deuna/payment-system/internal/store"
	"github.com/deuna/payment-system/internal/store/memory"
	"github.com/deuna/payment-system/internal/store/postgres"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	configs.LoadConfig()
	cfg := configs.AppConfig

	var (
		st   store.Store
		pgSt *postgres.Store
		err  error
	)
	switch cfg.DB.Driver {
	case "memory":
		st = memory.New()
		logger.Log.Info("using in-memory store")
	default:
		pgSt, err = postgres.Open(cfg.DB.DSN, logger.Log)
		if err != nil {
			logger.Log.Fatal("failed to connect to database", zap.Error(err))
		}
		if err := pgSt.Migrate(); err != nil {
			logger.Log.Fatal("migrations failed", zap.Error(err))
		}
		st = pgSt
	}

	policy := ledger.Policy{
		FeeRate:    decimal.NewFromFloat(cfg.Ledger.FeeRate),
		MinFee:     decimal.NewFromFloat(cfg.Ledger.MinFee),
		DailyLimit: decimal.NewFromFloat(cfg.Ledger.DailyTransferLimit),
	}
	engineCfg := ledger.Config{
		UserGrant:               decimal.NewFromFloat(cfg.Ledger.UserGrant),
		OrderTTL:                cfg.Ledger.OrderTTL,
		CodeRetryCap:            cfg.Ledger.CodeRetryCap,
		FeeToBank:               cfg.Ledger.FeeDestination == "bank",
		RefundOnOperatorFailure: cfg.Ledger.OperatorFailurePolicy == "refund",
	}

	recorder := audit.NewRecorder(st, logger.Log)
	engine := ledger.NewEngine(st, policy, recorder, ledger.SimulatedOperator{}, engineCfg, logger.Log)

	seed.Run(engine, decimal.NewFromFloat(cfg.Ledger.BankInitialBalance))

	router := routes.NewRoutes(handlers.New(engine))

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}

	if pgSt != nil {
		if err := pgSt.Close(); err != nil {
			logger.Log.Error("db close failed", zap.Error(err))
		} else {
			logger.Log.Info("db closed")
		}
	}

	logger.Log.Info("server stopped")
}
