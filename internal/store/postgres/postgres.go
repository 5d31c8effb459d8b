// Package postgres implements the store contract on gorm/PostgreSQL.
// Units of work map to database transactions; per-account serialization
// comes from SELECT ... FOR UPDATE row locks, which the engine acquires
// in ascending account-id order.
package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/deuna/payment-system/internal/models"
	"github.com/deuna/payment-system/internal/store"
)

type Store struct {
	querier
	db  *gorm.DB
	log *zap.Logger
}

var _ store.Store = (*Store)(nil)

func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: false,
	}), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	log.Info("connected to the database")
	return &Store{querier: querier{db: db}, db: db, log: log}, nil
}

func (s *Store) Migrate() error {
	err := s.db.AutoMigrate(
		&models.Account{},
		&models.Transaction{},
		&models.PaymentOrder{},
		&models.Payment{},
		&models.AuditEvent{},
	)
	if err != nil {
		return err
	}
	s.log.Info("migrations loaded")
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(g *gorm.DB) error {
		return fn(&pgTx{querier: querier{db: g, locking: true}})
	})
}

func (s *Store) AppendAudit(ctx context.Context, ev *models.AuditEvent) error {
	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		return translate(err)
	}
	return nil
}

// translate maps gorm errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrDuplicateKey
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return store.ErrTransient
	default:
		return err
	}
}
