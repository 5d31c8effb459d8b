package configs

import (
	"errors"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/deuna/payment-system/internal/logger"
)

type Config struct {
	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`
	DB struct {
		Driver string `mapstructure:"driver"` // postgres | memory
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	JWT struct {
		SECRET string `mapstructure:"secret"`
	} `mapstructure:"jwt"`
	Ledger struct {
		UserGrant             float64       `mapstructure:"user_grant"`
		BankInitialBalance    float64       `mapstructure:"bank_initial_balance"`
		FeeRate               float64       `mapstructure:"fee_rate"`
		MinFee                float64       `mapstructure:"min_fee"`
		DailyTransferLimit    float64       `mapstructure:"daily_transfer_limit"`
		OrderTTL              time.Duration `mapstructure:"order_ttl"`
		CodeRetryCap          int           `mapstructure:"code_retry_cap"`
		FeeDestination        string        `mapstructure:"fee_destination"`         // burn | bank
		OperatorFailurePolicy string        `mapstructure:"operator_failure_policy"` // debit | refund
	} `mapstructure:"ledger"`
}

var AppConfig Config

func LoadConfig() {
	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("http.addr", ":8080")
	viper.SetDefault("db.driver", "postgres")
	viper.SetDefault("ledger.user_grant", 100)
	viper.SetDefault("ledger.bank_initial_balance", 100000)
	viper.SetDefault("ledger.fee_rate", 0.01)
	viper.SetDefault("ledger.min_fee", 0.5)
	viper.SetDefault("ledger.daily_transfer_limit", 1000)
	viper.SetDefault("ledger.order_ttl", "15m")
	viper.SetDefault("ledger.code_retry_cap", 5)
	viper.SetDefault("ledger.fee_destination", "burn")
	viper.SetDefault("ledger.operator_failure_policy", "debit")

	viper.AutomaticEnv()

	var fileLookupError viper.ConfigFileNotFoundError
	if err := viper.ReadInConfig(); err != nil {
		if errors.As(err, &fileLookupError) {
			logger.Log.Fatal("config file not found", zap.Error(err))
		}
		logger.Log.Fatal("failed to read config", zap.Error(err))
	}

	viper.Unmarshal(&AppConfig)
}
