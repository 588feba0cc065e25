package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "souqline"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SOUQLINE_DB_DSN"
	EnvDBHost = "SOUQLINE_DB_HOST"
	EnvDBUser = "SOUQLINE_DB_USER"
	EnvDBName = "SOUQLINE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Fees         FeesConfig
	Wallet       WalletConfig
	Referral     ReferralConfig
	Cron         CronConfig
	Notification NotificationConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SOUQLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"SOUQLINE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SOUQLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOUQLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SOUQLINE_DB_DSN"`
	Driver string `envconfig:"SOUQLINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SOUQLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"SOUQLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SOUQLINE_DB_USER"`
	LegacyPassword string `envconfig:"SOUQLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SOUQLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SOUQLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SOUQLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOUQLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOUQLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOUQLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	TxRetryAttempts uint64 `envconfig:"SOUQLINE_DB_TX_RETRY_ATTEMPTS" default:"3"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOUQLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SOUQLINE_REDIS_ADDR"`
	Password     string        `envconfig:"SOUQLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOUQLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOUQLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOUQLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOUQLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOUQLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOUQLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"SOUQLINE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"SOUQLINE_JWT_ISSUER" required:"true"`
}

// FeesConfig holds the order fee formula constants.
type FeesConfig struct {
	SingleSupplierDeliveryFee decimal.Decimal `envconfig:"SOUQLINE_FEES_SINGLE_SUPPLIER_DELIVERY" default:"8.0"`
	PerSupplierDeliveryFee    decimal.Decimal `envconfig:"SOUQLINE_FEES_PER_SUPPLIER_DELIVERY" default:"7.5"`
	PlatformFeeRate           decimal.Decimal `envconfig:"SOUQLINE_FEES_PLATFORM_RATE" default:"0.10"`
}

// WalletConfig holds ledger-side amounts.
type WalletConfig struct {
	ReturnPenalty     decimal.Decimal `envconfig:"SOUQLINE_WALLET_RETURN_PENALTY" default:"4.0"`
	WithdrawalMinimum decimal.Decimal `envconfig:"SOUQLINE_WALLET_WITHDRAWAL_MINIMUM" default:"20.0"`
}

// ReferralConfig caps cascade depth and sets per-level bonus rates.
type ReferralConfig struct {
	MaxDepth    int             `envconfig:"SOUQLINE_REFERRAL_MAX_DEPTH" default:"3"`
	Level1Rate  decimal.Decimal `envconfig:"SOUQLINE_REFERRAL_LEVEL1_RATE" default:"0.20"`
	Level2Rate  decimal.Decimal `envconfig:"SOUQLINE_REFERRAL_LEVEL2_RATE" default:"0.10"`
	DefaultRate decimal.Decimal `envconfig:"SOUQLINE_REFERRAL_DEFAULT_RATE" default:"0.05"`
}

// RateForLevel returns the bonus percentage applied at the given chain level.
func (r ReferralConfig) RateForLevel(level int) decimal.Decimal {
	switch level {
	case 1:
		return r.Level1Rate
	case 2:
		return r.Level2Rate
	default:
		return r.DefaultRate
	}
}

type CronConfig struct {
	PendingOrderTTL time.Duration `envconfig:"SOUQLINE_CRON_PENDING_ORDER_TTL" default:"240h"`
	LockTTL         time.Duration `envconfig:"SOUQLINE_CRON_LOCK_TTL" default:"1h"`
}

type NotificationConfig struct {
	Channel string `envconfig:"SOUQLINE_NOTIFICATION_CHANNEL" default:"souqline-events"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SOUQLINE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
