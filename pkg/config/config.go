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
	EnvPrefix = "adorn"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "ADORN_DB_DSN"
	EnvDBHost = "ADORN_DB_HOST"
	EnvDBUser = "ADORN_DB_USER"
	EnvDBName = "ADORN_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Pricing      PricingConfig
	Paystack     PaystackConfig
	Webhook      WebhookConfig
	Outbox       OutboxConfig
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
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ADORN_APP_ENV" required:"true"`
	Port         string `envconfig:"ADORN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ADORN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ADORN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ADORN_DB_DSN"`
	Driver string `envconfig:"ADORN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ADORN_DB_HOST"`
	LegacyPort     int    `envconfig:"ADORN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ADORN_DB_USER"`
	LegacyPassword string `envconfig:"ADORN_DB_PASSWORD"`
	LegacyName     string `envconfig:"ADORN_DB_NAME"`
	LegacySSLMode  string `envconfig:"ADORN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ADORN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ADORN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ADORN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ADORN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ADORN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ADORN_REDIS_ADDR"`
	Password     string        `envconfig:"ADORN_REDIS_PASSWORD"`
	DB           int           `envconfig:"ADORN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ADORN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ADORN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ADORN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ADORN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ADORN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ADORN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ADORN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ADORN_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PricingConfig carries the fixed business rates applied by the order
// creator. Rates arrive as strings so they can be validated into decimals.
type PricingConfig struct {
	Currency              string `envconfig:"ADORN_PRICING_CURRENCY" default:"NGN"`
	TaxRatePercent        string `envconfig:"ADORN_PRICING_TAX_RATE_PERCENT" default:"7.5"`
	FreeShippingThreshold string `envconfig:"ADORN_PRICING_FREE_SHIPPING_THRESHOLD" default:"50000"`
	ShippingFlatFee       string `envconfig:"ADORN_PRICING_SHIPPING_FLAT_FEE" default:"2500"`

	taxRate       decimal.Decimal
	freeThreshold decimal.Decimal
	flatFee       decimal.Decimal
}

func (p *PricingConfig) validate() error {
	var err error
	if p.taxRate, err = decimal.NewFromString(p.TaxRatePercent); err != nil {
		return fmt.Errorf("invalid tax rate %q: %w", p.TaxRatePercent, err)
	}
	if p.freeThreshold, err = decimal.NewFromString(p.FreeShippingThreshold); err != nil {
		return fmt.Errorf("invalid free shipping threshold %q: %w", p.FreeShippingThreshold, err)
	}
	if p.flatFee, err = decimal.NewFromString(p.ShippingFlatFee); err != nil {
		return fmt.Errorf("invalid shipping flat fee %q: %w", p.ShippingFlatFee, err)
	}
	if p.taxRate.IsNegative() || p.freeThreshold.IsNegative() || p.flatFee.IsNegative() {
		return fmt.Errorf("pricing rates must be non-negative")
	}
	return nil
}

// TaxRate returns the validated tax percentage.
func (p PricingConfig) TaxRate() decimal.Decimal { return p.taxRate }

// FreeThreshold returns the subtotal at which shipping becomes free.
func (p PricingConfig) FreeThreshold() decimal.Decimal { return p.freeThreshold }

// FlatFee returns the flat shipping fee below the free threshold.
func (p PricingConfig) FlatFee() decimal.Decimal { return p.flatFee }

type PaystackConfig struct {
	SecretKey      string        `envconfig:"ADORN_PAYSTACK_SECRET_KEY" required:"true"`
	BaseURL        string        `envconfig:"ADORN_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL    string        `envconfig:"ADORN_PAYSTACK_CALLBACK_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"ADORN_PAYSTACK_REQUEST_TIMEOUT" default:"15s"`
	TestMode       bool          `envconfig:"ADORN_PAYSTACK_TEST_MODE" default:"false"`
}

type WebhookConfig struct {
	URL            string        `envconfig:"ADORN_WEBHOOK_URL"`
	RequestTimeout time.Duration `envconfig:"ADORN_WEBHOOK_REQUEST_TIMEOUT" default:"10s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ADORN_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ADORN_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ADORN_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ADORN_AUTO_MIGRATE" default:"false"`
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
