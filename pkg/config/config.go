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
	EnvPrefix = "apprl"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "APPRL_DB_DSN"
	EnvDBHost = "APPRL_DB_HOST"
	EnvDBUser = "APPRL_DB_USER"
	EnvDBName = "APPRL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App        AppConfig
	Service    ServiceConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Flags      FeatureFlagsConfig
	Settlement SettlementConfig
	Cron       CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"APPRL_APP_ENV" required:"true"`
	Port         string `envconfig:"APPRL_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"APPRL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"APPRL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"APPRL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"APPRL_DB_DSN"`
	Driver string `envconfig:"APPRL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"APPRL_DB_HOST"`
	LegacyPort     int    `envconfig:"APPRL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"APPRL_DB_USER"`
	LegacyPassword string `envconfig:"APPRL_DB_PASSWORD"`
	LegacyName     string `envconfig:"APPRL_DB_NAME"`
	LegacySSLMode  string `envconfig:"APPRL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"APPRL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"APPRL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"APPRL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"APPRL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"APPRL_REDIS_URL"`
	Address      string        `envconfig:"APPRL_REDIS_ADDR"`
	Password     string        `envconfig:"APPRL_REDIS_PASSWORD"`
	DB           int           `envconfig:"APPRL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"APPRL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"APPRL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"APPRL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"APPRL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"APPRL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"APPRL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"APPRL_JWT_ISSUER" default:"apprl-dashboard"`
	ExpirationMinutes int    `envconfig:"APPRL_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"APPRL_AUTO_MIGRATE" default:"false"`
}

// SettlementConfig carries the business constants of commission distribution
// and payment batching.
type SettlementConfig struct {
	// DefaultCut is the publisher revenue share used when no Cut row exists
	// for the publisher's commission group and the sale's vendor.
	DefaultCut decimal.Decimal `envconfig:"APPRL_SETTLEMENT_DEFAULT_CUT" default:"0.67"`
	// DefaultReferralCut is the sponsor share used when the sponsor has no
	// Cut of their own.
	DefaultReferralCut decimal.Decimal `envconfig:"APPRL_SETTLEMENT_DEFAULT_REFERRAL_CUT" default:"0.15"`
	// SignupBonus is the fixed one-off earning for a referred signup promo.
	SignupBonus decimal.Decimal `envconfig:"APPRL_SETTLEMENT_SIGNUP_BONUS" default:"50"`
	// MinPayout is the threshold a publisher's qualifying earnings must
	// exceed before a Payment is batched.
	MinPayout decimal.Decimal `envconfig:"APPRL_SETTLEMENT_MIN_PAYOUT" default:"100"`
	// Currency is the single settlement currency; conversion happens upstream.
	Currency string `envconfig:"APPRL_SETTLEMENT_CURRENCY" default:"EUR"`
	// MaxTributeDepth bounds recursion over the publisher ownership graph.
	MaxTributeDepth int `envconfig:"APPRL_SETTLEMENT_MAX_TRIBUTE_DEPTH" default:"10"`
}

func (s SettlementConfig) validate() error {
	one := decimal.NewFromInt(1)
	if s.DefaultCut.IsNegative() || s.DefaultCut.GreaterThan(one) {
		return fmt.Errorf("settlement default cut %s outside [0,1]", s.DefaultCut)
	}
	if s.DefaultReferralCut.IsNegative() || s.DefaultReferralCut.GreaterThan(one) {
		return fmt.Errorf("settlement default referral cut %s outside [0,1]", s.DefaultReferralCut)
	}
	if s.MinPayout.IsNegative() {
		return fmt.Errorf("settlement min payout %s must not be negative", s.MinPayout)
	}
	if s.MaxTributeDepth <= 0 {
		return fmt.Errorf("settlement max tribute depth must be positive")
	}
	return nil
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"APPRL_CRON_INTERVAL" default:"24h"`
	RedistributionBatch int           `envconfig:"APPRL_CRON_REDISTRIBUTION_BATCH" default:"500"`
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
