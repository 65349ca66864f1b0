package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Vault        VaultConfig
	Sweep        SweepConfig
	Outbox       OutboxConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
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
	Env          string `envconfig:"SUBVAULT_APP_ENV" required:"true"`
	Port         string `envconfig:"SUBVAULT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SUBVAULT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SUBVAULT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SUBVAULT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"SUBVAULT_DB_DSN"`

	Host     string `envconfig:"SUBVAULT_DB_HOST"`
	Port     int    `envconfig:"SUBVAULT_DB_PORT" default:"5432"`
	User     string `envconfig:"SUBVAULT_DB_USER"`
	Password string `envconfig:"SUBVAULT_DB_PASSWORD"`
	Name     string `envconfig:"SUBVAULT_DB_NAME"`
	SSLMode  string `envconfig:"SUBVAULT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SUBVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SUBVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SUBVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SUBVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either SUBVAULT_DB_DSN or SUBVAULT_DB_HOST/USER/NAME must be set")
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"SUBVAULT_REDIS_URL" required:"true"`
	Password     string        `envconfig:"SUBVAULT_REDIS_PASSWORD"`
	DB           int           `envconfig:"SUBVAULT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SUBVAULT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SUBVAULT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SUBVAULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SUBVAULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SUBVAULT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SUBVAULT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SUBVAULT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SUBVAULT_JWT_EXPIRATION_MINUTES" default:"60"`
}

// VaultConfig carries the deployment-level identity of the vault itself:
// the custody account that holds escrowed tokens between charges.
type VaultConfig struct {
	CustodyAddress string `envconfig:"SUBVAULT_VAULT_CUSTODY_ADDRESS" required:"true"`
	TokenBackend   string `envconfig:"SUBVAULT_TOKEN_BACKEND" default:"devledger"`
}

type SweepConfig struct {
	Interval  time.Duration `envconfig:"SUBVAULT_SWEEP_INTERVAL" default:"1m"`
	BatchSize int           `envconfig:"SUBVAULT_SWEEP_BATCH_SIZE" default:"250"`
	LockTTL   time.Duration `envconfig:"SUBVAULT_SWEEP_LOCK_TTL" default:"5m"`
}

type OutboxConfig struct {
	PollInterval  time.Duration `envconfig:"SUBVAULT_OUTBOX_POLL_INTERVAL" default:"2s"`
	BatchSize     int           `envconfig:"SUBVAULT_OUTBOX_BATCH_SIZE" default:"100"`
	MaxAttempts   int           `envconfig:"SUBVAULT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays int           `envconfig:"SUBVAULT_OUTBOX_RETENTION_DAYS" default:"30"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"SUBVAULT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	LifecycleTopic string `envconfig:"SUBVAULT_PUBSUB_LIFECYCLE_TOPIC" default:"subvault-lifecycle"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SUBVAULT_FEATURE_AUTO_MIGRATE" default:"true"`
}
