package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Ledger backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// LedgerConfig controls the loan ledger and its external collaborators.
type LedgerConfig struct {
	// CustodyPrincipal is the identity the ledger holds collateral and
	// attached value under, in both the asset registry and the value rail.
	CustodyPrincipal string     `mapstructure:"custody_principal"`
	Backend          string     `mapstructure:"backend"`
	ReplayOnStart    bool       `mapstructure:"replay_on_start"`
	EventStream      string     `mapstructure:"event_stream"`
	Seed             SeedConfig `mapstructure:"seed"` // memory backend only
}

// SeedConfig populates the in-memory registry and rail at startup.
type SeedConfig struct {
	Tokens   []SeedToken   `mapstructure:"tokens"`
	Balances []SeedBalance `mapstructure:"balances"`
}

type SeedToken struct {
	CollectionID   string `mapstructure:"collection_id"`
	TokenID        string `mapstructure:"token_id"`
	Owner          string `mapstructure:"owner"`
	ApproveCustody bool   `mapstructure:"approve_custody"`
}

type SeedBalance struct {
	Principal string `mapstructure:"principal"`
	Amount    int64  `mapstructure:"amount"`
}

// Empty reports whether nothing is seeded.
func (s SeedConfig) Empty() bool {
	return len(s.Tokens) == 0 && len(s.Balances) == 0
}

type WebhookConfig struct {
	URL     string        `mapstructure:"url"` // empty disables webhook delivery
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Validate reports configuration that cannot produce a working ledger.
func (c *Config) Validate() error {
	if c.Ledger.CustodyPrincipal == "" {
		return fmt.Errorf("ledger.custody_principal must be set")
	}
	switch c.Ledger.Backend {
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("ledger.backend must be %q or %q, got %q", BackendPostgres, BackendMemory, c.Ledger.Backend)
	}
	if c.Ledger.Backend != BackendMemory && !c.Ledger.Seed.Empty() {
		return fmt.Errorf("ledger.seed is only supported with the %q backend", BackendMemory)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret must be set")
	}
	return nil
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CLL_ (Collateral Loan Ledger).
// Nested keys use underscore: CLL_DATABASE_HOST, CLL_LEDGER_BACKEND, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "collateral_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "collateral-ledger")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("ledger.custody_principal", "ledger-custody")
	v.SetDefault("ledger.backend", BackendPostgres)
	v.SetDefault("ledger.replay_on_start", true)
	v.SetDefault("ledger.event_stream", "ledger:events")
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("ratelimit.enabled", true)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CLL_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CLL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
