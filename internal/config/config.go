// Package config defines the top-level configuration for the copy engine
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/robfig/cron/v3"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/sizing"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POLYCOPY_* environment variables.
type Config struct {
	Wallet     WalletConfig     `toml:"wallet"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Copy       CopyConfig       `toml:"copy"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Stats      StatsConfig      `toml:"stats"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// WalletConfig holds the replicator's signing key. FunderAddress is the
// proxy or safe wallet that holds collateral; empty means the signer itself.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	FunderAddress    string `toml:"funder_address"`
}

// PolymarketConfig holds API endpoints and chain parameters.
type PolymarketConfig struct {
	ClobHost               string   `toml:"clob_host"`
	DataHost               string   `toml:"data_host"`
	LeaderboardHost        string   `toml:"leaderboard_host"`
	GammaHost              string   `toml:"gamma_host"`
	RPCURL                 string   `toml:"rpc_url"`
	ChainID                int      `toml:"chain_id"`
	SignatureType          int      `toml:"signature_type"`
	ExchangeAddress        string   `toml:"exchange_address"`
	NegRiskExchangeAddress string   `toml:"neg_risk_exchange_address"`
	CollateralAddress      string   `toml:"collateral_address"`
	CollateralSource       string   `toml:"collateral_source"` // "clob" or "chain"
	RequestTimeout         duration `toml:"request_timeout"`
	RequestsPerSecond      int      `toml:"requests_per_second"`
	APIKey                 string   `toml:"api_key"`
	APISecret              string   `toml:"api_secret"`
	APIPassphrase          string   `toml:"api_passphrase"`
}

// CopyConfig controls what is replicated and how the loop is paced.
type CopyConfig struct {
	Target             string   `toml:"target"`
	Epoch              string   `toml:"epoch"`
	ActivityPageSize   int      `toml:"activity_page_size"`
	ActivityMaxRecords int      `toml:"activity_max_records"`
	PositionLimit      int      `toml:"position_limit"`
	FeeRateBps         int      `toml:"fee_rate_bps"`
	OrderType          string   `toml:"order_type"`
	BudgetMode         string   `toml:"budget_mode"`
	DryRun             bool     `toml:"dry_run"`
	SkipReplicated     bool     `toml:"skip_replicated"`
	ValidateTarget     bool     `toml:"validate_target"`
	TopTradersLimit    int      `toml:"top_traders_limit"`
	ValueThreshold     float64  `toml:"value_threshold"`
	PassInterval       duration `toml:"pass_interval"`
	BackoffInitial     duration `toml:"backoff_initial"`
	BackoffMax         duration `toml:"backoff_max"`
	BackoffFactor      float64  `toml:"backoff_factor"`
	AlertAfterFailures int      `toml:"alert_after_failures"`
	LockTTL            duration `toml:"lock_ttl"`
	NonceTTL           duration `toml:"nonce_ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible archive parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// StatsConfig schedules traded-count and value snapshots of the target.
type StatsConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"`
}

// duration wraps time.Duration so TOML can decode strings like "15s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	RateLimit   int      `toml:"rate_limit"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost:               "https://clob.polymarket.com",
			DataHost:               "https://data-api.polymarket.com",
			LeaderboardHost:        "https://lb-api.polymarket.com",
			GammaHost:              "https://gamma-api.polymarket.com",
			RPCURL:                 "https://polygon-rpc.com",
			ChainID:                137,
			SignatureType:          0,
			ExchangeAddress:        "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E",
			NegRiskExchangeAddress: "0xC5d563A36AE78145C45a50134d48A1215220f80a",
			CollateralAddress:      "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
			CollateralSource:       "clob",
			RequestTimeout:         duration{15 * time.Second},
			RequestsPerSecond:      5,
		},
		Copy: CopyConfig{
			Epoch:              "d",
			ActivityPageSize:   500,
			ActivityMaxRecords: 500,
			PositionLimit:      500,
			OrderType:          string(domain.OrderTypeGTC),
			BudgetMode:         string(sizing.BudgetPerOrder),
			SkipReplicated:     true,
			TopTradersLimit:    30,
			ValueThreshold:     100000,
			PassInterval:       duration{time.Minute},
			BackoffInitial:     duration{5 * time.Second},
			BackoffMax:         duration{5 * time.Minute},
			BackoffFactor:      2,
			AlertAfterFailures: 5,
			LockTTL:            duration{2 * time.Minute},
			NonceTTL:           duration{24 * time.Hour},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "polycopy",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "polycopy-archive",
			ForcePathStyle: true,
			Prefix:         "polycopy",
		},
		Stats: StatsConfig{
			Cron: "0 */15 * * * *",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   20,
		},
		Notify: NotifyConfig{
			Events: []string{"insufficient_funds", "order_rejected", "loop_failing"},
		},
		Mode:     "copy",
		LogLevel: "info",
	}
}

// minLockTTL keeps the signer lock refresh (every lock_ttl/3) at one second
// or more.
const minLockTTL = 3 * time.Second

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"copy":        true,
	"once":        true,
	"leaderboard": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validOrderTypes = map[domain.OrderType]bool{
	domain.OrderTypeGTC: true,
	domain.OrderTypeGTD: true,
	domain.OrderTypeFOK: true,
	domain.OrderTypeFAK: true,
}

// Validate checks Config for invalid or missing values and returns a combined
// error describing every problem found.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		add("unknown mode %q (valid: copy, once, leaderboard)", c.Mode)
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		add("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel)
	}

	copying := mode == "copy" || mode == "once"

	if copying {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			add("wallet: either private_key or encrypted_key_path must be set for mode %s", c.Mode)
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			add("wallet: key_password is required when encrypted_key_path is set")
		}
	}
	if c.Wallet.FunderAddress != "" && !common.IsHexAddress(c.Wallet.FunderAddress) {
		add("wallet: funder_address %q is not a valid address", c.Wallet.FunderAddress)
	}

	// Polymarket
	p := c.Polymarket
	if p.ClobHost == "" || p.DataHost == "" || p.LeaderboardHost == "" {
		add("polymarket: clob_host, data_host and leaderboard_host must not be empty")
	}
	if p.ChainID <= 0 {
		add("polymarket: chain_id must be positive")
	}
	if p.SignatureType < 0 || p.SignatureType > 2 {
		add("polymarket: signature_type must be 0 (EOA), 1 (proxy) or 2 (safe), got %d", p.SignatureType)
	}
	if p.SignatureType != 0 && c.Wallet.FunderAddress == "" && copying {
		add("wallet: funder_address is required for signature_type %d", p.SignatureType)
	}
	for name, addr := range map[string]string{
		"exchange_address":   p.ExchangeAddress,
		"collateral_address": p.CollateralAddress,
	} {
		if !common.IsHexAddress(addr) {
			add("polymarket: %s %q is not a valid address", name, addr)
		}
	}
	if p.NegRiskExchangeAddress != "" && !common.IsHexAddress(p.NegRiskExchangeAddress) {
		add("polymarket: neg_risk_exchange_address %q is not a valid address", p.NegRiskExchangeAddress)
	}
	switch p.CollateralSource {
	case "clob":
	case "chain":
		if p.RPCURL == "" {
			add("polymarket: rpc_url is required when collateral_source is chain")
		}
	default:
		add("polymarket: collateral_source must be clob or chain, got %q", p.CollateralSource)
	}
	if p.RequestTimeout.Duration <= 0 {
		add("polymarket: request_timeout must be > 0")
	}
	if p.RequestsPerSecond < 0 {
		add("polymarket: requests_per_second must be >= 0")
	}
	ak, as, ap := p.APIKey != "", p.APISecret != "", p.APIPassphrase != ""
	if (ak || as || ap) && !(ak && as && ap) {
		add("polymarket: api_key, api_secret and api_passphrase must all be set together")
	}

	// Copy
	cp := c.Copy
	if copying {
		if !common.IsHexAddress(cp.Target) {
			add("copy: target %q is not a valid address", cp.Target)
		}
		if _, err := domain.ParseEpoch(cp.Epoch); err != nil {
			add("copy: %v", err)
		}
	}
	if cp.ActivityPageSize < 1 || cp.ActivityMaxRecords < 1 || cp.PositionLimit < 1 {
		add("copy: activity_page_size, activity_max_records and position_limit must be >= 1")
	}
	if cp.FeeRateBps < 0 {
		add("copy: fee_rate_bps must be >= 0")
	}
	if !validOrderTypes[domain.OrderType(strings.ToUpper(cp.OrderType))] {
		add("copy: unknown order_type %q (valid: GTC, GTD, FOK, FAK)", cp.OrderType)
	}
	if _, err := sizing.ParseBudgetMode(cp.BudgetMode); err != nil {
		add("copy: %v", err)
	}
	if cp.TopTradersLimit < 1 {
		add("copy: top_traders_limit must be >= 1")
	}
	if cp.ValueThreshold < 0 {
		add("copy: value_threshold must be >= 0")
	}
	if cp.PassInterval.Duration <= 0 {
		add("copy: pass_interval must be > 0")
	}
	if cp.BackoffInitial.Duration <= 0 || cp.BackoffMax.Duration < cp.BackoffInitial.Duration {
		add("copy: backoff_initial must be > 0 and not exceed backoff_max")
	}
	if cp.BackoffFactor < 1 {
		add("copy: backoff_factor must be >= 1")
	}
	if cp.LockTTL.Duration < minLockTTL {
		add("copy: lock_ttl must be at least %s, got %s", minLockTTL, cp.LockTTL.Duration)
	}
	if cp.NonceTTL.Duration <= 0 {
		add("copy: nonce_ttl must be > 0")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			add("postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			add("postgres: port must be 1-65535, got %d", c.Postgres.Port)
		}
		if c.Postgres.Database == "" {
			add("postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		add("postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		add("postgres: pool_min_conns must be between 0 and pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		add("redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		add("redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Enabled && c.S3.Bucket == "" {
		add("s3: bucket must not be empty when enabled")
	}

	// Stats
	if c.Stats.Enabled {
		if _, err := cron.NewParser(CronSpec).Parse(c.Stats.Cron); err != nil {
			add("stats: invalid cron %q: %v", c.Stats.Cron, err)
		}
	}

	// Server
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		add("server: port must be 1-65535, got %d", c.Server.Port)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// CronSpec is the parser layout for stats.cron: six fields with seconds,
// plus descriptors such as "@every 10m".
const CronSpec = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor

// Interval returns the pass interval.
func (c CopyConfig) Interval() time.Duration { return c.PassInterval.Duration }

// Timeout returns the per-request timeout.
func (p PolymarketConfig) Timeout() time.Duration { return p.RequestTimeout.Duration }
