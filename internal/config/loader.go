package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, and applies POLYCOPY_* environment overrides. An empty
// path skips the file. The returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites Config fields from POLYCOPY_* variables that
// are set and non-empty, so secrets can be injected at deploy time.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "POLYCOPY_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "POLYCOPY_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "POLYCOPY_WALLET_KEY_PASSWORD")
	setStr(&cfg.Wallet.FunderAddress, "POLYCOPY_WALLET_FUNDER_ADDRESS")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "POLYCOPY_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.DataHost, "POLYCOPY_POLYMARKET_DATA_HOST")
	setStr(&cfg.Polymarket.LeaderboardHost, "POLYCOPY_POLYMARKET_LEADERBOARD_HOST")
	setStr(&cfg.Polymarket.GammaHost, "POLYCOPY_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.RPCURL, "POLYCOPY_POLYMARKET_RPC_URL")
	setInt(&cfg.Polymarket.ChainID, "POLYCOPY_POLYMARKET_CHAIN_ID")
	setInt(&cfg.Polymarket.SignatureType, "POLYCOPY_POLYMARKET_SIGNATURE_TYPE")
	setStr(&cfg.Polymarket.ExchangeAddress, "POLYCOPY_POLYMARKET_EXCHANGE_ADDRESS")
	setStr(&cfg.Polymarket.NegRiskExchangeAddress, "POLYCOPY_POLYMARKET_NEG_RISK_EXCHANGE_ADDRESS")
	setStr(&cfg.Polymarket.CollateralAddress, "POLYCOPY_POLYMARKET_COLLATERAL_ADDRESS")
	setStr(&cfg.Polymarket.CollateralSource, "POLYCOPY_POLYMARKET_COLLATERAL_SOURCE")
	setDuration(&cfg.Polymarket.RequestTimeout, "POLYCOPY_POLYMARKET_REQUEST_TIMEOUT")
	setInt(&cfg.Polymarket.RequestsPerSecond, "POLYCOPY_POLYMARKET_REQUESTS_PER_SECOND")
	setStr(&cfg.Polymarket.APIKey, "POLYCOPY_POLYMARKET_API_KEY")
	setStr(&cfg.Polymarket.APISecret, "POLYCOPY_POLYMARKET_API_SECRET")
	setStr(&cfg.Polymarket.APIPassphrase, "POLYCOPY_POLYMARKET_API_PASSPHRASE")

	// ── Copy ──
	setStr(&cfg.Copy.Target, "POLYCOPY_COPY_TARGET")
	setStr(&cfg.Copy.Epoch, "POLYCOPY_COPY_EPOCH")
	setInt(&cfg.Copy.ActivityPageSize, "POLYCOPY_COPY_ACTIVITY_PAGE_SIZE")
	setInt(&cfg.Copy.ActivityMaxRecords, "POLYCOPY_COPY_ACTIVITY_MAX_RECORDS")
	setInt(&cfg.Copy.PositionLimit, "POLYCOPY_COPY_POSITION_LIMIT")
	setInt(&cfg.Copy.FeeRateBps, "POLYCOPY_COPY_FEE_RATE_BPS")
	setStr(&cfg.Copy.OrderType, "POLYCOPY_COPY_ORDER_TYPE")
	setStr(&cfg.Copy.BudgetMode, "POLYCOPY_COPY_BUDGET_MODE")
	setBool(&cfg.Copy.DryRun, "POLYCOPY_COPY_DRY_RUN")
	setBool(&cfg.Copy.SkipReplicated, "POLYCOPY_COPY_SKIP_REPLICATED")
	setBool(&cfg.Copy.ValidateTarget, "POLYCOPY_COPY_VALIDATE_TARGET")
	setInt(&cfg.Copy.TopTradersLimit, "POLYCOPY_COPY_TOP_TRADERS_LIMIT")
	setFloat64(&cfg.Copy.ValueThreshold, "POLYCOPY_COPY_VALUE_THRESHOLD")
	setDuration(&cfg.Copy.PassInterval, "POLYCOPY_COPY_PASS_INTERVAL")
	setDuration(&cfg.Copy.BackoffInitial, "POLYCOPY_COPY_BACKOFF_INITIAL")
	setDuration(&cfg.Copy.BackoffMax, "POLYCOPY_COPY_BACKOFF_MAX")
	setFloat64(&cfg.Copy.BackoffFactor, "POLYCOPY_COPY_BACKOFF_FACTOR")
	setInt(&cfg.Copy.AlertAfterFailures, "POLYCOPY_COPY_ALERT_AFTER_FAILURES")
	setDuration(&cfg.Copy.LockTTL, "POLYCOPY_COPY_LOCK_TTL")
	setDuration(&cfg.Copy.NonceTTL, "POLYCOPY_COPY_NONCE_TTL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "POLYCOPY_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "POLYCOPY_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POLYCOPY_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POLYCOPY_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POLYCOPY_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POLYCOPY_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POLYCOPY_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POLYCOPY_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POLYCOPY_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POLYCOPY_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "POLYCOPY_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYCOPY_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYCOPY_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYCOPY_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYCOPY_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYCOPY_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "POLYCOPY_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "POLYCOPY_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYCOPY_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYCOPY_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POLYCOPY_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYCOPY_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POLYCOPY_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POLYCOPY_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "POLYCOPY_S3_PREFIX")

	// ── Stats ──
	setBool(&cfg.Stats.Enabled, "POLYCOPY_STATS_ENABLED")
	setStr(&cfg.Stats.Cron, "POLYCOPY_STATS_CRON")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "POLYCOPY_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "POLYCOPY_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "POLYCOPY_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "POLYCOPY_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "POLYCOPY_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "POLYCOPY_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POLYCOPY_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "POLYCOPY_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "POLYCOPY_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "POLYCOPY_MODE")
	setStr(&cfg.LogLevel, "POLYCOPY_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present, non-empty and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
