package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/polycopy/internal/blob/s3"
	"github.com/alanyoungcy/polycopy/internal/cache/redis"
	"github.com/alanyoungcy/polycopy/internal/config"
	"github.com/alanyoungcy/polycopy/internal/crypto"
	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/notify"
	"github.com/alanyoungcy/polycopy/internal/order"
	"github.com/alanyoungcy/polycopy/internal/platform/polymarket"
	"github.com/alanyoungcy/polycopy/internal/server/handler"
	"github.com/alanyoungcy/polycopy/internal/service"
	"github.com/alanyoungcy/polycopy/internal/store/postgres"
)

// Dependencies bundles every collaborator the modes need. It is built by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	ActivityStore domain.ActivityStore
	PositionStore domain.PositionStore
	StatsStore    domain.TraderStatsStore
	OrderStore    domain.OrderStore
	AuditStore    domain.AuditStore

	// Caches
	RateLimiter   domain.RateLimiter
	LockManager   domain.LockManager
	NonceRegistry domain.NonceRegistry
	SignalBus     domain.SignalBus

	// Blob storage; nil unless s3.enabled.
	Archiver domain.PassArchiver

	// Gateways
	Data        *polymarket.DataClient
	Leaderboard *polymarket.LeaderboardClient
	Gamma       *polymarket.GammaClient

	// Liveness checks for /api/health.
	Pingers map[string]handler.Pinger

	Notifier *notify.Notifier
}

// needsBackends reports whether mode persists records and coordinates
// through Redis.
func needsBackends(mode string) bool {
	switch mode {
	case "copy", "once":
		return true
	default:
		return false
	}
}

// Wire constructs the concrete dependencies for cfg and returns them with a
// cleanup function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Pingers: map[string]handler.Pinger{}}
	mode := strings.ToLower(cfg.Mode)

	if needsBackends(mode) {
		// --- PostgreSQL ---
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			applied, err := pgClient.RunMigrations(ctx)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
			if len(applied) > 0 {
				logger.InfoContext(ctx, "wire: applied migrations", slog.Any("migrations", applied))
			}
		}

		pool := pgClient.Pool()
		deps.ActivityStore = postgres.NewActivityStore(pool)
		deps.PositionStore = postgres.NewPositionStore(pool)
		deps.StatsStore = postgres.NewTraderStatsStore(pool)
		deps.OrderStore = postgres.NewOrderStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.Pingers["postgres"] = pgClient

		// --- Redis ---
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.NonceRegistry = redis.NewNonceRegistry(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.Pingers["redis"] = redisClient
	}

	// --- S3 archive ---
	if cfg.S3.Enabled && needsBackends(mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), cfg.S3.Prefix)
		deps.Pingers["s3"] = pingFunc(s3Client.Health)
	}

	// --- Polymarket gateways ---
	deps.Data = polymarket.NewDataClient(httpConfig(cfg, cfg.Polymarket.DataHost, deps.RateLimiter))
	deps.Leaderboard = polymarket.NewLeaderboardClient(httpConfig(cfg, cfg.Polymarket.LeaderboardHost, deps.RateLimiter))
	if cfg.Polymarket.GammaHost != "" {
		deps.Gamma = polymarket.NewGammaClient(httpConfig(cfg, cfg.Polymarket.GammaHost, deps.RateLimiter))
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			notify.DefaultTelegramAPI,
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// pingFunc adapts a health method to handler.Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func httpConfig(cfg *config.Config, baseURL string, limiter domain.RateLimiter) polymarket.HTTPConfig {
	return polymarket.HTTPConfig{
		BaseURL:           baseURL,
		Timeout:           cfg.Polymarket.Timeout(),
		Limiter:           limiter,
		RequestsPerSecond: cfg.Polymarket.RequestsPerSecond,
	}
}

// trading is the signing side of a copy run: the key, the exchange client
// and the order builder.
type trading struct {
	signer     *crypto.Signer
	clob       *polymarket.ClobClient
	builder    *order.Builder
	collateral service.CollateralSource
}

// wireTrading loads the wallet key, obtains L2 credentials and selects the
// collateral source. The returned cleanup closes any RPC connection.
func wireTrading(ctx context.Context, cfg *config.Config, deps *Dependencies, logger *slog.Logger) (*trading, func(), error) {
	key, err := crypto.LoadKey(crypto.KeySource{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: wallet key: %w", err)
	}
	signer, err := crypto.NewSigner(key, int64(cfg.Polymarket.ChainID))
	if err != nil {
		return nil, nil, fmt.Errorf("wire: signer: %w", err)
	}

	sigType := domain.SignatureType(cfg.Polymarket.SignatureType)
	creds := crypto.APICreds{
		Key:        cfg.Polymarket.APIKey,
		Secret:     cfg.Polymarket.APISecret,
		Passphrase: cfg.Polymarket.APIPassphrase,
	}
	clob := polymarket.NewClobClient(httpConfig(cfg, cfg.Polymarket.ClobHost, deps.RateLimiter), signer, creds, sigType)
	if creds.Empty() {
		if _, err := clob.DeriveAPIKey(ctx); err != nil {
			return nil, nil, fmt.Errorf("wire: %w", err)
		}
		logger.InfoContext(ctx, "wire: derived CLOB API credentials",
			slog.String("signer", signer.Address().Hex()),
		)
	}

	builder, err := order.NewBuilder(signer, order.Config{
		Exchange:        cfg.Polymarket.ExchangeAddress,
		NegRiskExchange: cfg.Polymarket.NegRiskExchangeAddress,
		FeeRateBps:      uint64(cfg.Copy.FeeRateBps),
		SignatureType:   sigType,
		Funder:          cfg.Wallet.FunderAddress,
	}, order.NewNonceSequencer(deps.NonceRegistry, cfg.Copy.NonceTTL.Duration), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: %w", err)
	}

	t := &trading{signer: signer, clob: clob, builder: builder, collateral: clob}
	cleanup := func() {}
	if cfg.Polymarket.CollateralSource == "chain" {
		balance, rpc, err := polymarket.DialChainBalance(ctx, cfg.Polymarket.RPCURL,
			cfg.Polymarket.CollateralAddress, builder.Maker(), cfg.Polymarket.Timeout())
		if err != nil {
			return nil, nil, fmt.Errorf("wire: %w", err)
		}
		t.collateral = balance
		cleanup = rpc.Close
	}
	return t, cleanup, nil
}
