// Command polycopy replicates a Polymarket trader's recent buys onto the
// operator's wallet. It loads configuration, validates it, wires
// dependencies, sets up signal handling, and runs the configured mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/polycopy/internal/app"
	"github.com/alanyoungcy/polycopy/internal/config"
	"github.com/alanyoungcy/polycopy/internal/crypto"
)

// options are the command-line flags.
type options struct {
	configPath string
	mode       string
	target     string
	epoch      string
	keyOut     string
}

const epochUsage = "override the replay epoch: h (hour), d (day), m (month) or y (year)"

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("polycopy", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "config.toml", "path to configuration file (empty to skip)")
	fs.StringVar(&o.mode, "mode", "", "override mode: copy, once or leaderboard")
	fs.StringVar(&o.target, "target", "", "override the wallet to copy")
	fs.StringVar(&o.epoch, "epoch", "", epochUsage)
	fs.StringVar(&o.keyOut, "encrypt-key-out", "", "encrypt wallet.private_key with wallet.key_password to this path and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	// Logs go to stderr; once and leaderboard print their results on stdout.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", opts.configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if opts.keyOut != "" {
		if err := encryptKey(cfg, opts.keyOut); err != nil {
			logger.Error("failed to encrypt key", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("encrypted key written", slog.String("path", opts.keyOut))
		return
	}

	if opts.mode != "" {
		cfg.Mode = opts.mode
	}
	if opts.target != "" {
		cfg.Copy.Target = opts.target
	}
	if opts.epoch != "" {
		cfg.Copy.Epoch = opts.epoch
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("polycopy starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", opts.configPath),
		slog.Any("settings", config.RedactedConfig(cfg)),
	)

	application := app.New(cfg, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error", slog.String("error", err.Error()))
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			application.Close()
			os.Exit(1)
		}
	}

	logger.Info("polycopy stopped")
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func encryptKey(cfg *config.Config, path string) error {
	if cfg.Wallet.PrivateKey == "" {
		return errors.New("wallet.private_key is not set")
	}
	if cfg.Wallet.KeyPassword == "" {
		return errors.New("wallet.key_password is not set")
	}
	key, err := crypto.LoadKey(crypto.KeySource{RawPrivateKey: cfg.Wallet.PrivateKey})
	if err != nil {
		return err
	}
	return crypto.WriteKeyFile(path, key, cfg.Wallet.KeyPassword)
}
