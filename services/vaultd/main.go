package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	engineconfig "acre/config"
	"acre/core"
	"acre/crypto"
	"acre/internal/passphrase"
	"acre/observability"
	"acre/observability/logging"
	telemetry "acre/observability/otel"
	"acre/services/vaultd/config"
	"acre/services/vaultd/keeper"
	"acre/services/vaultd/server"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/vaultd/config.yaml", "path to vaultd config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("ACRE_ENV"))
	logger := logging.Setup("vaultd", env)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal(logger, "load config", err)
	}
	logger = logging.SetupWithOptions("vaultd", env, logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	if cfg.Telemetry.Enabled {
		telemetryCfg := telemetry.ConfigFromEnv("vaultd", env)
		if cfg.Telemetry.Endpoint != "" {
			telemetryCfg.Endpoint = cfg.Telemetry.Endpoint
		}
		shutdownTelemetry, err := telemetry.Init(context.Background(), telemetryCfg)
		if err != nil {
			fatal(logger, "init telemetry", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown", slog.Any("error", err))
			}
		}()
	}

	engineCfg, err := engineconfig.Load(cfg.EngineConfig)
	if err != nil {
		fatal(logger, "load engine config", err)
	}
	genesis, err := engineconfig.ValidateConfig(engineCfg)
	if err != nil {
		fatal(logger, "validate engine config", err)
	}
	db, err := engineCfg.OpenStore()
	if err != nil {
		fatal(logger, "open store", err)
	}
	defer db.Close()

	node, err := core.OpenNode(genesis, db)
	if err != nil {
		fatal(logger, "open node", err)
	}
	node.SetLogger(logger)
	node.SetMetrics(observability.Vault())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Keeper.Enabled {
		identity, err := keeperIdentity(cfg, engineCfg, logger)
		if err != nil {
			fatal(logger, "resolve keeper identity", err)
		}
		k, err := keeper.New(node, identity, cfg.Keeper.Interval, logger.With(slog.String("component", "keeper")))
		if err != nil {
			fatal(logger, "configure keeper", err)
		}
		go k.Run(ctx)
		logger.Info("keeper started", slog.String("identity", identity.String()), slog.Duration("interval", cfg.Keeper.Interval))
	}

	limiter := server.NewRateLimiter(server.RateLimit{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           otelhttp.NewHandler(server.New(node, limiter, logger).Handler(), "vaultd"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("vaultd listening", slog.String("addr", cfg.ListenAddress))
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("forcing server stop", slog.Any("error", err))
			_ = httpServer.Close()
		}
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "serve http", err)
		}
	}
}

func keeperIdentity(cfg config.Config, engineCfg *engineconfig.Config, logger *slog.Logger) (crypto.Address, error) {
	if addr := cfg.KeeperAddress(); !addr.IsZero() {
		return addr, nil
	}
	pass, err := passphrase.NewSource(engineCfg.OperatorPassphraseEnv).Get()
	if err != nil {
		return crypto.ZeroAddress, err
	}
	key, err := engineCfg.LoadOperator(pass)
	if err != nil {
		return crypto.ZeroAddress, err
	}
	logger.Info("operator key loaded", slog.String("public_key", key.PublicKeyHex()))
	return key.Address(), nil
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
