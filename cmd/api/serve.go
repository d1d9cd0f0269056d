// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/taibuivan/accounts/internal/api"
	"github.com/taibuivan/accounts/internal/platform/config"
	"github.com/taibuivan/accounts/internal/platform/constants"
	"github.com/taibuivan/accounts/internal/platform/mail"
	"github.com/taibuivan/accounts/internal/platform/metrics"
	"github.com/taibuivan/accounts/internal/platform/migration"
	pgstore "github.com/taibuivan/accounts/internal/platform/postgres"
	redisstore "github.com/taibuivan/accounts/internal/platform/redis"
	"github.com/taibuivan/accounts/internal/platform/sec"
	"github.com/taibuivan/accounts/internal/users/account"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Connect to PostgreSQL and Redis, apply pending migrations and serve
the accounts API until SIGINT or SIGTERM.`,
		RunE: runServe,
	}
}

// # Startup Sequence
//
//  1. Load configuration and build the logger.
//  2. Connect to PostgreSQL (pgxpool) and Redis.
//  3. Run database migrations (idempotent).
//  4. Wire token service, mail sender, metrics and the account service.
//  5. Start HTTP server with graceful shutdown.
func runServe(_ *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), constants.StartupTimeout)
	defer startupCancel()

	// ── 1. Storage ────────────────────────────────────────────────────────
	pool, rdb, err := connect(startupCtx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores(log, pool, rdb)

	// ── 2. Migrations ─────────────────────────────────────────────────────
	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		return startupFailure(log, "run migrations", err)
	}

	// ── 3. Domain Wiring ──────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(constants.MetricsNamespace, registry)

	tokens, service, err := newAccountService(cfg, log, pool, rdb, appMetrics)
	if err != nil {
		return startupFailure(log, "initialize account service", err)
	}

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
		CheckCache:    func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
	}, log)

	server := api.NewServer(cfg, log, tokens, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Account:   account.NewHandler(service, account.HandlerConfig{ExposeResetTokens: cfg.ExposeResetTokens}),
		Metrics:   appMetrics,
	})

	// ── 4. Serve until SIGINT/SIGTERM ──────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, constants.ShutdownTimeout); err != nil {
		log.Error("server_error", slog.Any("error", err))
		return err
	}

	log.Info("server_stopped_cleanly")
	return nil
}

// connect opens the PostgreSQL pool and the Redis client.
func connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (*pgxpool.Pool, *goredis.Client, error) {
	pool, err := pgstore.NewPool(ctx, pgstore.Options{
		DSN:              cfg.DatabaseURL,
		MaxConns:         cfg.DatabaseMaxConns,
		MinConns:         cfg.DatabaseMinConns,
		StatementTimeout: cfg.StatementTimeout,
	}, log)
	if err != nil {
		return nil, nil, startupFailure(log, "connect to postgres", err)
	}

	rdb, err := redisstore.NewClient(ctx, redisstore.Options{URL: cfg.RedisURL, PoolSize: cfg.RedisPoolSize}, log)
	if err != nil {
		pool.Close()
		return nil, nil, startupFailure(log, "connect to redis", err)
	}

	return pool, rdb, nil
}

func closeStores(log *slog.Logger, pool *pgxpool.Pool, rdb *goredis.Client) {
	log.Info("closing_redis_client")
	if err := rdb.Close(); err != nil {
		log.Error("redis_close_error", slog.Any("error", err))
	}
	log.Info("closing_postgres_pool")
	pool.Close()
}

// newAccountService wires the account use cases over the given stores.
func newAccountService(
	cfg *config.Config,
	log *slog.Logger,
	pool *pgxpool.Pool,
	rdb *goredis.Client,
	appMetrics *metrics.Metrics,
) (*sec.TokenService, *account.Service, error) {
	tokens, err := sec.NewTokenService(sec.TokenConfig{
		Secret:    cfg.TokenSecret,
		Issuer:    cfg.TokenIssuer,
		AccessTTL: cfg.AccessTokenTTL.Duration(),
		ResetTTL:  cfg.ResetTokenTTL,
	})
	if err != nil {
		return nil, nil, err
	}

	service := account.NewService(
		account.NewPostgresRepository(pool),
		account.NewRedisResetLedger(rdb),
		sec.NewBcryptHasher(cfg.BcryptCost),
		tokens,
		newMailSender(cfg, log),
		account.ServiceConfig{
			PasswordMinLength: cfg.PasswordMinLength,
			FrontendURL:       cfg.FrontendURL,
			MailTimeout:       cfg.MailTimeout,
		},
		log,
		account.WithMetrics(appMetrics),
	)

	return tokens, service, nil
}

// newMailSender uses SMTP when a relay is configured and logs mail otherwise.
func newMailSender(cfg *config.Config, log *slog.Logger) mail.Sender {
	if cfg.SMTPHost == "" {
		log.Warn("smtp_not_configured", slog.String("fallback", "log"))
		return mail.NewLogSender(log)
	}

	log.Info("smtp_configured", slog.String("addr", cfg.SMTPHost+":"+strconv.Itoa(cfg.SMTPPort)))
	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
}

// startupFailure logs a structured startup error and returns it wrapped.
func startupFailure(log *slog.Logger, step string, err error) error {
	log.Error("startup_failure", slog.String("context", step), slog.Any("error", err))
	return fmt.Errorf("%s: %w", step, err)
}
