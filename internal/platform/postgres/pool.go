// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres opens the pgx connection pool that backs the account store.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	connectTimeout = 5 * time.Second
	pingTimeout    = 2 * time.Second
)

// Options tunes the pool. Zero fields fall back to the defaults below.
type Options struct {
	DSN string

	MaxConns int32 // default 20
	MinConns int32 // default 2

	// StatementTimeout is set per connection so a stuck query cannot outlive
	// the HTTP request that issued it. Zero leaves the server setting alone.
	StatementTimeout time.Duration
}

// poolConfig turns Options into a pgxpool configuration without dialling.
func poolConfig(options Options) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(options.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	cfg.MaxConns = orDefault(options.MaxConns, 20)
	cfg.MinConns = min(orDefault(options.MinConns, 2), cfg.MaxConns)
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 10 * time.Minute
	cfg.HealthCheckPeriod = time.Minute
	cfg.ConnConfig.ConnectTimeout = connectTimeout

	if timeout := options.StatementTimeout; timeout > 0 {
		statement := fmt.Sprintf("SET statement_timeout = %d", timeout.Milliseconds())
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, statement)
			return err
		}
	}

	return cfg, nil
}

func orDefault(value, fallback int32) int32 {
	if value > 0 {
		return value
	}
	return fallback
}

// NewPool connects and pings before returning, so a bad DSN or an
// unreachable server fails startup instead of the first request.
func NewPool(ctx context.Context, options Options, logger *slog.Logger) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(options)
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}
	if err := Ping(connectCtx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres_pool_connected",
		slog.String("host", cfg.ConnConfig.Host),
		slog.String("database", cfg.ConnConfig.Database),
		slog.Int("max_conns", int(cfg.MaxConns)),
	)
	return pool, nil
}

// Pinger is satisfied by *pgxpool.Pool and by pgxmock pools.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks the pool with a short deadline of its own.
func Ping(ctx context.Context, pool Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}
	return nil
}
