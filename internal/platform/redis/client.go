// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package redis opens the go-redis client used for the reset-token ledger.
// Ledger entries carry their own TTL, so the keyspace stays bounded by the
// reset window.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 2 * time.Second

// Options tunes the client. Zero fields fall back to small-service defaults.
type Options struct {
	URL      string
	PoolSize int // default 5
}

func clientOptions(options Options) (*redis.Options, error) {
	parsed, err := redis.ParseURL(options.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	parsed.PoolSize = 5
	if options.PoolSize > 0 {
		parsed.PoolSize = options.PoolSize
	}
	parsed.MinIdleConns = 1
	parsed.DialTimeout = 3 * time.Second
	parsed.ReadTimeout = 2 * time.Second
	parsed.WriteTimeout = 2 * time.Second

	return parsed, nil
}

// NewClient builds the client and pings it once.
func NewClient(ctx context.Context, options Options, logger *slog.Logger) (*redis.Client, error) {
	parsed, err := clientOptions(options)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(parsed)
	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_client_connected",
		slog.String("addr", parsed.Addr),
		slog.Int("db", parsed.DB),
		slog.Int("pool_size", parsed.PoolSize),
	)
	return client, nil
}

// Ping checks the server with a short deadline of its own.
func Ping(ctx context.Context, client redis.Cmdable) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}
	return nil
}
