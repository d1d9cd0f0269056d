// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/accounts/internal/platform/constants"
)

// RedisResetLedger implements [ResetLedger] using Redis.
//
// Only a SHA-256 fingerprint of the token is stored, never the token itself.
type RedisResetLedger struct {
	client redis.Cmdable
}

// NewRedisResetLedger creates a new Redis-backed ResetLedger.
func NewRedisResetLedger(client redis.Cmdable) *RedisResetLedger {
	return &RedisResetLedger{client: client}
}

/*
Consume atomically records a redeemed reset token.

Parameters:
  - ctx: context.Context
  - token: string (verified reset token)
  - ttl: time.Duration (at least the token's remaining lifetime)

Returns:
  - bool: true on first use, false if the token was already redeemed
  - error: Connectivity errors
*/
func (ledger *RedisResetLedger) Consume(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	first, err := ledger.client.SetNX(ctx, ledgerKey(token), time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis_reset_ledger_consume_failed: %w", err)
	}

	return first, nil
}

// Release deletes the token's fingerprint, making it redeemable again.
func (ledger *RedisResetLedger) Release(ctx context.Context, token string) error {
	if err := ledger.client.Del(ctx, ledgerKey(token)).Err(); err != nil {
		return fmt.Errorf("redis_reset_ledger_release_failed: %w", err)
	}
	return nil
}

func ledgerKey(token string) string {
	return constants.RedisPrefixUsedResetToken + fingerprint(token)
}

func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
