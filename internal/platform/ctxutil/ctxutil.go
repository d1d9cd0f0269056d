// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil stores per-request values in a [context.Context]: the
// correlation id, the request-scoped logger and the verified access claims.
//
// Keys are unexported struct types, so no other package can read or
// overwrite these values except through the helpers below.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/accounts/internal/platform/sec"
)

type (
	requestIDKey struct{}
	loggerKey    struct{}
	claimsKey    struct{}
)

// # Request Tracing

// WithRequestID attaches the X-Request-ID correlation value.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns the correlation value, or "" outside a request.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// # Structured Logging

// WithLogger attaches the request-scoped logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the request-scoped logger, falling back to [slog.Default].
func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// # Identity & Access

// WithAuthUser attaches verified access-token claims.
func WithAuthUser(ctx context.Context, claims *sec.AuthClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetAuthUser returns the verified claims, or nil for anonymous requests.
func GetAuthUser(ctx context.Context) *sec.AuthClaims {
	claims, _ := ctx.Value(claimsKey{}).(*sec.AuthClaims)
	return claims
}

// GetIdentity returns the caller identity asserted by the access token.
// The boolean is false for anonymous requests.
func GetIdentity(ctx context.Context) (sec.Identity, bool) {
	claims := GetAuthUser(ctx)
	if claims == nil {
		return sec.Identity{}, false
	}
	return claims.Identity(), true
}
