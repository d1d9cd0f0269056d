// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package constants holds the fixed names and timings shared by the server,
// the middleware stack and the CLI.
package constants

import "time"

const (
	AppName    = "accounts-api"
	AppVersion = "0.1.0-dev"

	// MetricsNamespace prefixes every exported Prometheus series.
	MetricsNamespace = "accounts"
)

// HTTP server budgets. Handlers share GlobalRequestTimeout through the
// request context; the others are set on [http.Server].
const (
	DefaultReadHeaderTimeout = 2 * time.Second
	DefaultReadTimeout       = 5 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 2 * time.Minute
	GlobalRequestTimeout     = 30 * time.Second
)

// Process lifecycle budgets.
const (
	StartupTimeout  = 30 * time.Second
	ShutdownTimeout = 30 * time.Second
)

// Request and response headers read or written by the middleware.
const (
	HeaderAuthorization = "Authorization"
	HeaderOrigin        = "Origin"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXRequestID    = "X-Request-ID"
)

// TokenTypeBearer is both the Authorization scheme and the token_type
// returned by login.
const TokenTypeBearer = "Bearer"

// Defaults of the seed-admin command.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminEmail    = "admin@example.com"
)

// Keys of the readiness response body.
const (
	FieldStatus = "status"
	FieldChecks = "checks"
)

// RedisPrefixUsedResetToken namespaces consumed reset-token fingerprints.
const RedisPrefixUsedResetToken = "accounts:reset_token:used:"
