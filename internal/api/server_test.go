// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/accounts/internal/api"
	"github.com/taibuivan/accounts/internal/platform/mail"
	"github.com/taibuivan/accounts/internal/platform/metrics"
	"github.com/taibuivan/accounts/internal/platform/sec"
	"github.com/taibuivan/accounts/internal/users/account"
)

type serverConfig struct{}

func (serverConfig) IsDevelopment() bool      { return true }
func (serverConfig) AllowedOrigins() []string { return nil }
func (serverConfig) Port() string             { return "0" }

// unusedRepository fails every call; the routes under test never reach it.
type unusedRepository struct{ account.Repository }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newServer(t *testing.T, deps api.HealthDependencies) (*api.Server, *metrics.Metrics) {
	t.Helper()

	tokens, err := sec.NewTokenService(sec.TokenConfig{
		Secret:    "server-test-secret-server-test-secret",
		AccessTTL: time.Minute,
		ResetTTL:  time.Hour,
	})
	require.NoError(t, err)

	logger := discardLogger()
	m := metrics.New("accounts_test", prometheus.NewRegistry())
	service := account.NewService(unusedRepository{}, nil, sec.NewBcryptHasher(bcrypt.MinCost), tokens,
		mail.NewLogSender(logger), account.ServiceConfig{}, logger, account.WithMetrics(m))

	liveness, readiness := api.NewHealthHandlers(deps, logger)
	server := api.NewServer(serverConfig{}, logger, tokens, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Account:   account.NewHandler(service, account.HandlerConfig{}),
		Metrics:   m,
	})
	return server, m
}

func get(server *api.Server, path string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
	return recorder
}

func TestHealth(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	broken := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		deps     api.HealthDependencies
		status   int
		contains string
	}{
		{"all_ready", api.HealthDependencies{CheckDatabase: healthy, CheckCache: healthy}, http.StatusOK, `"status":"ready"`},
		{"database_down", api.HealthDependencies{CheckDatabase: broken, CheckCache: healthy}, http.StatusServiceUnavailable, `"details":[{"field":"postgres","message":"connection refused"}]`},
		{"cache_down", api.HealthDependencies{CheckDatabase: healthy, CheckCache: broken}, http.StatusServiceUnavailable, `"code":"SERVICE_UNAVAILABLE"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newServer(t, tt.deps)

			live := get(server, "/health")
			assert.Equal(t, http.StatusOK, live.Code)

			ready := get(server, "/ready")
			assert.Equal(t, tt.status, ready.Code)
			assert.Contains(t, ready.Body.String(), tt.contains)
		})
	}
}

func TestServer_RoutesAndMetrics(t *testing.T) {
	server, _ := newServer(t, api.HealthDependencies{})

	recorder := get(server, "/api/v1/users/alice")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))

	recorder = get(server, "/api/v1/nowhere")
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	exposition := get(server, "/metrics")
	require.Equal(t, http.StatusOK, exposition.Code)
	body := exposition.Body.String()
	assert.True(t, strings.Contains(body, "accounts_test_http_requests_total"), body)
	assert.Contains(t, body, `status="401"`)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	server, _ := newServer(t, api.HealthDependencies{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx, time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestServer_CORSAndPublicAuthRoutes(t *testing.T) {
	server, _ := newServer(t, api.HealthDependencies{})

	t.Run("rejected token still carries cors headers", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/api/v1/users/alice", nil)
		request.Header.Set("Origin", "http://frontend.test")
		request.Header.Set("Authorization", "Bearer expired-or-garbage")
		recorder := httptest.NewRecorder()

		server.Handler().ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Equal(t, "http://frontend.test", recorder.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("stale token does not block public auth routes", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"","password":""}`))
		request.Header.Set("Authorization", "Bearer expired-or-garbage")
		recorder := httptest.NewRecorder()

		server.Handler().ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, recorder.Body.String(), `"code":"VALIDATION_ERROR"`)
	})
}
