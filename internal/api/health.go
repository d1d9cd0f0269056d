// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/constants"
	"github.com/taibuivan/accounts/internal/platform/respond"
)

// readinessTimeout bounds one /ready call, all checks included.
const readinessTimeout = 2 * time.Second

// Check tests that a single dependency is reachable.
type Check func(ctx context.Context) error

// HealthDependencies are checked by /ready. A nil check is skipped.
type HealthDependencies struct {
	CheckDatabase Check // PostgreSQL pool
	CheckCache    Check // Redis reset-token ledger
}

type checkResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewHealthHandlers returns the liveness (/health) and readiness (/ready)
// handlers. Liveness never touches a dependency. Readiness answers 503
// SERVICE_UNAVAILABLE with one detail per failed dependency.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	type dependency struct {
		name  string
		check Check
	}
	var checked []dependency
	for _, candidate := range []dependency{{"postgres", deps.CheckDatabase}, {"redis", deps.CheckCache}} {
		if candidate.check != nil {
			checked = append(checked, candidate)
		}
	}

	liveness = func(writer http.ResponseWriter, _ *http.Request) {
		respond.OK(writer, map[string]string{constants.FieldStatus: "ok"})
	}

	readiness = func(writer http.ResponseWriter, request *http.Request) {
		ctx, cancel := context.WithTimeout(request.Context(), readinessTimeout)
		defer cancel()

		results := make([]checkResult, len(checked))
		var group errgroup.Group
		for i, target := range checked {
			results[i] = checkResult{Name: target.name, OK: true}
			group.Go(func() error {
				if err := target.check(ctx); err != nil {
					results[i].OK = false
					results[i].Error = err.Error()
					logger.ErrorContext(ctx, "readiness_check_failed",
						slog.String("dependency", target.name),
						slog.Any("error", err),
					)
				}
				return nil
			})
		}
		_ = group.Wait()

		var failed []apperr.FieldError
		for _, result := range results {
			if !result.OK {
				failed = append(failed, apperr.FieldError{Field: result.Name, Message: result.Error})
			}
		}
		if len(failed) > 0 {
			unavailable := apperr.ServiceUnavailable("One or more dependencies are unavailable")
			unavailable.Details = failed
			respond.Error(writer, request, unavailable)
			return
		}

		respond.OK(writer, map[string]any{
			constants.FieldStatus: "ready",
			constants.FieldChecks: results,
		})
	}

	return liveness, readiness
}
