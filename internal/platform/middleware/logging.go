// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/accounts/internal/platform/ctxutil"
)

// accountSlot is filled in by [Authenticate], which runs deeper in the chain
// than [StructuredLogger] and cannot hand it a new context.
type accountSlot struct {
	id int64
}

type accountSlotKey struct{}

func noteAccount(ctx context.Context, id int64) {
	if slot, ok := ctx.Value(accountSlotKey{}).(*accountSlot); ok {
		slot.id = id
	}
}

// StructuredLogger puts a request-scoped logger into the context and writes
// one "http_request_finished" entry per request. The level follows the
// response class: 5xx at error, 4xx at warn, everything else at info.
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			started := time.Now()

			requestLogger := logger.With(
				slog.String("request_id", ctxutil.GetRequestID(request.Context())),
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
				slog.String("ip", RealIP(request)),
			)

			slot := &accountSlot{}
			ctx := ctxutil.WithLogger(request.Context(), requestLogger)
			ctx = context.WithValue(ctx, accountSlotKey{}, slot)

			wrapped := chimw.NewWrapResponseWriter(writer, request.ProtoMajor)
			next.ServeHTTP(wrapped, request.WithContext(ctx))

			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []slog.Attr{
				slog.Int("status", status),
				slog.Int64("latency_ms", time.Since(started).Milliseconds()),
				slog.Int("bytes", wrapped.BytesWritten()),
				slog.String("user_agent", request.UserAgent()),
			}
			if slot.id != 0 {
				attrs = append(attrs, slog.Int64("user_id", slot.id))
			}

			requestLogger.LogAttrs(ctx, levelFor(status), "http_request_finished", attrs...)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
