// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/ctxutil"
	"github.com/taibuivan/accounts/internal/platform/respond"
)

// PanicRecovery turns a handler panic into a generic 500 envelope. The panic
// value and stack go to the request logger, falling back to logger when the
// request never reached [StructuredLogger].
func PanicRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				// Let net/http abort the connection as it normally would.
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				ctx := request.Context()
				requestLogger := ctxutil.GetLogger(ctx)
				if requestLogger == slog.Default() && logger != nil {
					requestLogger = logger
				}
				requestLogger.ErrorContext(ctx, "panic_recovered",
					slog.Any("panic", recovered),
					slog.String("stack", string(debug.Stack())),
				)

				respond.Error(writer, request, apperr.Internal(fmt.Errorf("panic: %v", recovered)))
			}()

			next.ServeHTTP(writer, request)
		})
	}
}
