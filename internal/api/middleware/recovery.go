// SPDX-License-Identifier: MIT

package middleware

import (
	"errors"
	"net/http"
	"runtime"

	"github.com/ManuGH/apigw/internal/httpx"
	"github.com/ManuGH/apigw/internal/log"
	"github.com/ManuGH/apigw/internal/metrics"
)

// Recoverer ensures that panics inside any downstream handler do not crash
// the process. It logs the panic with context and returns the uniform 500
// envelope; the client never sees a stack trace.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				// net/http uses this sentinel to abort a response whose
				// relay already started (e.g. an upstream dying mid-body).
				// It must propagate so the connection is torn down instead
				// of the envelope being spliced onto a partial body.
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				buf := make([]byte, 8192)
				n := runtime.Stack(buf, false)

				reqID := log.RequestIDFromContext(r.Context())
				logger := log.WithComponentFromContext(r.Context(), "panic-recovery")
				logger.Error().
					Str(log.FieldEvent, "panic.recovered").
					Str(log.FieldMethod, r.Method).
					Str(log.FieldPath, r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Interface("panic_value", rec).
					Str("stack_trace", string(buf[:n])).
					Msg("panic recovered in HTTP handler")

				metrics.IncError("internal", "gateway")

				httpx.WriteError(w, http.StatusInternalServerError,
					"Internal Server Error", "An unexpected error occurred", reqID)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
