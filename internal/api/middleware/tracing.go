// SPDX-License-Identifier: MIT

// Package middleware provides HTTP middleware for the gateway's ingress.
package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/apigw/internal/telemetry"
)

// Tracing creates a middleware that adds OpenTelemetry tracing to HTTP
// requests, extracting W3C trace context from incoming headers so traces
// continue across the gateway boundary.
func Tracing(tracerName string) func(http.Handler) http.Handler {
	tracer := telemetry.Tracer(tracerName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
			)
			defer span.End()

			tw := &tracingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(tw, r.WithContext(ctx))

			span.SetAttributes(telemetry.HTTPAttributes(r.Method, r.URL.Path, r.URL.String(), tw.status)...)
			if tw.status >= 500 {
				span.SetStatus(codes.Error, http.StatusText(tw.status))
			} else {
				span.SetStatus(codes.Ok, "")
			}
		})
	}
}

// tracingWriter wraps http.ResponseWriter to capture the status code.
type tracingWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (tw *tracingWriter) WriteHeader(status int) {
	if !tw.written {
		tw.status = status
		tw.written = true
	}
	tw.ResponseWriter.WriteHeader(status)
}

func (tw *tracingWriter) Write(b []byte) (int, error) {
	if !tw.written {
		tw.WriteHeader(http.StatusOK)
	}
	return tw.ResponseWriter.Write(b)
}

// Flush lets proxied responses stream through the tracing wrapper.
func (tw *tracingWriter) Flush() {
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
