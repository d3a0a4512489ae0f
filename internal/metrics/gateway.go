// SPDX-License-Identifier: MIT

// Package metrics holds the gateway's Prometheus collectors. All collectors
// are safe for concurrent use; callers only ever increment or observe.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "path", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_active_connections",
		Help: "Current number of in-flight requests in the API gateway",
	})

	httpRequestSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_size_bytes",
		Help:    "Size of HTTP requests in bytes",
		Buckets: prometheus.ExponentialBuckets(100, 10, 5),
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_response_size_bytes",
		Help:    "Size of HTTP responses in bytes",
		Buckets: prometheus.ExponentialBuckets(100, 10, 5),
	}, []string{"method", "path", "status"})

	serviceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "service_requests_total",
		Help: "Total number of requests proxied to downstream services",
	}, []string{"service", "method", "status_code"})

	serviceRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "service_request_duration_seconds",
		Help:    "Duration of proxied calls to downstream services in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"service", "method", "outcome"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_errors_total",
		Help: "Total number of errors in the API gateway",
	}, []string{"type", "service"})
)

// RecordHTTPRequest records one served inbound request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration, reqBytes, respBytes int64) {
	code := strconv.Itoa(status)
	httpRequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	if reqBytes > 0 {
		httpRequestSize.WithLabelValues(method, path).Observe(float64(reqBytes))
	}
	if respBytes > 0 {
		httpResponseSize.WithLabelValues(method, path, code).Observe(float64(respBytes))
	}
}

// IncInFlight tracks the in-flight request gauge; the returned function
// decrements it.
func IncInFlight() func() {
	httpRequestsInFlight.Inc()
	return httpRequestsInFlight.Dec
}

// RecordProxyOutcome records exactly one observation for one attempted
// proxied call. status is 0 when the call failed before an upstream status
// was received; errKind is empty on success.
func RecordProxyOutcome(service, method string, status int, duration time.Duration, errKind string) {
	outcome := "success"
	if errKind != "" {
		outcome = errKind
		errorsTotal.WithLabelValues(errKind, service).Inc()
	}
	statusLabel := "none"
	if status > 0 {
		statusLabel = strconv.Itoa(status)
	}
	serviceRequestsTotal.WithLabelValues(service, method, statusLabel).Inc()
	serviceRequestDuration.WithLabelValues(service, method, outcome).Observe(duration.Seconds())
}

// IncError counts a gateway-side error that is not tied to a proxied call,
// e.g. a recovered panic.
func IncError(kind, service string) {
	errorsTotal.WithLabelValues(kind, service).Inc()
}
