// SPDX-License-Identifier: MIT

package proxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/apigw/internal/config"
	"github.com/ManuGH/apigw/internal/httpx"
	xglog "github.com/ManuGH/apigw/internal/log"
)

func newTestGateway(t *testing.T, services map[string]config.ServiceConfig) *Gateway {
	t.Helper()
	cfg := config.Defaults()
	cfg.Services = services
	require.NoError(t, config.Validate(cfg))
	reg, err := config.NewRegistry(cfg)
	require.NoError(t, err)
	return New(reg, Options{Logger: zerolog.New(io.Discard)})
}

func doRequest(g *Gateway, method, path, requestID string, body io.Reader) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, body)
	r = r.WithContext(xglog.ContextWithRequestID(r.Context(), requestID))
	w := httptest.NewRecorder()
	g.Handler().ServeHTTP(w, r)
	return w
}

func TestDispatchRelaysResponseVerbatim(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/42", r.URL.Path)
		assert.Equal(t, "req-1", r.Header.Get(HeaderRequestID))
		w.Header().Set("X-Upstream", "product-service")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"42","name":"Widget"}`))
	}))
	defer backend.Close()

	g := newTestGateway(t, map[string]config.ServiceConfig{
		"product": {URL: backend.URL, Timeout: 5 * time.Second},
	})

	w := doRequest(g, http.MethodGet, "/api/product/products/42", "req-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"id":"42","name":"Widget"}`, w.Body.String())
	assert.Equal(t, "product-service", w.Header().Get("X-Upstream"))
}

func TestDispatchForwardsMethodBodyAndQuery(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/carts", r.URL.Path)
		assert.Equal(t, "userId=7", r.URL.RawQuery)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, `{"productId":"42"}`, string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer backend.Close()

	g := newTestGateway(t, map[string]config.ServiceConfig{
		"cart": {URL: backend.URL, Timeout: 5 * time.Second},
	})

	w := doRequest(g, http.MethodPost, "/api/cart/carts?userId=7", "req-2",
		strings.NewReader(`{"productId":"42"}`))

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestDispatchRelaysBackendErrorsUntranslated(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such product", http.StatusBadRequest)
	}))
	defer backend.Close()

	g := newTestGateway(t, map[string]config.ServiceConfig{
		"product": {URL: backend.URL, Timeout: 5 * time.Second},
	})

	w := doRequest(g, http.MethodGet, "/api/product/products/none", "req-3", nil)

	// Backend-originated statuses pass through; only transport failures are
	// translated.
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no such product\n", w.Body.String())
}

func TestDispatchUnknownServiceReturns404Envelope(t *testing.T) {
	g := newTestGateway(t, map[string]config.ServiceConfig{
		"user": {URL: "http://localhost:3001", Timeout: time.Second},
	})

	w := doRequest(g, http.MethodGet, "/api/nonexistent/foo", "req-4", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var env httpx.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "Not Found", env.Error)
	assert.Equal(t, "The requested resource at /nonexistent/foo was not found", env.Message)
	assert.Equal(t, "req-4", env.RequestID)
}

func TestDispatchConnectionRefusedReturns500Envelope(t *testing.T) {
	// Reserve a port, then close it so the connection is refused.
	closed := httptest.NewServer(http.NotFoundHandler())
	addr := closed.URL
	closed.Close()

	g := newTestGateway(t, map[string]config.ServiceConfig{
		"cart": {URL: addr, Timeout: 2 * time.Second},
	})

	w := doRequest(g, http.MethodPost, "/api/cart/carts", "req-5", strings.NewReader("{}"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var env httpx.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "Error communicating with cart service", env.Error)
	assert.Equal(t, "req-5", env.RequestID)
	assert.NotContains(t, env.Message, addr, "envelope must not leak backend topology")
}

func TestDispatchTimeoutBounded(t *testing.T) {
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer backend.Close()
	defer close(release)

	g := newTestGateway(t, map[string]config.ServiceConfig{
		"order": {URL: backend.URL, Timeout: 100 * time.Millisecond},
	})

	start := time.Now()
	w := doRequest(g, http.MethodGet, "/api/order/orders", "req-6", nil)
	elapsed := time.Since(start)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Less(t, elapsed, 2*time.Second, "timeout must bound latency")

	var env httpx.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "Error communicating with order service", env.Error)
}

func TestDispatchTimeoutEnvelopeMatchesRefusedEnvelope(t *testing.T) {
	// Timeout and connection-refused must be indistinguishable to clients.
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	closed := httptest.NewServer(http.NotFoundHandler())
	closedAddr := closed.URL
	closed.Close()

	g := newTestGateway(t, map[string]config.ServiceConfig{
		"user": {URL: slow.URL, Timeout: 50 * time.Millisecond},
	})
	g2 := newTestGateway(t, map[string]config.ServiceConfig{
		"user": {URL: closedAddr, Timeout: 50 * time.Millisecond},
	})

	w1 := doRequest(g, http.MethodGet, "/api/user/profile", "same-id", nil)
	w2 := doRequest(g2, http.MethodGet, "/api/user/profile", "same-id", nil)

	assert.Equal(t, w1.Code, w2.Code)
	assert.Equal(t, w1.Body.String(), w2.Body.String())
}

// serviceRequestCount sums the service_requests_total counter for one
// service across all label combinations.
func serviceRequestCount(t *testing.T, service string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != "service_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "service" && lp.GetValue() == service {
					total += m.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}

func TestDispatchRecordsOutcomeWhenRelayAborts(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"42","na`))
		w.(http.Flusher).Flush()
		panic(http.ErrAbortHandler)
	}))
	defer backend.Close()

	g := newTestGateway(t, map[string]config.ServiceConfig{
		"product": {URL: backend.URL, Timeout: 5 * time.Second},
	})

	before := serviceRequestCount(t, "product")

	r := httptest.NewRequest(http.MethodGet, "/api/product/products/42", nil)
	r = r.WithContext(xglog.ContextWithRequestID(r.Context(), "abort-1"))
	// Mark the request as served by a real http.Server so ReverseProxy
	// raises http.ErrAbortHandler instead of suppressing it in tests.
	r = r.WithContext(context.WithValue(r.Context(), http.ServerContextKey, &http.Server{}))
	w := httptest.NewRecorder()

	// The abort sentinel must pass through dispatch untouched so the
	// server tears the connection down.
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		g.Handler().ServeHTTP(w, r)
	})

	// The attempt is still observed exactly once.
	assert.Equal(t, before+1, serviceRequestCount(t, "product"))
}

func TestDispatchPreservesEncodedPathSeparators(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/a%2Fb", r.URL.EscapedPath())
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	g := newTestGateway(t, map[string]config.ServiceConfig{
		"product": {URL: backend.URL, Timeout: 5 * time.Second},
	})

	w := doRequest(g, http.MethodGet, "/api/product/files/a%2Fb", "req-enc", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDispatchClientDisconnectCancelsUpstream(t *testing.T) {
	upstreamDone := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		close(upstreamDone)
	}))
	defer backend.Close()

	g := newTestGateway(t, map[string]config.ServiceConfig{
		"user": {URL: backend.URL, Timeout: 10 * time.Second},
	})

	ctx, cancel := context.WithCancel(context.Background())
	r := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	r = r.WithContext(xglog.ContextWithRequestID(ctx, "req-7"))
	w := httptest.NewRecorder()

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	g.Handler().ServeHTTP(w, r)

	// No envelope is written for a client that is already gone.
	assert.Zero(t, w.Body.Len())

	select {
	case <-upstreamDone:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream call was not cancelled after client disconnect")
	}
}

func TestDispatchConcurrentIsolation(t *testing.T) {
	slowRelease := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-slowRelease:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer fast.Close()

	g := newTestGateway(t, map[string]config.ServiceConfig{
		"order":   {URL: slow.URL, Timeout: 5 * time.Second},
		"product": {URL: fast.URL, Timeout: 5 * time.Second},
	})

	var fastElapsed time.Duration
	var eg errgroup.Group
	eg.Go(func() error {
		doRequest(g, http.MethodGet, "/api/order/orders", "slow-req", nil)
		return nil
	})
	eg.Go(func() error {
		time.Sleep(10 * time.Millisecond) // let the slow call start first
		start := time.Now()
		w := doRequest(g, http.MethodGet, "/api/product/products", "fast-req", nil)
		fastElapsed = time.Since(start)
		if w.Code != http.StatusOK {
			t.Errorf("fast request failed: %d", w.Code)
		}
		return nil
	})

	time.AfterFunc(500*time.Millisecond, func() { close(slowRelease) })
	require.NoError(t, eg.Wait())

	assert.Less(t, fastElapsed, 400*time.Millisecond,
		"a slow backend must not delay requests to other services")
}

func TestSplitSegment(t *testing.T) {
	tests := []struct {
		path      string
		name      string
		remainder string
	}{
		{"/product/products/42", "product", "/products/42"},
		{"/cart/carts", "cart", "/carts"},
		{"/user", "user", "/"},
		{"/user/", "user", "/"},
		{"/", "", "/"},
	}
	for _, tt := range tests {
		name, remainder := splitSegment(tt.path)
		assert.Equal(t, tt.name, name, "path %q", tt.path)
		assert.Equal(t, tt.remainder, remainder, "path %q", tt.path)
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrKindTimeout, Classify(context.DeadlineExceeded))
	assert.Equal(t, ErrKindCanceled, Classify(context.Canceled))
	assert.Equal(t, ErrKind(""), Classify(nil))
	assert.Equal(t, ErrKindProtocol, Classify(io.ErrUnexpectedEOF))
}
