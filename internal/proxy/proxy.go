// SPDX-License-Identifier: MIT

// Package proxy implements the gateway's router/dispatcher: it maps inbound
// /api/<service> paths to registered backends, forwards the rewritten request
// with the service's timeout, and translates transport failures into the
// uniform client-facing envelope.
package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ManuGH/apigw/internal/config"
	"github.com/ManuGH/apigw/internal/httpx"
	xglog "github.com/ManuGH/apigw/internal/log"
	"github.com/ManuGH/apigw/internal/metrics"
)

// HeaderRequestID is the correlation header threaded through every hop.
const HeaderRequestID = httpx.HeaderRequestID

// Options configures the gateway dispatcher.
type Options struct {
	Logger zerolog.Logger

	// Transport overrides the outbound transport (tests). Defaults to a
	// pooled http.Transport.
	Transport http.RoundTripper

	// TracingEnabled wraps the outbound transport with OpenTelemetry
	// instrumentation.
	TracingEnabled bool
}

// Gateway dispatches inbound API requests to registered backend services.
// It is immutable after construction and safe for concurrent use.
type Gateway struct {
	registry *config.Registry
	proxies  map[string]*httputil.ReverseProxy
	logger   zerolog.Logger
}

// New builds one reverse proxy per registered service.
func New(registry *config.Registry, opts Options) *Gateway {
	transport := opts.Transport
	if transport == nil {
		transport = defaultTransport()
	}
	if opts.TracingEnabled {
		transport = otelhttp.NewTransport(transport)
	}

	g := &Gateway{
		registry: registry,
		proxies:  make(map[string]*httputil.ReverseProxy, registry.Len()),
		logger:   opts.Logger,
	}
	for _, svc := range registry.Services() {
		g.proxies[svc.Name] = g.buildProxy(svc, transport)
	}
	return g
}

func defaultTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// outcomeState carries the failure classification from the proxy's
// ErrorHandler back to the dispatch loop, which records the single
// ProxyOutcome for the attempt.
type outcomeState struct {
	errKind ErrKind
}

type stateKey struct{}

func stateFromContext(ctx context.Context) *outcomeState {
	st, _ := ctx.Value(stateKey{}).(*outcomeState)
	return st
}

func (g *Gateway) buildProxy(svc *config.ServiceDescriptor, transport http.RoundTripper) *httputil.ReverseProxy {
	target := svc.BaseURL

	p := httputil.NewSingleHostReverseProxy(target)
	p.Transport = transport
	p.ErrorLog = nil // errors are handled below

	director := p.Director
	p.Director = func(req *http.Request) {
		director(req)
		req.Host = target.Host
		if rid := xglog.RequestIDFromContext(req.Context()); rid != "" {
			req.Header.Set(HeaderRequestID, rid)
		}
	}

	p.ModifyResponse = func(resp *http.Response) error {
		// The response header set by the request-id middleware is the single
		// source of the correlation header; drop any upstream echo so the
		// client sees exactly one value.
		resp.Header.Del(HeaderRequestID)

		logger := xglog.WithContext(resp.Request.Context(), g.logger)
		logger.Debug().
			Str(xglog.FieldEvent, "proxy.response").
			Str(xglog.FieldService, svc.Name).
			Str(xglog.FieldMethod, resp.Request.Method).
			Int(xglog.FieldStatus, resp.StatusCode).
			Msg("received response from upstream")
		return nil
	}

	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		kind := Classify(err)
		if st := stateFromContext(r.Context()); st != nil {
			st.errKind = kind
		}

		logger := xglog.WithContext(r.Context(), g.logger)
		evt := logger.Error()
		if kind == ErrKindCanceled {
			// Client went away; nothing to answer.
			evt = logger.Debug()
		}
		evt.Err(err).
			Str(xglog.FieldEvent, "proxy.error").
			Str(xglog.FieldService, svc.Name).
			Str(xglog.FieldMethod, r.Method).
			Str(xglog.FieldErrorKind, string(kind)).
			Msg("proxy error")

		if kind == ErrKindCanceled {
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError,
			fmt.Sprintf("Error communicating with %s service", svc.Name),
			"The upstream request could not be completed",
			xglog.RequestIDFromContext(r.Context()))
	}

	return p
}

// Handler returns the dispatcher for the /api namespace.
func (g *Gateway) Handler() http.Handler {
	return http.HandlerFunc(g.dispatch)
}

func (g *Gateway) dispatch(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api")
	if rest == "" {
		rest = "/"
	}
	name, remainder := splitSegment(rest)

	rid := xglog.RequestIDFromContext(r.Context())
	svc, ok := g.registry.Resolve(name)
	if !ok {
		logger := xglog.WithContext(r.Context(), g.logger)
		logger.Warn().
			Str(xglog.FieldEvent, "route.not_found").
			Str(xglog.FieldMethod, r.Method).
			Str(xglog.FieldPath, rest).
			Msg("no service registered for path")
		httpx.WriteError(w, http.StatusNotFound, "Not Found",
			fmt.Sprintf("The requested resource at %s was not found", rest), rid)
		return
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), svc.Timeout)
	defer cancel()

	state := &outcomeState{}
	ctx = context.WithValue(ctx, stateKey{}, state)

	out := r.Clone(ctx)
	out.URL.Path = remainder
	// Rewrite the escaped form in step with Path so encoded separators
	// (%2F) reach the backend byte-identical.
	out.URL.RawPath = ""
	if r.URL.RawPath != "" {
		_, rawRemainder := splitSegment(strings.TrimPrefix(r.URL.RawPath, "/api"))
		out.URL.RawPath = rawRemainder
	}

	logger := xglog.WithContext(r.Context(), g.logger)
	logger.Debug().
		Str(xglog.FieldEvent, "proxy.request").
		Str(xglog.FieldService, svc.Name).
		Str(xglog.FieldMethod, r.Method).
		Str(xglog.FieldTarget, svc.BaseURL.String()+remainder).
		Msg("proxying request to upstream")

	sw := &relayWriter{ResponseWriter: w}

	// Deferred so the attempt is observed even when the relay aborts by
	// panicking (http.ErrAbortHandler): exactly one outcome per attempt.
	defer func() {
		upstreamStatus := 0
		if state.errKind == "" {
			upstreamStatus = sw.status
		}
		metrics.RecordProxyOutcome(svc.Name, r.Method, upstreamStatus, time.Since(start), string(state.errKind))
	}()

	g.proxies[svc.Name].ServeHTTP(sw, out)
}

// splitSegment splits "/product/products/42" into "product" and
// "/products/42".
func splitSegment(path string) (string, string) {
	trimmed := strings.TrimPrefix(path, "/")
	name, rest, found := strings.Cut(trimmed, "/")
	if !found || rest == "" {
		return name, "/"
	}
	return name, "/" + rest
}

// relayWriter captures the relayed status code for outcome recording.
type relayWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (rw *relayWriter) WriteHeader(status int) {
	if !rw.written {
		rw.status = status
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *relayWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Flush lets the reverse proxy stream responses through.
func (rw *relayWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
