// SPDX-License-Identifier: MIT

package proxy

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// ErrKind labels a proxy-level failure for logs and metrics. The client-facing
// response is identical for every kind; the granularity exists server-side
// only, so backend topology is never disclosed.
type ErrKind string

const (
	ErrKindTimeout     ErrKind = "timeout"
	ErrKindRefused     ErrKind = "connection_refused"
	ErrKindDNS         ErrKind = "dns_error"
	ErrKindProtocol    ErrKind = "protocol_error"
	ErrKindCanceled    ErrKind = "canceled"
	ErrKindUnreachable ErrKind = "unreachable"
)

// Classify maps a transport error from a proxied call to an ErrKind.
func Classify(err error) ErrKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return ErrKindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrKindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrKindDNS
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrKindRefused
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrKindUnreachable
	}

	// Anything else is an upstream that spoke, but badly.
	return ErrKindProtocol
}
