// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"net/url"
	"sort"
	"time"
)

// ServiceDescriptor is the immutable contract the router has with one
// backend: where it lives, which public prefix it owns, and how long a
// proxied call may take.
type ServiceDescriptor struct {
	Name       string
	BaseURL    *url.URL
	PathPrefix string // public prefix, e.g. "/api/user"
	Timeout    time.Duration
}

// Registry is the static service registry, built once at startup. Lookups
// are by exact first-path-segment match; the set never changes afterwards,
// so reads need no locking.
type Registry struct {
	byName  map[string]*ServiceDescriptor
	ordered []*ServiceDescriptor
}

// NewRegistry builds a registry from validated configuration.
func NewRegistry(cfg AppConfig) (*Registry, error) {
	r := &Registry{byName: make(map[string]*ServiceDescriptor, len(cfg.Services))}
	for name, svc := range cfg.Services {
		u, err := url.Parse(svc.URL)
		if err != nil {
			return nil, fmt.Errorf("service %s: parse base URL %q: %w", name, svc.URL, err)
		}
		desc := &ServiceDescriptor{
			Name:       name,
			BaseURL:    u,
			PathPrefix: "/api/" + name,
			Timeout:    svc.Timeout,
		}
		r.byName[name] = desc
		r.ordered = append(r.ordered, desc)
	}
	sort.Slice(r.ordered, func(i, j int) bool { return r.ordered[i].Name < r.ordered[j].Name })
	return r, nil
}

// Resolve returns the descriptor registered under the given first path
// segment, if any.
func (r *Registry) Resolve(name string) (*ServiceDescriptor, bool) {
	desc, ok := r.byName[name]
	return desc, ok
}

// Services returns all descriptors sorted by name.
func (r *Registry) Services() []*ServiceDescriptor {
	return r.ordered
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	return len(r.byName)
}
