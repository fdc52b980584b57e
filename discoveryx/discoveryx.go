// Package discoveryx resolves logical service names to concrete endpoints.
//
// Overview:
//   - Responsibility: Rewrite request URLs such as http://catalog to configured endpoints
//   - Key Types: Resolver, URLResolver, Option
//   - Concurrency Model: Resolver is safe for concurrent use
//   - Error Semantics: Unknown hosts pass through unchanged; provider failures are returned
//   - Performance Notes: Configuration is read per request; endpoints rotate round-robin
//
// Configuration keys follow services:<name>:<endpoint>:<index>, which the env
// source produces from variables like services__catalog__http__0.
//
// Usage:
//
//	r := discoveryx.NewResolver(cfg)
//	client := &http.Client{Transport: discoveryx.NewTransport(r, http.DefaultTransport)}
//	resp, err := client.Get("https+http://catalog/items")
package discoveryx

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"go.eggybyte.com/egg/configx"
	"go.eggybyte.com/egg/core/errors"
	"go.eggybyte.com/egg/discoveryx/internal"
	"go.eggybyte.com/egg/k8sx"
)

// SectionPrefix is the configuration section holding service endpoints.
const SectionPrefix = "services"

// URLResolver rewrites a logical URL to a concrete one.
type URLResolver interface {
	Resolve(ctx context.Context, u *url.URL) (*url.URL, error)
}

// Config is the configuration view the resolver reads.
type Config interface {
	configx.Snapshotter
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithKubernetes consults k8s for single-label hosts missing from
// configuration.
func WithKubernetes(k8s *k8sx.Resolver, kind k8sx.ServiceKind) Option {
	return func(r *Resolver) {
		r.k8s = k8s
		r.kind = kind
	}
}

// Resolver resolves from configuration, then optionally Kubernetes.
type Resolver struct {
	cfg  Config
	k8s  *k8sx.Resolver
	kind k8sx.ServiceKind

	next sync.Map // service/endpoint -> *atomic.Uint64
}

// NewResolver creates a resolver over cfg.
//
// Parameters:
//   - cfg: configuration holding services:<name>:<endpoint>:<index> keys
//   - opts: WithKubernetes adds a cluster fallback for unknown names
//
// Returns:
//   - *Resolver: ready for use; reads cfg on every call so updates apply
//
// Concurrency:
//   - Safe for concurrent use; round-robin counters are atomic
//
// Performance:
//   - Configuration is read on each Resolve; Kubernetes lookups hit the API server
func NewResolver(cfg Config, opts ...Option) *Resolver {
	r := &Resolver{cfg: cfg, kind: k8sx.ServiceKindClusterIP}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Endpoints returns the configured endpoints of service for the named
// endpoint, in index order.
func (r *Resolver) Endpoints(service, endpoint string) []string {
	section := configx.Section(r.cfg, SectionPrefix+":"+service)
	return internal.Indexed(section, endpoint)
}

// Resolve implements URLResolver. Hosts that name no known service are
// returned unchanged, except that a composite scheme collapses to its first
// member.
func (r *Resolver) Resolve(ctx context.Context, u *url.URL) (*url.URL, error) {
	target := internal.ParseTarget(u)

	for _, name := range target.Candidates() {
		eps := r.Endpoints(target.Service, name)
		if len(eps) == 0 {
			continue
		}
		scheme := name
		if target.Endpoint != "" {
			scheme = target.Schemes[0]
		}
		return internal.Apply(u, r.pick(target.Service, name, eps), scheme)
	}

	if r.k8s != nil && !strings.Contains(target.Service, ".") {
		resolved, err := r.resolveKubernetes(ctx, u, target)
		if err != nil || resolved != nil {
			return resolved, err
		}
	}

	if len(target.Schemes) > 1 {
		out := *u
		out.Scheme = target.Schemes[0]
		return &out, nil
	}
	return u, nil
}

func (r *Resolver) resolveKubernetes(ctx context.Context, u *url.URL, target internal.Target) (*url.URL, error) {
	for _, name := range target.Candidates() {
		eps, err := r.k8s.Resolve(ctx, target.Service, r.kind, name)
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrap(errors.CodeUnavailable, "discoveryx.resolve", err)
		}
		if len(eps) > 0 {
			return internal.Apply(u, r.pick(target.Service, name, eps), target.Schemes[0])
		}
	}
	return nil, nil
}

func (r *Resolver) pick(service, endpoint string, eps []string) string {
	v, _ := r.next.LoadOrStore(service+"/"+endpoint, new(atomic.Uint64))
	n := v.(*atomic.Uint64).Add(1) - 1
	return eps[n%uint64(len(eps))]
}

type transport struct {
	resolver URLResolver
	next     http.RoundTripper
}

// NewTransport rewrites each outbound request through resolver before
// handing it to next.
func NewTransport(resolver URLResolver, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &transport{resolver: resolver, next: next}
}

// RoundTrip implements http.RoundTripper.
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	u, err := t.resolver.Resolve(req.Context(), req.URL)
	if err != nil {
		return nil, err
	}
	if u == req.URL {
		return t.next.RoundTrip(req)
	}
	out := req.Clone(req.Context())
	out.URL = u
	out.Host = ""
	return t.next.RoundTrip(out)
}
