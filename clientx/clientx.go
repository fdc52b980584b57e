// Package clientx provides a named HTTP client factory with resilience,
// service discovery and telemetry.
//
// Overview:
//   - Responsibility: Build http.Clients from default and per-name configuration
//   - Key Types: Factory, Builder, ResilienceOptions, Middleware
//   - Concurrency Model: Factory and the clients it returns are safe for concurrent use
//   - Error Semantics: Transport errors pass through; an open circuit returns gobreaker.ErrOpenState
//   - Performance Notes: Clients are built once per name and cached
//
// Usage:
//
//	f := clientx.NewFactory()
//	f.ConfigureDefaults(func(b *clientx.Builder) {
//	  b.AddStandardResilienceHandler()
//	  b.AddServiceDiscovery(resolver)
//	})
//	resp, err := f.Client("catalog").Get("http://catalog/items")
package clientx

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"go.eggybyte.com/egg/clientx/internal"
	"go.eggybyte.com/egg/discoveryx"
)

// Middleware wraps a round tripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// ResilienceOptions configures the standard resilience handler.
type ResilienceOptions struct {
	TotalTimeout   time.Duration // Bound on the whole call including retries
	AttemptTimeout time.Duration // Bound on each attempt

	MaxRetries int           // Retries after the first attempt
	BaseDelay  time.Duration // First backoff interval, doubled per retry with jitter
	MaxDelay   time.Duration // Cap on a single backoff interval

	FailureRatio     float64       // Failure ratio that opens the circuit
	MinimumRequests  uint32        // Requests sampled before the ratio applies
	SamplingDuration time.Duration // Window over which failures are counted
	BreakDuration    time.Duration // Time the circuit stays open
}

// DefaultResilienceOptions returns the standard policy: 30s total, 10s per
// attempt, 3 exponential retries from 2s, and a breaker opening at 10%
// failures over at least 100 requests in 30s for 5s.
func DefaultResilienceOptions() ResilienceOptions {
	return ResilienceOptions{
		TotalTimeout:     30 * time.Second,
		AttemptTimeout:   10 * time.Second,
		MaxRetries:       3,
		BaseDelay:        2 * time.Second,
		MaxDelay:         30 * time.Second,
		FailureRatio:     0.1,
		MinimumRequests:  100,
		SamplingDuration: 30 * time.Second,
		BreakDuration:    5 * time.Second,
	}
}

// Builder describes how one named client is assembled.
type Builder struct {
	name        string
	middlewares []Middleware
	resilience  *ResilienceOptions
	resolver    discoveryx.URLResolver
}

// Name returns the client name.
func (b *Builder) Name() string {
	return b.name
}

// AddStandardResilienceHandler adds total and per-attempt timeouts, retries
// and a circuit breaker. Options adjust the defaults; a second call replaces
// the policy.
func (b *Builder) AddStandardResilienceHandler(opts ...func(*ResilienceOptions)) *Builder {
	o := DefaultResilienceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b.resilience = &o
	return b
}

// AddServiceDiscovery resolves logical hosts through r before each attempt.
func (b *Builder) AddServiceDiscovery(r discoveryx.URLResolver) *Builder {
	b.resolver = r
	return b
}

// Use adds middlewares outside the resilience handler, in order.
func (b *Builder) Use(mws ...Middleware) *Builder {
	b.middlewares = append(b.middlewares, mws...)
	return b
}

// Resilience returns the configured policy, or nil.
func (b *Builder) Resilience() *ResilienceOptions {
	if b.resilience == nil {
		return nil
	}
	o := *b.resilience
	return &o
}

// HasServiceDiscovery reports whether a resolver is configured.
func (b *Builder) HasServiceDiscovery() bool {
	return b.resolver != nil
}

// Factory creates and caches named clients.
type Factory struct {
	mu         sync.Mutex
	defaults   []func(*Builder)
	named      map[string][]func(*Builder)
	base       http.RoundTripper
	instrument func(http.RoundTripper) http.RoundTripper
	clients    map[string]*http.Client
}

// NewFactory creates a Factory using http.DefaultTransport.
func NewFactory() *Factory {
	return &Factory{
		named:   map[string][]func(*Builder){},
		clients: map[string]*http.Client{},
	}
}

// ConfigureDefaults adds fn to the configuration applied to every client.
func (f *Factory) ConfigureDefaults(fn func(*Builder)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaults = append(f.defaults, fn)
	clear(f.clients)
}

// Configure adds fn to the configuration of the client called name. It runs
// after the defaults.
func (f *Factory) Configure(name string, fn func(*Builder)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.named[name] = append(f.named[name], fn)
	delete(f.clients, name)
}

// SetBaseTransport replaces the innermost transport.
func (f *Factory) SetBaseTransport(rt http.RoundTripper) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.base = rt
	clear(f.clients)
}

// SetInstrumentation wraps the innermost transport of every client with fn,
// typically obsx.Provider.InstrumentTransport.
func (f *Factory) SetInstrumentation(fn func(http.RoundTripper) http.RoundTripper) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instrument = fn
	clear(f.clients)
}

// Builder returns the resolved configuration for name.
func (f *Factory) Builder(name string) *Builder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.builderLocked(name)
}

func (f *Factory) builderLocked(name string) *Builder {
	b := &Builder{name: name}
	for _, fn := range slices.Concat(f.defaults, f.named[name]) {
		fn(b)
	}
	return b
}

// Client returns the client called name, building it on first use.
//
// Parameters:
//   - name: logical client name selecting per-name configuration
//
// Returns:
//   - *http.Client: cached until the configuration changes
//
// Concurrency:
//   - Safe for concurrent use
//
// Performance:
//   - O(1) after the first call for name
func (f *Factory) Client(name string) *http.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[name]; ok {
		return c
	}
	c := &http.Client{Transport: f.transportLocked(f.builderLocked(name))}
	f.clients[name] = c
	return c
}

// transportLocked assembles, from the outside in: middlewares, total timeout,
// retry, circuit breaker, attempt timeout, discovery, telemetry, base.
func (f *Factory) transportLocked(b *Builder) http.RoundTripper {
	rt := f.base
	if rt == nil {
		rt = http.DefaultTransport
	}
	if f.instrument != nil {
		rt = f.instrument(rt)
	}
	if b.resolver != nil {
		rt = discoveryx.NewTransport(b.resolver, rt)
	}
	if o := b.resilience; o != nil {
		rt = internal.NewTimeoutTransport(rt, o.AttemptTimeout)
		rt = internal.NewBreakerTransport(b.name, rt, internal.BreakerPolicy{
			FailureRatio:     o.FailureRatio,
			MinimumRequests:  o.MinimumRequests,
			SamplingDuration: o.SamplingDuration,
			BreakDuration:    o.BreakDuration,
		})
		rt = internal.NewRetryTransport(rt, internal.RetryPolicy{
			MaxRetries: o.MaxRetries,
			BaseDelay:  o.BaseDelay,
			MaxDelay:   o.MaxDelay,
		})
		rt = internal.NewTimeoutTransport(rt, o.TotalTimeout)
	}
	for i := len(b.middlewares) - 1; i >= 0; i-- {
		rt = b.middlewares[i](rt)
	}
	return rt
}
