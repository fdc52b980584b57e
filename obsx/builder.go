package obsx

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.eggybyte.com/egg/obsx/internal"
)

// Instrumentation names a built-in integration the provider knows how to wire.
type Instrumentation string

// Built-in instrumentations.
const (
	HTTPServer    Instrumentation = "http.server"
	HTTPClient    Instrumentation = "http.client"
	Runtime       Instrumentation = "runtime"
	Process       Instrumentation = "process"
	EventCounters Instrumentation = "eventcounters"
	Jobs          Instrumentation = "jobs"
	Database      Instrumentation = "database"
	Search        Instrumentation = "search"
	Cache         Instrumentation = "cache"
)

// Scope names under which each instrumentation reports.
const (
	HTTPScope          = "go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	RuntimeScope       = internal.RuntimeScope
	ProcessScope       = internal.ProcessScope
	EventCountersScope = internal.EventCountersScope
	JobsScope          = "go.eggybyte.com/egg/obsx/jobs"
	DatabaseScope      = "gorm.io/plugin/opentelemetry"
	SearchScope        = "github.com/elastic/go-elasticsearch"
	CacheScope         = "github.com/redis/go-redis/extra/redisotel"
)

func scopeOf(i Instrumentation) string {
	switch i {
	case HTTPServer, HTTPClient:
		return HTTPScope
	case Runtime:
		return RuntimeScope
	case Process:
		return ProcessScope
	case EventCounters:
		return EventCountersScope
	case Jobs:
		return JobsScope
	case Database:
		return DatabaseScope
	case Search:
		return SearchScope
	case Cache:
		return CacheScope
	}
	return ""
}

// SearchTracingOptions tunes the search client instrumentation.
type SearchTracingOptions struct {
	// SuppressDownstreamInstrumentation keeps the HTTP client instrumentation
	// off the search client's transport, so each call yields one span.
	SuppressDownstreamInstrumentation bool
	// CaptureRequestBody records search request bodies on spans.
	CaptureRequestBody bool
}

type signal struct {
	instrumentations []Instrumentation
	scopes           internal.ScopeSet
}

func (s *signal) enable(i Instrumentation) {
	if !slices.Contains(s.instrumentations, i) {
		s.instrumentations = append(s.instrumentations, i)
	}
	s.scopes.Add(scopeOf(i))
}

func (s *signal) enabled(i Instrumentation) bool {
	return slices.Contains(s.instrumentations, i)
}

// MeterBuilder collects the metric instrumentations and meters to export.
type MeterBuilder struct {
	signal
	eventSources internal.ScopeSet
}

// AddHTTPServerInstrumentation enables inbound request metrics.
func (m *MeterBuilder) AddHTTPServerInstrumentation() *MeterBuilder {
	m.enable(HTTPServer)
	return m
}

// AddHTTPClientInstrumentation enables outbound request metrics.
func (m *MeterBuilder) AddHTTPClientInstrumentation() *MeterBuilder {
	m.enable(HTTPClient)
	return m
}

// AddRuntimeInstrumentation enables Go runtime metrics.
func (m *MeterBuilder) AddRuntimeInstrumentation() *MeterBuilder {
	m.enable(Runtime)
	return m
}

// AddProcessInstrumentation enables process metrics.
func (m *MeterBuilder) AddProcessInstrumentation() *MeterBuilder {
	m.enable(Process)
	return m
}

// AddEventCountersInstrumentation publishes the counters of the named event
// sources. Only listed sources are observed.
func (m *MeterBuilder) AddEventCountersInstrumentation(sources ...string) *MeterBuilder {
	m.enable(EventCounters)
	m.eventSources.Add(sources...)
	return m
}

// AddMeter allows instruments created by the named meters.
func (m *MeterBuilder) AddMeter(names ...string) *MeterBuilder {
	m.scopes.Add(names...)
	return m
}

// Instrumentations returns the enabled built-in instrumentations in order.
func (m *MeterBuilder) Instrumentations() []Instrumentation {
	return slices.Clone(m.instrumentations)
}

// Meters returns the allowed meter names in order.
func (m *MeterBuilder) Meters() []string {
	return m.scopes.Names()
}

// EventSources returns the observed event source names.
func (m *MeterBuilder) EventSources() []string {
	return m.eventSources.Names()
}

// TracerBuilder collects the tracing instrumentations and sources to export.
type TracerBuilder struct {
	signal
	search SearchTracingOptions
}

// AddHTTPServerInstrumentation enables inbound request spans.
func (t *TracerBuilder) AddHTTPServerInstrumentation() *TracerBuilder {
	t.enable(HTTPServer)
	return t
}

// AddHTTPClientInstrumentation enables outbound request spans.
func (t *TracerBuilder) AddHTTPClientInstrumentation() *TracerBuilder {
	t.enable(HTTPClient)
	return t
}

// AddJobInstrumentation enables spans around background jobs run via TraceJob.
func (t *TracerBuilder) AddJobInstrumentation() *TracerBuilder {
	t.enable(Jobs)
	return t
}

// AddDatabaseInstrumentation enables GORM query spans.
func (t *TracerBuilder) AddDatabaseInstrumentation() *TracerBuilder {
	t.enable(Database)
	return t
}

// AddSearchInstrumentation enables search client spans.
func (t *TracerBuilder) AddSearchInstrumentation(opts SearchTracingOptions) *TracerBuilder {
	t.enable(Search)
	t.search = opts
	return t
}

// AddCacheInstrumentation enables Redis command spans.
func (t *TracerBuilder) AddCacheInstrumentation() *TracerBuilder {
	t.enable(Cache)
	return t
}

// AddSource allows spans created by the named tracers.
func (t *TracerBuilder) AddSource(names ...string) *TracerBuilder {
	t.scopes.Add(names...)
	return t
}

// Instrumentations returns the enabled built-in instrumentations in order.
func (t *TracerBuilder) Instrumentations() []Instrumentation {
	return slices.Clone(t.instrumentations)
}

// Sources returns the allowed tracer names in order.
func (t *TracerBuilder) Sources() []string {
	return t.scopes.Names()
}

// SearchOptions returns the search instrumentation settings.
func (t *TracerBuilder) SearchOptions() SearchTracingOptions {
	return t.search
}

// Options configures Build.
type Options struct {
	ServiceName    string            // Required
	ServiceVersion string            // Optional
	ResourceAttrs  map[string]string // Extra resource attributes

	// ExportInterval overrides the OTLP metric push interval.
	ExportInterval time.Duration

	// Readers and Processors receive telemetry in addition to the exporters.
	Readers    []Reader
	Processors []SpanProcessor
}

// Builder accumulates telemetry registrations from modules. It is safe for
// concurrent use; Build snapshots the current state.
type Builder struct {
	mu       sync.Mutex
	metrics  MeterBuilder
	tracing  TracerBuilder
	endpoint string
	touched  bool
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithMetrics applies fn to the metrics configuration.
func (b *Builder) WithMetrics(fn func(*MeterBuilder)) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touched = true
	fn(&b.metrics)
	return b
}

// WithTracing applies fn to the tracing configuration.
func (b *Builder) WithTracing(fn func(*TracerBuilder)) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touched = true
	fn(&b.tracing)
	return b
}

// UseOTLPExporter sends metrics and traces to endpoint over gRPC.
func (b *Builder) UseOTLPExporter(endpoint string) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touched = true
	b.endpoint = endpoint
	return b
}

// Endpoint returns the OTLP endpoint, empty when none was set.
func (b *Builder) Endpoint() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.endpoint
}

// Configured reports whether any registration has been made.
func (b *Builder) Configured() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.touched
}

// Metrics returns a copy of the metrics configuration.
func (b *Builder) Metrics() MeterBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metrics.clone()
}

// Tracing returns a copy of the tracing configuration.
func (b *Builder) Tracing() TracerBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tracing.clone()
}

func (s signal) clone() signal {
	var c signal
	c.instrumentations = slices.Clone(s.instrumentations)
	c.scopes.Add(s.scopes.Names()...)
	return c
}

func (m *MeterBuilder) clone() MeterBuilder {
	c := MeterBuilder{signal: m.signal.clone()}
	c.eventSources.Add(m.eventSources.Names()...)
	return c
}

func (t *TracerBuilder) clone() TracerBuilder {
	return TracerBuilder{signal: t.signal.clone(), search: t.search}
}

// Build creates the providers and enables the registered metric
// instrumentations.
//
// Parameters:
//   - ctx: bounds exporter setup; exporters connect lazily
//   - opts: resource attributes, plus extra readers and processors for tests
//
// Returns:
//   - *Provider: built providers; the caller owns Shutdown
//   - error: missing service name, or an exporter or instrumentation failure
//
// Concurrency:
//   - Safe to call once the builder is no longer being mutated
//
// Performance:
//   - Starts the runtime, process and event counter collectors when enabled
func (b *Builder) Build(ctx context.Context, opts Options) (*Provider, error) {
	metrics := b.Metrics()
	tracing := b.Tracing()

	impl, err := internal.NewProvider(ctx, internal.ProviderOptions{
		ServiceName:    opts.ServiceName,
		ServiceVersion: opts.ServiceVersion,
		ResourceAttrs:  opts.ResourceAttrs,
		Endpoint:       b.Endpoint(),
		Meters:         metrics.Meters(),
		Tracers:        tracing.Sources(),
		ExportInterval: opts.ExportInterval,
		Readers:        opts.Readers,
		Processors:     opts.Processors,
	})
	if err != nil {
		return nil, err
	}

	p := &Provider{impl: impl, metrics: metrics, tracing: tracing}
	if err := p.enableMetrics(); err != nil {
		_ = impl.Shutdown(ctx)
		return nil, err
	}
	return p, nil
}
