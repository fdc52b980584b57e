// Package obsx assembles OpenTelemetry metrics and tracing for the host.
//
// Overview:
//   - Responsibility: Collect telemetry registrations from modules, then build providers
//   - Key Types: Builder, MeterBuilder, TracerBuilder, Provider, EventSource
//   - Concurrency Model: Builder and Provider are safe for concurrent use
//   - Error Semantics: Build returns exporter and resource errors unchanged
//   - Performance Notes: Unlisted meters and tracers are dropped inside the SDK
//
// Usage:
//
//	b := obsx.NewBuilder()
//	b.WithMetrics(func(m *obsx.MeterBuilder) { m.AddRuntimeInstrumentation() })
//	b.UseOTLPExporter("http://collector:4317")
//	provider, err := b.Build(ctx, obsx.Options{ServiceName: "catalog"})
//	defer provider.Shutdown(ctx)
package obsx

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"go.eggybyte.com/egg/obsx/internal"
)

// Reader receives metrics in addition to the configured exporters.
type Reader = sdkmetric.Reader

// SpanProcessor receives spans in addition to the configured exporters.
type SpanProcessor = sdktrace.SpanProcessor

// Provider owns the built meter and tracer providers and wires third-party
// libraries according to the enabled instrumentations.
// The provider must be shut down when no longer needed.
type Provider struct {
	impl    *internal.Provider
	metrics MeterBuilder
	tracing TracerBuilder
}

// MeterProvider returns the SDK meter provider.
func (p *Provider) MeterProvider() *sdkmetric.MeterProvider {
	return p.impl.MeterProvider
}

// TracerProvider returns the SDK tracer provider.
func (p *Provider) TracerProvider() *sdktrace.TracerProvider {
	return p.impl.TracerProvider
}

// PrometheusHandler returns an HTTP handler for the Prometheus metrics endpoint.
//
//	mux.Handle("/metrics", provider.PrometheusHandler())
func (p *Provider) PrometheusHandler() http.Handler {
	return p.impl.PrometheusHandler()
}

// Meter returns a meter. Its instruments are exported only when name was
// added with AddMeter or belongs to an enabled instrumentation.
func (p *Provider) Meter(name string) metric.Meter {
	return p.impl.MeterProvider.Meter(name)
}

// Tracer returns a tracer. Its spans are exported only when name was added
// with AddSource or belongs to an enabled instrumentation.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.impl.TracerProvider.Tracer(name)
}

// Propagator returns the W3C trace context and baggage propagator.
func (p *Provider) Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
}

// SetGlobal installs the providers and propagator as the otel globals, so
// libraries that read them pick up the same filtering.
func (p *Provider) SetGlobal() {
	otel.SetMeterProvider(p.impl.MeterProvider)
	otel.SetTracerProvider(p.impl.TracerProvider)
	otel.SetTextMapPropagator(p.Propagator())
}

// Shutdown flushes pending telemetry and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.impl.Shutdown(ctx)
}

// MetricsEnabled reports whether the instrumentation exports metrics.
func (p *Provider) MetricsEnabled(i Instrumentation) bool {
	return p.metrics.enabled(i)
}

// TracingEnabled reports whether the instrumentation exports spans.
func (p *Provider) TracingEnabled(i Instrumentation) bool {
	return p.tracing.enabled(i)
}

func (p *Provider) meterProviderFor(i Instrumentation) metric.MeterProvider {
	if p.metrics.enabled(i) {
		return p.impl.MeterProvider
	}
	return metricnoop.NewMeterProvider()
}

func (p *Provider) tracerProviderFor(i Instrumentation) trace.TracerProvider {
	if !p.tracing.enabled(i) {
		return tracenoop.NewTracerProvider()
	}
	switch i {
	case Database, Search, Cache:
		return internal.ScopedTracerProvider{Provider: p.impl.TracerProvider, Scope: scopeOf(i)}
	}
	return p.impl.TracerProvider
}

func (p *Provider) enableMetrics() error {
	if p.metrics.enabled(Runtime) {
		if err := internal.EnableRuntimeMetrics(p.impl.MeterProvider); err != nil {
			return err
		}
	}
	if p.metrics.enabled(Process) {
		if err := internal.EnableProcessMetrics(p.impl.MeterProvider); err != nil {
			return err
		}
	}
	if p.metrics.enabled(EventCounters) {
		if err := internal.EnableEventCounters(p.impl.MeterProvider, p.metrics.EventSources()); err != nil {
			return err
		}
	}
	return nil
}

// InstrumentHandler wraps h with server spans and metrics when HTTP server
// instrumentation is enabled; otherwise h is returned unchanged.
func (p *Provider) InstrumentHandler(h http.Handler, operation string) http.Handler {
	if !p.metrics.enabled(HTTPServer) && !p.tracing.enabled(HTTPServer) {
		return h
	}
	return otelhttp.NewHandler(h, operation,
		otelhttp.WithMeterProvider(p.meterProviderFor(HTTPServer)),
		otelhttp.WithTracerProvider(p.tracerProviderFor(HTTPServer)),
		otelhttp.WithPropagators(p.Propagator()),
	)
}

// InstrumentTransport wraps rt with client spans and metrics when HTTP client
// instrumentation is enabled. A nil rt means http.DefaultTransport.
func (p *Provider) InstrumentTransport(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	if !p.metrics.enabled(HTTPClient) && !p.tracing.enabled(HTTPClient) {
		return rt
	}
	return otelhttp.NewTransport(rt,
		otelhttp.WithMeterProvider(p.meterProviderFor(HTTPClient)),
		otelhttp.WithTracerProvider(p.tracerProviderFor(HTTPClient)),
		otelhttp.WithPropagators(p.Propagator()),
	)
}

// InstrumentDB installs the GORM tracing plugin when database tracing is
// enabled. Pool metrics are registered separately with RegisterDBMetrics.
func (p *Provider) InstrumentDB(db *gorm.DB) error {
	if !p.tracing.enabled(Database) {
		return nil
	}
	return db.Use(tracing.NewPlugin(
		tracing.WithTracerProvider(p.tracerProviderFor(Database)),
		tracing.WithoutMetrics(),
	))
}

// InstrumentRedis adds command spans to rdb when cache tracing is enabled.
func (p *Provider) InstrumentRedis(rdb redis.UniversalClient) error {
	if !p.tracing.enabled(Cache) {
		return nil
	}
	return redisotel.InstrumentTracing(rdb, redisotel.WithTracerProvider(p.tracerProviderFor(Cache)))
}

// InstrumentSearch configures cfg for search tracing. Unless downstream
// instrumentation is suppressed, the transport also gets HTTP client spans.
func (p *Provider) InstrumentSearch(cfg *elasticsearch.Config) {
	if !p.tracing.enabled(Search) {
		return
	}
	opts := p.tracing.SearchOptions()
	cfg.Instrumentation = elasticsearch.NewOpenTelemetryInstrumentation(p.tracerProviderFor(Search), opts.CaptureRequestBody)
	if !opts.SuppressDownstreamInstrumentation {
		cfg.Transport = p.InstrumentTransport(cfg.Transport)
	}
}

// TraceJob runs fn inside a span named name when job tracing is enabled.
// The error returned by fn is recorded and returned unchanged.
func (p *Provider) TraceJob(ctx context.Context, name string, fn func(context.Context) error) error {
	tracer := p.tracerProviderFor(Jobs).Tracer(JobsScope)
	ctx, span := tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// RegisterDBMetrics publishes connection pool metrics for db on meter,
// labelled with name. Unregister the returned registration when the pool
// closes.
func RegisterDBMetrics(meter metric.Meter, name string, db *sql.DB) (metric.Registration, error) {
	return internal.RegisterDBMetrics(meter, name, db)
}
