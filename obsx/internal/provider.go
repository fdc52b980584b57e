// Package internal provides internal implementation for the obsx package.
package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
)

// ProviderOptions holds configuration for the telemetry providers.
type ProviderOptions struct {
	ServiceName    string
	ServiceVersion string
	ResourceAttrs  map[string]string

	// Endpoint is the OTLP gRPC collector URL. Empty keeps telemetry local.
	Endpoint string

	// Meters and Tracers list the allowed instrumentation scopes.
	Meters  []string
	Tracers []string

	// ExportInterval overrides the OTLP metric push interval.
	ExportInterval time.Duration

	// Extra readers and processors, used by tests to observe output.
	Readers    []sdkmetric.Reader
	Processors []sdktrace.SpanProcessor
}

// Provider owns the SDK meter and tracer providers.
type Provider struct {
	MeterProvider      *sdkmetric.MeterProvider
	TracerProvider     *sdktrace.TracerProvider
	prometheusRegistry *promclient.Registry
}

// NewProvider builds the meter and tracer providers described by opts.
func NewProvider(ctx context.Context, opts ProviderOptions) (*Provider, error) {
	if opts.ServiceName == "" {
		return nil, fmt.Errorf("service name is required")
	}

	res, err := createResource(ctx, opts)
	if err != nil {
		return nil, err
	}

	mp, promRegistry, err := createMeterProvider(ctx, res, opts)
	if err != nil {
		return nil, err
	}

	tp, err := createTracerProvider(ctx, res, opts)
	if err != nil {
		_ = mp.Shutdown(ctx)
		return nil, err
	}

	return &Provider{
		MeterProvider:      mp,
		TracerProvider:     tp,
		prometheusRegistry: promRegistry,
	}, nil
}

func createResource(ctx context.Context, opts ProviderOptions) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(opts.ServiceName)}
	if opts.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(opts.ServiceVersion))
	}
	for k, v := range opts.ResourceAttrs {
		attrs = append(attrs, attribute.String(k, v))
	}

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// createMeterProvider wires the Prometheus reader, the OTLP periodic reader
// when an endpoint is set, and the scope filter view.
func createMeterProvider(ctx context.Context, res *resource.Resource, opts ProviderOptions) (*sdkmetric.MeterProvider, *promclient.Registry, error) {
	promRegistry := promclient.NewRegistry()
	promExporter, err := prometheus.New(
		prometheus.WithRegisterer(promRegistry),
		prometheus.WithoutUnits(),           // Prometheus prefers base units without suffix
		prometheus.WithoutScopeInfo(),       // Remove otel_scope_* labels to reduce cardinality
		prometheus.WithoutCounterSuffixes(), // Remove _total suffix duplication
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mpOpts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
		sdkmetric.WithView(DropUnlisted(opts.Meters)),
	}

	if opts.Endpoint != "" {
		exp, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpointURL(opts.Endpoint),
			otlpmetricgrpc.WithDialOption(userAgent(opts)))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create otlp metric exporter: %w", err)
		}
		var readerOpts []sdkmetric.PeriodicReaderOption
		if opts.ExportInterval > 0 {
			readerOpts = append(readerOpts, sdkmetric.WithInterval(opts.ExportInterval))
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, readerOpts...)))
	}

	for _, r := range opts.Readers {
		mpOpts = append(mpOpts, sdkmetric.WithReader(r))
	}

	return sdkmetric.NewMeterProvider(mpOpts...), promRegistry, nil
}

// createTracerProvider always returns a provider; without an endpoint spans
// stay in process and only reach the extra processors.
func createTracerProvider(ctx context.Context, res *resource.Resource, opts ProviderOptions) (*sdktrace.TracerProvider, error) {
	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	}

	if opts.Endpoint != "" {
		exp, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpointURL(opts.Endpoint),
			otlptracegrpc.WithDialOption(userAgent(opts)))
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp trace exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(ScopeFilter{
			Next:    sdktrace.NewBatchSpanProcessor(exp),
			Allowed: opts.Tracers,
		}))
	}

	for _, sp := range opts.Processors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(ScopeFilter{Next: sp, Allowed: opts.Tracers}))
	}

	return sdktrace.NewTracerProvider(tpOpts...), nil
}

// PrometheusHandler returns the scrape handler for the local registry.
func (p *Provider) PrometheusHandler() http.Handler {
	if p.prometheusRegistry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("# Prometheus metrics not available\n"))
		})
	}

	return promhttp.HandlerFor(p.prometheusRegistry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Shutdown flushes and stops both providers within a bounded timeout.
func (p *Provider) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// userAgent tags exporter connections with the service name.
func userAgent(opts ProviderOptions) grpc.DialOption {
	return grpc.WithUserAgent("egg/" + opts.ServiceName)
}
