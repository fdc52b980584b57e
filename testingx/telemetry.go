package testingx

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"go.eggybyte.com/egg/obsx"
)

// TelemetryRecorder holds a provider built with in-memory readers.
type TelemetryRecorder struct {
	Provider *obsx.Provider
	Reader   *sdkmetric.ManualReader
	Spans    *tracetest.SpanRecorder
}

// NewTelemetry builds b with in-memory metric and span readers attached.
// The provider is shut down when the test ends.
func NewTelemetry(t testing.TB, b *obsx.Builder) *TelemetryRecorder {
	t.Helper()
	rec := &TelemetryRecorder{
		Reader: sdkmetric.NewManualReader(),
		Spans:  tracetest.NewSpanRecorder(),
	}
	p, err := b.Build(context.Background(), obsx.Options{
		ServiceName: "test-service",
		Readers:     []obsx.Reader{rec.Reader},
		Processors:  []obsx.SpanProcessor{rec.Spans},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	rec.Provider = p
	return rec
}

// MetricScopes collects metrics and returns the instrumentation scope names
// that reported at least one metric.
func (r *TelemetryRecorder) MetricScopes(t testing.TB) []string {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := r.Reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	var scopes []string
	for _, sm := range rm.ScopeMetrics {
		if len(sm.Metrics) > 0 {
			scopes = append(scopes, sm.Scope.Name)
		}
	}
	return scopes
}
