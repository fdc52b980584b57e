package internal

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func collect(t *testing.T, r *sdkmetric.ManualReader) map[string][]string {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := r.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	out := map[string][]string{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[sm.Scope.Name] = append(out[sm.Scope.Name], m.Name)
		}
	}
	return out
}

func TestNewProvider_EmptyServiceName(t *testing.T) {
	provider, err := NewProvider(context.Background(), ProviderOptions{ServiceVersion: "1.0.0"})
	if err == nil {
		t.Fatal("NewProvider() should return error for empty service name")
	}
	if provider != nil {
		t.Error("NewProvider() should return nil provider on error")
	}
}

func TestNewProvider_LocalOnly(t *testing.T) {
	provider, err := NewProvider(context.Background(), ProviderOptions{
		ServiceName:   "test-service",
		ResourceAttrs: map[string]string{"env": "test"},
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer provider.Shutdown(context.Background())

	if provider.MeterProvider == nil || provider.TracerProvider == nil {
		t.Fatal("both providers should be created without an endpoint")
	}
}

func TestNewProvider_WithEndpoint(t *testing.T) {
	// Exporters connect lazily, so an unreachable collector does not fail Build.
	provider, err := NewProvider(context.Background(), ProviderOptions{
		ServiceName: "test-service",
		Endpoint:    "http://127.0.0.1:4317",
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = provider.Shutdown(ctx)
}

func TestMeterFilter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider, err := NewProvider(context.Background(), ProviderOptions{
		ServiceName: "test-service",
		Meters:      []string{"allowed"},
		Readers:     []sdkmetric.Reader{reader},
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer provider.Shutdown(context.Background())

	for _, name := range []string{"allowed", "blocked"} {
		c, err := provider.MeterProvider.Meter(name).Int64Counter(name + "_requests")
		if err != nil {
			t.Fatalf("Int64Counter() error = %v", err)
		}
		c.Add(context.Background(), 1)
	}

	got := collect(t, reader)
	if !slices.Equal(got["allowed"], []string{"allowed_requests"}) {
		t.Errorf("allowed scope metrics = %v", got["allowed"])
	}
	if len(got["blocked"]) != 0 {
		t.Errorf("blocked scope should be dropped, got %v", got["blocked"])
	}
}

func TestSpanFilter(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	provider, err := NewProvider(context.Background(), ProviderOptions{
		ServiceName: "test-service",
		Tracers:     []string{"allowed"},
		Processors:  []sdktrace.SpanProcessor{rec},
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer provider.Shutdown(context.Background())

	for _, name := range []string{"allowed", "blocked"} {
		_, span := provider.TracerProvider.Tracer(name).Start(context.Background(), name+"-op")
		span.End()
	}

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(ended))
	}
	if ended[0].Name() != "allowed-op" {
		t.Errorf("span = %q, want allowed-op", ended[0].Name())
	}
}

func TestPrometheusHandler(t *testing.T) {
	provider, err := NewProvider(context.Background(), ProviderOptions{
		ServiceName: "test-service",
		Meters:      []string{RuntimeScope},
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer provider.Shutdown(context.Background())

	if err := EnableRuntimeMetrics(provider.MeterProvider); err != nil {
		t.Fatalf("EnableRuntimeMetrics() error = %v", err)
	}

	w := httptest.NewRecorder()
	provider.PrometheusHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "process_runtime_go_goroutines") {
		t.Error("scrape should include runtime metrics")
	}
}

func TestPrometheusHandler_NilRegistry(t *testing.T) {
	w := httptest.NewRecorder()
	(&Provider{}).PrometheusHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestShutdown_NilProviders(t *testing.T) {
	if err := (&Provider{}).Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v, want nil", err)
	}
}

func TestBuiltinMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	db, err := sql.Open("obsx-stub", "")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer db.Close()

	if err := EnableRuntimeMetrics(mp); err != nil {
		t.Fatalf("EnableRuntimeMetrics() error = %v", err)
	}
	if err := EnableProcessMetrics(mp); err != nil {
		t.Fatalf("EnableProcessMetrics() error = %v", err)
	}
	if _, err := RegisterDBMetrics(mp.Meter("db"), "main", db); err != nil {
		t.Fatalf("RegisterDBMetrics() error = %v", err)
	}

	got := collect(t, reader)
	tests := []struct {
		scope string
		want  string
	}{
		{RuntimeScope, "process_runtime_go_goroutines"},
		{RuntimeScope, "process_runtime_go_gc_count_total"},
		{ProcessScope, "process_uptime_seconds"},
		{ProcessScope, "process_memory_sys_bytes"},
		{"db", "db_pool_open_connections"},
		{"db", "db_pool_wait_seconds"},
	}
	for _, tt := range tests {
		if !slices.Contains(got[tt.scope], tt.want) {
			t.Errorf("scope %s missing %s (got %v)", tt.scope, tt.want, got[tt.scope])
		}
	}
}

func TestEventCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	Source("test.watched").Add("requests", 3)
	Source("test.ignored").Add("requests", 1)

	if err := EnableEventCounters(mp, []string{"test.watched"}); err != nil {
		t.Fatalf("EnableEventCounters() error = %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(rm.ScopeMetrics) != 1 || len(rm.ScopeMetrics[0].Metrics) != 1 {
		t.Fatalf("unexpected metrics: %+v", rm.ScopeMetrics)
	}
	gauge, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Gauge[int64])
	if !ok {
		t.Fatalf("data type = %T, want Gauge[int64]", rm.ScopeMetrics[0].Metrics[0].Data)
	}
	if len(gauge.DataPoints) != 1 {
		t.Fatalf("data points = %d, want 1", len(gauge.DataPoints))
	}
	dp := gauge.DataPoints[0]
	if v, _ := dp.Attributes.Value("event_source"); v.AsString() != "test.watched" {
		t.Errorf("event_source = %q", v.AsString())
	}
	if dp.Value != 3 {
		t.Errorf("value = %d, want 3", dp.Value)
	}
}

func TestSourceIsShared(t *testing.T) {
	a := Source("test.shared")
	a.Add("open", 2)
	a.Add("open", -1)

	if Source("test.shared") != a {
		t.Fatal("Source should return the same instance for a name")
	}
	if got := Source("test.shared").Value("open"); got != 1 {
		t.Errorf("Value() = %d, want 1", got)
	}
}

func TestScopeSet(t *testing.T) {
	var s ScopeSet
	s.Add("b", "a", "", "b")

	if !slices.Equal(s.Names(), []string{"b", "a"}) {
		t.Errorf("Names() = %v, want [b a]", s.Names())
	}
	if !s.Contains("a") || s.Contains("c") {
		t.Error("Contains() mismatch")
	}
}

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return nil, errors.New("stub driver") }

func init() {
	sql.Register("obsx-stub", stubDriver{})
}
