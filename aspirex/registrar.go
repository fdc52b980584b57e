package aspirex

import (
	"context"

	"go.uber.org/dig"

	"go.eggybyte.com/egg/clientx"
	"go.eggybyte.com/egg/configx"
	"go.eggybyte.com/egg/discoveryx"
	"go.eggybyte.com/egg/obsx"
	"go.eggybyte.com/egg/runtimex"
	"go.eggybyte.com/egg/servicex"
	"go.eggybyte.com/egg/storex"
)

// Liveness check registered by Register.
const (
	SelfCheckName = "self"
	LiveTag       = "live"
)

// SearchTracing is the search client tracing policy: request bodies are
// captured and the HTTP client spans underneath are suppressed.
var SearchTracing = obsx.SearchTracingOptions{
	SuppressDownstreamInstrumentation: true,
	CaptureRequestBody:                true,
}

type registeredMarker struct{}

// Register declares the telemetry sources, the exporter, the liveness check,
// service discovery and the HTTP client defaults on r.
//
// Parameters:
//   - r: registry of the host being initialized
//   - cfg: configuration read for the exporter endpoint and discovery keys
//
// Returns:
//   - *servicex.Registry: r, for chaining
//   - error: the health or dependency registry error, unchanged
//
// Concurrency:
//   - Call from module initialization; the host initializes modules serially
//
// Performance:
//   - O(1); no network calls, the exporter and clients are built later
//
// A registry is marked only once every step has succeeded. A call after a
// successful one does nothing; a call after a failed one runs again and
// fails again rather than returning nil.
func Register(r *servicex.Registry, cfg configx.Lookup) (*servicex.Registry, error) {
	if r.Has(registeredMarker{}) {
		return r, nil
	}

	telemetry := r.Telemetry()
	telemetry.WithMetrics(func(m *obsx.MeterBuilder) {
		m.AddHTTPServerInstrumentation().
			AddHTTPClientInstrumentation().
			AddRuntimeInstrumentation().
			AddProcessInstrumentation().
			AddEventCountersInstrumentation(obsx.HostingEvents, obsx.ConnectionsEvents).
			AddMeter(storex.InstrumentationName, storex.SearchInstrumentationName)
	})
	telemetry.WithTracing(func(t *obsx.TracerBuilder) {
		t.AddHTTPServerInstrumentation().
			AddHTTPClientInstrumentation().
			AddJobInstrumentation().
			AddDatabaseInstrumentation().
			AddSearchInstrumentation(SearchTracing).
			AddSource(storex.SearchInstrumentationName).
			AddCacheInstrumentation()
	})
	if endpoint := exporterEndpoint(cfg); endpoint != "" {
		telemetry.UseOTLPExporter(endpoint)
	}

	if err := r.Health().AddCheck(SelfCheckName, func(context.Context) runtimex.HealthResult {
		return runtimex.Healthy()
	}, LiveTag); err != nil {
		return r, err
	}

	resolver := discoveryx.NewResolver(discoveryConfig(r, cfg))
	if err := servicex.Supply(r, resolver); err != nil {
		return r, err
	}
	if err := servicex.Supply(r, resolver, dig.As(new(discoveryx.URLResolver))); err != nil {
		return r, err
	}

	r.HTTPClients().ConfigureDefaults(func(b *clientx.Builder) {
		b.AddStandardResilienceHandler()
		b.AddServiceDiscovery(resolver)
	})
	r.Mark(registeredMarker{})
	return r, nil
}

func discoveryConfig(r *servicex.Registry, cfg configx.Lookup) discoveryx.Config {
	if s, ok := cfg.(configx.Snapshotter); ok {
		return s
	}
	if c := r.Config(); c != nil {
		return c
	}
	return configx.Map{}
}

// Mount is the pipeline hook. The health endpoints already serve the checks
// Register added, so it returns p unchanged.
func Mount(p *servicex.Pipeline) *servicex.Pipeline {
	return p
}
