// Package obsx builds the OpenTelemetry metrics and tracing pipeline of the
// egg host.
//
// # Overview
//
// Modules register what they want exported on a Builder during initialization;
// the host builds the Provider once every module has run. Registration follows
// a named-source model: each built-in instrumentation and every AddMeter or
// AddSource call adds a scope name to an ordered set, and the SDK drops
// instruments and spans from scopes that were never listed.
//
// # Features
//
//   - Prometheus scrape endpoint, always on
//   - OTLP gRPC export of metrics and traces when UseOTLPExporter is called
//   - HTTP server and client instrumentation (otelhttp)
//   - Runtime, process, connection pool and event counter metrics
//   - GORM, Redis and Elasticsearch tracing hooks
//   - Background job spans via TraceJob
//
// # Usage
//
//	b := registry.Telemetry()
//	b.WithTracing(func(t *obsx.TracerBuilder) { t.AddHTTPServerInstrumentation() })
//	provider, err := b.Build(ctx, obsx.Options{ServiceName: "catalog"})
//	if err != nil { return err }
//	defer provider.Shutdown(ctx)
//	http.Handle("/", provider.InstrumentHandler(mux, "catalog"))
//
// # Layer
//
// obsx belongs to Layer 2 (L2) and depends on core only.
package obsx
