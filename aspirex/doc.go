// Package aspirex integrates an egg host with an Aspire-style orchestrator.
//
// # Overview
//
// When the host runs under the orchestrator, or when Aspire:Enabled is set,
// the module wires the host's own pipelines for observability:
//
//   - an OTLP gRPC sink in the host logging configuration
//   - HTTP, runtime, process, event counter, storage and search metrics
//   - HTTP, job, database, search and cache tracing
//   - the OTLP exporter when OTEL_EXPORTER_OTLP_ENDPOINT is set
//   - a "self" liveness check tagged "live"
//   - service discovery and resilient defaults for every HTTP client
//
// Otherwise it does nothing.
//
// # Usage
//
//	host := servicex.NewHost(servicex.WithConfig(cfg))
//	_ = host.AddModule(aspirex.New(cfg, os.LookupEnv, logger))
//
// # Layer
//
// aspirex is a host module and depends on servicex and the layers below it.
package aspirex
