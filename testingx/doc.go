// Package testingx provides test helpers for egg hosts and modules.
//
// # Overview
//
// testingx keeps module tests short: recording loggers, an in-memory
// configuration manager, a fake environment with os.LookupEnv semantics and
// a telemetry recorder built on the OpenTelemetry in-memory readers.
//
// # Usage
//
//	cfg := testingx.NewConfig(t, map[string]string{"Aspire:Enabled": "true"})
//	rec := testingx.NewTelemetry(t, registry.Telemetry())
//	scopes := rec.MetricScopes(t)
//
// # Layer
//
// testingx is an auxiliary module for tests only.
//
// # Stability
//
// Stable since v0.1.0.
package testingx
