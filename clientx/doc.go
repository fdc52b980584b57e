// Package clientx builds named HTTP clients with shared defaults.
//
// # Overview
//
// Components ask the Factory for a client by name. Defaults registered with
// ConfigureDefaults apply to every client; Configure adds settings for one
// name. The host installs the telemetry wrapper once, so every client gets
// HTTP client spans and metrics when they are enabled.
//
// # Features
//
//   - Standard resilience handler: total and per-attempt timeouts, exponential
//     retries with jitter, and a ratio-based circuit breaker
//   - Service discovery of logical hosts through discoveryx
//   - Custom round-tripper middlewares
//
// # Usage
//
//	f := clientx.NewFactory()
//	f.ConfigureDefaults(func(b *clientx.Builder) { b.AddStandardResilienceHandler() })
//	resp, err := f.Client("catalog").Get("http://catalog/items")
//
// # Layer
//
// clientx belongs to Layer 3 (L3) and depends on discoveryx and core.
//
// # Stability
//
// Stable since v0.1.0. Minor versions may introduce backward-compatible improvements.
package clientx
