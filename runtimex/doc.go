// Package runtimex runs the host's servers and evaluates its health checks.
//
// # Overview
//
// A Runtime binds the application, health and metrics servers, starts the
// registered background services and shuts everything down within a bounded
// timeout. A HealthRegistry belongs to one host: modules add named checks with
// tags, and the host exposes filtered views such as all checks on /health and
// checks tagged "live" on /alive.
//
// # Features
//
//   - Unified lifecycle management with graceful shutdown
//   - HTTP/2 cleartext on the application server
//   - Named, tagged health checks run concurrently with panic isolation
//   - JSON health reports; unhealthy answers 503
//
// # Usage
//
//	health := runtimex.NewHealthRegistry()
//	_ = health.AddCheck("self", func(context.Context) runtimex.HealthResult {
//		return runtimex.Healthy()
//	}, "live")
//	mux.Handle("/alive", health.HandlerFor(runtimex.Tagged("live")))
//
// # Layer
//
// runtimex belongs to Layer 3 (L3) and depends on core/log and core/errors.
package runtimex
