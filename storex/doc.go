// Package storex opens and tracks the storage clients of an egg host.
//
// # Overview
//
// storex turns the database, cache and search sections of the base
// configuration into clients, installs the telemetry hooks the host enabled,
// and exposes one readiness check covering every store.
//
// # Features
//
//   - GORM stores for MySQL, Postgres and SQLite with pool metrics
//   - Redis cache with command tracing
//   - Elasticsearch client with request metrics and spans
//   - Named registry with joined Ping and ordered Close
//
// # Usage
//
//	reg, err := storex.Open(cfg, provider, logger)
//	if err != nil { return err }
//	defer reg.Close()
//	_ = reg.RegisterHealth(health)
//
// # Layer
//
// storex is an auxiliary module depending on obsx, runtimex, configx and core.
//
// # Stability
//
// Experimental until v0.1.0.
package storex
