// Package servicex is the modular host of the egg framework.
//
// # Overview
//
// A Host owns configuration, the logging pipeline, telemetry, storage and
// the HTTP servers. Modules plug into it at two points: Initialize, where
// they register services, log sinks, telemetry sources, health checks and
// HTTP client defaults on the Registry; and PostInitialize, where they add
// routes and middlewares to the Pipeline.
//
// # Boot order
//
//  1. Configuration is loaded and bound to configx.BaseConfig
//  2. A bootstrap logger is created from it
//  3. Every module's Initialize runs
//  4. Contributed logx.Configurators shape the single logging pipeline
//  5. Telemetry is built when any module registered it, and installed globally
//  6. Storage clients are opened and instrumented
//  7. Every module's PostInitialize runs
//  8. The application, health and metrics servers start
//
// Shutdown releases these in reverse.
//
// # Layer
//
// servicex belongs to Layer 4 (L4) and depends on every lower layer.
package servicex
