// Package runtimex provides server lifecycle management and health checks.
//
// Overview:
//   - Responsibility: Run HTTP, health and metrics servers; register and evaluate health checks
//   - Key Types: Runtime, Service, Options, HealthRegistry, HealthReport
//   - Concurrency Model: Services start and stop concurrently; checks run concurrently
//   - Error Semantics: Bind failures surface from Start; check failures become report entries
//   - Performance Notes: HTTP/2 cleartext is available through net/http protocols
//
// Usage:
//
//	rt, err := runtimex.New(nil, runtimex.Options{
//	  Logger:  logger,
//	  HTTP:    &runtimex.HTTPOptions{Addr: ":8080", Handler: mux},
//	  Health:  &runtimex.Endpoint{Addr: ":8081", Handler: healthMux},
//	})
//	if err := rt.Start(ctx); err != nil { return err }
//	defer rt.Stop(context.Background())
package runtimex

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.eggybyte.com/egg/core/log"
	"go.eggybyte.com/egg/runtimex/internal"
)

// Server names accepted by Runtime.Addr.
const (
	ServerHTTP    = "http"
	ServerHealth  = "health"
	ServerMetrics = "metrics"
)

// Service defines the interface for services that can be started and stopped.
// Services must be safe for concurrent use and handle context cancellation.
type Service interface {
	// Start begins the service operation.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the service within ctx.
	Stop(ctx context.Context) error
}

// Endpoint is an auxiliary server.
type Endpoint struct {
	Addr    string       // Network address (e.g., ":8081")
	Handler http.Handler // Request handler
}

// HTTPOptions configures the application server.
type HTTPOptions struct {
	Addr    string       // Server address (e.g., ":8080")
	H2C     bool         // Enable HTTP/2 cleartext
	Handler http.Handler // Request handler

	// ConnState observes connection state changes.
	ConnState func(net.Conn, http.ConnState)
}

// Options holds configuration for the runtime.
type Options struct {
	Logger          log.Logger    // Logger for runtime operations
	HTTP            *HTTPOptions  // Application server
	Health          *Endpoint     // Health endpoint server
	Metrics         *Endpoint     // Metrics endpoint server
	ShutdownTimeout time.Duration // Graceful shutdown timeout (default 15s)
}

// Runtime runs services and servers.
type Runtime struct {
	impl *internal.Runtime
}

// New prepares a Runtime. Nothing binds until Start.
func New(services []Service, opts Options) (*Runtime, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 15 * time.Second
	}

	internalServices := make([]internal.Service, len(services))
	for i, service := range services {
		internalServices[i] = service
	}
	rt := internal.NewRuntime(opts.Logger, internalServices, shutdownTimeout)

	if opts.HTTP != nil {
		srv := &http.Server{
			Addr:              opts.HTTP.Addr,
			Handler:           opts.HTTP.Handler,
			ConnState:         opts.HTTP.ConnState,
			ReadHeaderTimeout: 10 * time.Second,
		}
		if opts.HTTP.H2C {
			var p http.Protocols
			p.SetHTTP1(true)
			p.SetUnencryptedHTTP2(true)
			srv.Protocols = &p
		}
		rt.AddServer(ServerHTTP, srv)
	}
	if opts.Health != nil {
		rt.AddServer(ServerHealth, &http.Server{Addr: opts.Health.Addr, Handler: opts.Health.Handler, ReadHeaderTimeout: 5 * time.Second})
	}
	if opts.Metrics != nil {
		rt.AddServer(ServerMetrics, &http.Server{Addr: opts.Metrics.Addr, Handler: opts.Metrics.Handler, ReadHeaderTimeout: 5 * time.Second})
	}

	return &Runtime{impl: rt}, nil
}

// Start starts services, then binds every server.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.impl.Start(ctx); err != nil {
		return fmt.Errorf("runtime start failed: %w", err)
	}
	return nil
}

// Stop shuts services and servers down.
func (r *Runtime) Stop(ctx context.Context) error {
	if err := r.impl.Stop(ctx); err != nil {
		return fmt.Errorf("runtime stop failed: %w", err)
	}
	return nil
}

// Addr returns the bound address of a server (ServerHTTP, ServerHealth or
// ServerMetrics), useful when listening on port 0.
func (r *Runtime) Addr(name string) string {
	return r.impl.Addr(name)
}

// Run starts all services and servers and blocks until ctx is cancelled,
// then stops them gracefully.
func Run(ctx context.Context, services []Service, opts Options) error {
	rt, err := New(services, opts)
	if err != nil {
		return err
	}
	if err := rt.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	return rt.Stop(context.Background())
}
