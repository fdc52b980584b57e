package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.eggybyte.com/egg/core/log"
)

// Service is the interface for services that can be started and stopped.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type server struct {
	name string
	srv  *http.Server
	ln   net.Listener
}

// Runtime manages the lifecycle of services and servers.
type Runtime struct {
	logger          log.Logger
	services        []Service
	shutdownTimeout time.Duration

	mu      sync.Mutex
	servers []*server
	serving sync.WaitGroup
}

// NewRuntime creates a new runtime instance.
func NewRuntime(logger log.Logger, services []Service, shutdownTimeout time.Duration) *Runtime {
	return &Runtime{
		logger:          logger,
		services:        services,
		shutdownTimeout: shutdownTimeout,
	}
}

// AddServer registers srv under name. Servers bind in registration order.
func (r *Runtime) AddServer(name string, srv *http.Server) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.servers = append(r.servers, &server{name: name, srv: srv})
}

// Addr returns the bound address of the named server, or "" before Start.
func (r *Runtime) Addr(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.servers {
		if s.name == name && s.ln != nil {
			return s.ln.Addr().String()
		}
	}
	return ""
}

// Start starts all services concurrently, then binds and serves every
// server. A bind failure releases the listeners opened so far.
func (r *Runtime) Start(ctx context.Context) error {
	r.logger.Info("starting runtime")

	var wg sync.WaitGroup
	errs := make([]error, len(r.services))
	for i, svc := range r.services {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Start(ctx); err != nil {
				r.logger.Error(err, "service start failed", log.Int("index", i))
				errs[i] = fmt.Errorf("service %d start failed: %w", i, err)
			}
		}()
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.servers {
		ln, err := net.Listen("tcp", s.srv.Addr)
		if err != nil {
			for _, prev := range r.servers[:i] {
				_ = prev.ln.Close()
				prev.ln = nil
			}
			return fmt.Errorf("%s server listen on %s: %w", s.name, s.srv.Addr, err)
		}
		s.ln = ln
	}

	for _, s := range r.servers {
		r.serving.Add(1)
		go func() {
			defer r.serving.Done()
			r.logger.Info("server listening", log.Str("server", s.name), log.Str("addr", s.ln.Addr().String()))
			if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				r.logger.Error(err, "server failed", log.Str("server", s.name))
			}
		}()
	}

	r.logger.Info("runtime started")
	return nil
}

// Stop stops services concurrently, then shuts servers down within the
// shutdown timeout.
func (r *Runtime) Stop(ctx context.Context) error {
	r.logger.Info("stopping runtime")

	shutdownCtx, cancel := context.WithTimeout(ctx, r.shutdownTimeout)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, len(r.services)+len(r.servers))
	for i, svc := range r.services {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Stop(shutdownCtx); err != nil {
				r.logger.Error(err, "service stop failed", log.Int("index", i))
				errs[i] = fmt.Errorf("service %d stop failed: %w", i, err)
			}
		}()
	}
	wg.Wait()

	r.mu.Lock()
	servers := r.servers
	r.mu.Unlock()

	for i, s := range servers {
		if s.ln == nil {
			continue
		}
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Error(err, "server shutdown failed", log.Str("server", s.name))
			errs[len(r.services)+i] = fmt.Errorf("%s server shutdown: %w", s.name, err)
		}
	}
	r.serving.Wait()

	r.logger.Info("runtime stopped")
	return errors.Join(errs...)
}
