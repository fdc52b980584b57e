package internal

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Store is a backend that can be pinged and closed.
type Store interface {
	Ping(ctx context.Context) error
	Close() error
}

// Registry holds named stores in registration order.
type Registry struct {
	mu     sync.RWMutex
	names  []string
	stores map[string]Store
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]Store)}
}

// Register adds store under name.
func (r *Registry) Register(name string, store Store) error {
	if name == "" {
		return fmt.Errorf("store name is required")
	}
	if store == nil {
		return fmt.Errorf("store cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stores[name]; exists {
		return fmt.Errorf("store %s already registered", name)
	}
	r.names = append(r.names, name)
	r.stores[name] = store
	return nil
}

// Unregister removes name without closing it.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stores[name]; !exists {
		return fmt.Errorf("store %s not found", name)
	}
	delete(r.stores, name)
	r.names = slices.DeleteFunc(r.names, func(n string) bool { return n == name })
	return nil
}

// Get returns the store called name.
func (r *Registry) Get(name string) (Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[name]
	return s, ok
}

// List returns store names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.names)
}

// Ping pings every store and joins the failures.
func (r *Registry) Ping(ctx context.Context) error {
	var errs []error
	for _, name := range r.List() {
		s, ok := r.Get(name)
		if !ok {
			continue
		}
		if err := s.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("store %s ping failed: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every store in reverse registration order.
func (r *Registry) Close() error {
	names := r.List()
	var errs []error
	for _, name := range slices.Backward(names) {
		s, ok := r.Get(name)
		if !ok {
			continue
		}
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store %s close failed: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
