package internal

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Hook releases a resource at shutdown.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Hooks runs shutdown hooks in reverse registration order.
type Hooks struct {
	mu    sync.Mutex
	hooks []Hook
}

// Add appends a hook.
func (h *Hooks) Add(name string, fn func(ctx context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, Hook{Name: name, Fn: fn})
}

// Len returns the number of pending hooks.
func (h *Hooks) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hooks)
}

// Run calls every hook, most recent first, and clears the list. Every hook
// runs even when an earlier one fails.
func (h *Hooks) Run(ctx context.Context) error {
	h.mu.Lock()
	hooks := h.hooks
	h.hooks = nil
	h.mu.Unlock()

	var errs []error
	for _, hook := range slices.Backward(hooks) {
		if err := hook.Fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", hook.Name, err))
		}
	}
	return errors.Join(errs...)
}
