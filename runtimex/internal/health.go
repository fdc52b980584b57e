// Package internal contains the runtime implementation.
package internal

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Status values, ordered from best to worst.
const (
	StatusHealthy = iota
	StatusDegraded
	StatusUnhealthy
)

// Result is the outcome of one check.
type Result struct {
	Status      int
	Description string
	Err         error
	Duration    time.Duration
}

// Check is a registered health check.
type Check struct {
	Name string
	Tags []string
	Fn   func(ctx context.Context) Result
}

// Registry stores checks in registration order.
type Registry struct {
	mu     sync.RWMutex
	checks []Check
}

// Add appends c and reports false when the name is taken.
func (r *Registry) Add(c Check) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.ContainsFunc(r.checks, func(e Check) bool { return e.Name == c.Name }) {
		return false
	}
	c.Tags = slices.Clone(c.Tags)
	r.checks = append(r.checks, c)
	return true
}

// Snapshot copies the registered checks.
func (r *Registry) Snapshot() []Check {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.checks)
}

// Run executes checks concurrently. A panicking check counts as unhealthy.
func Run(ctx context.Context, checks []Check) []Result {
	results := make([]Result, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			defer func() {
				if rec := recover(); rec != nil {
					results[i] = Result{Status: StatusUnhealthy, Err: fmt.Errorf("check %s panicked: %v", c.Name, rec)}
				}
				results[i].Duration = time.Since(start)
			}()
			results[i] = c.Fn(ctx)
		}()
	}
	wg.Wait()
	return results
}
