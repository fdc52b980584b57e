// Package internal provides internal implementation details for configx.
package internal

import (
	"context"
	"strings"
)

// Source describes a configuration source that can load and watch for updates.
// Implementations must be thread-safe and honor context cancellation.
type Source interface {
	// Load reads the current configuration snapshot for initial merge.
	Load(ctx context.Context) (map[string]string, error)

	// Watch publishes snapshots via the returned channel. The channel is
	// closed when the context is cancelled.
	Watch(ctx context.Context) (<-chan map[string]string, error)
}

// KeyDelimiter separates configuration sections, as in "Aspire:Enabled".
const KeyDelimiter = ":"

// envSectionSeparator is the portable stand-in for KeyDelimiter in
// environment variable names: Aspire__Enabled maps to Aspire:Enabled.
const envSectionSeparator = "__"

// NormalizeEnvKey maps an environment variable name onto a section key.
func NormalizeEnvKey(name string) string {
	return strings.ReplaceAll(name, envSectionSeparator, KeyDelimiter)
}

// idle returns a channel that never publishes and closes when ctx is done.
func idle(ctx context.Context) <-chan map[string]string {
	ch := make(chan map[string]string)
	go func() {
		defer close(ch)
		<-ctx.Done()
	}()
	return ch
}
