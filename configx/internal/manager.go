// Package internal provides internal implementation for the configx package.
package internal

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"go.eggybyte.com/egg/core/log"
)

// ManagerImpl merges configuration sources and tracks their updates.
type ManagerImpl struct {
	logger   log.Logger
	sources  []Source
	debounce time.Duration

	mu       sync.RWMutex
	layers   []map[string]string // last snapshot per source
	snapshot map[string]string

	subsMu     sync.RWMutex
	updateSubs map[int]func(map[string]string)
	nextSubID  int
}

// NewManager creates a new configuration manager.
func NewManager(logger log.Logger, sources []Source, debounce time.Duration) (*ManagerImpl, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}

	if debounce == 0 {
		debounce = 200 * time.Millisecond
	}

	return &ManagerImpl{
		logger:     logger,
		sources:    sources,
		debounce:   debounce,
		layers:     make([]map[string]string, len(sources)),
		snapshot:   make(map[string]string),
		updateSubs: make(map[int]func(map[string]string)),
	}, nil
}

// Initialize loads initial configuration and starts watching.
func (m *ManagerImpl) Initialize(ctx context.Context) error {
	if err := m.loadInitial(ctx); err != nil {
		return fmt.Errorf("failed to load initial configuration: %w", err)
	}

	if err := m.startWatching(ctx); err != nil {
		return fmt.Errorf("failed to start watching: %w", err)
	}

	return nil
}

func (m *ManagerImpl) loadInitial(ctx context.Context) error {
	layers := make([]map[string]string, len(m.sources))
	for i, source := range m.sources {
		snapshot, err := source.Load(ctx)
		if err != nil {
			return fmt.Errorf("source %d load failed: %w", i, err)
		}
		layers[i] = snapshot
	}

	m.mu.Lock()
	m.layers = layers
	m.snapshot = merge(layers)
	keys := len(m.snapshot)
	m.mu.Unlock()

	m.logger.Info("configuration loaded", log.Int("sources", len(layers)), log.Int("keys", keys))
	return nil
}

// merge overlays layers in order. Later layers win, and empty values never
// override a value set by an earlier layer.
func merge(layers []map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			if _, exists := merged[k]; exists && v == "" {
				continue
			}
			merged[k] = v
		}
	}
	return merged
}

func (m *ManagerImpl) startWatching(ctx context.Context) error {
	for i, source := range m.sources {
		updateChan, err := source.Watch(ctx)
		if err != nil {
			return fmt.Errorf("source %d watch failed: %w", i, err)
		}

		go m.watchSource(ctx, i, updateChan)
	}

	return nil
}

// watchSource debounces snapshots from one source before applying them.
func (m *ManagerImpl) watchSource(ctx context.Context, sourceIndex int, updateChan <-chan map[string]string) {
	var (
		debounceTimer *time.Timer
		pendingMu     sync.Mutex
		pending       map[string]string
	)

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		case snapshot, ok := <-updateChan:
			if !ok {
				return
			}

			pendingMu.Lock()
			pending = snapshot
			pendingMu.Unlock()

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(m.debounce, func() {
				pendingMu.Lock()
				update := pending
				pendingMu.Unlock()
				m.applyUpdate(sourceIndex, update)
			})
		}
	}
}

// applyUpdate replaces one source layer and re-merges.
func (m *ManagerImpl) applyUpdate(sourceIndex int, update map[string]string) {
	m.mu.Lock()
	m.layers[sourceIndex] = update
	merged := merge(m.layers)
	m.snapshot = merged
	m.mu.Unlock()

	m.logger.Info("configuration updated", log.Int("source", sourceIndex), log.Int("keys", len(merged)))
	m.notifySubscribers(maps.Clone(merged))
}

func (m *ManagerImpl) notifySubscribers(snapshot map[string]string) {
	m.subsMu.RLock()
	subs := make([]func(map[string]string), 0, len(m.updateSubs))
	for _, sub := range m.updateSubs {
		subs = append(subs, sub)
	}
	m.subsMu.RUnlock()

	for _, sub := range subs {
		go sub(snapshot)
	}
}

// Snapshot returns a copy of the current configuration.
func (m *ManagerImpl) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.snapshot)
}

// Value returns the value for a key and whether it exists.
func (m *ManagerImpl) Value(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.snapshot[key]
	return value, exists
}

// Bind decodes the configuration into a struct. When cfg.OnUpdate is set the
// target is rebound on every update before the callback runs.
func (m *ManagerImpl) Bind(target any, cfg BindConfig) error {
	if err := BindToStruct(m.Snapshot(), target); err != nil {
		return err
	}
	if cfg.Validate != nil {
		if err := cfg.Validate(target); err != nil {
			return err
		}
	}

	if cfg.OnUpdate != nil {
		var rebindMu sync.Mutex
		m.OnUpdate(func(snapshot map[string]string) {
			rebindMu.Lock()
			defer rebindMu.Unlock()
			if err := BindToStruct(snapshot, target); err != nil {
				m.logger.Error(err, "failed to rebind configuration")
				return
			}
			cfg.OnUpdate()
		})
	}
	return nil
}

// BindConfig holds bind configuration options.
type BindConfig struct {
	OnUpdate func()
	Validate func(target any) error
}

// OnUpdate subscribes to configuration update events.
func (m *ManagerImpl) OnUpdate(fn func(snapshot map[string]string)) func() {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	subID := m.nextSubID
	m.nextSubID++
	m.updateSubs[subID] = fn

	return func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		delete(m.updateSubs, subID)
	}
}
