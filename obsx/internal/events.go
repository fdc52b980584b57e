package internal

import (
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EventCountersScope is the meter name for event source counters.
const EventCountersScope = "go.eggybyte.com/egg/obsx/eventcounters"

// EventSource is a named group of counters written by producers and read by
// the event counter instrumentation.
type EventSource struct {
	name     string
	mu       sync.RWMutex
	counters map[string]*atomic.Int64
}

// Name returns the source name.
func (s *EventSource) Name() string { return s.name }

func (s *EventSource) counter(name string) *atomic.Int64 {
	s.mu.RLock()
	c, ok := s.counters[name]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.counters[name]; !ok {
		c = new(atomic.Int64)
		s.counters[name] = c
	}
	return c
}

// Add adjusts counter name by delta.
func (s *EventSource) Add(name string, delta int64) {
	s.counter(name).Add(delta)
}

// Value returns the current value of counter name.
func (s *EventSource) Value(name string) int64 {
	return s.counter(name).Load()
}

// Snapshot copies every counter value.
func (s *EventSource) Snapshot() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64, len(s.counters))
	for k, c := range s.counters {
		out[k] = c.Load()
	}
	return out
}

var (
	sourcesMu sync.Mutex
	sources   = map[string]*EventSource{}
)

// Source returns the process-wide source called name, creating it on first use.
func Source(name string) *EventSource {
	sourcesMu.Lock()
	defer sourcesMu.Unlock()
	s, ok := sources[name]
	if !ok {
		s = &EventSource{name: name, counters: map[string]*atomic.Int64{}}
		sources[name] = s
	}
	return s
}

// EnableEventCounters publishes the counters of the named sources as a single
// gauge with event_source and counter attributes.
func EnableEventCounters(mp metric.MeterProvider, names []string) error {
	meter := mp.Meter(EventCountersScope)
	gauge, err := meter.Int64ObservableGauge(
		"egg_event_counter",
		metric.WithDescription("Current value of a named event source counter"),
	)
	if err != nil {
		return err
	}

	watched := make([]*EventSource, 0, len(names))
	for _, n := range names {
		watched = append(watched, Source(n))
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for _, src := range watched {
			snap := src.Snapshot()
			for _, k := range slices.Sorted(maps.Keys(snap)) {
				o.ObserveInt64(gauge, snap[k], metric.WithAttributes(
					attribute.String("event_source", src.name),
					attribute.String("counter", k),
				))
			}
		}
		return nil
	}, gauge)
	return err
}
