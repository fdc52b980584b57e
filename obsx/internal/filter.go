package internal

import (
	"context"
	"slices"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ScopeSet is an insertion-ordered set of instrumentation scope names.
type ScopeSet struct {
	names []string
}

// Add appends names not already present. Blank names are ignored.
func (s *ScopeSet) Add(names ...string) {
	for _, n := range names {
		if n == "" || slices.Contains(s.names, n) {
			continue
		}
		s.names = append(s.names, n)
	}
}

// Contains reports whether name is in the set.
func (s *ScopeSet) Contains(name string) bool {
	return slices.Contains(s.names, name)
}

// Names returns a copy of the names in insertion order.
func (s *ScopeSet) Names() []string {
	return slices.Clone(s.names)
}

// Len returns the number of names.
func (s *ScopeSet) Len() int {
	return len(s.names)
}

// DropUnlisted returns a view that drops every instrument whose meter is not
// in allowed.
func DropUnlisted(allowed []string) sdkmetric.View {
	return func(inst sdkmetric.Instrument) (sdkmetric.Stream, bool) {
		if slices.Contains(allowed, inst.Scope.Name) {
			return sdkmetric.Stream{}, false
		}
		return sdkmetric.Stream{
			Name:        inst.Name,
			Description: inst.Description,
			Unit:        inst.Unit,
			Aggregation: sdkmetric.AggregationDrop{},
		}, true
	}
}

// ScopeFilter forwards spans to Next only when their tracer is in Allowed.
type ScopeFilter struct {
	Next    sdktrace.SpanProcessor
	Allowed []string
}

func (f ScopeFilter) allowed(name string) bool {
	return slices.Contains(f.Allowed, name)
}

// OnStart implements sdktrace.SpanProcessor.
func (f ScopeFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	if f.allowed(s.InstrumentationScope().Name) {
		f.Next.OnStart(parent, s)
	}
}

// OnEnd implements sdktrace.SpanProcessor.
func (f ScopeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	if f.allowed(s.InstrumentationScope().Name) {
		f.Next.OnEnd(s)
	}
}

// Shutdown implements sdktrace.SpanProcessor.
func (f ScopeFilter) Shutdown(ctx context.Context) error {
	return f.Next.Shutdown(ctx)
}

// ForceFlush implements sdktrace.SpanProcessor.
func (f ScopeFilter) ForceFlush(ctx context.Context) error {
	return f.Next.ForceFlush(ctx)
}
