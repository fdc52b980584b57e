package internal

import (
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
)

// ScopedTracerProvider hands out tracers under a fixed scope name, whatever
// name the instrumented library asks for. Spans from third-party hooks then
// match the scope the builder allowed.
type ScopedTracerProvider struct {
	embedded.TracerProvider

	Provider trace.TracerProvider
	Scope    string
}

// Tracer implements trace.TracerProvider.
func (s ScopedTracerProvider) Tracer(_ string, opts ...trace.TracerOption) trace.Tracer {
	return s.Provider.Tracer(s.Scope, opts...)
}
