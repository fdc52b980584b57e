package internal

import (
	"context"
	"runtime"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeScope is the meter name for Go runtime metrics.
const RuntimeScope = "go.eggybyte.com/egg/obsx/runtime"

// EnableRuntimeMetrics registers observable gauges for goroutines, heap,
// stack and GC cycles. Values are read on collection.
func EnableRuntimeMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(RuntimeScope)

	goroutines, err := meter.Int64ObservableGauge(
		"process_runtime_go_goroutines",
		metric.WithDescription("Number of goroutines that currently exist"),
		metric.WithUnit("{goroutine}"),
	)
	if err != nil {
		return err
	}

	heapBytes, err := meter.Int64ObservableGauge(
		"process_runtime_go_memory_heap_bytes",
		metric.WithDescription("Heap memory in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	stackBytes, err := meter.Int64ObservableGauge(
		"process_runtime_go_memory_stack_bytes",
		metric.WithDescription("Stack memory in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	gcCount, err := meter.Int64ObservableCounter(
		"process_runtime_go_gc_count_total",
		metric.WithDescription("Total number of GC cycles completed"),
		metric.WithUnit("{gc}"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(
		func(_ context.Context, observer metric.Observer) error {
			observer.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			observer.ObserveInt64(heapBytes, int64(m.HeapAlloc))
			observer.ObserveInt64(stackBytes, int64(m.StackInuse))
			observer.ObserveInt64(gcCount, int64(m.NumGC))
			return nil
		},
		goroutines,
		heapBytes,
		stackBytes,
		gcCount,
	)
	return err
}
