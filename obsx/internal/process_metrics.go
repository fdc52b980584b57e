package internal

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ProcessScope is the meter name for process metrics.
const ProcessScope = "go.eggybyte.com/egg/obsx/process"

var processStartTime = time.Now()

// EnableProcessMetrics registers start time, uptime and memory obtained from
// the OS.
func EnableProcessMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(ProcessScope)

	startTime, err := meter.Float64ObservableGauge(
		"process_start_time_seconds",
		metric.WithDescription("Start time of the process since unix epoch in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	uptime, err := meter.Float64ObservableGauge(
		"process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	sysBytes, err := meter.Int64ObservableGauge(
		"process_memory_sys_bytes",
		metric.WithDescription("Memory obtained from the OS by the Go runtime"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(
		func(_ context.Context, observer metric.Observer) error {
			observer.ObserveFloat64(startTime, float64(processStartTime.Unix()))
			observer.ObserveFloat64(uptime, time.Since(processStartTime).Seconds())

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			observer.ObserveInt64(sysBytes, int64(m.Sys))
			return nil
		},
		startTime,
		uptime,
		sysBytes,
	)
	return err
}
