package internal

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type poolStat struct {
	name string
	desc string
	unit string
	read func(sql.DBStats) int64
}

var poolStats = []poolStat{
	{"db_pool_open_connections", "Number of established connections both in use and idle", "{connection}",
		func(s sql.DBStats) int64 { return int64(s.OpenConnections) }},
	{"db_pool_in_use", "Number of connections currently in use", "{connection}",
		func(s sql.DBStats) int64 { return int64(s.InUse) }},
	{"db_pool_idle", "Number of idle connections", "{connection}",
		func(s sql.DBStats) int64 { return int64(s.Idle) }},
	{"db_pool_max_open", "Maximum number of open connections to the database", "{connection}",
		func(s sql.DBStats) int64 { return int64(s.MaxOpenConnections) }},
	{"db_pool_wait_count", "Total number of connections waited for", "{wait}",
		func(s sql.DBStats) int64 { return s.WaitCount }},
}

// RegisterDBMetrics registers connection pool gauges for db on meter,
// labelled with db_name. Stats are read from sql.DBStats on collection.
func RegisterDBMetrics(meter metric.Meter, name string, db *sql.DB) (metric.Registration, error) {
	gauges := make([]metric.Int64ObservableGauge, len(poolStats))
	observables := make([]metric.Observable, 0, len(poolStats)+1)
	for i, ps := range poolStats {
		g, err := meter.Int64ObservableGauge(ps.name, metric.WithDescription(ps.desc), metric.WithUnit(ps.unit))
		if err != nil {
			return nil, err
		}
		gauges[i] = g
		observables = append(observables, g)
	}

	waitSeconds, err := meter.Float64ObservableCounter(
		"db_pool_wait_seconds",
		metric.WithDescription("Total time blocked waiting for new connections"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	observables = append(observables, waitSeconds)

	attrs := metric.WithAttributes(attribute.String("db_name", name))
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := db.Stats()
		for i, ps := range poolStats {
			o.ObserveInt64(gauges[i], ps.read(stats), attrs)
		}
		o.ObserveFloat64(waitSeconds, stats.WaitDuration.Seconds(), attrs)
		return nil
	}, observables...)
}
