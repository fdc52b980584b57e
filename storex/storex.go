// Package storex opens the database, cache and search clients of a host and
// reports their health.
//
// Overview:
//   - Responsibility: Open storage clients, instrument them, track them by name
//   - Key Types: Store, Registry, GORMStore, SearchClient, Cache, Instrumenter
//   - Concurrency Model: Every type is safe for concurrent use
//   - Error Semantics: Driver errors are wrapped with %w; Ping failures are joined
//   - Performance Notes: Pool metrics are observed on collection, not per query
//
// Usage:
//
//	reg := storex.NewRegistry()
//	db, err := storex.NewGORMStore(storex.GORMOptions{Driver: "postgres", DSN: dsn})
//	_ = reg.Register("database", db)
//	_ = reg.RegisterHealth(health)
package storex

import (
	"context"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"

	"go.eggybyte.com/egg/core/errors"
	"go.eggybyte.com/egg/core/log"
	"go.eggybyte.com/egg/obsx"
	"go.eggybyte.com/egg/runtimex"
	"go.eggybyte.com/egg/storex/internal"
)

// Meter and tracer names used by the storage layer.
const (
	InstrumentationName       = "go.eggybyte.com/egg/storex"
	SearchInstrumentationName = "go.eggybyte.com/egg/storex/search"
)

// HealthCheckName is the check RegisterHealth adds.
const HealthCheckName = "storage"

// Store is a storage backend.
// Implementations must be safe for concurrent use.
type Store interface {
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the connection.
	Close() error
}

// Instrumenter installs tracing hooks on storage clients.
// *obsx.Provider implements it.
type Instrumenter interface {
	InstrumentDB(db *gorm.DB) error
	InstrumentRedis(rdb redis.UniversalClient) error
	InstrumentSearch(cfg *elasticsearch.Config)
}

// Registry manages named stores.
type Registry struct {
	impl *internal.Registry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{impl: internal.NewRegistry()}
}

// Register adds store under name. Names must be unique.
func (r *Registry) Register(name string, store Store) error {
	return r.impl.Register(name, store)
}

// Unregister removes name without closing it.
func (r *Registry) Unregister(name string) error {
	return r.impl.Unregister(name)
}

// Get returns the store called name.
func (r *Registry) Get(name string) (Store, bool) {
	return r.impl.Get(name)
}

// List returns store names in registration order.
func (r *Registry) List() []string {
	return r.impl.List()
}

// Ping pings every store and joins the failures.
func (r *Registry) Ping(ctx context.Context) error {
	return r.impl.Ping(ctx)
}

// Close closes every store, most recent first.
func (r *Registry) Close() error {
	return r.impl.Close()
}

// RegisterHealth adds a readiness check, tagged "ready", that pings every
// store registered now or later. Each run is bounded by 5 seconds.
func (r *Registry) RegisterHealth(h *runtimex.HealthRegistry) error {
	return h.AddCheck(HealthCheckName, func(ctx context.Context) runtimex.HealthResult {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := r.Ping(ctx); err != nil {
			return runtimex.Unhealthy(err)
		}
		return runtimex.Healthy()
	}, "ready")
}

// GORMOptions configures a GORM store.
type GORMOptions struct {
	Name            string        // Pool label on metrics; defaults to the driver
	DSN             string        // Database connection string
	Driver          string        // mysql, postgres or sqlite
	MaxIdleConns    int           // Maximum number of idle connections
	MaxOpenConns    int           // Maximum number of open connections
	ConnMaxLifetime time.Duration // Maximum connection lifetime
	Logger          log.Logger    // Receives GORM logs when set
	Instrumenter    Instrumenter  // Installs the tracing plugin when set
}

// GORMStore is a Store backed by GORM.
type GORMStore struct {
	db  *gorm.DB
	reg metric.Registration
}

// NewGORMStore opens the database, installs tracing and publishes pool
// metrics under InstrumentationName on the global meter provider.
func NewGORMStore(opts GORMOptions) (*GORMStore, error) {
	db, err := internal.OpenGORM(internal.GORMOptions{
		DSN:             opts.DSN,
		Driver:          opts.Driver,
		MaxIdleConns:    opts.MaxIdleConns,
		MaxOpenConns:    opts.MaxOpenConns,
		ConnMaxLifetime: opts.ConnMaxLifetime,
		Logger:          opts.Logger,
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "storex.gorm", err)
	}
	s := &GORMStore{db: db}

	if opts.Instrumenter != nil {
		if err := opts.Instrumenter.InstrumentDB(db); err != nil {
			_ = s.Close()
			return nil, errors.Wrap(errors.CodeInternal, "storex.gorm", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		_ = s.Close()
		return nil, errors.Wrap(errors.CodeInternal, "storex.gorm", err)
	}
	name := opts.Name
	if name == "" {
		name = opts.Driver
	}
	s.reg, err = obsx.RegisterDBMetrics(otel.Meter(InstrumentationName), name, sqlDB)
	if err != nil {
		_ = s.Close()
		return nil, errors.Wrap(errors.CodeInternal, "storex.gorm", err)
	}
	return s, nil
}

// DB returns the GORM handle.
func (s *GORMStore) DB() *gorm.DB {
	return s.db
}

// Ping implements Store.
func (s *GORMStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close implements Store.
func (s *GORMStore) Close() error {
	if s.reg != nil {
		_ = s.reg.Unregister()
		s.reg = nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsConnectionError reports whether err is a transport failure rather than
// a query outcome such as a missing record or a constraint violation.
func IsConnectionError(err error) bool {
	return internal.IsConnectionError(err)
}
