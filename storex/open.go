package storex

import (
	"fmt"

	"go.eggybyte.com/egg/configx"
	"go.eggybyte.com/egg/core/log"
)

// Store names used by Open.
const (
	DatabaseStore = "database"
	CacheStore    = "cache"
	SearchStore   = "search"
)

// Open creates a registry holding every backend enabled in cfg: a database
// when the DSN is set, a cache when the address is set and a search client
// when addresses are listed. On failure the stores opened so far are closed.
//
// Parameters:
//   - cfg: bound host configuration
//   - inst: telemetry hooks, or nil to leave clients uninstrumented
//   - logger: receives GORM query logs and open events
//
// Returns:
//   - *Registry: possibly empty when no backend is configured
//   - error: CodeUnavailable or CodeInternal from the failing store
func Open(cfg configx.BaseConfig, inst Instrumenter, logger log.Logger) (*Registry, error) {
	reg := NewRegistry()
	fail := func(err error) (*Registry, error) {
		_ = reg.Close()
		return nil, err
	}

	if db := cfg.Database; db.DSN != "" {
		s, err := NewGORMStore(GORMOptions{
			Name:            DatabaseStore,
			DSN:             db.DSN,
			Driver:          db.Driver,
			MaxIdleConns:    db.MaxIdle,
			MaxOpenConns:    db.MaxOpen,
			ConnMaxLifetime: db.MaxLifetime,
			Logger:          logger,
			Instrumenter:    inst,
		})
		if err != nil {
			return fail(fmt.Errorf("open database: %w", err))
		}
		_ = reg.Register(DatabaseStore, s)
	}

	if c := cfg.Cache; c.Addr != "" {
		s, err := NewCache(CacheOptions{Addr: c.Addr, Password: c.Password, DB: c.DB, Instrumenter: inst})
		if err != nil {
			return fail(fmt.Errorf("open cache: %w", err))
		}
		_ = reg.Register(CacheStore, s)
	}

	if sc := cfg.Search; len(sc.Addresses) > 0 {
		s, err := NewSearchClient(SearchOptions{
			Addresses:    sc.Addresses,
			Username:     sc.Username,
			Password:     sc.Password,
			Instrumenter: inst,
		})
		if err != nil {
			return fail(fmt.Errorf("open search: %w", err))
		}
		_ = reg.Register(SearchStore, s)
	}

	return reg, nil
}
