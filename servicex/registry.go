package servicex

import (
	"sync"

	"go.uber.org/dig"

	"go.eggybyte.com/egg/clientx"
	"go.eggybyte.com/egg/configx"
	"go.eggybyte.com/egg/core/log"
	"go.eggybyte.com/egg/obsx"
	"go.eggybyte.com/egg/runtimex"
	"go.eggybyte.com/egg/servicex/internal"
)

// Config is the configuration view modules receive.
type Config interface {
	configx.Lookup
	configx.Snapshotter
}

// Registry is the dependency registration container shared by modules
// during initialization. It is safe for concurrent use.
type Registry struct {
	container *internal.Container
	cfg       Config
	logger    log.Logger

	mu            sync.Mutex
	telemetry     *obsx.Builder
	health        *runtimex.HealthRegistry
	clients       *clientx.Factory
	markers       map[any]struct{}
	contributions []any
}

// NewRegistry creates a registry over cfg. The config and logger are
// resolvable as Config and log.Logger.
func NewRegistry(cfg Config, logger log.Logger) *Registry {
	if logger == nil {
		logger = log.Nop()
	}
	r := &Registry{
		container: internal.NewContainer(),
		cfg:       cfg,
		logger:    logger,
		health:    runtimex.NewHealthRegistry(),
		clients:   clientx.NewFactory(),
		markers:   make(map[any]struct{}),
	}
	// A fresh container accepts one value per type, so these cannot fail.
	_ = internal.Supply(r.container, cfg)
	_ = internal.Supply(r.container, logger)
	_ = internal.Supply(r.container, r.health)
	_ = internal.Supply(r.container, r.clients)
	return r
}

// Config returns the host configuration.
func (r *Registry) Config() Config { return r.cfg }

// Logger returns the bootstrap logger. The final logger is built after every
// module has initialized.
func (r *Registry) Logger() log.Logger { return r.logger }

// Provide registers a constructor with the registry's dig container. Its
// parameters are resolved when one of its results is first requested.
//
//	r.Provide(NewCatalog, dig.As(new(CatalogReader)))
//
// Parameters:
//   - constructor: function returning one or more values and optionally an error
//   - opts: dig provide options such as dig.As or dig.Name
//
// Returns:
//   - error: invalid constructor, or a type that is already provided
//
// Concurrency:
//   - Safe for concurrent use
func (r *Registry) Provide(constructor any, opts ...dig.ProvideOption) error {
	return r.container.Provide(constructor, opts...)
}

// Resolve fills target, a pointer, with the registered instance of its type.
func (r *Registry) Resolve(target any) error {
	return r.container.Resolve(target)
}

// Supply registers value as the instance of T. With dig.As the value is
// registered under the listed interfaces instead of T.
func Supply[T any](r *Registry, value T, opts ...dig.ProvideOption) error {
	return internal.Supply(r.container, value, opts...)
}

// ResolveTyped returns the registered instance of T.
func ResolveTyped[T any](r *Registry) (T, error) {
	return internal.ResolveTyped[T](r.container)
}

// Contribute adds v to the multi-registrations. The host collects
// logx.Configurator and runtimex.Service contributions.
func (r *Registry) Contribute(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contributions = append(r.contributions, v)
}

// Contributions returns every contribution assignable to T, in order.
func Contributions[T any](r *Registry) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []T
	for _, c := range r.contributions {
		if v, ok := c.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// Telemetry returns the telemetry builder, creating it on first use.
func (r *Registry) Telemetry() *obsx.Builder {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.telemetry == nil {
		r.telemetry = obsx.NewBuilder()
	}
	return r.telemetry
}

// telemetryConfigured reports whether any module registered telemetry.
func (r *Registry) telemetryConfigured() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.telemetry != nil && r.telemetry.Configured()
}

// Health returns the host health registry.
func (r *Registry) Health() *runtimex.HealthRegistry { return r.health }

// HTTPClients returns the named HTTP client factory.
func (r *Registry) HTTPClients() *clientx.Factory { return r.clients }

// Has reports whether marker was set.
func (r *Registry) Has(marker any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.markers[marker]
	return ok
}

// Mark sets marker and reports whether it was newly set. Modules use it to
// make registrations single-shot.
func (r *Registry) Mark(marker any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.markers[marker]; ok {
		return false
	}
	r.markers[marker] = struct{}{}
	return true
}
