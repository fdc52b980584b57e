// Package configx provides unified configuration management with hot reloading.
//
// Overview:
//   - Responsibility: Merge configuration from environment, files and ConfigMaps
//   - Key Types: Lookup for read access, Source, Manager, BaseConfig
//   - Concurrency Model: Manager is safe for concurrent use, sources must be thread-safe
//   - Error Semantics: Functions return errors for initialization and binding failures
//   - Performance Notes: Updates are debounced per source and re-merged from cached layers
//
// Keys use ":" as the section separator ("Aspire:Enabled"). Environment
// variables and ConfigMap keys spell it "__" ("Aspire__Enabled").
//
// Usage:
//
//	manager, err := configx.DefaultManager(ctx, logger, configx.DefaultOptions{
//	  Files: []string{"appsettings.yaml"},
//	})
//	var cfg configx.BaseConfig
//	err = manager.Bind(&cfg, configx.WithValidation(nil))
//	enabled := configx.Bool(manager, "Aspire:Enabled", false)
package configx

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"k8s.io/client-go/kubernetes"

	"go.eggybyte.com/egg/configx/internal"
	"go.eggybyte.com/egg/core/log"
)

// Lookup is read access to configuration values.
type Lookup interface {
	// Value returns the value for a key and whether it exists.
	Value(key string) (string, bool)
}

// Map is an in-memory Lookup.
type Map map[string]string

// Value implements Lookup.
func (m Map) Value(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Snapshot returns a copy of m.
func (m Map) Snapshot() map[string]string {
	return maps.Clone(m)
}

// Snapshotter exposes every key at once.
type Snapshotter interface {
	Snapshot() map[string]string
}

// Bool returns the boolean at key. Absent or malformed values yield def.
func Bool(l Lookup, key string, def bool) bool {
	if l == nil {
		return def
	}
	raw, ok := l.Value(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

// String returns the value at key, or def when the key is absent or blank.
func String(l Lookup, key, def string) string {
	if l == nil {
		return def
	}
	if v, ok := l.Value(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

// Section returns every key under prefix with the prefix and its separator
// removed. Section(m, "services:catalog") maps "services:catalog:http:0" to "http:0".
func Section(m Snapshotter, prefix string) map[string]string {
	prefix += internal.KeyDelimiter
	out := make(map[string]string)
	for k, v := range m.Snapshot() {
		if rest, ok := strings.CutPrefix(k, prefix); ok {
			out[rest] = v
		}
	}
	return out
}

// Source describes a configuration source that can load and watch for updates.
// Implementations must be thread-safe and honor context cancellation.
type Source interface {
	// Load reads the current configuration snapshot for initial merge.
	Load(ctx context.Context) (map[string]string, error)

	// Watch publishes snapshots via the returned channel.
	// The channel is closed when the context is cancelled.
	Watch(ctx context.Context) (<-chan map[string]string, error)
}

// Manager manages multiple configuration sources and provides unified access.
// The manager merges configurations with later sources taking precedence.
type Manager interface {
	Lookup

	// Snapshot returns a copy of the current merged configuration.
	Snapshot() map[string]string

	// Bind decodes the configuration into a struct with env tags and default values.
	Bind(target any, opts ...BindOption) error

	// OnUpdate subscribes to configuration update events.
	// Returns an unsubscribe function.
	OnUpdate(fn func(snapshot map[string]string)) (unsubscribe func())
}

// Options holds configuration for the manager.
type Options struct {
	Logger   log.Logger    // Logger for configuration operations
	Sources  []Source      // Configuration sources (later sources override earlier ones)
	Debounce time.Duration // Debounce duration for updates (default: 200ms)
}

// BindOption configures binding behavior.
type BindOption interface {
	apply(*bindConfig)
}

type bindConfig struct {
	onUpdate func()
	validate *validator.Validate
	enabled  bool
}

type bindOptionFunc func(*bindConfig)

func (f bindOptionFunc) apply(cfg *bindConfig) {
	f(cfg)
}

// WithUpdateCallback rebinds the target on every configuration change and
// then invokes fn.
func WithUpdateCallback(fn func()) BindOption {
	return bindOptionFunc(func(cfg *bindConfig) {
		cfg.onUpdate = fn
	})
}

// WithValidation validates the bound target with v (a default validator when nil).
func WithValidation(v *validator.Validate) BindOption {
	return bindOptionFunc(func(cfg *bindConfig) {
		cfg.enabled = true
		cfg.validate = v
	})
}

// BaseConfig provides common configuration fields for every host.
type BaseConfig struct {
	ServiceName    string `env:"SERVICE_NAME" default:"app"`
	ServiceVersion string `env:"SERVICE_VERSION" default:"0.0.0"`
	Env            string `env:"ENV" default:"dev"`
	LogLevel       string `env:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat      string `env:"LOG_FORMAT" default:"logfmt" validate:"oneof=logfmt json"`

	HTTPPort        string        `env:"HTTP_PORT" default:":8080" validate:"listen_addr"`
	HealthPort      string        `env:"HEALTH_PORT" default:":8081" validate:"listen_addr"`
	MetricsPort     string        `env:"METRICS_PORT" default:":9091" validate:"listen_addr"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"15s"`

	Database DatabaseConfig
	Cache    CacheConfig
	Search   SearchConfig
}

// DatabaseConfig holds database connection settings. An empty DSN disables the database.
type DatabaseConfig struct {
	Driver      string        `env:"DB_DRIVER" default:"mysql" validate:"oneof=mysql postgres sqlite"`
	DSN         string        `env:"DB_DSN" default:""`
	MaxIdle     int           `env:"DB_MAX_IDLE" default:"10"`
	MaxOpen     int           `env:"DB_MAX_OPEN" default:"100"`
	MaxLifetime time.Duration `env:"DB_MAX_LIFETIME" default:"1h"`
}

// CacheConfig holds key-value cache settings. An empty address disables the cache.
type CacheConfig struct {
	Addr     string `env:"REDIS_ADDR" default:""`
	Password string `env:"REDIS_PASSWORD" default:""`
	DB       int    `env:"REDIS_DB" default:"0"`
}

// SearchConfig holds search cluster settings. No addresses disables search.
type SearchConfig struct {
	Addresses []string `env:"ELASTICSEARCH_URLS"`
	Username  string   `env:"ELASTICSEARCH_USERNAME" default:""`
	Password  string   `env:"ELASTICSEARCH_PASSWORD" default:""`
}

type manager struct {
	impl *internal.ManagerImpl
}

// NewManager creates a configuration manager, loads every source and starts
// watching them until ctx is cancelled.
func NewManager(ctx context.Context, opts Options) (Manager, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if len(opts.Sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}

	internalSources := make([]internal.Source, len(opts.Sources))
	for i, src := range opts.Sources {
		internalSources[i] = src
	}

	impl, err := internal.NewManager(opts.Logger, internalSources, opts.Debounce)
	if err != nil {
		return nil, err
	}

	if err := impl.Initialize(ctx); err != nil {
		return nil, err
	}

	return &manager{impl: impl}, nil
}

func (m *manager) Snapshot() map[string]string {
	return m.impl.Snapshot()
}

func (m *manager) Value(key string) (string, bool) {
	return m.impl.Value(key)
}

func (m *manager) Bind(target any, opts ...BindOption) error {
	if target == nil {
		return fmt.Errorf("target cannot be nil")
	}

	var cfg bindConfig
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	bc := internal.BindConfig{OnUpdate: cfg.onUpdate}
	if cfg.enabled {
		v := cfg.validate
		bc.Validate = func(target any) error {
			return ValidateStruct(v, target)
		}
	}
	return m.impl.Bind(target, bc)
}

func (m *manager) OnUpdate(fn func(snapshot map[string]string)) func() {
	return m.impl.OnUpdate(fn)
}

// EnvOptions configures environment variable source behavior.
type EnvOptions struct {
	Prefix    string
	Lowercase bool
	Uppercase bool
}

// FileOptions configures file source behavior.
type FileOptions struct {
	Watch    bool          // Poll the file for changes
	Format   string        // "json" or "yaml" (default: from extension)
	Interval time.Duration // Polling interval (default: 1s)
	Optional bool          // Missing file yields an empty snapshot
	Logger   log.Logger
}

// K8sOptions configures Kubernetes ConfigMap source behavior.
type K8sOptions struct {
	Namespace string
	Client    kubernetes.Interface
	Logger    log.Logger
}

// NewEnvSource creates an environment variable configuration source.
func NewEnvSource(opts EnvOptions) Source {
	return internal.NewEnvSource(internal.EnvOptions{
		Prefix:    opts.Prefix,
		Lowercase: opts.Lowercase,
		Uppercase: opts.Uppercase,
	})
}

// NewFileSource creates a JSON or YAML file configuration source.
func NewFileSource(path string, opts FileOptions) Source {
	return internal.NewFileSource(path, internal.FileOptions(opts))
}

// NewMapSource creates a static configuration source.
func NewMapSource(data map[string]string) Source {
	return internal.NewMapSource(data)
}

// NewK8sConfigMapSource creates a Kubernetes ConfigMap configuration source.
func NewK8sConfigMapSource(name string, opts K8sOptions) Source {
	return internal.NewK8sConfigMapSource(name, internal.K8sOptions(opts))
}

// DefaultOptions selects the sources of DefaultManager.
type DefaultOptions struct {
	Files     []string             // Config files applied after the environment
	Watch     bool                 // Poll config files for changes
	K8sClient kubernetes.Interface // Clientset for *_CONFIGMAP_NAME sources
	Extra     []Source             // Sources applied last
}

// DefaultManager creates a manager over the environment, opts.Files, and any
// ConfigMap named by an *_CONFIGMAP_NAME variable.
func DefaultManager(ctx context.Context, logger log.Logger, opts DefaultOptions) (Manager, error) {
	internalSources := internal.BuildSources(logger, internal.BuildOptions{
		Files:     opts.Files,
		File:      internal.FileOptions{Watch: opts.Watch, Logger: logger},
		K8sClient: opts.K8sClient,
	})

	sources := make([]Source, 0, len(internalSources)+len(opts.Extra))
	for _, s := range internalSources {
		sources = append(sources, s)
	}
	sources = append(sources, opts.Extra...)

	return NewManager(ctx, Options{
		Logger:  logger,
		Sources: sources,
	})
}
