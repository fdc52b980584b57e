package servicex

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"go.eggybyte.com/egg/configx"
	"go.eggybyte.com/egg/core/errors"
	"go.eggybyte.com/egg/core/log"
	"go.eggybyte.com/egg/httpx"
	"go.eggybyte.com/egg/logx"
	"go.eggybyte.com/egg/obsx"
	"go.eggybyte.com/egg/runtimex"
	"go.eggybyte.com/egg/servicex/internal"
	"go.eggybyte.com/egg/storex"
)

// ServiceNameKey overrides BaseConfig.ServiceName for telemetry resources.
const ServiceNameKey = "OTEL_SERVICE_NAME"

// Module is a unit of host functionality.
type Module interface {
	// Name identifies the module in errors and logs.
	Name() string
	// Initialize registers services before the host builds its pipelines.
	Initialize(r *Registry) error
	// PostInitialize adds routes and middlewares once every service is built.
	PostInitialize(p *Pipeline) error
	// Uninstall releases module resources at shutdown.
	Uninstall()
}

// Option configures a Host.
type Option func(*options)

type options struct {
	config      configx.Manager
	configFiles []string
	logger      log.Logger
	logOptions  []logx.Option
	httpAddr    string
	healthAddr  string
	metricsAddr string
}

// WithConfig uses m instead of the default manager.
func WithConfig(m configx.Manager) Option {
	return func(o *options) { o.config = m }
}

// WithConfigFiles adds JSON or YAML files to the default manager.
func WithConfigFiles(paths ...string) Option {
	return func(o *options) { o.configFiles = append(o.configFiles, paths...) }
}

// WithLogger sets the bootstrap logger used until the logging pipeline is
// built.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLogOptions adds console options to the logging configuration.
func WithLogOptions(opts ...logx.Option) Option {
	return func(o *options) { o.logOptions = append(o.logOptions, opts...) }
}

// WithListenAddrs overrides the configured listen addresses. Empty values
// keep the configuration.
func WithListenAddrs(http, health, metrics string) Option {
	return func(o *options) {
		o.httpAddr, o.healthAddr, o.metricsAddr = http, health, metrics
	}
}

// Host boots modules and serves their pipeline.
type Host struct {
	opts    options
	modules []Module

	mu        sync.Mutex
	started   bool
	cfg       configx.Manager
	base      configx.BaseConfig
	logger    log.Logger
	registry  *Registry
	telemetry *obsx.Provider
	stores    *storex.Registry
	runtime   *runtimex.Runtime
	hooks     internal.Hooks
}

// NewHost creates a host.
func NewHost(opts ...Option) *Host {
	h := &Host{}
	for _, opt := range opts {
		opt(&h.opts)
	}
	return h
}

// AddModule appends m. Modules initialize in the order they were added.
func (h *Host) AddModule(m Module) error {
	if m == nil {
		return errors.New(errors.CodeInvalidArgument, "module is nil")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return errors.New(errors.CodeFailedPrecondition, "host already started")
	}
	h.modules = append(h.modules, m)
	return nil
}

// Logger returns the current host logger.
func (h *Host) Logger() log.Logger {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.logger
}

// Registry returns the registry, or nil before Start.
func (h *Host) Registry() *Registry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry
}

// Telemetry returns the built provider, or nil when no module registered
// telemetry.
func (h *Host) Telemetry() *obsx.Provider {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.telemetry
}

// Addr returns the bound address of a server (runtimex.ServerHTTP,
// ServerHealth or ServerMetrics).
func (h *Host) Addr(name string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.runtime == nil {
		return ""
	}
	return h.runtime.Addr(name)
}

// Start boots the host: configuration, bootstrap logger, module
// initialization, logging pipeline, telemetry, storage, module
// post-initialization, then the servers. On failure everything opened so
// far is released.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return errors.New(errors.CodeFailedPrecondition, "host already started")
	}
	h.started = true

	if err := h.start(ctx); err != nil {
		_ = h.hooks.Run(context.Background())
		return err
	}
	return nil
}

func (h *Host) start(ctx context.Context) error {
	if err := h.loadConfig(ctx); err != nil {
		return err
	}

	h.registry = NewRegistry(h.cfg, h.logger)
	for _, m := range h.modules {
		if err := m.Initialize(h.registry); err != nil {
			return fmt.Errorf("module %s: initialize: %w", m.Name(), err)
		}
		h.logger.Debug("module initialized", log.Str("module", m.Name()))
	}

	if err := h.buildLogging(ctx); err != nil {
		return err
	}
	if err := h.buildTelemetry(ctx); err != nil {
		return err
	}
	if err := h.openStores(); err != nil {
		return err
	}

	pipeline := NewPipeline(h.registry)
	for _, m := range h.modules {
		if err := m.PostInitialize(pipeline); err != nil {
			return fmt.Errorf("module %s: post-initialize: %w", m.Name(), err)
		}
	}
	h.hooks.Add("modules", func(context.Context) error {
		for _, m := range slices.Backward(h.modules) {
			m.Uninstall()
		}
		return nil
	})

	return h.serve(ctx, pipeline)
}

func (h *Host) loadConfig(ctx context.Context) error {
	boot := h.opts.logger
	if boot == nil {
		boot = logx.New(h.opts.logOptions...)
	}

	h.cfg = h.opts.config
	if h.cfg == nil {
		m, err := configx.DefaultManager(ctx, boot, configx.DefaultOptions{Files: h.opts.configFiles})
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		h.cfg = m
	}
	if err := h.cfg.Bind(&h.base, configx.WithValidation(nil)); err != nil {
		return fmt.Errorf("bind configuration: %w", err)
	}

	h.logger = boot
	if h.opts.logger == nil {
		h.logger = logx.New(h.consoleOptions()...)
	}
	h.logger.Info("starting host",
		log.Str("service", h.base.ServiceName),
		log.Str("version", h.base.ServiceVersion),
		log.Str("build", internal.BuildTime))
	return nil
}

func (h *Host) consoleOptions() []logx.Option {
	opts := []logx.Option{logx.WithFormat(logx.Format(h.base.LogFormat))}
	if level, err := logx.ParseLevel(h.base.LogLevel); err == nil {
		opts = append(opts, logx.WithLevel(level))
	}
	return append(opts, h.opts.logOptions...)
}

// buildLogging applies every contributed logx.Configurator to the host's
// single logging configuration.
func (h *Host) buildLogging(ctx context.Context) error {
	cfg := logx.NewConfiguration(h.consoleOptions()...)
	for _, c := range Contributions[logx.Configurator](h.registry) {
		if err := c.Configure(cfg); err != nil {
			return fmt.Errorf("configure logging: %w", err)
		}
	}
	if h.opts.logger != nil && len(cfg.Sinks()) == 0 {
		return nil
	}

	logs, err := logx.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build logging: %w", err)
	}
	h.hooks.Add("logging", logs.Shutdown)
	h.logger = logs.Logger()
	slog.SetDefault(logs.Slog())
	return nil
}

func (h *Host) buildTelemetry(ctx context.Context) error {
	if !h.registry.telemetryConfigured() {
		return nil
	}
	provider, err := h.registry.Telemetry().Build(ctx, obsx.Options{
		ServiceName:    configx.String(h.cfg, ServiceNameKey, h.base.ServiceName),
		ServiceVersion: h.base.ServiceVersion,
		ResourceAttrs:  map[string]string{"deployment.environment": h.base.Env},
	})
	if err != nil {
		return fmt.Errorf("build telemetry: %w", err)
	}
	h.hooks.Add("telemetry", provider.Shutdown)
	provider.SetGlobal()
	h.registry.HTTPClients().SetInstrumentation(provider.InstrumentTransport)
	if err := Supply(h.registry, provider); err != nil {
		return err
	}
	h.telemetry = provider
	return nil
}

func (h *Host) openStores() error {
	var inst storex.Instrumenter
	if h.telemetry != nil {
		inst = h.telemetry
	}
	stores, err := storex.Open(h.base, inst, h.logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	h.hooks.Add("storage", func(context.Context) error { return stores.Close() })
	if len(stores.List()) > 0 {
		if err := stores.RegisterHealth(h.registry.Health()); err != nil {
			return fmt.Errorf("register storage health: %w", err)
		}
	}
	if err := Supply(h.registry, stores); err != nil {
		return err
	}
	h.stores = stores
	return nil
}

func (h *Host) serve(ctx context.Context, p *Pipeline) error {
	var handler http.Handler = httpx.Chain(p.Handler(),
		httpx.RequestMeta(),
		httpx.TrackRequests(obsx.Events(obsx.HostingEvents)),
		httpx.Recover(h.logger),
		httpx.AccessLog(h.logger),
	)
	opts := runtimex.Options{
		Logger: h.logger,
		HTTP: &runtimex.HTTPOptions{
			Addr:      or(h.opts.httpAddr, h.base.HTTPPort),
			H2C:       true,
			ConnState: httpx.TrackConnections(obsx.Events(obsx.ConnectionsEvents)),
		},
		Health:          &runtimex.Endpoint{Addr: or(h.opts.healthAddr, h.base.HealthPort), Handler: p.HealthHandler()},
		ShutdownTimeout: h.base.ShutdownTimeout,
	}
	if h.telemetry != nil {
		handler = h.telemetry.InstrumentHandler(handler, h.base.ServiceName)
		opts.Metrics = &runtimex.Endpoint{Addr: or(h.opts.metricsAddr, h.base.MetricsPort), Handler: h.telemetry.PrometheusHandler()}
	}
	opts.HTTP.Handler = handler

	rt, err := runtimex.New(Contributions[runtimex.Service](h.registry), opts)
	if err != nil {
		return err
	}
	if err := rt.Start(ctx); err != nil {
		return err
	}
	h.hooks.Add("runtime", rt.Stop)
	h.runtime = rt
	h.logger.Info("host started",
		log.Str("http", rt.Addr(runtimex.ServerHTTP)),
		log.Str("health", rt.Addr(runtimex.ServerHealth)))
	return nil
}

// Shutdown stops the servers, then releases storage, telemetry, log sinks
// and modules in reverse order of acquisition.
func (h *Host) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	timeout := h.base.ShutdownTimeout
	h.mu.Unlock()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return h.hooks.Run(ctx)
}

// Run starts the host, blocks until ctx is done, then shuts down.
func (h *Host) Run(ctx context.Context) error {
	if err := h.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	h.Logger().Info("shutting down host")
	return h.Shutdown(context.WithoutCancel(ctx))
}

func or(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
