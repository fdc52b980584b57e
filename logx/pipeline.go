package logx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.eggybyte.com/egg/core/log"
	"go.eggybyte.com/egg/logx/internal"
)

// Sink is an additional destination for log records.
type Sink interface {
	// Open starts the sink and returns its handler plus a shutdown func that
	// flushes buffered records.
	Open(ctx context.Context) (slog.Handler, func(context.Context) error, error)
}

// Configuration is the logging setup the host owns. Modules contribute sinks
// through Configurators before the pipeline is built.
type Configuration struct {
	Options Options
	sinks   []Sink
}

// NewConfiguration creates a Configuration with the console options applied.
func NewConfiguration(opts ...Option) *Configuration {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Configuration{Options: options}
}

// AddSink appends a sink.
func (c *Configuration) AddSink(s Sink) {
	c.sinks = append(c.sinks, s)
}

// Sinks returns the configured sinks in the order they were added.
func (c *Configuration) Sinks() []Sink {
	return slices.Clone(c.sinks)
}

// Configurator contributes to a Configuration.
type Configurator interface {
	Configure(cfg *Configuration) error
}

// ConfiguratorFunc adapts a function to Configurator.
type ConfiguratorFunc func(cfg *Configuration) error

// Configure implements Configurator.
func (f ConfiguratorFunc) Configure(cfg *Configuration) error {
	return f(cfg)
}

// Pipeline is a built Configuration: one logger writing to the console and
// every sink.
type Pipeline struct {
	logger    *Logger
	shutdowns []func(context.Context) error
}

// Build opens every sink and assembles the pipeline. Sinks opened before a
// failure are shut down again.
//
// Parameters:
//   - ctx: passed to each sink's Open
//   - cfg: console options and sinks; nil uses the defaults
//
// Returns:
//   - *Pipeline: logger fanning out to the console and every sink
//   - error: the first sink that failed to open
func Build(ctx context.Context, cfg *Configuration) (*Pipeline, error) {
	if cfg == nil {
		cfg = NewConfiguration()
	}

	level := cfg.Options.Level
	handlers := []slog.Handler{cfg.Options.consoleHandler()}
	p := &Pipeline{}

	for i, sink := range cfg.sinks {
		h, shutdown, err := sink.Open(ctx)
		if err != nil {
			_ = p.Shutdown(ctx)
			return nil, fmt.Errorf("open log sink %d (%T): %w", i, sink, err)
		}
		handlers = append(handlers, internal.MinLevel(h, level))
		if shutdown != nil {
			p.shutdowns = append(p.shutdowns, shutdown)
		}
	}

	p.logger = NewWithHandler(internal.Fanout(handlers...))
	return p, nil
}

// Logger returns the pipeline logger.
func (p *Pipeline) Logger() log.Logger {
	return p.logger
}

// Slog returns a standard library logger over the same handlers.
func (p *Pipeline) Slog() *slog.Logger {
	return slog.New(p.logger.Handler())
}

// Shutdown flushes and closes every sink in reverse order.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(p.shutdowns) - 1; i >= 0; i-- {
		if err := p.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.shutdowns = nil
	return errors.Join(errs...)
}
