// Package logx provides a structured logging implementation based on slog.
//
// Overview:
//   - Responsibility: Console logging plus pluggable sinks such as OTLP export
//   - Key Types: Logger, Configuration, Configurator, Sink, Pipeline, OTLPSink
//   - Concurrency Model: All loggers are safe for concurrent use
//   - Error Semantics: Logging never returns errors; Build and Shutdown do
//   - Performance Notes: Records are cloned once per sink; fields sorted on output
//
// Usage:
//
//	logger := logx.New(logx.WithFormat(logx.FormatLogfmt), logx.WithColor(true))
//	logger.Info("user created", log.Str("user_id", "u-123"))
package logx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.eggybyte.com/egg/core/identity"
	"go.eggybyte.com/egg/core/log"
	"go.eggybyte.com/egg/logx/internal"
)

// Format specifies the output format for logs.
type Format string

const (
	// FormatLogfmt outputs logs in logfmt format (key=value pairs).
	FormatLogfmt Format = "logfmt"
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = "json"
)

// Options configures the console output.
type Options struct {
	Format           Format     // Output format: logfmt or json
	Level            slog.Level // Minimum log level, shared by every sink
	Color            bool       // Enable colorization for level field only
	Writer           io.Writer  // Output writer (default: os.Stderr)
	PayloadMaxBytes  int        // Maximum bytes to log for large payloads (0 = unlimited)
	SensitiveFields  []string   // Field names to mask (e.g., "password", "token")
	DisableTimestamp bool       // Disable timestamp in output
}

func defaultOptions() Options {
	return Options{
		Format:           FormatLogfmt,
		Level:            slog.LevelInfo,
		Writer:           os.Stderr,
		DisableTimestamp: true, // Container already adds timestamp
	}
}

func (o Options) consoleHandler() slog.Handler {
	w := o.Writer
	if w == nil {
		w = os.Stderr
	}
	return internal.NewConsoleHandler(internal.Options{
		Format:           string(o.Format),
		Level:            o.Level,
		Color:            o.Color,
		PayloadMaxBytes:  o.PayloadMaxBytes,
		SensitiveFields:  o.SensitiveFields,
		DisableTimestamp: o.DisableTimestamp,
	}, w)
}

// Option configures logger behavior.
type Option func(*Options)

// WithFormat sets the output format.
func WithFormat(format Format) Option {
	return func(o *Options) {
		o.Format = format
	}
}

// WithLevel sets the minimum log level.
func WithLevel(level slog.Level) Option {
	return func(o *Options) {
		o.Level = level
	}
}

// WithColor enables colorization for the level field only.
func WithColor(enabled bool) Option {
	return func(o *Options) {
		o.Color = enabled
	}
}

// WithWriter sets the output writer.
func WithWriter(w io.Writer) Option {
	return func(o *Options) {
		o.Writer = w
	}
}

// WithPayloadLimit sets the maximum bytes to log for large payloads.
func WithPayloadLimit(maxBytes int) Option {
	return func(o *Options) {
		o.PayloadMaxBytes = maxBytes
	}
}

// WithSensitiveFields sets field names to mask in logs.
func WithSensitiveFields(fields ...string) Option {
	return func(o *Options) {
		o.SensitiveFields = fields
	}
}

// WithTimestamp enables the time field.
func WithTimestamp(enabled bool) Option {
	return func(o *Options) {
		o.DisableTimestamp = !enabled
	}
}

// ParseLevel maps debug, info, warn or error (any case) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// Logger implements core/log.Logger on top of a slog.Handler.
type Logger struct {
	handler slog.Handler
	ctx     context.Context
}

// New creates a console-only Logger with the given options.
func New(opts ...Option) log.Logger {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return NewWithHandler(options.consoleHandler())
}

// NewWithHandler creates a Logger writing to h.
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{handler: h, ctx: context.Background()}
}

// Handler exposes the underlying slog handler.
func (l *Logger) Handler() slog.Handler {
	return l.handler
}

// WithContext returns a Logger that hands ctx to its handlers, so sinks can
// correlate records with the active span.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Logger{handler: l.handler, ctx: ctx}
}

// With returns a new Logger with the given key-value pairs attached.
func (l *Logger) With(kv ...any) log.Logger {
	attrs := internal.KVToAttrs(kv)
	if len(attrs) == 0 {
		return l
	}
	return &Logger{handler: l.handler.WithAttrs(attrs), ctx: l.ctx}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, kv ...any) {
	l.log(slog.LevelDebug, msg, internal.KVToAttrs(kv))
}

// Info logs an informational message.
func (l *Logger) Info(msg string, kv ...any) {
	l.log(slog.LevelInfo, msg, internal.KVToAttrs(kv))
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, kv ...any) {
	l.log(slog.LevelWarn, msg, internal.KVToAttrs(kv))
}

// Error logs an error message.
func (l *Logger) Error(err error, msg string, kv ...any) {
	attrs := internal.KVToAttrs(kv)
	if err != nil {
		attrs = append([]slog.Attr{slog.Any("error", err)}, attrs...)
	}
	l.log(slog.LevelError, msg, attrs)
}

func (l *Logger) log(level slog.Level, msg string, attrs []slog.Attr) {
	if !l.handler.Enabled(l.ctx, level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(attrs...)
	_ = l.handler.Handle(l.ctx, r)
}

// FromContext returns base enriched with request metadata from ctx. When base
// is a *Logger the context is attached too, carrying trace correlation.
func FromContext(ctx context.Context, base log.Logger) log.Logger {
	if l, ok := base.(*Logger); ok {
		base = l.WithContext(ctx)
	}

	if meta, ok := identity.MetaFrom(ctx); ok {
		var attrs []any
		if meta.RequestID != "" {
			attrs = append(attrs, "request_id", meta.RequestID)
		}
		if meta.Route != "" {
			attrs = append(attrs, "route", meta.Route)
		}
		if len(attrs) > 0 {
			return base.With(attrs...)
		}
	}
	return base
}
