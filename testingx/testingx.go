// Package testingx provides test helpers for egg hosts and modules.
//
// Overview:
//   - Responsibility: Fake loggers, configuration, environment and telemetry for tests
//   - Key Types: MockLogger, CaptureLogger, Env, TelemetryRecorder
//   - Concurrency Model: Loggers are safe for concurrent use
//   - Error Semantics: Helper failures fail the test via testing.TB
//   - Performance Notes: Everything is in memory
//
// Usage:
//
//	logger := testingx.NewMockLogger(t)
//	cfg := testingx.NewConfig(t, map[string]string{"Aspire:Enabled": "true"})
//	env := testingx.Env{"DOTNET_RESOURCE_SERVICE_ENDPOINT_URL": ""}
package testingx

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"go.eggybyte.com/egg/configx"
	"go.eggybyte.com/egg/core/errors"
	"go.eggybyte.com/egg/core/identity"
	"go.eggybyte.com/egg/core/log"
)

// LogEntry is one recorded log call.
type LogEntry struct {
	Level   string
	Message string
	Fields  []any
	Error   error
}

// MockLogger records log calls for assertions.
type MockLogger struct {
	t      testing.TB
	fields []any
	sink   *entrySink
}

type entrySink struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewMockLogger creates a logger recording into memory.
func NewMockLogger(t testing.TB) *MockLogger {
	return &MockLogger{t: t, sink: &entrySink{}}
}

// With returns a logger sharing the record whose entries carry kv.
func (m *MockLogger) With(kv ...any) log.Logger {
	return &MockLogger{t: m.t, fields: slices.Concat(m.fields, kv), sink: m.sink}
}

// Debug implements log.Logger.
func (m *MockLogger) Debug(msg string, kv ...any) { m.log("DEBUG", msg, nil, kv) }

// Info implements log.Logger.
func (m *MockLogger) Info(msg string, kv ...any) { m.log("INFO", msg, nil, kv) }

// Warn implements log.Logger.
func (m *MockLogger) Warn(msg string, kv ...any) { m.log("WARN", msg, nil, kv) }

// Error implements log.Logger.
func (m *MockLogger) Error(err error, msg string, kv ...any) { m.log("ERROR", msg, err, kv) }

func (m *MockLogger) log(level, msg string, err error, kv []any) {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	m.sink.entries = append(m.sink.entries, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  slices.Concat(m.fields, kv),
		Error:   err,
	})
}

// Entries returns a copy of the recorded entries.
func (m *MockLogger) Entries() []LogEntry {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	return slices.Clone(m.sink.entries)
}

// AssertLogged fails the test unless an entry with level and msg exists.
func (m *MockLogger) AssertLogged(level, msg string) {
	m.t.Helper()
	for _, e := range m.Entries() {
		if e.Level == level && e.Message == msg {
			return
		}
	}
	m.t.Errorf("expected %s log %q, not found", level, msg)
}

// Clear drops every recorded entry.
func (m *MockLogger) Clear() {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	m.sink.entries = nil
}

// CaptureLogger writes "LEVEL: msg k=v" lines into a buffer.
type CaptureLogger struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

// NewCaptureLogger creates an empty capture logger.
func NewCaptureLogger() *CaptureLogger {
	return &CaptureLogger{}
}

// With implements log.Logger. Fields are not retained.
func (c *CaptureLogger) With(kv ...any) log.Logger { return c }

// Debug implements log.Logger.
func (c *CaptureLogger) Debug(msg string, kv ...any) { c.write("DEBUG", msg, nil, kv) }

// Info implements log.Logger.
func (c *CaptureLogger) Info(msg string, kv ...any) { c.write("INFO", msg, nil, kv) }

// Warn implements log.Logger.
func (c *CaptureLogger) Warn(msg string, kv ...any) { c.write("WARN", msg, nil, kv) }

// Error implements log.Logger.
func (c *CaptureLogger) Error(err error, msg string, kv ...any) { c.write("ERROR", msg, err, kv) }

func (c *CaptureLogger) write(level, msg string, err error, kv []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(&c.buffer, "%s: %s", level, msg)
	if err != nil {
		fmt.Fprintf(&c.buffer, " error=%s", err)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&c.buffer, " %v=%v", kv[i], kv[i+1])
	}
	c.buffer.WriteByte('\n')
}

// String returns the captured output.
func (c *CaptureLogger) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.String()
}

// Clear empties the buffer.
func (c *CaptureLogger) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffer.Reset()
}

// NewConfig returns a configuration manager over values. It is closed when
// the test ends.
func NewConfig(t testing.TB, values map[string]string) configx.Manager {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m, err := configx.NewManager(ctx, configx.Options{
		Logger:  log.Nop(),
		Sources: []configx.Source{configx.NewMapSource(values)},
	})
	if err != nil {
		t.Fatalf("configx.NewManager() error = %v", err)
	}
	return m
}

// Env is an in-memory environment with os.LookupEnv semantics: a present
// key with an empty value is set.
type Env map[string]string

// Lookup reports the value of key and whether it is present.
func (e Env) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

// NewContextWithMeta returns a background context carrying meta.
func NewContextWithMeta(t testing.TB, meta *identity.RequestMeta) context.Context {
	t.Helper()
	ctx := context.Background()
	if meta != nil {
		ctx = identity.WithMeta(ctx, meta)
	}
	return ctx
}

// AssertError fails the test unless err carries code.
func AssertError(t testing.TB, err error, code errors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	if got := errors.CodeOf(err); got != code {
		t.Errorf("error code = %s, want %s (err %v)", got, code, err)
	}
}

// AssertNoError fails the test when err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
