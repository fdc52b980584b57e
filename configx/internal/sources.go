// Package internal provides internal implementation details for configx.
//
// Overview:
//   - Responsibility: Implement configuration sources (Env, File, Map, K8s ConfigMap)
//   - Key Types: EnvSource, FileSource, MapSource, ConfigMapSource
//   - Concurrency Model: All sources are safe for concurrent use
//   - Error Semantics: Sources return errors for initialization and loading failures
//   - Performance Notes: File sources poll modification time; ConfigMaps use a watch
package internal

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.eggybyte.com/egg/core/log"
)

// EnvOptions configures environment variable source behavior.
type EnvOptions struct {
	Prefix    string          // Prefix for environment variables (e.g., "APP_")
	Lowercase bool            // Convert keys to lowercase
	Uppercase bool            // Convert keys to uppercase
	Environ   func() []string // Environment snapshot (default: os.Environ)
}

// EnvSource loads configuration from environment variables. Every variable is
// published under its raw name and, when it contains "__", also under the
// section form with ":".
type EnvSource struct {
	prefix    string
	lowercase bool
	uppercase bool
	environ   func() []string
}

// NewEnvSource creates a new environment variable source.
func NewEnvSource(opts EnvOptions) Source {
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}
	return &EnvSource{
		prefix:    opts.Prefix,
		lowercase: opts.Lowercase,
		uppercase: opts.Uppercase,
		environ:   environ,
	}
}

// Load reads configuration from environment variables.
func (s *EnvSource) Load(ctx context.Context) (map[string]string, error) {
	config := make(map[string]string)

	for _, env := range s.environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}

		if s.prefix != "" {
			if !strings.HasPrefix(key, s.prefix) {
				continue
			}
			key = strings.TrimPrefix(key, s.prefix)
		}

		if s.lowercase {
			key = strings.ToLower(key)
		} else if s.uppercase {
			key = strings.ToUpper(key)
		}

		config[key] = value
		if sectioned := NormalizeEnvKey(key); sectioned != key {
			config[sectioned] = value
		}
	}

	return config, nil
}

// Watch returns a channel that never publishes; the environment is static
// for the lifetime of the process.
func (s *EnvSource) Watch(ctx context.Context) (<-chan map[string]string, error) {
	return idle(ctx), nil
}

// MapSource serves a fixed in-memory snapshot.
type MapSource struct {
	data map[string]string
}

// NewMapSource creates a source over a copy of data.
func NewMapSource(data map[string]string) Source {
	return &MapSource{data: maps.Clone(data)}
}

// Load returns a copy of the snapshot.
func (s *MapSource) Load(ctx context.Context) (map[string]string, error) {
	return maps.Clone(s.data), nil
}

// Watch returns a channel that never publishes.
func (s *MapSource) Watch(ctx context.Context) (<-chan map[string]string, error) {
	return idle(ctx), nil
}

// FileOptions configures file source behavior.
type FileOptions struct {
	Watch    bool          // Poll the file for changes
	Format   string        // "json" or "yaml" (default: from extension)
	Interval time.Duration // Polling interval (default: 1s)
	Optional bool          // A missing file yields an empty snapshot instead of an error
	Logger   log.Logger
}

// FileSource loads configuration from a JSON or YAML file. Nested objects are
// flattened into section keys joined with ":".
type FileSource struct {
	path     string
	format   string
	watch    bool
	interval time.Duration
	optional bool
	logger   log.Logger
}

// NewFileSource creates a new file source.
func NewFileSource(path string, opts FileOptions) Source {
	format := opts.Format
	if format == "" {
		format = detectFileFormat(path)
	}

	interval := opts.Interval
	if interval == 0 {
		interval = time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}

	return &FileSource{
		path:     path,
		format:   format,
		watch:    opts.Watch,
		interval: interval,
		optional: opts.Optional,
		logger:   logger,
	}
}

// Load reads configuration from the file.
func (s *FileSource) Load(ctx context.Context) (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) && s.optional {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read file %s: %w", s.path, err)
	}

	config, err := parseConfigFile(data, s.format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", s.path, err)
	}
	return config, nil
}

// Watch polls the file and publishes a snapshot whenever its modification
// time moves forward.
func (s *FileSource) Watch(ctx context.Context) (<-chan map[string]string, error) {
	if !s.watch {
		return idle(ctx), nil
	}

	var lastModTime time.Time
	if info, err := os.Stat(s.path); err == nil {
		lastModTime = info.ModTime()
	}

	ch := make(chan map[string]string)
	go func() {
		defer close(ch)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(s.path)
				if err != nil {
					if !os.IsNotExist(err) {
						s.logger.Error(err, "failed to stat file", log.Str("path", s.path))
					}
					continue
				}
				if !info.ModTime().After(lastModTime) {
					continue
				}
				lastModTime = info.ModTime()

				config, err := s.Load(ctx)
				if err != nil {
					s.logger.Error(err, "failed to load file", log.Str("path", s.path))
					continue
				}

				select {
				case ch <- config:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// detectFileFormat detects file format from extension.
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
