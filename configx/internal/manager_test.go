package internal

import (
	"context"
	"testing"
	"time"

	"go.eggybyte.com/egg/core/log"
)

// pushSource publishes snapshots sent on its channel.
type pushSource struct {
	initial map[string]string
	updates chan map[string]string
}

func (s *pushSource) Load(ctx context.Context) (map[string]string, error) {
	return s.initial, nil
}

func (s *pushSource) Watch(ctx context.Context) (<-chan map[string]string, error) {
	return s.updates, nil
}

func TestNewManager_Validation(t *testing.T) {
	tests := []struct {
		name    string
		logger  log.Logger
		sources []Source
		wantErr string
	}{
		{name: "nil logger", sources: []Source{NewMapSource(nil)}, wantErr: "logger is required"},
		{name: "no sources", logger: log.Nop(), wantErr: "at least one source is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager(tt.logger, tt.sources, 0)
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("NewManager() error = %v, want %q", err, tt.wantErr)
			}
			if m != nil {
				t.Error("NewManager() should return nil manager on error")
			}
		})
	}
}

func TestManager_MergePrecedence(t *testing.T) {
	m, err := NewManager(log.Nop(), []Source{
		NewMapSource(map[string]string{"a": "env", "b": "env", "c": "env"}),
		NewMapSource(map[string]string{"b": "file", "c": ""}),
	}, 0)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{key: "a", want: "env"},
		{key: "b", want: "file"},
		{key: "c", want: "env"},
	}
	for _, tt := range tests {
		if got, _ := m.Value(tt.key); got != tt.want {
			t.Errorf("Value(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestManager_UpdateReplacesLayer(t *testing.T) {
	push := &pushSource{
		initial: map[string]string{"level": "info"},
		updates: make(chan map[string]string, 1),
	}
	m, err := NewManager(log.Nop(), []Source{
		NewMapSource(map[string]string{"name": "shop"}),
		push,
	}, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	type target struct {
		Level string `env:"level"`
	}
	var cfg target
	rebound := make(chan struct{}, 1)
	err = m.Bind(&cfg, BindConfig{OnUpdate: func() {
		rebound <- struct{}{}
	}})
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	push.updates <- map[string]string{"level": "debug"}

	select {
	case <-rebound:
	case <-time.After(2 * time.Second):
		t.Fatal("update callback not invoked")
	}

	if v, _ := m.Value("level"); v != "debug" {
		t.Errorf("Value(level) = %q, want debug", v)
	}
	if v, _ := m.Value("name"); v != "shop" {
		t.Errorf("Value(name) = %q, want shop", v)
	}
	if cfg.Level != "debug" {
		t.Errorf("bound Level = %q, want debug", cfg.Level)
	}
}

func TestManager_OnUpdateUnsubscribe(t *testing.T) {
	m, err := NewManager(log.Nop(), []Source{NewMapSource(nil)}, 0)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	unsubscribe := m.OnUpdate(func(map[string]string) {})
	if len(m.updateSubs) != 1 {
		t.Fatalf("subscribers = %d, want 1", len(m.updateSubs))
	}
	unsubscribe()
	if len(m.updateSubs) != 0 {
		t.Errorf("subscribers = %d, want 0", len(m.updateSubs))
	}
}
