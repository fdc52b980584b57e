package internal

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func TestDialector(t *testing.T) {
	tests := []struct {
		driver  string
		wantErr bool
	}{
		{driver: "mysql"},
		{driver: "postgres"},
		{driver: "sqlite"},
		{driver: "oracle", wantErr: true},
		{driver: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := Dialector(tt.driver, "dsn")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Dialector() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && d == nil {
				t.Error("Dialector() returned nil")
			}
		})
	}
}

func TestOpenGORM_Validation(t *testing.T) {
	if _, err := OpenGORM(GORMOptions{Driver: "sqlite"}); err == nil {
		t.Error("OpenGORM() should require a DSN")
	}
	if _, err := OpenGORM(GORMOptions{Driver: "nosql", DSN: "x"}); err == nil {
		t.Error("OpenGORM() should reject an unknown driver")
	}
}

func TestOpenGORM_SQLite(t *testing.T) {
	db, err := OpenGORM(GORMOptions{Driver: "sqlite", DSN: "file::memory:", MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("OpenGORM() error = %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", got)
	}
	var one int
	if err := db.Raw("SELECT 1").Scan(&one).Error; err != nil || one != 1 {
		t.Errorf("SELECT 1 = %d, %v", one, err)
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "record not found", err: gorm.ErrRecordNotFound, want: false},
		{name: "wrapped record not found", err: fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound), want: false},
		{name: "refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "timeout", err: errors.New("i/o timeout"), want: true},
		{name: "duplicate key", err: errors.New("duplicate key value violates unique constraint"), want: false},
		{name: "unknown", err: errors.New("something odd"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConnectionError(tt.err); got != tt.want {
				t.Errorf("IsConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

type stubStore struct {
	name     string
	pingErr  error
	closeErr error
	closed   *[]string
}

func (s *stubStore) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubStore) Close() error {
	if s.closed != nil {
		*s.closed = append(*s.closed, s.name)
	}
	return s.closeErr
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	var closed []string

	if err := r.Register("", &stubStore{}); err == nil {
		t.Error("Register() should reject an empty name")
	}
	if err := r.Register("a", nil); err == nil {
		t.Error("Register() should reject a nil store")
	}
	for _, name := range []string{"a", "b", "c"} {
		if err := r.Register(name, &stubStore{name: name, closed: &closed}); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}
	if err := r.Register("a", &stubStore{}); err == nil {
		t.Error("Register() should reject duplicates")
	}
	if err := r.Unregister("b"); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if err := r.Unregister("b"); err == nil {
		t.Error("Unregister() of a missing store should fail")
	}

	if got := r.List(); len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("List() = %v, want [a c]", got)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if len(closed) != 2 || closed[0] != "c" || closed[1] != "a" {
		t.Errorf("close order = %v, want [c a]", closed)
	}
}

func TestRegistryPingJoinsFailures(t *testing.T) {
	r := NewRegistry()
	errA := errors.New("a down")
	errB := errors.New("b down")
	_ = r.Register("a", &stubStore{pingErr: errA})
	_ = r.Register("ok", &stubStore{})
	_ = r.Register("b", &stubStore{pingErr: errB})

	err := r.Ping(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Ping() error = %v, want both failures", err)
	}
	if err := NewRegistry().Ping(context.Background()); err != nil {
		t.Errorf("empty Ping() error = %v", err)
	}
}
