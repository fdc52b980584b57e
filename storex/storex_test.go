package storex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"go.eggybyte.com/egg/configx"
	eggerrors "go.eggybyte.com/egg/core/errors"
	"go.eggybyte.com/egg/runtimex"
)

type recordingInstrumenter struct {
	db, cache, search int
	dbErr             error
}

func (r *recordingInstrumenter) InstrumentDB(*gorm.DB) error { r.db++; return r.dbErr }

func (r *recordingInstrumenter) InstrumentRedis(redis.UniversalClient) error {
	r.cache++
	return nil
}

func (r *recordingInstrumenter) InstrumentSearch(*elasticsearch.Config) { r.search++ }

type fakeStore struct{ pingErr error }

func (f fakeStore) Ping(context.Context) error { return f.pingErr }
func (f fakeStore) Close() error               { return nil }

func TestRegisterHealth(t *testing.T) {
	health := runtimex.NewHealthRegistry()
	reg := NewRegistry()
	if err := reg.RegisterHealth(health); err != nil {
		t.Fatalf("RegisterHealth() error = %v", err)
	}
	if err := reg.RegisterHealth(health); eggerrors.CodeOf(err) != eggerrors.CodeAlreadyExists {
		t.Errorf("second RegisterHealth() code = %v", eggerrors.CodeOf(err))
	}

	checks := health.Checks()
	if len(checks) != 1 || checks[0].Name != HealthCheckName || !checks[0].HasTag("ready") {
		t.Fatalf("Checks() = %+v", checks)
	}

	if got := health.Check(context.Background(), nil).Status; got != runtimex.StatusHealthy {
		t.Errorf("empty registry status = %v", got)
	}

	_ = reg.Register("db", fakeStore{pingErr: errors.New("down")})
	if got := health.Check(context.Background(), runtimex.Tagged("ready")).Status; got != runtimex.StatusUnhealthy {
		t.Errorf("status with failing store = %v, want Unhealthy", got)
	}
	if got := health.Check(context.Background(), runtimex.Tagged("live")); len(got.Entries) != 0 {
		t.Errorf("live filter should exclude the storage check, got %v", got.Entries)
	}
}

func TestNewGORMStore(t *testing.T) {
	inst := &recordingInstrumenter{}
	s, err := NewGORMStore(GORMOptions{Driver: "sqlite", DSN: "file::memory:", Instrumenter: inst})
	if err != nil {
		t.Fatalf("NewGORMStore() error = %v", err)
	}
	defer s.Close()

	if inst.db != 1 {
		t.Errorf("InstrumentDB called %d times, want 1", inst.db)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if s.DB() == nil {
		t.Error("DB() = nil")
	}
}

func TestNewGORMStoreErrors(t *testing.T) {
	tests := []struct {
		name     string
		opts     GORMOptions
		wantCode eggerrors.Code
	}{
		{name: "missing dsn", opts: GORMOptions{Driver: "sqlite"}, wantCode: eggerrors.CodeUnavailable},
		{name: "unknown driver", opts: GORMOptions{Driver: "oracle", DSN: "x"}, wantCode: eggerrors.CodeUnavailable},
		{
			name:     "instrumentation failure",
			opts:     GORMOptions{Driver: "sqlite", DSN: "file::memory:", Instrumenter: &recordingInstrumenter{dbErr: errors.New("plugin")}},
			wantCode: eggerrors.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGORMStore(tt.opts)
			if got := eggerrors.CodeOf(err); got != tt.wantCode {
				t.Errorf("code = %v, want %v (err %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestNewCache(t *testing.T) {
	if _, err := NewCache(CacheOptions{}); eggerrors.CodeOf(err) != eggerrors.CodeInvalidArgument {
		t.Errorf("NewCache() without address: %v", err)
	}

	inst := &recordingInstrumenter{}
	c, err := NewCache(CacheOptions{Addr: "127.0.0.1:1", Instrumenter: inst})
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	defer c.Close()
	if inst.cache != 1 {
		t.Errorf("InstrumentRedis called %d times, want 1", inst.cache)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Error("Ping() against a closed port should fail")
	}
}

func TestSearchClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if _, err := NewSearchClient(SearchOptions{}); eggerrors.CodeOf(err) != eggerrors.CodeInvalidArgument {
		t.Errorf("NewSearchClient() without addresses: %v", err)
	}

	inst := &recordingInstrumenter{}
	c, err := NewSearchClient(SearchOptions{Addresses: []string{srv.URL}, Instrumenter: inst})
	if err != nil {
		t.Fatalf("NewSearchClient() error = %v", err)
	}
	if inst.search != 1 {
		t.Errorf("InstrumentSearch called %d times, want 1", inst.search)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestOpen(t *testing.T) {
	reg, err := Open(configx.BaseConfig{}, nil, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(reg.List()) != 0 {
		t.Errorf("empty config opened %v", reg.List())
	}

	cfg := configx.BaseConfig{
		Database: configx.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"},
		Cache:    configx.CacheConfig{Addr: "127.0.0.1:1"},
		Search:   configx.SearchConfig{Addresses: []string{"http://127.0.0.1:1"}},
	}
	reg, err = Open(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reg.Close()

	want := []string{DatabaseStore, CacheStore, SearchStore}
	got := reg.List()
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestOpenClosesOnFailure(t *testing.T) {
	cfg := configx.BaseConfig{
		Database: configx.DatabaseConfig{Driver: "oracle", DSN: "x"},
	}
	if _, err := Open(cfg, nil, nil); err == nil {
		t.Fatal("Open() should fail for an unsupported driver")
	}
}
