package servicex

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"go.eggybyte.com/egg/httpx"
	"go.eggybyte.com/egg/logx"
	"go.eggybyte.com/egg/obsx"
	"go.eggybyte.com/egg/runtimex"
	"go.eggybyte.com/egg/testingx"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type testModule struct {
	name      string
	initErr   error
	telemetry bool
	rec       *recorder
}

func (m *testModule) Name() string { return m.name }

func (m *testModule) Initialize(r *Registry) error {
	m.rec.add("init:" + m.name)
	if m.initErr != nil {
		return m.initErr
	}
	r.Contribute(logx.ConfiguratorFunc(func(*logx.Configuration) error {
		m.rec.add("logging:" + m.name)
		return nil
	}))
	if m.telemetry {
		r.Telemetry().WithMetrics(func(b *obsx.MeterBuilder) { b.AddHTTPServerInstrumentation() })
	}
	return r.Health().AddCheck(m.name, func(context.Context) runtimex.HealthResult {
		return runtimex.Healthy()
	}, "live")
}

func (m *testModule) PostInitialize(p *Pipeline) error {
	m.rec.add("post:" + m.name)
	p.HandleFunc("GET /"+m.name, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, m.name)
	})
	return nil
}

func (m *testModule) Uninstall() { m.rec.add("uninstall:" + m.name) }

func newTestHost(t *testing.T) *Host {
	t.Helper()
	return NewHost(
		WithConfig(testingx.NewConfig(t, map[string]string{"SERVICE_NAME": "host-test"})),
		WithLogger(testingx.NewMockLogger(t)),
		WithListenAddrs("127.0.0.1:0", "127.0.0.1:0", "127.0.0.1:0"),
	)
}

func get(t *testing.T, url string) (int, string, http.Header) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), resp.Header
}

func TestHostLifecycle(t *testing.T) {
	rec := &recorder{}
	h := newTestHost(t)
	_ = h.AddModule(&testModule{name: "a", rec: rec})
	_ = h.AddModule(&testModule{name: "b", rec: rec})

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := h.AddModule(&testModule{name: "late", rec: rec}); err == nil {
		t.Error("AddModule() after Start should fail")
	}

	httpAddr := "http://" + h.Addr(runtimex.ServerHTTP)
	status, body, header := get(t, httpAddr+"/b")
	if status != http.StatusOK || body != "b" {
		t.Errorf("GET /b = %d %q", status, body)
	}
	if header.Get(httpx.RequestIDHeader) == "" {
		t.Error("response should carry a request id")
	}

	status, body, _ = get(t, "http://"+h.Addr(runtimex.ServerHealth)+AlivePath)
	if status != http.StatusOK || !strings.Contains(body, `"a"`) || !strings.Contains(body, `"b"`) {
		t.Errorf("GET /alive = %d %s", status, body)
	}
	if h.Addr(runtimex.ServerMetrics) != "" {
		t.Error("metrics server should not run without telemetry")
	}

	if err := h.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	want := []string{"init:a", "init:b", "logging:a", "logging:b", "post:a", "post:b", "uninstall:b", "uninstall:a"}
	got := rec.list()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestHostInitializeError(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	h := newTestHost(t)
	_ = h.AddModule(&testModule{name: "broken", initErr: boom, rec: rec})
	_ = h.AddModule(&testModule{name: "never", rec: rec})

	err := h.Start(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Start() error = %v, want boom", err)
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error %q should name the module", err)
	}
	if got := rec.list(); len(got) != 1 {
		t.Errorf("events = %v, want only init:broken", got)
	}
	if err := h.Start(context.Background()); err == nil {
		t.Error("Start() twice should fail")
	}
}

func TestHostTelemetry(t *testing.T) {
	h := newTestHost(t)
	_ = h.AddModule(&testModule{name: "metrics", telemetry: true, rec: &recorder{}})
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer h.Shutdown(context.Background())

	if h.Telemetry() == nil {
		t.Fatal("Telemetry() = nil")
	}
	if _, err := ResolveTyped[*obsx.Provider](h.Registry()); err != nil {
		t.Errorf("provider should be resolvable: %v", err)
	}

	get(t, "http://"+h.Addr(runtimex.ServerHTTP)+"/metrics")
	status, body, _ := get(t, "http://"+h.Addr(runtimex.ServerMetrics)+"/")
	if status != http.StatusOK {
		t.Fatalf("metrics status = %d", status)
	}
	if !strings.Contains(body, "http_server") {
		t.Errorf("metrics should include HTTP server instruments:\n%s", body)
	}
}

func TestHostRun(t *testing.T) {
	h := newTestHost(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	for h.Addr(runtimex.ServerHTTP) == "" {
		select {
		case err := <-done:
			t.Fatalf("Run() returned early: %v", err)
		default:
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}
