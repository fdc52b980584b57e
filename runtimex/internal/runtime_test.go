package internal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.eggybyte.com/egg/core/log"
)

type mockService struct {
	startErr error
	started  bool
	stopped  bool
}

func (m *mockService) Start(context.Context) error { m.started = true; return m.startErr }
func (m *mockService) Stop(context.Context) error  { m.stopped = true; return nil }

func TestRuntimeLifecycle(t *testing.T) {
	svc := &mockService{}
	rt := NewRuntime(log.Nop(), []Service{svc}, time.Second)
	rt.AddServer("http", &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()})

	if rt.Addr("http") != "" {
		t.Fatal("Addr should be empty before Start")
	}
	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	addr := rt.Addr("http")
	if !strings.HasPrefix(addr, "127.0.0.1:") {
		t.Fatalf("Addr() = %q", addr)
	}

	resp, err := http.Get("http://" + addr + "/")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	if err := rt.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !svc.started || !svc.stopped {
		t.Error("service should be started and stopped")
	}
}

func TestRuntimeServiceStartFailure(t *testing.T) {
	boom := errors.New("boom")
	rt := NewRuntime(log.Nop(), []Service{&mockService{startErr: boom}}, time.Second)

	if err := rt.Start(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Start() error = %v, want boom", err)
	}
}

func TestRuntimeBindFailure(t *testing.T) {
	rt := NewRuntime(log.Nop(), nil, time.Second)
	rt.AddServer("first", &http.Server{Addr: "127.0.0.1:0"})
	rt.AddServer("bad", &http.Server{Addr: "not-an-address"})

	if err := rt.Start(context.Background()); err == nil {
		t.Fatal("Start() should fail on an invalid address")
	}
	if rt.Addr("first") != "" {
		t.Error("listeners opened before the failure should be released")
	}
}
