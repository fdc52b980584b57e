package aspirex

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"go.eggybyte.com/egg/discoveryx"
	"go.eggybyte.com/egg/logx"
	"go.eggybyte.com/egg/runtimex"
	"go.eggybyte.com/egg/servicex"
	"go.eggybyte.com/egg/testingx"
)

func TestModuleInactive(t *testing.T) {
	cfg := testingx.NewConfig(t, map[string]string{ExporterEndpointKey: "http://collector:4317"})
	logger := testingx.NewMockLogger(t)
	m := New(cfg, testingx.Env{}.Lookup, logger)
	if m.Name() != ModuleName {
		t.Errorf("Name() = %q", m.Name())
	}
	if m.Activation().Active() {
		t.Fatal("module should be inactive")
	}

	r := servicex.NewRegistry(cfg, logger)
	if err := m.Initialize(r); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if r.Telemetry().Configured() {
		t.Error("inactive module should not touch telemetry")
	}
	if len(r.Health().Checks()) != 0 {
		t.Error("inactive module should not add health checks")
	}
	if len(servicex.Contributions[logx.Configurator](r)) != 0 {
		t.Error("inactive module should not contribute logging")
	}
	if r.HTTPClients().Builder("any").Resilience() != nil {
		t.Error("inactive module should not configure clients")
	}
	if _, err := servicex.ResolveTyped[discoveryx.URLResolver](r); err == nil {
		t.Error("inactive module should not register service discovery")
	}
	if err := m.PostInitialize(servicex.NewPipeline(r)); err != nil {
		t.Errorf("PostInitialize() error = %v", err)
	}
}

func TestModuleActivationResolvedOnce(t *testing.T) {
	env := testingx.Env{ResourceServiceEndpointEnv: "http://localhost:18888"}
	m := New(testingx.NewConfig(t, nil), env.Lookup, nil)
	delete(env, ResourceServiceEndpointEnv)
	if !m.Activation().Active() {
		t.Error("activation should not change after New")
	}
}

func TestModuleInitializeTwice(t *testing.T) {
	cfg := testingx.NewConfig(t, map[string]string{
		EnabledKey:          "true",
		ExporterEndpointKey: "http://collector:4317",
	})
	logger := testingx.NewMockLogger(t)
	m := New(cfg, testingx.Env{}.Lookup, logger)
	r := servicex.NewRegistry(cfg, logger)

	for i := range 2 {
		if err := m.Initialize(r); err != nil {
			t.Fatalf("Initialize() #%d error = %v", i+1, err)
		}
	}
	if n := len(servicex.Contributions[logx.Configurator](r)); n != 1 {
		t.Errorf("got %d logging configurators, want 1", n)
	}
	if n := len(r.Health().Checks()); n != 1 {
		t.Errorf("got %d health checks, want 1", n)
	}
	logger.AssertLogged("INFO", "integration active")
}

func TestModuleHost(t *testing.T) {
	cfg := testingx.NewConfig(t, map[string]string{
		"SERVICE_NAME": "orders",
		EnabledKey:     "true",
	})
	h := servicex.NewHost(
		servicex.WithConfig(cfg),
		servicex.WithLogger(testingx.NewMockLogger(t)),
		servicex.WithListenAddrs("127.0.0.1:0", "127.0.0.1:0", "127.0.0.1:0"),
	)
	if err := h.AddModule(New(cfg, testingx.Env{}.Lookup, nil)); err != nil {
		t.Fatalf("AddModule() error = %v", err)
	}
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer h.Shutdown(context.Background())

	resp, err := http.Get("http://" + h.Addr(runtimex.ServerHealth) + servicex.AlivePath)
	if err != nil {
		t.Fatalf("GET alive: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"self"`) {
		t.Errorf("alive = %d %s", resp.StatusCode, body)
	}

	if h.Telemetry() == nil {
		t.Fatal("active module should enable telemetry")
	}
	if h.Addr(runtimex.ServerMetrics) == "" {
		t.Error("metrics server should run")
	}
}
