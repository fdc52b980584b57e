package clientx

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.eggybyte.com/egg/configx"
	"go.eggybyte.com/egg/discoveryx"
)

func fastResilience(o *ResilienceOptions) {
	o.BaseDelay = time.Millisecond
	o.MaxDelay = 5 * time.Millisecond
	o.TotalTimeout = 5 * time.Second
	o.AttemptTimeout = time.Second
}

func TestFactoryCachesClients(t *testing.T) {
	f := NewFactory()
	a := f.Client("catalog")
	if f.Client("catalog") != a {
		t.Fatal("Client() should return the cached client")
	}
	if f.Client("search") == a {
		t.Fatal("different names should get different clients")
	}

	f.Configure("catalog", func(b *Builder) {})
	if f.Client("catalog") == a {
		t.Error("Configure() should invalidate the cached client")
	}
}

func TestFactoryBuilder(t *testing.T) {
	f := NewFactory()
	f.ConfigureDefaults(func(b *Builder) { b.AddStandardResilienceHandler() })
	f.Configure("slow", func(b *Builder) {
		b.AddStandardResilienceHandler(func(o *ResilienceOptions) { o.MaxRetries = 1 })
	})

	tests := []struct {
		name        string
		wantRetries int
	}{
		{name: "catalog", wantRetries: 3},
		{name: "slow", wantRetries: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := f.Builder(tt.name)
			if b.Name() != tt.name {
				t.Errorf("Name() = %q", b.Name())
			}
			o := b.Resilience()
			if o == nil {
				t.Fatal("Resilience() = nil")
			}
			if o.MaxRetries != tt.wantRetries {
				t.Errorf("MaxRetries = %d, want %d", o.MaxRetries, tt.wantRetries)
			}
			if b.HasServiceDiscovery() {
				t.Error("discovery was not configured")
			}
		})
	}
}

func TestDefaultResilienceOptions(t *testing.T) {
	o := DefaultResilienceOptions()
	if o.TotalTimeout != 30*time.Second || o.AttemptTimeout != 10*time.Second {
		t.Errorf("timeouts = %v/%v", o.TotalTimeout, o.AttemptTimeout)
	}
	if o.MaxRetries != 3 || o.FailureRatio != 0.1 || o.MinimumRequests != 100 {
		t.Errorf("unexpected policy %+v", o)
	}
}

func TestClientRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	f := NewFactory()
	f.ConfigureDefaults(func(b *Builder) { b.AddStandardResilienceHandler(fastResilience) })

	resp, err := f.Client("flaky").Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if calls.Load() != 3 {
		t.Errorf("server saw %d calls, want 3", calls.Load())
	}
}

func TestClientServiceDiscovery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.URL.Path)
	}))
	defer srv.Close()

	resolver := discoveryx.NewResolver(configx.Map{"services:catalog:http:0": srv.URL})
	f := NewFactory()
	f.ConfigureDefaults(func(b *Builder) {
		b.AddStandardResilienceHandler(fastResilience)
		b.AddServiceDiscovery(resolver)
	})

	resp, err := f.Client("catalog").Get("http://catalog/items")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "/items" {
		t.Errorf("body = %q, want /items", body)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestInstrumentationAndMiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(http.RoundTripper) http.RoundTripper {
		return func(next http.RoundTripper) http.RoundTripper {
			return roundTripFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		}
	}

	f := NewFactory()
	f.SetBaseTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		order = append(order, "base")
		return &http.Response{StatusCode: http.StatusNoContent, Body: http.NoBody, Request: r}, nil
	}))
	f.SetInstrumentation(tag("telemetry"))
	f.Configure("api", func(b *Builder) { b.Use(tag("outer"), tag("inner")) })

	resp, err := f.Client("api").Get("http://api/")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	want := []string{"outer", "inner", "telemetry", "base"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
