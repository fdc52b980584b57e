package internal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func respond(code int) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader("body"))}
}

// sequence answers with codes in order, repeating the last one.
func sequence(calls *atomic.Int32, codes ...int) roundTripFunc {
	return func(*http.Request) (*http.Response, error) {
		n := int(calls.Add(1)) - 1
		if n >= len(codes) {
			n = len(codes) - 1
		}
		return respond(codes[n]), nil
	}
}

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryTransport(t *testing.T) {
	tests := []struct {
		name      string
		codes     []int
		retries   int
		wantCode  int
		wantCalls int32
	}{
		{name: "success first try", codes: []int{200}, retries: 3, wantCode: 200, wantCalls: 1},
		{name: "recovers after 503", codes: []int{503, 503, 200}, retries: 3, wantCode: 200, wantCalls: 3},
		{name: "exhausted returns last response", codes: []int{500}, retries: 2, wantCode: 500, wantCalls: 3},
		{name: "client error not retried", codes: []int{404}, retries: 3, wantCode: 404, wantCalls: 1},
		{name: "429 retried", codes: []int{429, 200}, retries: 3, wantCode: 200, wantCalls: 2},
		{name: "retries disabled", codes: []int{503, 200}, retries: 0, wantCode: 503, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			rt := NewRetryTransport(sequence(&calls, tt.codes...), fastPolicy(tt.retries))

			req, _ := http.NewRequest(http.MethodGet, "http://svc/", nil)
			resp, err := rt.RoundTrip(req)
			if err != nil {
				t.Fatalf("RoundTrip() error = %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantCode {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestRetryTransport_TransportError(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("connection refused")
	rt := NewRetryTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, boom
	}), fastPolicy(2))

	req, _ := http.NewRequest(http.MethodGet, "http://svc/", nil)
	if _, err := rt.RoundTrip(req); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestRetryTransport_ReplaysBody(t *testing.T) {
	var bodies []string
	rt := NewRetryTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if len(bodies) == 1 {
			return respond(503), nil
		}
		return respond(200), nil
	}), fastPolicy(3))

	req, _ := http.NewRequest(http.MethodPost, "http://svc/", strings.NewReader("payload"))
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	resp.Body.Close()
	if len(bodies) != 2 || bodies[1] != "payload" {
		t.Errorf("bodies = %q, want payload sent twice", bodies)
	}
}

func TestRetryTransport_CancelledContext(t *testing.T) {
	var calls atomic.Int32
	rt := NewRetryTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, r.Context().Err()
	}), fastPolicy(3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://svc/", nil)
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("RoundTrip() should fail on a cancelled context")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestBreakerTransport(t *testing.T) {
	var calls atomic.Int32
	bt := NewBreakerTransport("test", sequence(&calls, 500), BreakerPolicy{
		FailureRatio:     0.5,
		MinimumRequests:  2,
		SamplingDuration: time.Minute,
		BreakDuration:    time.Minute,
	})

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, "http://svc/", nil)
		resp, err := bt.RoundTrip(req)
		if err != nil {
			t.Fatalf("call %d error = %v", i, err)
		}
		resp.Body.Close()
	}

	if bt.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", bt.State())
	}
	req, _ := http.NewRequest(http.MethodGet, "http://svc/", nil)
	if _, err := bt.RoundTrip(req); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("error = %v, want ErrOpenState", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, open circuit should not reach the transport", calls.Load())
	}
}

func TestTimeoutTransport(t *testing.T) {
	slow := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		<-r.Context().Done()
		return nil, r.Context().Err()
	})
	rt := NewTimeoutTransport(slow, 10*time.Millisecond)

	req, _ := http.NewRequest(http.MethodGet, "http://svc/", nil)
	if _, err := rt.RoundTrip(req); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
}

func TestTimeoutTransport_BodyKeepsContext(t *testing.T) {
	var reqCtx context.Context
	rt := NewTimeoutTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		reqCtx = r.Context()
		return respond(200), nil
	}), time.Minute)

	req, _ := http.NewRequest(http.MethodGet, "http://svc/", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	if reqCtx.Err() != nil {
		t.Fatal("context should stay alive until the body is closed")
	}
	resp.Body.Close()
	if reqCtx.Err() == nil {
		t.Error("closing the body should release the context")
	}
}
