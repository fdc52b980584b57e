package internal

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerPolicy configures BreakerTransport.
type BreakerPolicy struct {
	FailureRatio     float64
	MinimumRequests  uint32
	SamplingDuration time.Duration
	BreakDuration    time.Duration
}

// BreakerTransport fails fast while the circuit is open. Transport errors and
// retryable statuses count as failures.
type BreakerTransport struct {
	next http.RoundTripper
	cb   *gobreaker.CircuitBreaker
}

var errFailedStatus = errors.New("failed status")

// NewBreakerTransport creates a breaker named name in front of next.
func NewBreakerTransport(name string, next http.RoundTripper, policy BreakerPolicy) *BreakerTransport {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    policy.SamplingDuration,
		Timeout:     policy.BreakDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < policy.MinimumRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= policy.FailureRatio
		},
	})
	return &BreakerTransport{next: next, cb: cb}
}

// State exposes the breaker state.
func (t *BreakerTransport) State() gobreaker.State {
	return t.cb.State()
}

// RoundTrip implements http.RoundTripper.
func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	result, err := t.cb.Execute(func() (interface{}, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if RetryableStatus(resp.StatusCode) {
			return resp, errFailedStatus
		}
		return resp, nil
	})
	if errors.Is(err, errFailedStatus) {
		return result.(*http.Response), nil
	}
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}
