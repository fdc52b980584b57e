// Package internal provides internal implementation details for clientx.
package internal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy configures RetryTransport.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// RetryTransport retries transient failures with exponential backoff and
// jitter. Requests whose body cannot be replayed are sent once.
type RetryTransport struct {
	next   http.RoundTripper
	policy RetryPolicy
}

// NewRetryTransport creates a new retry transport in front of next.
func NewRetryTransport(next http.RoundTripper, policy RetryPolicy) *RetryTransport {
	return &RetryTransport{next: next, policy: policy}
}

func (t *RetryTransport) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = t.policy.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0.5
	if t.policy.MaxDelay > 0 {
		exp.MaxInterval = t.policy.MaxDelay
	}
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(t.policy.MaxRetries)), ctx)
}

var errRetryableStatus = errors.New("retryable status")

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.policy.MaxRetries <= 0 || (req.Body != nil && req.Body != http.NoBody && req.GetBody == nil) {
		return t.next.RoundTrip(req)
	}

	var (
		resp    *http.Response
		attempt int
	)
	op := func() error {
		attempt++
		attemptReq, err := rewind(req, attempt)
		if err != nil {
			return backoff.Permanent(err)
		}

		r, err := t.next.RoundTrip(attemptReq)
		if err != nil {
			if req.Context().Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		if RetryableStatus(r.StatusCode) && attempt <= t.policy.MaxRetries {
			drain(r)
			return errRetryableStatus
		}
		resp = r
		return nil
	}

	err := backoff.Retry(op, t.newBackOff(req.Context()))
	if resp != nil {
		return resp, nil
	}
	return nil, err
}

func rewind(req *http.Request, attempt int) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if attempt > 1 && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	return clone, nil
}

func drain(r *http.Response) {
	if r.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 4096))
		_ = r.Body.Close()
	}
}

// RetryableStatus reports whether code signals a transient failure.
func RetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}
