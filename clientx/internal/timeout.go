package internal

import (
	"context"
	"io"
	"net/http"
	"time"
)

// TimeoutTransport bounds each pass through next. The deadline stays active
// until the response body is closed.
type TimeoutTransport struct {
	next    http.RoundTripper
	timeout time.Duration
}

// NewTimeoutTransport creates a timeout transport in front of next.
func NewTimeoutTransport(next http.RoundTripper, timeout time.Duration) *TimeoutTransport {
	return &TimeoutTransport{next: next, timeout: timeout}
}

// RoundTrip implements http.RoundTripper.
func (t *TimeoutTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.timeout <= 0 {
		return t.next.RoundTrip(req)
	}
	ctx, cancel := context.WithTimeout(req.Context(), t.timeout)
	resp, err := t.next.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
