package internal

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// SearchTransport records a span, a request counter and a latency histogram
// for each request sent to the search cluster.
type SearchTransport struct {
	next     http.RoundTripper
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewSearchTransport wraps next. Instruments are created on meter.
func NewSearchTransport(next http.RoundTripper, meter metric.Meter, tracer trace.Tracer) (*SearchTransport, error) {
	if next == nil {
		next = http.DefaultTransport
	}
	requests, err := meter.Int64Counter("egg_search_requests_total",
		metric.WithDescription("Requests sent to the search cluster"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("egg_search_request_duration_seconds",
		metric.WithDescription("Latency of search cluster requests"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &SearchTransport{next: next, tracer: tracer, requests: requests, duration: duration}, nil
}

// RoundTrip implements http.RoundTripper.
func (t *SearchTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := t.tracer.Start(req.Context(), "search "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("server.address", req.URL.Host),
			attribute.String("url.path", req.URL.Path),
		))
	defer span.End()

	start := time.Now()
	resp, err := t.next.RoundTrip(req.WithContext(ctx))

	status := "error"
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		status = strconv.Itoa(resp.StatusCode)
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
		if resp.StatusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, resp.Status)
		}
	}

	attrs := metric.WithAttributes(
		attribute.String("method", req.Method),
		attribute.String("status", status),
	)
	t.requests.Add(ctx, 1, attrs)
	t.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	return resp, err
}
