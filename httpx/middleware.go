package httpx

import (
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"go.eggybyte.com/egg/core/errors"
	"go.eggybyte.com/egg/core/identity"
	"go.eggybyte.com/egg/core/log"
	"go.eggybyte.com/egg/httpx/internal"
	"go.eggybyte.com/egg/logx"
	"go.eggybyte.com/egg/obsx"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain applies mws so the first one is outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RequestMeta attaches identity.RequestMeta to the request context. The id
// comes from X-Request-Id or is generated, and is echoed on the response.
func RequestMeta() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := identity.WithMeta(r.Context(), &identity.RequestMeta{
				RequestID: id,
				Route:     r.URL.Path,
				RemoteIP:  internal.ClientIP(r),
				UserAgent: r.UserAgent(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover turns a panic into a 500 response and an error log.
func Recover(logger log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := internal.NewStatusRecorder(w)
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					err := errors.Newf(errors.CodeInternal, "panic: %v", p)
					logx.FromContext(r.Context(), logger).Error(err, "panic recovered",
						log.Str("method", r.Method), log.Str("path", r.URL.Path))
					if !rec.WroteHeader() {
						_ = WriteJSON(rec, http.StatusInternalServerError, ErrorResponse{
							Error: http.StatusText(http.StatusInternalServerError),
							Code:  string(errors.CodeInternal),
						})
					}
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

// AccessLog logs one line per request at info, or warn for 5xx responses.
func AccessLog(logger log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := internal.NewStatusRecorder(w)
			next.ServeHTTP(rec, r)

			fields := []any{
				log.Str("method", r.Method),
				log.Str("path", r.URL.Path),
				log.Int("status", rec.Status),
				log.Dur("latency", time.Since(start)),
			}
			l := logx.FromContext(r.Context(), logger)
			if rec.Status >= http.StatusInternalServerError {
				l.Warn("request failed", fields...)
				return
			}
			l.Debug("request completed", fields...)
		})
	}
}

// Request event counter names on the hosting event source.
const (
	EventRequestsStarted   = "requests-started"
	EventRequestsCompleted = "requests-completed"
	EventCurrentRequests   = "current-requests"
	EventFailedRequests    = "failed-requests"
)

// TrackRequests writes request counters to source.
func TrackRequests(source *obsx.EventSource) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			source.Add(EventRequestsStarted, 1)
			source.Add(EventCurrentRequests, 1)
			rec := internal.NewStatusRecorder(w)
			defer func() {
				source.Add(EventCurrentRequests, -1)
				source.Add(EventRequestsCompleted, 1)
				if rec.Status >= http.StatusInternalServerError {
					source.Add(EventFailedRequests, 1)
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

// Connection event counter names on the connections event source.
const (
	EventCurrentConnections = "current-connections"
	EventTotalConnections   = "total-connections"
)

// TrackConnections returns an http.Server ConnState hook writing connection
// counters to source.
func TrackConnections(source *obsx.EventSource) func(net.Conn, http.ConnState) {
	return func(_ net.Conn, state http.ConnState) {
		switch state {
		case http.StateNew:
			source.Add(EventTotalConnections, 1)
			source.Add(EventCurrentConnections, 1)
		case http.StateHijacked, http.StateClosed:
			source.Add(EventCurrentConnections, -1)
		}
	}
}
