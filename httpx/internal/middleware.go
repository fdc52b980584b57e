// Package internal provides internal implementation details for httpx.
package internal

import (
	"fmt"
	"net/http"
	"strings"
)

// SecurityHeaders adds security headers to HTTP response.
type SecurityHeaders struct {
	ContentTypeOptions    bool
	FrameOptions          bool
	ReferrerPolicy        bool
	StrictTransportSec    bool
	HSTSMaxAge            int
	ContentSecurityPolicy string
}

// ApplySecurityHeaders applies security headers to the response writer.
func ApplySecurityHeaders(w http.ResponseWriter, headers SecurityHeaders) {
	h := w.Header()
	if headers.ContentTypeOptions {
		h.Set("X-Content-Type-Options", "nosniff")
	}
	if headers.FrameOptions {
		h.Set("X-Frame-Options", "DENY")
	}
	if headers.ReferrerPolicy {
		h.Set("Referrer-Policy", "no-referrer")
	}
	if headers.StrictTransportSec {
		h.Set("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", headers.HSTSMaxAge))
	}
	if headers.ContentSecurityPolicy != "" {
		h.Set("Content-Security-Policy", headers.ContentSecurityPolicy)
	}
}

// StatusRecorder captures the status code written through it.
type StatusRecorder struct {
	http.ResponseWriter
	Status      int
	wroteHeader bool
}

// NewStatusRecorder wraps w. The status defaults to 200.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

// WriteHeader records code and forwards it.
func (r *StatusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.Status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

// Write marks the header as written.
func (r *StatusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// WroteHeader reports whether a response has started.
func (r *StatusRecorder) WroteHeader() bool {
	return r.wroteHeader
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *StatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// ClientIP picks the first X-Forwarded-For hop, then X-Real-Ip, then the
// connection address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if real := r.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	return r.RemoteAddr
}
