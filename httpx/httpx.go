// Package httpx provides HTTP helpers and the host's standard middleware.
//
// Overview:
//   - Responsibility: JSON responses, error mapping, request metadata, recovery, request events
//   - Key Types: Middleware, ErrorResponse, SecurityHeaders
//   - Concurrency Model: All functions are safe for concurrent use
//   - Error Semantics: core/errors codes map to HTTP status codes
//   - Performance Notes: One response writer wrapper per request
//
// Usage:
//
//	var req UserRequest
//	if err := httpx.BindAndValidate(r, &req); err != nil {
//	  httpx.WriteError(w, err)
//	  return
//	}
package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"go.eggybyte.com/egg/core/errors"
	"go.eggybyte.com/egg/httpx/internal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrorResponse represents a standard JSON error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindAndValidate decodes the JSON body into target and validates its
// `validate` tags. Unknown fields are rejected.
func BindAndValidate(r *http.Request, target any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.New(errors.CodeInvalidArgument, "request body is empty")
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return errors.Wrap(errors.CodeInvalidArgument, "httpx.bind", err)
	}

	if err := validate.Struct(target); err != nil {
		return errors.Wrap(errors.CodeInvalidArgument, "httpx.validate", err)
	}
	return nil
}

// WriteJSON writes data as a JSON response with status.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

// StatusFor maps the core/errors code carried by err to an HTTP status.
// Errors without a code are internal.
func StatusFor(err error) int {
	switch errors.CodeOf(err) {
	case errors.CodeInvalidArgument:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeAlreadyExists:
		return http.StatusConflict
	case errors.CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	case errors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case errors.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	case errors.CodeUnimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as an ErrorResponse with the status from StatusFor.
func WriteError(w http.ResponseWriter, err error) error {
	status := StatusFor(err)
	return WriteJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    string(errors.CodeOf(err)),
		Message: err.Error(),
	})
}

// NotFoundHandler returns a standard 404 JSON response.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = WriteJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "Not Found",
			Message: fmt.Sprintf("Path %s not found", r.URL.Path),
		})
	}
}

// SecurityHeaders selects the security headers added to every response.
type SecurityHeaders struct {
	ContentTypeOptions    bool   // X-Content-Type-Options: nosniff
	FrameOptions          bool   // X-Frame-Options: DENY
	ReferrerPolicy        bool   // Referrer-Policy: no-referrer
	StrictTransportSec    bool   // Strict-Transport-Security (HSTS)
	HSTSMaxAge            int    // Max age for HSTS in seconds
	ContentSecurityPolicy string // Optional CSP header
}

// DefaultSecurityHeaders returns the headers safe for any API service.
func DefaultSecurityHeaders() SecurityHeaders {
	return SecurityHeaders{
		ContentTypeOptions: true,
		FrameOptions:       true,
		ReferrerPolicy:     true,
		HSTSMaxAge:         31536000,
	}
}

// SecureHeaders adds the selected security headers to every response.
func SecureHeaders(headers SecurityHeaders) Middleware {
	h := internal.SecurityHeaders(headers)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			internal.ApplySecurityHeaders(w, h)
			next.ServeHTTP(w, r)
		})
	}
}
