// Package identity carries per-request metadata through context.
//
// Overview:
//   - Responsibility: Store and retrieve request metadata from context
//   - Key Types: RequestMeta for request metadata
//   - Concurrency Model: All functions are safe for concurrent use
//   - Error Semantics: Functions return boolean to indicate presence of data
//   - Performance Notes: One allocation per request, context-based storage
//
// Usage:
//
//	ctx = identity.WithMeta(ctx, &identity.RequestMeta{RequestID: "req-123"})
//	meta, ok := identity.MetaFrom(ctx)
package identity

import (
	"context"
)

// RequestMeta contains request metadata information.
type RequestMeta struct {
	RequestID string // Unique request identifier for log correlation
	Route     string // Matched route pattern, empty until routing completes
	RemoteIP  string // Client IP address
	UserAgent string // Client user agent string
}

type contextKey string

const metaKey contextKey = "meta"

// WithMeta stores request metadata in the context.
// Returns a new context with the metadata attached.
func WithMeta(ctx context.Context, m *RequestMeta) context.Context {
	return context.WithValue(ctx, metaKey, m)
}

// MetaFrom retrieves request metadata from the context.
// Returns the metadata and a boolean indicating if it was found.
func MetaFrom(ctx context.Context) (*RequestMeta, bool) {
	m, ok := ctx.Value(metaKey).(*RequestMeta)
	return m, ok && m != nil
}

// RequestID returns the request id stored in ctx, or "" when there is none.
func RequestID(ctx context.Context) string {
	if m, ok := MetaFrom(ctx); ok {
		return m.RequestID
	}
	return ""
}
