// Package httpx provides HTTP helpers and the standard middleware of the egg
// host.
//
// # Overview
//
// httpx keeps HTTP adapters small: JSON binding with validation, JSON error
// responses mapped from core/errors codes, and middleware for request
// metadata, panic recovery, access logging, security headers and the request
// and connection counters published through obsx event sources.
//
// # Usage
//
//	h := httpx.Chain(mux,
//		httpx.RequestMeta(),
//		httpx.Recover(logger),
//		httpx.TrackRequests(obsx.Events(obsx.HostingEvents)),
//	)
//
// # Layer
//
// httpx belongs to Layer 2 (L2) and depends on core, logx and obsx.
package httpx
