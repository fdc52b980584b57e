// Package discoveryx resolves logical service hosts used in outbound URLs.
//
// # Overview
//
// A request to http://catalog/items names a service, not a machine. The
// resolver looks the service up under services:catalog:<endpoint>:<n> and
// rewrites the URL before the request leaves the process. Schemes like
// "https+http" list preferred endpoint names in order, and a host of the form
// "_admin.catalog" selects the "admin" endpoint explicitly.
//
// # Features
//
//   - Configuration-backed endpoints with round-robin selection
//   - Optional Kubernetes fallback through k8sx
//   - http.RoundTripper adapter used by clientx
//
// # Layer
//
// discoveryx is an auxiliary module depending on configx, k8sx and core.
package discoveryx
