package servicex

import (
	"net/http"
	"slices"

	"go.eggybyte.com/egg/httpx"
	"go.eggybyte.com/egg/runtimex"
)

// Health endpoint paths served on the health listener.
const (
	HealthPath = "/health"
	AlivePath  = "/alive"
	ReadyPath  = "/ready"
)

// Pipeline assembles the request pipeline during PostInitialize.
type Pipeline struct {
	registry    *Registry
	mux         *http.ServeMux
	health      *http.ServeMux
	middlewares []httpx.Middleware
}

// NewPipeline creates a pipeline whose health mux serves every check on
// /health, checks tagged "live" on /alive and checks tagged "ready" on
// /ready.
func NewPipeline(r *Registry) *Pipeline {
	p := &Pipeline{
		registry: r,
		mux:      http.NewServeMux(),
		health:   http.NewServeMux(),
	}
	p.health.Handle(HealthPath, r.Health().HandlerFor(nil))
	p.health.Handle(AlivePath, r.Health().HandlerFor(runtimex.Tagged("live")))
	p.health.Handle(ReadyPath, r.Health().HandlerFor(runtimex.Tagged("ready")))
	return p
}

// Registry returns the registry modules initialized.
func (p *Pipeline) Registry() *Registry { return p.registry }

// Use appends middlewares. The first one added runs first.
func (p *Pipeline) Use(mws ...httpx.Middleware) *Pipeline {
	p.middlewares = append(p.middlewares, mws...)
	return p
}

// Handle registers h for pattern.
func (p *Pipeline) Handle(pattern string, h http.Handler) *Pipeline {
	p.mux.Handle(pattern, h)
	return p
}

// HandleFunc registers fn for pattern.
func (p *Pipeline) HandleFunc(pattern string, fn http.HandlerFunc) *Pipeline {
	p.mux.Handle(pattern, fn)
	return p
}

// Handler returns the application handler with the middlewares applied.
func (p *Pipeline) Handler() http.Handler {
	return httpx.Chain(p.mux, slices.Clone(p.middlewares)...)
}

// HealthHandler returns the health endpoint handler.
func (p *Pipeline) HealthHandler() http.Handler {
	return p.health
}
