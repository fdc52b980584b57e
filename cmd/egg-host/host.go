package main

import (
	"io"
	"net/http"
	"os"

	"go.eggybyte.com/egg/aspirex"
	"go.eggybyte.com/egg/core/log"
	"go.eggybyte.com/egg/servicex"
)

// newHost builds a host with the Aspire module and the info module.
func newHost(files []string, httpAddr string) *servicex.Host {
	h := servicex.NewHost(
		servicex.WithConfigFiles(files...),
		servicex.WithListenAddrs(httpAddr, "", ""),
	)
	_ = h.AddModule(&lazyAspire{env: os.LookupEnv})
	_ = h.AddModule(infoModule{})
	return h
}

// lazyAspire defers aspirex.New until the host has loaded configuration.
type lazyAspire struct {
	env    aspirex.EnvLookup
	module *aspirex.Module
}

func (m *lazyAspire) Name() string { return aspirex.ModuleName }

func (m *lazyAspire) Initialize(r *servicex.Registry) error {
	m.module = aspirex.New(r.Config(), m.env, r.Logger())
	return m.module.Initialize(r)
}

func (m *lazyAspire) PostInitialize(p *servicex.Pipeline) error {
	return m.module.PostInitialize(p)
}

func (m *lazyAspire) Uninstall() {
	if m.module != nil {
		m.module.Uninstall()
	}
}

// infoModule serves the build information at GET /info.
type infoModule struct{}

func (infoModule) Name() string { return "info" }

func (infoModule) Initialize(r *servicex.Registry) error {
	r.Logger().Debug("info module ready", log.Str("version", servicex.Build().Version))
	return nil
}

func (infoModule) PostInitialize(p *servicex.Pipeline) error {
	p.HandleFunc("GET /info", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, servicex.Build().String())
	})
	return nil
}

func (infoModule) Uninstall() {}
