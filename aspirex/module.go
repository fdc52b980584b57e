package aspirex

import (
	"go.eggybyte.com/egg/configx"
	"go.eggybyte.com/egg/core/log"
	"go.eggybyte.com/egg/servicex"
)

// ModuleName is the name the module reports to the host.
const ModuleName = "aspire"

type loggingMarker struct{}

// Module plugs the integration into a servicex host. The activation is
// resolved once, in New, and both lifecycle hooks use that value.
type Module struct {
	activation Activation
	cfg        configx.Lookup
	logger     log.Logger
}

// New resolves the activation from cfg and env. A nil env reads the process
// environment; a nil logger discards.
func New(cfg configx.Lookup, env EnvLookup, logger log.Logger) *Module {
	if logger == nil {
		logger = log.Nop()
	}
	return &Module{
		activation: ResolveActivation(cfg, env),
		cfg:        cfg,
		logger:     logger.With("module", ModuleName),
	}
}

// Name implements servicex.Module.
func (m *Module) Name() string { return ModuleName }

// Activation returns the resolved activation.
func (m *Module) Activation() Activation { return m.activation }

// Initialize implements servicex.Module. When active it contributes the
// logging sink adapter and runs Register.
func (m *Module) Initialize(r *servicex.Registry) error {
	if !m.activation.Active() {
		m.logger.Debug("integration inactive")
		return nil
	}
	m.logger.Info("integration active",
		log.Bool("config_enabled", m.activation.ConfigEnabled),
		log.Bool("resource_service_endpoint", m.activation.ResourceServiceEndpointSet),
		log.Str("otlp_endpoint", exporterEndpoint(m.cfg)))

	if r.Mark(loggingMarker{}) {
		r.Contribute(NewLoggerConfigurator(m.cfg))
	}
	_, err := Register(r, m.cfg)
	return err
}

// PostInitialize implements servicex.Module.
func (m *Module) PostInitialize(p *servicex.Pipeline) error {
	if m.activation.Active() {
		Mount(p)
	}
	return nil
}

// Uninstall implements servicex.Module. The host owns every resource the
// module registered.
func (m *Module) Uninstall() {}
