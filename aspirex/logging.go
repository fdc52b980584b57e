package aspirex

import (
	"strings"

	"go.eggybyte.com/egg/configx"
	"go.eggybyte.com/egg/logx"
)

// Exporter settings read from configuration.
const (
	ExporterEndpointKey = "OTEL_EXPORTER_OTLP_ENDPOINT"
	ServiceNameKey      = "OTEL_SERVICE_NAME"

	// DefaultServiceName is reported when ServiceNameKey is unset.
	DefaultServiceName = "egg-platform"
)

// IncludedData is the fixed set of correlation fields attached to exported
// log records.
const IncludedData = logx.TraceIDField | logx.SpanIDField | logx.MessageTemplateText | logx.MessageTemplateMD5Hash

// LoggerConfigurator adds an OTLP sink to the host logging configuration
// when an exporter endpoint is configured.
type LoggerConfigurator struct {
	cfg configx.Lookup
}

// NewLoggerConfigurator creates a configurator reading cfg.
func NewLoggerConfigurator(cfg configx.Lookup) *LoggerConfigurator {
	return &LoggerConfigurator{cfg: cfg}
}

// Configure implements logx.Configurator. Without an endpoint cfg is left
// untouched. The endpoint is not validated here; the exporter rejects a bad
// URL when the sink opens.
func (c *LoggerConfigurator) Configure(cfg *logx.Configuration) error {
	endpoint := exporterEndpoint(c.cfg)
	if endpoint == "" {
		return nil
	}
	cfg.AddSink(&logx.OTLPSink{
		Endpoint:     endpoint,
		Protocol:     logx.ProtocolGRPC,
		IncludedData: IncludedData,
		ResourceAttributes: map[string]any{
			"service.name": serviceName(c.cfg),
		},
	})
	return nil
}

func exporterEndpoint(cfg configx.Lookup) string {
	return strings.TrimSpace(configx.String(cfg, ExporterEndpointKey, ""))
}

// serviceName falls back to DefaultServiceName only when the key is absent;
// a present empty value is reported as is.
func serviceName(cfg configx.Lookup) string {
	if cfg != nil {
		if v, ok := cfg.Value(ServiceNameKey); ok {
			return v
		}
	}
	return DefaultServiceName
}
