package aspirex

import (
	"os"

	"go.eggybyte.com/egg/configx"
)

// Activation inputs.
const (
	// EnabledKey is the configuration flag that turns the integration on.
	EnabledKey = "Aspire:Enabled"
	// ResourceServiceEndpointEnv is set by the orchestrator for every
	// process it launches. Its presence alone turns the integration on.
	ResourceServiceEndpointEnv = "DOTNET_RESOURCE_SERVICE_ENDPOINT_URL"
)

// EnvLookup reads an environment variable with os.LookupEnv semantics.
type EnvLookup func(key string) (string, bool)

// Activation records the two independent signals that open the gate.
type Activation struct {
	ConfigEnabled              bool // EnabledKey parsed as true
	ResourceServiceEndpointSet bool // ResourceServiceEndpointEnv present, even if empty
}

// Active reports whether either signal is set.
func (a Activation) Active() bool {
	return a.ConfigEnabled || a.ResourceServiceEndpointSet
}

// ResolveActivation reads both signals. A malformed EnabledKey counts as
// false. A nil env reads the process environment.
func ResolveActivation(cfg configx.Lookup, env EnvLookup) Activation {
	if env == nil {
		env = os.LookupEnv
	}
	_, set := env(ResourceServiceEndpointEnv)
	return Activation{
		ConfigEnabled:              configx.Bool(cfg, EnabledKey, false),
		ResourceServiceEndpointSet: set,
	}
}

// IsActive reports whether the integration should be enabled.
func IsActive(cfg configx.Lookup, env EnvLookup) bool {
	return ResolveActivation(cfg, env).Active()
}
