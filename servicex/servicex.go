// Package servicex hosts modules behind one configuration, logging,
// telemetry and serving pipeline.
//
// Overview:
//   - Responsibility: Boot modules in a fixed order and serve their pipeline
//   - Key Types: Host, Module, Registry, Pipeline
//   - Concurrency Model: Registry is safe for concurrent use; Host is started once
//   - Error Semantics: Module errors propagate wrapped with %w; nothing is masked
//   - Performance Notes: All assembly happens at startup; requests see a fixed handler chain
//
// Usage:
//
//	host := servicex.NewHost(servicex.WithConfig(cfg))
//	_ = host.AddModule(aspirex.New(cfg, os.LookupEnv, logger))
//	_ = host.AddModule(myModule{})
//	err := host.Run(ctx)
package servicex

import (
	"fmt"
	"runtime"

	"go.eggybyte.com/egg/servicex/internal"
)

// BuildInfo describes the framework build linked into the binary.
type BuildInfo struct {
	Version   string
	BuildTime string
	GoVersion string
}

// Build returns the framework build information.
func Build() BuildInfo {
	return BuildInfo{Version: internal.Version, BuildTime: internal.BuildTime, GoVersion: runtime.Version()}
}

// String formats b as "egg <version> (built <time>, <go version>)".
func (b BuildInfo) String() string {
	return fmt.Sprintf("egg %s (built %s, %s)", b.Version, b.BuildTime, b.GoVersion)
}
