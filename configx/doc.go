// Package configx reads host configuration from layered sources.
//
// # Overview
//
// A Manager merges environment variables, JSON or YAML files, static maps and
// Kubernetes ConfigMaps into one flat key space; later sources win. Section
// keys use ":" as the separator, so "Aspire:Enabled" may come from a nested
// file object, from the variable Aspire__Enabled, or from a ConfigMap key of
// the same form.
//
// Modules read single values through the Lookup helpers (String, Bool) and
// whole sections through Snapshot. Hosts bind BaseConfig with env and default
// tags and validate it with validator/v10, including the listen_addr rule.
//
// # Usage
//
//	mgr, err := configx.DefaultManager(ctx, logger, configx.DefaultOptions{Files: files})
//	if err != nil { return err }
//
//	var base configx.BaseConfig
//	if err := mgr.Bind(&base, configx.WithValidation(nil)); err != nil { return err }
//
//	if configx.Bool(mgr, "Aspire:Enabled", false) { ... }
//
// # Layer
//
// configx depends on core and k8sx.
package configx
