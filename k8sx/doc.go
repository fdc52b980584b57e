// Package k8sx wraps the client-go calls the host needs in a cluster.
//
// # Overview
//
// configx reads and watches ConfigMaps through WatchConfigMap and
// GetConfigMap. discoveryx falls back to Resolve for service names that are
// not in configuration: ClusterIP services resolve to their virtual IP,
// headless services to the ready EndpointSlice addresses.
//
// Every entry point takes a kubernetes.Interface so tests can pass the
// client-go fake clientset.
//
// # Usage
//
//	client, err := k8sx.NewClientset("")
//	if err != nil { return err }
//	eps, err := k8sx.NewResolver(client, "default").Resolve(ctx, "catalog", k8sx.ServiceKindClusterIP, "http")
package k8sx
