// Package k8sx provides Kubernetes ConfigMap watching and service discovery.
//
// Overview:
//   - Responsibility: Read and watch ConfigMaps, resolve service endpoints
//   - Key Types: WatchOptions, Resolver, ServiceKind
//   - Concurrency Model: All functions are safe for concurrent use
//   - Error Semantics: Functions return errors for failure cases
//   - Performance Notes: One watch per ConfigMap, field-selected by name
//
// Usage:
//
//	client, err := k8sx.NewClientset("")
//	err = k8sx.WatchConfigMap(ctx, "my-config", k8sx.WatchOptions{
//	  Client: client,
//	  Namespace: "default",
//	  Logger: logger,
//	}, func(data map[string]string) {
//	  // Handle configuration update
//	})
//	endpoints, err := k8sx.NewResolver(client, "default").Resolve(ctx, "catalog", k8sx.ServiceKindHeadless, "")
package k8sx

import (
	"context"
	"fmt"

	"k8s.io/client-go/kubernetes"

	"go.eggybyte.com/egg/core/log"
	"go.eggybyte.com/egg/k8sx/internal"
)

// WatchOptions holds configuration for ConfigMap watching.
type WatchOptions struct {
	Client    kubernetes.Interface // Clientset (default: in-cluster or kubeconfig)
	Namespace string               // Kubernetes namespace (default: "default")
	Logger    log.Logger           // Logger for watch operations
}

// ServiceKind represents the type of Kubernetes service.
type ServiceKind string

const (
	// ServiceKindHeadless resolves ready pod endpoints from EndpointSlices.
	ServiceKindHeadless ServiceKind = "headless"
	// ServiceKindClusterIP resolves the service virtual IP.
	ServiceKindClusterIP ServiceKind = "clusterip"
)

// NewClientset returns a clientset for the current cluster. Outside a cluster
// it reads kubeconfig, $KUBECONFIG, or ~/.kube/config in that order.
func NewClientset(kubeconfig string) (kubernetes.Interface, error) {
	return internal.NewClientset(kubeconfig)
}

// GetConfigMap reads the data of a ConfigMap. A missing ConfigMap is not an
// error and yields an empty map.
func GetConfigMap(ctx context.Context, client kubernetes.Interface, name, namespace string) (map[string]string, error) {
	if client == nil {
		return nil, fmt.Errorf("kubernetes client is required")
	}
	if namespace == "" {
		namespace = "default"
	}
	return internal.Get(ctx, client, name, namespace)
}

// WatchConfigMap watches a ConfigMap for changes and calls the callback on updates.
// The callback receives the full data map; a deleted ConfigMap is reported as empty.
// This function blocks until the context is cancelled or an error occurs.
func WatchConfigMap(ctx context.Context, name string, opts WatchOptions, onUpdate func(data map[string]string)) error {
	if opts.Logger == nil {
		return fmt.Errorf("logger is required")
	}

	namespace := opts.Namespace
	if namespace == "" {
		namespace = "default"
	}

	client := opts.Client
	if client == nil {
		var err error
		client, err = internal.NewClientset("")
		if err != nil {
			return err
		}
	}

	watcher := internal.NewConfigMapWatcher(client, name, namespace, opts.Logger, onUpdate)
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start ConfigMap watcher: %w", err)
	}

	<-ctx.Done()

	if err := watcher.Stop(context.Background()); err != nil {
		return fmt.Errorf("failed to stop ConfigMap watcher: %w", err)
	}
	return nil
}

// Resolver resolves Kubernetes services to "host:port" endpoints.
type Resolver struct {
	impl *internal.ServiceResolver
}

// NewResolver creates a resolver. Service names without a namespace suffix
// resolve in namespace.
func NewResolver(client kubernetes.Interface, namespace string) *Resolver {
	return &Resolver{impl: internal.NewServiceResolver(client, namespace)}
}

// Resolve returns the endpoints of service. For headless services these are
// the ready pod endpoints; for ClusterIP services the virtual endpoint.
// portName filters by named port; empty returns every port.
func (r *Resolver) Resolve(ctx context.Context, service string, kind ServiceKind, portName string) ([]string, error) {
	if service == "" {
		return nil, fmt.Errorf("service name is required")
	}
	return r.impl.ResolveService(ctx, service, string(kind), portName)
}
