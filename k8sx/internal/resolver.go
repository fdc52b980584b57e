// Package internal contains Kubernetes service resolver implementation.
package internal

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	discoveryv1 "k8s.io/api/discovery/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// ServiceResolver resolves Kubernetes services to endpoints.
type ServiceResolver struct {
	client           kubernetes.Interface
	defaultNamespace string
}

// NewServiceResolver creates a resolver over the given clientset.
func NewServiceResolver(client kubernetes.Interface, defaultNamespace string) *ServiceResolver {
	if defaultNamespace == "" {
		defaultNamespace = "default"
	}
	return &ServiceResolver{client: client, defaultNamespace: defaultNamespace}
}

// ResolveHeadlessService resolves a service to ready pod endpoints through its
// EndpointSlices. portName selects a named port; empty accepts every port.
func (r *ServiceResolver) ResolveHeadlessService(ctx context.Context, serviceName, portName string) ([]string, error) {
	name, namespace := r.parseServiceName(serviceName)

	slices, err := r.client.DiscoveryV1().EndpointSlices(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("%s=%s", discoveryv1.LabelServiceName, name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoint slices for service %s: %w", serviceName, err)
	}

	var endpoints []string
	for _, es := range slices.Items {
		for _, endpoint := range es.Endpoints {
			if endpoint.Conditions.Ready != nil && !*endpoint.Conditions.Ready {
				continue
			}
			if len(endpoint.Addresses) == 0 {
				continue
			}
			for _, port := range es.Ports {
				if port.Port == nil {
					continue
				}
				if portName != "" && (port.Name == nil || *port.Name != portName) {
					continue
				}
				endpoints = append(endpoints, buildEndpoint(endpoint.Addresses[0], strconv.Itoa(int(*port.Port))))
			}
		}
	}

	return endpoints, nil
}

// ResolveClusterIPService resolves a ClusterIP service to its virtual endpoint.
func (r *ServiceResolver) ResolveClusterIPService(ctx context.Context, serviceName, portName string) ([]string, error) {
	name, namespace := r.parseServiceName(serviceName)

	service, err := r.client.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get service %s: %w", serviceName, err)
	}

	if service.Spec.ClusterIP == "" || service.Spec.ClusterIP == "None" {
		return nil, fmt.Errorf("service %s has no ClusterIP", serviceName)
	}

	var endpoints []string
	for _, port := range service.Spec.Ports {
		if portName != "" && port.Name != portName {
			continue
		}
		endpoints = append(endpoints, buildEndpoint(service.Spec.ClusterIP, strconv.Itoa(int(port.Port))))
	}

	return endpoints, nil
}

// ResolveService resolves a service based on its type.
func (r *ServiceResolver) ResolveService(ctx context.Context, serviceName, serviceType, portName string) ([]string, error) {
	switch serviceType {
	case "headless":
		return r.ResolveHeadlessService(ctx, serviceName, portName)
	case "clusterip":
		return r.ResolveClusterIPService(ctx, serviceName, portName)
	default:
		return nil, fmt.Errorf("unknown service type: %s", serviceType)
	}
}

// parseServiceName parses "service", "service.namespace" or a cluster DNS
// name such as "service.namespace.svc.cluster.local".
func (r *ServiceResolver) parseServiceName(serviceName string) (name, namespace string) {
	name, rest, ok := strings.Cut(serviceName, ".")
	if !ok {
		return serviceName, r.defaultNamespace
	}
	namespace, _, _ = strings.Cut(rest, ".")
	if namespace == "" {
		namespace = r.defaultNamespace
	}
	return name, namespace
}

func buildEndpoint(host, port string) string {
	if port == "" {
		return host
	}
	return net.JoinHostPort(host, port)
}
