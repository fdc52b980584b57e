package internal

import (
	"context"
	"fmt"

	"k8s.io/client-go/kubernetes"

	"go.eggybyte.com/egg/core/log"
	"go.eggybyte.com/egg/k8sx"
)

// K8sOptions configures Kubernetes ConfigMap source behavior.
type K8sOptions struct {
	Namespace string               // Kubernetes namespace (default: "default")
	Client    kubernetes.Interface // Clientset (default: in-cluster or kubeconfig)
	Logger    log.Logger
}

// ConfigMapSource loads configuration from a Kubernetes ConfigMap. Keys use
// the same "__" section convention as environment variables.
type ConfigMapSource struct {
	name      string
	namespace string
	client    kubernetes.Interface
	logger    log.Logger
}

// NewK8sConfigMapSource creates a new Kubernetes ConfigMap source.
func NewK8sConfigMapSource(name string, opts K8sOptions) Source {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "default"
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}

	return &ConfigMapSource{
		name:      name,
		namespace: namespace,
		client:    opts.Client,
		logger:    logger,
	}
}

func (s *ConfigMapSource) clientset() (kubernetes.Interface, error) {
	if s.client != nil {
		return s.client, nil
	}
	client, err := k8sx.NewClientset("")
	if err != nil {
		return nil, err
	}
	s.client = client
	return client, nil
}

// Load reads the ConfigMap.
func (s *ConfigMapSource) Load(ctx context.Context) (map[string]string, error) {
	client, err := s.clientset()
	if err != nil {
		return nil, fmt.Errorf("configmap %s/%s: %w", s.namespace, s.name, err)
	}

	data, err := k8sx.GetConfigMap(ctx, client, s.name, s.namespace)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("loaded ConfigMap",
		log.Str("name", s.name),
		log.Str("namespace", s.namespace),
		log.Int("keys", len(data)))
	return normalize(data), nil
}

// Watch publishes the ConfigMap data on every change.
func (s *ConfigMapSource) Watch(ctx context.Context) (<-chan map[string]string, error) {
	client, err := s.clientset()
	if err != nil {
		return nil, fmt.Errorf("configmap %s/%s: %w", s.namespace, s.name, err)
	}

	ch := make(chan map[string]string)
	go func() {
		defer close(ch)
		err := k8sx.WatchConfigMap(ctx, s.name, k8sx.WatchOptions{
			Client:    client,
			Namespace: s.namespace,
			Logger:    s.logger,
		}, func(data map[string]string) {
			select {
			case ch <- normalize(data):
			case <-ctx.Done():
			}
		})
		if err != nil {
			s.logger.Error(err, "ConfigMap watch ended",
				log.Str("name", s.name),
				log.Str("namespace", s.namespace))
		}
	}()
	return ch, nil
}

func normalize(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[NormalizeEnvKey(k)] = v
	}
	return out
}
