// Package internal contains Kubernetes ConfigMap watcher implementation.
package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"

	"go.eggybyte.com/egg/core/log"
)

// ConfigMapWatcher watches a single ConfigMap and reports its data on every change.
type ConfigMapWatcher struct {
	name       string
	namespace  string
	logger     log.Logger
	onUpdate   func(data map[string]string)
	client     kubernetes.Interface
	retryDelay time.Duration

	mu        sync.Mutex
	stopCh    chan struct{}
	done      chan struct{}
	isRunning bool
}

// NewConfigMapWatcher creates a new ConfigMap watcher.
func NewConfigMapWatcher(client kubernetes.Interface, name, namespace string, logger log.Logger, onUpdate func(data map[string]string)) *ConfigMapWatcher {
	return &ConfigMapWatcher{
		name:       name,
		namespace:  namespace,
		logger:     logger,
		onUpdate:   onUpdate,
		client:     client,
		retryDelay: 5 * time.Second,
	}
}

// Start starts watching the ConfigMap in a background goroutine.
func (w *ConfigMapWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("watcher is already running")
	}
	if w.client == nil {
		return fmt.Errorf("kubernetes client is required")
	}

	w.logger.Info("starting ConfigMap watcher",
		log.Str("name", w.name),
		log.Str("namespace", w.namespace))

	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.watch(ctx, w.stopCh, w.done)

	w.isRunning = true
	return nil
}

// Stop stops watching and waits for the watch goroutine to exit.
func (w *ConfigMapWatcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	close(w.stopCh)
	done := w.done
	w.isRunning = false
	w.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get reads the ConfigMap once. A missing ConfigMap yields empty data.
func Get(ctx context.Context, client kubernetes.Interface, name, namespace string) (map[string]string, error) {
	cm, err := client.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ConfigMap %s/%s: %w", namespace, name, err)
	}
	return cm.Data, nil
}

func (w *ConfigMapWatcher) watch(ctx context.Context, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer w.logger.Info("ConfigMap watcher stopped",
		log.Str("name", w.name),
		log.Str("namespace", w.namespace))

	for {
		watcher, err := w.client.CoreV1().ConfigMaps(w.namespace).Watch(ctx, metav1.ListOptions{
			FieldSelector: fmt.Sprintf("metadata.name=%s", w.name),
		})
		if err != nil {
			w.logger.Error(err, "failed to create ConfigMap watch",
				log.Str("name", w.name),
				log.Str("namespace", w.namespace))
		} else if stopped := w.drain(ctx, stopCh, watcher); stopped {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-time.After(w.retryDelay):
		}
	}
}

// drain forwards watch events until the result channel closes. It reports
// whether the watcher was stopped.
func (w *ConfigMapWatcher) drain(ctx context.Context, stopCh <-chan struct{}, watcher watch.Interface) bool {
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return true
		case <-stopCh:
			return true
		case event, ok := <-watcher.ResultChan():
			if !ok {
				w.logger.Warn("ConfigMap watch channel closed",
					log.Str("name", w.name),
					log.Str("namespace", w.namespace))
				return false
			}
			w.handle(event)
		}
	}
}

func (w *ConfigMapWatcher) handle(event watch.Event) {
	switch event.Type {
	case watch.Added, watch.Modified:
		cm, ok := event.Object.(*corev1.ConfigMap)
		if !ok || cm.Name != w.name {
			return
		}
		w.logger.Debug("ConfigMap updated",
			log.Str("name", cm.Name),
			log.Int("data_keys", len(cm.Data)))
		if w.onUpdate != nil {
			w.onUpdate(cm.Data)
		}
	case watch.Deleted:
		w.logger.Info("ConfigMap deleted",
			log.Str("name", w.name),
			log.Str("namespace", w.namespace))
		if w.onUpdate != nil {
			w.onUpdate(map[string]string{})
		}
	case watch.Error:
		w.logger.Error(apierrors.FromObject(event.Object), "ConfigMap watch error",
			log.Str("name", w.name),
			log.Str("namespace", w.namespace))
	}
}
