package internal

import (
	"os"
	"sort"
	"strings"

	"k8s.io/client-go/kubernetes"

	"go.eggybyte.com/egg/core/log"
)

// BuildOptions selects the sources assembled by BuildSources.
type BuildOptions struct {
	Files     []string             // Config files, applied in order after the environment
	File      FileOptions          // Options shared by every file source
	K8sClient kubernetes.Interface // Clientset for ConfigMap sources
	Environ   func() []string      // Environment snapshot (default: os.Environ)
}

// BuildSources assembles the default source stack: environment variables,
// then config files, then every ConfigMap named by an *_CONFIGMAP_NAME
// variable. Later sources win.
func BuildSources(logger log.Logger, opts BuildOptions) []Source {
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}

	sources := []Source{NewEnvSource(EnvOptions{Environ: environ})}

	fileOpts := opts.File
	if fileOpts.Logger == nil {
		fileOpts.Logger = logger
	}
	for _, path := range opts.Files {
		sources = append(sources, NewFileSource(path, fileOpts))
	}

	env := environMap(environ())
	for _, name := range collectConfigMapNames(env) {
		sources = append(sources, NewK8sConfigMapSource(name, K8sOptions{
			Namespace: env["NAMESPACE"],
			Client:    opts.K8sClient,
			Logger:    logger,
		}))
	}

	return sources
}

// collectConfigMapNames returns the distinct values of APP_CONFIGMAP_NAME and
// any other *_CONFIGMAP_NAME variable, APP first and the rest sorted by variable.
func collectConfigMapNames(env map[string]string) []string {
	var keys []string
	for k, v := range env {
		if strings.HasSuffix(k, "_CONFIGMAP_NAME") && k != "APP_CONFIGMAP_NAME" && v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	keys = append([]string{"APP_CONFIGMAP_NAME"}, keys...)

	seen := make(map[string]bool)
	var names []string
	for _, k := range keys {
		name := env[k]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func environMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}
