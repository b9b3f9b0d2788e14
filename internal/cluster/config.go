package cluster

import (
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	ctrlconfig "sigs.k8s.io/controller-runtime/pkg/client/config"
)

// userAgent identifies kubeask in API server audit logs.
const userAgent = "kubeask"

// RESTConfig resolves cluster credentials.
//
// An explicit kubeconfig path is loaded directly. Otherwise controller-runtime's
// resolution order applies: the --kubeconfig flag, the KUBECONFIG environment
// variable, in-cluster service account credentials, then ~/.kube/config.
// kubeContext overrides the current context in either case.
func RESTConfig(kubeconfig, kubeContext string) (*rest.Config, error) {
	var (
		cfg *rest.Config
		err error
	)
	if kubeconfig != "" {
		rules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfig}
		overrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}
		cfg, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	} else {
		cfg, err = ctrlconfig.GetConfigWithContext(kubeContext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load kubernetes credentials: %w", err)
	}

	cfg = rest.CopyConfig(cfg)
	cfg.UserAgent = userAgent
	return cfg, nil
}

// NewClientset builds a typed clientset from resolved credentials.
func NewClientset(kubeconfig, kubeContext string) (kubernetes.Interface, error) {
	cfg, err := RESTConfig(kubeconfig, kubeContext)
	if err != nil {
		return nil, err
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return clientset, nil
}
