package app

import (
	"fmt"

	"k8s.io/client-go/kubernetes"

	"kubeask/internal/agent"
	"kubeask/internal/cluster"
	"kubeask/internal/config"
	"kubeask/internal/llm"
	"kubeask/internal/metrics"
	"kubeask/internal/tools"
	"kubeask/pkg/logging"
)

// Services holds the components shared by all commands.
type Services struct {
	Clientset kubernetes.Interface
	Cluster   *cluster.Adapter
	Registry  *tools.Registry
	Metrics   *metrics.Metrics
}

// Replaced in tests.
var (
	newClientset = cluster.NewClientset
	newModel     = NewModel
)

// InitializeServices builds the Kubernetes client, the cluster adapter and
// the frozen tool registry.
func InitializeServices(settings config.KubeaskConfig) (*Services, error) {
	clientset, err := newClientset(settings.Cluster.Kubeconfig, settings.Cluster.Context)
	if err != nil {
		return nil, err
	}

	adapter := cluster.NewAdapter(clientset, settings.Cluster.Timeout)
	policy := tools.Policy{
		ReadOnly:            settings.Cluster.ReadOnly,
		ProtectedNamespaces: settings.Cluster.ProtectedNamespaces,
	}
	registry, err := tools.NewCatalogRegistry(adapter, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}

	if policy.ReadOnly {
		logging.Info("Bootstrap", "Read-only mode: mutating tools will be refused")
	}
	logging.Debug("Bootstrap", "Registered %d tools", len(registry.Specs()))

	return &Services{
		Clientset: clientset,
		Cluster:   adapter,
		Registry:  registry,
		Metrics:   metrics.New(),
	}, nil
}

// NewLoop creates the model client and the agent loop.
func (a *Application) NewLoop() (*agent.Loop, error) {
	model, err := newModel(a.settings.Model)
	if err != nil {
		return nil, err
	}
	return newLoop(model, a.services, a.settings.Agent)
}

func newLoop(model llm.Model, services *Services, cfg config.AgentConfig) (*agent.Loop, error) {
	loop, err := agent.NewLoop(model, services.Registry, agent.Config{
		ModelTimeout: cfg.ModelTimeout,
		ToolTimeout:  cfg.ToolTimeout,
		SystemPrompt: cfg.SystemPrompt,
	}, agent.WithMetrics(services.Metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create agent loop: %w", err)
	}
	logging.Info("Bootstrap", "Agent uses model %s", loop.ModelName())
	return loop, nil
}
