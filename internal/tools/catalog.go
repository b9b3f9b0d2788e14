package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"kubeask/internal/api"
	"kubeask/internal/cluster"
)

// Cluster is the set of adapter operations the catalog binds to.
// *cluster.Adapter implements it.
type Cluster interface {
	ListPods(ctx context.Context, namespace, labelSelector string) ([]cluster.PodView, error)
	DescribePod(ctx context.Context, namespace, name string) (*cluster.PodDetail, error)
	GetPodLogs(ctx context.Context, namespace, name, container string, tailLines int64, previous bool) (*cluster.LogsView, error)
	ListDeployments(ctx context.Context, namespace string) ([]cluster.DeploymentView, error)
	ListServices(ctx context.Context, namespace string) ([]cluster.ServiceView, error)
	ListNamespaces(ctx context.Context) ([]cluster.NamespaceView, error)
	ListNodes(ctx context.Context, labelSelector string) ([]cluster.NodeView, error)
	DescribeNode(ctx context.Context, name string) (*cluster.NodeDetail, error)
	DescribeEvents(ctx context.Context, namespace string, since time.Duration, involvedObject string) ([]cluster.EventView, error)
	RestartDeployment(ctx context.Context, namespace, name string) (*cluster.RestartOutcome, error)
	ScaleDeployment(ctx context.Context, namespace, name string, replicas int32) (*cluster.ScaleOutcome, error)
}

const (
	// dnsLabelPattern matches namespace names and most object names.
	dnsLabelPattern     = `^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`
	dnsSubdomainPattern = `^[a-z0-9]([-a-z0-9.]*[a-z0-9])?$`
)

func bound(v float64) *float64 { return &v }

func namespaceParam() api.ParameterSpec {
	return api.ParameterSpec{
		Name:        "namespace",
		Type:        api.ParamString,
		Required:    true,
		Description: "Kubernetes namespace",
		Pattern:     dnsLabelPattern,
		MaxLength:   63,
	}
}

func nameParam(kind string) api.ParameterSpec {
	return api.ParameterSpec{
		Name:        "name",
		Type:        api.ParamString,
		Required:    true,
		Description: "Name of the " + kind,
		Pattern:     dnsSubdomainPattern,
		MaxLength:   253,
	}
}

func labelSelectorParam() api.ParameterSpec {
	return api.ParameterSpec{
		Name:        "label_selector",
		Type:        api.ParamString,
		Description: "Label selector, e.g. app=web,tier!=cache",
		MaxLength:   1024,
	}
}

type namespaceArgs struct {
	Namespace     string `mapstructure:"namespace"`
	LabelSelector string `mapstructure:"label_selector"`
}

type objectArgs struct {
	Namespace string `mapstructure:"namespace"`
	Name      string `mapstructure:"name"`
}

type logsArgs struct {
	Namespace string `mapstructure:"namespace"`
	Name      string `mapstructure:"name"`
	Container string `mapstructure:"container"`
	TailLines int64  `mapstructure:"tail_lines"`
	Previous  bool   `mapstructure:"previous"`
}

type eventsArgs struct {
	Namespace      string `mapstructure:"namespace"`
	SinceMinutes   int    `mapstructure:"since_minutes"`
	InvolvedObject string `mapstructure:"involved_object"`
}

type scaleArgs struct {
	Namespace string `mapstructure:"namespace"`
	Name      string `mapstructure:"name"`
	Replicas  int32  `mapstructure:"replicas"`
}

// decodeArgs converts validated arguments into a typed struct. JSON numbers
// arrive as float64 and are narrowed to the target integer type.
func decodeArgs(args api.Arguments, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]interface{}(args)); err != nil {
		return &api.InternalError{Err: fmt.Errorf("decoding arguments: %w", err)}
	}
	return nil
}

// handle adapts a typed handler to api.ToolHandler.
func handle[T any](fn func(ctx context.Context, args T) (interface{}, error)) api.ToolHandler {
	return func(ctx context.Context, raw api.Arguments) (interface{}, error) {
		var args T
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return fn(ctx, args)
	}
}

// NewCatalog returns the fixed tool catalog bound to c.
func NewCatalog(c Cluster) []api.ToolSpec {
	return []api.ToolSpec{
		{
			Name:        "list_pods",
			Description: "List pods in a namespace with phase, readiness, restart counts and node placement.",
			Effect:      api.EffectReadOnly,
			Parameters:  []api.ParameterSpec{namespaceParam(), labelSelectorParam()},
			Handler: handle(func(ctx context.Context, a namespaceArgs) (interface{}, error) {
				return c.ListPods(ctx, a.Namespace, a.LabelSelector)
			}),
		},
		{
			Name:        "describe_pod",
			Description: "Describe a single pod: container states, last termination reasons, conditions and recent events.",
			Effect:      api.EffectReadOnly,
			Parameters:  []api.ParameterSpec{namespaceParam(), nameParam("pod")},
			Handler: handle(func(ctx context.Context, a objectArgs) (interface{}, error) {
				return c.DescribePod(ctx, a.Namespace, a.Name)
			}),
		},
		{
			Name:        "get_pod_logs",
			Description: "Fetch the last lines of a pod container's log. Set previous to read the log of the last crashed instance.",
			Effect:      api.EffectReadOnly,
			Parameters: []api.ParameterSpec{
				namespaceParam(),
				nameParam("pod"),
				{
					Name:        "container",
					Type:        api.ParamString,
					Description: "Container name; required when the pod runs more than one container",
					Pattern:     dnsLabelPattern,
					MaxLength:   63,
				},
				{
					Name:        "tail_lines",
					Type:        api.ParamInteger,
					Description: "Number of lines from the end of the log",
					Default:     100,
					Minimum:     bound(1),
					Maximum:     bound(5000),
				},
				{
					Name:        "previous",
					Type:        api.ParamBoolean,
					Description: "Return logs of the previous terminated container instance",
					Default:     false,
				},
			},
			Handler: handle(func(ctx context.Context, a logsArgs) (interface{}, error) {
				return c.GetPodLogs(ctx, a.Namespace, a.Name, a.Container, a.TailLines, a.Previous)
			}),
		},
		{
			Name:        "list_deployments",
			Description: "List deployments in a namespace with desired, ready, updated and available replica counts.",
			Effect:      api.EffectReadOnly,
			Parameters:  []api.ParameterSpec{namespaceParam()},
			Handler: handle(func(ctx context.Context, a objectArgs) (interface{}, error) {
				return c.ListDeployments(ctx, a.Namespace)
			}),
		},
		{
			Name:        "list_services",
			Description: "List services in a namespace with type, cluster IP, ports and selector.",
			Effect:      api.EffectReadOnly,
			Parameters:  []api.ParameterSpec{namespaceParam()},
			Handler: handle(func(ctx context.Context, a objectArgs) (interface{}, error) {
				return c.ListServices(ctx, a.Namespace)
			}),
		},
		{
			Name:        "list_namespaces",
			Description: "List all namespaces in the cluster.",
			Effect:      api.EffectReadOnly,
			Parameters:  []api.ParameterSpec{},
			Handler: func(ctx context.Context, _ api.Arguments) (interface{}, error) {
				return c.ListNamespaces(ctx)
			},
		},
		{
			Name:        "list_nodes",
			Description: "List cluster nodes with readiness, roles and kubelet version.",
			Effect:      api.EffectReadOnly,
			Parameters:  []api.ParameterSpec{labelSelectorParam()},
			Handler: handle(func(ctx context.Context, a namespaceArgs) (interface{}, error) {
				return c.ListNodes(ctx, a.LabelSelector)
			}),
		},
		{
			Name:        "describe_node",
			Description: "Describe a node: capacity, allocatable resources, taints and conditions.",
			Effect:      api.EffectReadOnly,
			Parameters:  []api.ParameterSpec{nameParam("node")},
			Handler: handle(func(ctx context.Context, a objectArgs) (interface{}, error) {
				return c.DescribeNode(ctx, a.Name)
			}),
		},
		{
			Name:        "describe_events",
			Description: "List recent events in a namespace, optionally only those about one object (\"name\" or \"Kind/name\").",
			Effect:      api.EffectReadOnly,
			Parameters: []api.ParameterSpec{
				namespaceParam(),
				{
					Name:        "since_minutes",
					Type:        api.ParamInteger,
					Description: "Only return events seen within this many minutes",
					Default:     60,
					Minimum:     bound(1),
					Maximum:     bound(1440),
				},
				{
					Name:        "involved_object",
					Type:        api.ParamString,
					Description: "Object the events are about, e.g. web-1 or Pod/web-1",
					MaxLength:   300,
				},
			},
			Handler: handle(func(ctx context.Context, a eventsArgs) (interface{}, error) {
				return c.DescribeEvents(ctx, a.Namespace, time.Duration(a.SinceMinutes)*time.Minute, a.InvolvedObject)
			}),
		},
		{
			Name:        "restart_deployment",
			Description: "Trigger a rolling restart of a deployment, like kubectl rollout restart. Safe to repeat.",
			Effect:      api.EffectMutating,
			Parameters:  []api.ParameterSpec{namespaceParam(), nameParam("deployment")},
			Handler: handle(func(ctx context.Context, a objectArgs) (interface{}, error) {
				return c.RestartDeployment(ctx, a.Namespace, a.Name)
			}),
		},
		{
			Name:        "scale_deployment",
			Description: "Set a deployment's replica count to an absolute value. Safe to repeat.",
			Effect:      api.EffectMutating,
			Parameters: []api.ParameterSpec{
				namespaceParam(),
				nameParam("deployment"),
				{
					Name:        "replicas",
					Type:        api.ParamInteger,
					Required:    true,
					Description: "Desired number of replicas",
					Minimum:     bound(0),
					Maximum:     bound(100),
				},
			},
			Handler: handle(func(ctx context.Context, a scaleArgs) (interface{}, error) {
				return c.ScaleDeployment(ctx, a.Namespace, a.Name, a.Replicas)
			}),
		},
	}
}

// NewCatalogRegistry registers the full catalog bound to c and freezes the
// registry.
func NewCatalogRegistry(c Cluster, policy Policy) (*Registry, error) {
	registry := NewRegistry(policy)
	for _, spec := range NewCatalog(c) {
		if err := registry.Register(spec); err != nil {
			return nil, err
		}
	}
	registry.Freeze()
	return registry, nil
}
