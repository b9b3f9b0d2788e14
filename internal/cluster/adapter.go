package cluster

import (
	"context"
	"fmt"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"

	"kubeask/pkg/logging"
)

const (
	// DefaultTimeout bounds every adapter call when no timeout is configured.
	DefaultTimeout = 15 * time.Second

	// RestartedAtAnnotation is the pod template annotation "kubectl rollout
	// restart" sets to trigger a new rollout.
	RestartedAtAnnotation = "kubectl.kubernetes.io/restartedAt"

	// maxLogBytes caps the log payload returned to the model.
	maxLogBytes = 64 * 1024
)

// Adapter executes cluster operations against the Kubernetes API.
type Adapter struct {
	client  kubernetes.Interface
	timeout time.Duration
	now     func() time.Time
}

// NewAdapter creates an Adapter using client. A non-positive timeout falls
// back to DefaultTimeout.
func NewAdapter(client kubernetes.Interface, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{
		client:  client,
		timeout: timeout,
		now:     time.Now,
	}
}

// Timeout returns the per-call timeout.
func (a *Adapter) Timeout() time.Duration {
	return a.timeout
}

func (a *Adapter) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.timeout)
}

func (a *Adapter) fail(err error, t target) error {
	mapped := mapError(err, t, a.timeout)
	logging.Debug("Cluster", "%s %s %s/%s failed: %v", t.operation, t.resource, t.namespace, t.name, err)
	return mapped
}

// Ping verifies the API server is reachable and the credentials are accepted.
func (a *Adapter) Ping(ctx context.Context) error {
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	_, err := a.client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{Limit: 1})
	if err != nil {
		return a.fail(err, target{operation: "ping", resource: "namespace"})
	}
	return nil
}

// ListPods lists pods in namespace, optionally filtered by a label selector.
func (a *Adapter) ListPods(ctx context.Context, namespace, labelSelector string) ([]PodView, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	list, err := a.client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, a.fail(err, target{operation: "list_pods", resource: "namespace", name: namespace})
	}

	now := a.now()
	pods := make([]PodView, 0, len(list.Items))
	for i := range list.Items {
		pods = append(pods, toPodView(&list.Items[i], now))
	}
	return pods, nil
}

// DescribePod returns a single pod with its conditions and recent events.
func (a *Adapter) DescribePod(ctx context.Context, namespace, name string) (*PodDetail, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	t := target{operation: "describe_pod", resource: "pod", namespace: namespace, name: name}
	pod, err := a.client.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, a.fail(err, t)
	}

	events, err := a.objectEvents(ctx, namespace, "Pod", name)
	if err != nil {
		return nil, a.fail(err, t)
	}
	return toPodDetail(pod, events, a.now()), nil
}

// GetPodLogs returns the last tailLines lines of a container's log. An empty
// container selects the pod's only container.
func (a *Adapter) GetPodLogs(ctx context.Context, namespace, name, container string, tailLines int64, previous bool) (*LogsView, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	opts := &corev1.PodLogOptions{
		Container: container,
		TailLines: &tailLines,
		Previous:  previous,
	}
	raw, err := a.client.CoreV1().Pods(namespace).GetLogs(name, opts).DoRaw(ctx)
	if err != nil {
		return nil, a.fail(err, target{operation: "get_pod_logs", resource: "pod", namespace: namespace, name: name})
	}

	logs, truncated := tailBytes(string(raw), maxLogBytes)
	return &LogsView{
		Pod:       name,
		Namespace: namespace,
		Container: container,
		TailLines: tailLines,
		Previous:  previous,
		Logs:      logs,
		Truncated: truncated,
	}, nil
}

// ListDeployments lists deployments in namespace.
func (a *Adapter) ListDeployments(ctx context.Context, namespace string) ([]DeploymentView, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	list, err := a.client.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, a.fail(err, target{operation: "list_deployments", resource: "namespace", name: namespace})
	}

	now := a.now()
	out := make([]DeploymentView, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, toDeploymentView(&list.Items[i], now))
	}
	return out, nil
}

// ListServices lists services in namespace.
func (a *Adapter) ListServices(ctx context.Context, namespace string) ([]ServiceView, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	list, err := a.client.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, a.fail(err, target{operation: "list_services", resource: "namespace", name: namespace})
	}

	now := a.now()
	out := make([]ServiceView, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, toServiceView(&list.Items[i], now))
	}
	return out, nil
}

// ListNamespaces lists all namespaces.
func (a *Adapter) ListNamespaces(ctx context.Context) ([]NamespaceView, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	list, err := a.client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, a.fail(err, target{operation: "list_namespaces", resource: "namespace"})
	}

	now := a.now()
	out := make([]NamespaceView, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, toNamespaceView(&list.Items[i], now))
	}
	return out, nil
}

// ListNodes lists nodes, optionally filtered by a label selector.
func (a *Adapter) ListNodes(ctx context.Context, labelSelector string) ([]NodeView, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	list, err := a.client.CoreV1().Nodes().List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, a.fail(err, target{operation: "list_nodes", resource: "node"})
	}

	now := a.now()
	out := make([]NodeView, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, toNodeView(&list.Items[i], now))
	}
	return out, nil
}

// DescribeNode returns a single node with capacity, taints and conditions.
func (a *Adapter) DescribeNode(ctx context.Context, name string) (*NodeDetail, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	node, err := a.client.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, a.fail(err, target{operation: "describe_node", resource: "node", name: name})
	}
	return toNodeDetail(node, a.now()), nil
}

// DescribeEvents lists events in namespace seen within the last since. When
// involvedObject is set ("name" or "Kind/name") only events about that object
// are returned.
func (a *Adapter) DescribeEvents(ctx context.Context, namespace string, since time.Duration, involvedObject string) ([]EventView, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	list, err := a.client.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, a.fail(err, target{operation: "describe_events", resource: "namespace", name: namespace})
	}

	kind, name := splitObjectRef(involvedObject)
	cutoff := a.now().Add(-since)

	out := make([]EventView, 0, len(list.Items))
	for i := range list.Items {
		e := &list.Items[i]
		if name != "" && e.InvolvedObject.Name != name {
			continue
		}
		if kind != "" && !strings.EqualFold(e.InvolvedObject.Kind, kind) {
			continue
		}
		view := toEventView(e)
		if since > 0 && view.LastSeen.Before(cutoff) {
			continue
		}
		out = append(out, view)
	}
	sortEvents(out)
	return out, nil
}

// RestartDeployment triggers a rolling restart by stamping the pod template
// with the current time, exactly like "kubectl rollout restart".
func (a *Adapter) RestartDeployment(ctx context.Context, namespace, name string) (*RestartOutcome, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	restartedAt := a.now().UTC().Truncate(time.Second)
	patch := fmt.Sprintf(`{"spec":{"template":{"metadata":{"annotations":{%q:%q}}}}}`,
		RestartedAtAnnotation, restartedAt.Format(time.RFC3339))

	d, err := a.client.AppsV1().Deployments(namespace).Patch(ctx, name, types.StrategicMergePatchType, []byte(patch), metav1.PatchOptions{})
	if err != nil {
		return nil, a.fail(err, target{operation: "restart_deployment", resource: "deployment", namespace: namespace, name: name})
	}

	logging.Info("Cluster", "Triggered rollout restart of deployment %s/%s", namespace, name)
	return &RestartOutcome{
		Namespace:   d.Namespace,
		Name:        d.Name,
		RestartedAt: restartedAt,
		Generation:  d.Generation,
	}, nil
}

// ScaleDeployment sets the deployment's replica count to replicas.
func (a *Adapter) ScaleDeployment(ctx context.Context, namespace, name string, replicas int32) (*ScaleOutcome, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	t := target{operation: "scale_deployment", resource: "deployment", namespace: namespace, name: name}
	deployments := a.client.AppsV1().Deployments(namespace)

	current, err := deployments.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, a.fail(err, t)
	}
	var previous int32 = 1
	if current.Spec.Replicas != nil {
		previous = *current.Spec.Replicas
	}

	patch := fmt.Sprintf(`{"spec":{"replicas":%d}}`, replicas)
	if _, err := deployments.Patch(ctx, name, types.StrategicMergePatchType, []byte(patch), metav1.PatchOptions{}); err != nil {
		return nil, a.fail(err, t)
	}

	logging.Info("Cluster", "Scaled deployment %s/%s from %d to %d replicas", namespace, name, previous, replicas)
	return &ScaleOutcome{
		Namespace:        namespace,
		Name:             name,
		PreviousReplicas: previous,
		Replicas:         replicas,
	}, nil
}

func (a *Adapter) objectEvents(ctx context.Context, namespace, kind, name string) ([]EventView, error) {
	list, err := a.client.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]EventView, 0)
	for i := range list.Items {
		e := &list.Items[i]
		if e.InvolvedObject.Kind == kind && e.InvolvedObject.Name == name {
			out = append(out, toEventView(e))
		}
	}
	sortEvents(out)
	return out, nil
}

// splitObjectRef parses "Kind/name" or "name".
func splitObjectRef(ref string) (kind, name string) {
	if ref == "" {
		return "", ""
	}
	if k, n, ok := strings.Cut(ref, "/"); ok {
		return k, n
	}
	return "", ref
}

// tailBytes keeps the last max bytes of s, starting at a line boundary.
func tailBytes(s string, max int) (string, bool) {
	if len(s) <= max {
		return s, false
	}
	s = s[len(s)-max:]
	if i := strings.IndexByte(s, '\n'); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	return s, true
}
