package cluster

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	k8stesting "k8s.io/client-go/testing"

	"kubeask/internal/api"
)

func TestAdapter_ListPods(t *testing.T) {
	other := testPod("demo", "worker-0", true, 0)
	other.Labels = map[string]string{"app": "worker"}
	a, _ := newTestAdapter(
		testPod("demo", "web-1", true, 0),
		testPod("demo", "web-2", false, 4),
		other,
		testPod("prod", "web-9", true, 0),
	)

	pods, err := a.ListPods(context.Background(), "demo", "")
	require.NoError(t, err)
	require.Len(t, pods, 3)

	pods, err = a.ListPods(context.Background(), "demo", "app=web")
	require.NoError(t, err)
	require.Len(t, pods, 2)

	byName := map[string]PodView{}
	for _, p := range pods {
		byName[p.Name] = p
	}
	assert.Equal(t, "1/1", byName["web-1"].Ready)
	assert.Equal(t, "0/1", byName["web-2"].Ready)
	assert.Equal(t, int32(4), byName["web-2"].Restarts)
	assert.Equal(t, "120m", byName["web-1"].Age)
	assert.Equal(t, "running", byName["web-1"].Containers[0].State)
	assert.Equal(t, "worker-1", byName["web-1"].Node)
}

func TestAdapter_ListPods_EmptyNamespace(t *testing.T) {
	a, _ := newTestAdapter()
	pods, err := a.ListPods(context.Background(), "empty", "")
	require.NoError(t, err)
	assert.NotNil(t, pods)
	assert.Empty(t, pods)
}

func TestAdapter_DescribePod(t *testing.T) {
	pod := testPod("demo", "web-1", false, 2)
	pod.Status.ContainerStatuses[0].State = corev1.ContainerState{
		Waiting: &corev1.ContainerStateWaiting{Reason: "CrashLoopBackOff"},
	}
	pod.Status.ContainerStatuses[0].LastTerminationState = corev1.ContainerState{
		Terminated: &corev1.ContainerStateTerminated{Reason: "Error", ExitCode: 137},
	}
	pod.Status.Conditions = []corev1.PodCondition{{Type: corev1.PodReady, Status: corev1.ConditionFalse}}

	a, _ := newTestAdapter(
		pod,
		testEvent("demo", "e1", "Pod", "web-1", "BackOff", fixedNow.Add(-time.Minute)),
		testEvent("demo", "e2", "Pod", "web-1", "Pulled", fixedNow.Add(-10*time.Minute)),
		testEvent("demo", "e3", "Pod", "web-2", "Killing", fixedNow),
	)

	detail, err := a.DescribePod(context.Background(), "demo", "web-1")
	require.NoError(t, err)
	assert.Equal(t, "waiting", detail.Containers[0].State)
	assert.Equal(t, "CrashLoopBackOff", detail.Containers[0].Reason)
	assert.Equal(t, "Error (exit code 137)", detail.Containers[0].LastTermination)
	require.Len(t, detail.Conditions, 1)
	require.Len(t, detail.Events, 2)
	assert.Equal(t, "Pulled", detail.Events[0].Reason, "events are sorted oldest first")
	assert.Equal(t, "BackOff", detail.Events[1].Reason)
}

func TestAdapter_DescribePod_NotFound(t *testing.T) {
	a, _ := newTestAdapter()
	_, err := a.DescribePod(context.Background(), "demo", "ghost")
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
	assert.Equal(t, "pod demo/ghost not found", err.Error())
}

func TestAdapter_GetPodLogs(t *testing.T) {
	a, _ := newTestAdapter(testPod("demo", "web-1", true, 0))
	logs, err := a.GetPodLogs(context.Background(), "demo", "web-1", "app", 50, false)
	require.NoError(t, err)
	assert.Equal(t, "web-1", logs.Pod)
	assert.Equal(t, int64(50), logs.TailLines)
	assert.NotEmpty(t, logs.Logs)
	assert.False(t, logs.Truncated)
}

func TestAdapter_ListDeploymentsServicesNamespaces(t *testing.T) {
	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "demo"},
		Spec: corev1.ServiceSpec{
			Type:      corev1.ServiceTypeClusterIP,
			ClusterIP: "10.96.0.10",
			Ports:     []corev1.ServicePort{{Port: 80, Protocol: corev1.ProtocolTCP}},
		},
	}
	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: "demo"},
		Status:     corev1.NamespaceStatus{Phase: corev1.NamespaceActive},
	}
	a, _ := newTestAdapter(testDeployment("demo", "web", 3), svc, ns)
	ctx := context.Background()

	deployments, err := a.ListDeployments(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, deployments, 1)
	assert.Equal(t, int32(3), deployments[0].Replicas)
	assert.Equal(t, []string{"nginx:1.27"}, deployments[0].Images)
	assert.Equal(t, map[string]string{"app": "web"}, deployments[0].Selector)

	services, err := a.ListServices(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "ClusterIP", services[0].Type)
	assert.Equal(t, []string{"80/TCP"}, services[0].Ports)

	namespaces, err := a.ListNamespaces(ctx)
	require.NoError(t, err)
	require.Len(t, namespaces, 1)
	assert.Equal(t, "Active", namespaces[0].Status)
}

func TestAdapter_Nodes(t *testing.T) {
	node := &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{
			Name:   "cp-1",
			Labels: map[string]string{"node-role.kubernetes.io/control-plane": ""},
		},
		Spec: corev1.NodeSpec{
			Taints: []corev1.Taint{{Key: "node-role.kubernetes.io/control-plane", Effect: corev1.TaintEffectNoSchedule}},
		},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{{Type: corev1.NodeReady, Status: corev1.ConditionTrue}},
			Addresses:  []corev1.NodeAddress{{Type: corev1.NodeInternalIP, Address: "192.168.1.10"}},
			NodeInfo:   corev1.NodeSystemInfo{KubeletVersion: "v1.31.2"},
		},
	}
	a, _ := newTestAdapter(node)

	nodes, err := a.ListNodes(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].Ready)
	assert.Equal(t, []string{"control-plane"}, nodes[0].Roles)
	assert.Equal(t, "192.168.1.10", nodes[0].InternalIP)

	detail, err := a.DescribeNode(context.Background(), "cp-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"node-role.kubernetes.io/control-plane:NoSchedule"}, detail.Taints)

	_, err = a.DescribeNode(context.Background(), "missing")
	assert.True(t, api.IsNotFound(err))
}

func TestAdapter_DescribeEvents(t *testing.T) {
	a, _ := newTestAdapter(
		testEvent("demo", "recent", "Pod", "web-1", "BackOff", fixedNow.Add(-5*time.Minute)),
		testEvent("demo", "old", "Pod", "web-1", "Scheduled", fixedNow.Add(-3*time.Hour)),
		testEvent("demo", "deploy", "Deployment", "web", "ScalingReplicaSet", fixedNow.Add(-time.Minute)),
	)
	ctx := context.Background()

	events, err := a.DescribeEvents(ctx, "demo", time.Hour, "")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "BackOff", events[0].Reason)

	events, err = a.DescribeEvents(ctx, "demo", 24*time.Hour, "Pod/web-1")
	require.NoError(t, err)
	require.Len(t, events, 2)

	events, err = a.DescribeEvents(ctx, "demo", time.Hour, "web")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Deployment/web", events[0].Object)
}

func TestAdapter_RestartDeployment(t *testing.T) {
	a, client := newTestAdapter(testDeployment("demo", "web", 2))
	client.ClearActions()

	outcome, err := a.RestartDeployment(context.Background(), "demo", "web")
	require.NoError(t, err)
	assert.Equal(t, "web", outcome.Name)
	assert.Equal(t, fixedNow, outcome.RestartedAt)

	actions := client.Actions()
	require.Len(t, actions, 1)
	patch, ok := actions[0].(k8stesting.PatchAction)
	require.True(t, ok)
	assert.Equal(t, "deployments", patch.GetResource().Resource)
	assert.Contains(t, string(patch.GetPatch()), RestartedAtAnnotation)

	d, err := client.AppsV1().Deployments("demo").Get(context.Background(), "web", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Format(time.RFC3339), d.Spec.Template.Annotations[RestartedAtAnnotation])
	assert.Equal(t, int32(2), *d.Spec.Replicas)
}

func TestAdapter_RestartDeployment_NotFound(t *testing.T) {
	a, _ := newTestAdapter()
	_, err := a.RestartDeployment(context.Background(), "demo", "ghost")
	assert.Equal(t, api.KindNotFound, api.KindOf(err))
}

func TestAdapter_ScaleDeployment_Idempotent(t *testing.T) {
	a, client := newTestAdapter(testDeployment("demo", "web", 2))
	ctx := context.Background()

	outcome, err := a.ScaleDeployment(ctx, "demo", "web", 5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), outcome.PreviousReplicas)
	assert.Equal(t, int32(5), outcome.Replicas)

	outcome, err = a.ScaleDeployment(ctx, "demo", "web", 5)
	require.NoError(t, err)
	assert.Equal(t, int32(5), outcome.PreviousReplicas)

	d, err := client.AppsV1().Deployments("demo").Get(ctx, "web", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(5), *d.Spec.Replicas)
}

func TestAdapter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind api.ErrorKind
	}{
		{
			name:     "forbidden",
			err:      apierrors.NewForbidden(schema.GroupResource{Resource: "pods"}, "", errors.New("rbac")),
			wantKind: api.KindCluster,
		},
		{
			name:     "server timeout",
			err:      apierrors.NewServerTimeout(schema.GroupResource{Resource: "pods"}, "list", 1),
			wantKind: api.KindTimeout,
		},
		{
			name:     "connection refused",
			err:      &url.Error{Op: "Get", URL: "https://10.0.0.1:6443", Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}},
			wantKind: api.KindTransportFault,
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			wantKind: api.KindTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, client := newTestAdapter()
			client.PrependReactor("list", "pods", func(action k8stesting.Action) (bool, runtime.Object, error) {
				return true, nil, tt.err
			})

			_, err := a.ListPods(context.Background(), "demo", "")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, api.KindOf(err))
		})
	}
}

func TestAdapter_ClusterErrorCarriesStatus(t *testing.T) {
	a, client := newTestAdapter()
	client.PrependReactor("patch", "deployments", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewConflict(schema.GroupResource{Group: "apps", Resource: "deployments"}, "web", errors.New("changed"))
	})

	_, err := a.RestartDeployment(context.Background(), "demo", "web")
	var clusterErr *api.ClusterError
	require.ErrorAs(t, err, &clusterErr)
	assert.Equal(t, 409, clusterErr.StatusCode)
	assert.Equal(t, "Conflict", clusterErr.Reason)
}

func TestAdapter_Ping(t *testing.T) {
	a, _ := newTestAdapter()
	assert.NoError(t, a.Ping(context.Background()))

	a, client := newTestAdapter()
	client.PrependReactor("list", "namespaces", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, &net.OpError{Op: "dial", Err: errors.New("no route to host")}
	})
	err := a.Ping(context.Background())
	assert.Equal(t, api.KindTransportFault, api.KindOf(err))
}

func TestNewAdapter_DefaultTimeout(t *testing.T) {
	a := NewAdapter(nil, 0)
	assert.Equal(t, DefaultTimeout, a.Timeout())
}

func TestTailBytes(t *testing.T) {
	s, truncated := tailBytes("short", 10)
	assert.Equal(t, "short", s)
	assert.False(t, truncated)

	long := strings.Repeat("line\n", 10)
	s, truncated = tailBytes(long, 12)
	assert.True(t, truncated)
	assert.Equal(t, "line\nline\n", s)
}

func TestSplitObjectRef(t *testing.T) {
	kind, name := splitObjectRef("Pod/web-1")
	assert.Equal(t, "Pod", kind)
	assert.Equal(t, "web-1", name)

	kind, name = splitObjectRef("web-1")
	assert.Empty(t, kind)
	assert.Equal(t, "web-1", name)
}
