package tools

import (
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"kubeask/internal/api"
	"kubeask/internal/cluster"
)

func demoObjects() *fake.Clientset {
	replicas := int32(2)
	return fake.NewClientset(
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "demo"}},
		&corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{Name: "web-1", Namespace: "demo", Labels: map[string]string{"app": "web"}},
			Spec:       corev1.PodSpec{Containers: []corev1.Container{{Name: "web", Image: "nginx"}}},
		},
		&corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{Name: "web-2", Namespace: "demo", Labels: map[string]string{"app": "web"}},
			Spec:       corev1.PodSpec{Containers: []corev1.Container{{Name: "web", Image: "nginx"}}},
		},
		&appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "demo"},
			Spec: appsv1.DeploymentSpec{
				Replicas: &replicas,
				Selector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": "web"}},
			},
		},
		&appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{Name: "coredns", Namespace: "kube-system"},
			Spec:       appsv1.DeploymentSpec{Replicas: &replicas},
		},
		&corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "demo"}},
		&corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: "worker-1"}},
		&corev1.Event{
			ObjectMeta:     metav1.ObjectMeta{Name: "web-1.evt", Namespace: "demo"},
			InvolvedObject: corev1.ObjectReference{Kind: "Pod", Name: "web-1"},
			Reason:         "BackOff",
			LastTimestamp:  metav1.NewTime(time.Now()),
		},
	)
}

func newDemoRegistry(policy Policy) (*Registry, *fake.Clientset) {
	client := demoObjects()
	registry, err := NewCatalogRegistry(cluster.NewAdapter(client, 5*time.Second), policy)
	if err != nil {
		panic(err)
	}
	return registry, client
}

// validArguments returns a minimal valid argument set per catalog tool.
func validArguments() map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		"list_pods":          {"namespace": "demo"},
		"describe_pod":       {"namespace": "demo", "name": "web-1"},
		"get_pod_logs":       {"namespace": "demo", "name": "web-1"},
		"list_deployments":   {"namespace": "demo"},
		"list_services":      {"namespace": "demo"},
		"list_namespaces":    {},
		"list_nodes":         {},
		"describe_node":      {"name": "worker-1"},
		"describe_events":    {"namespace": "demo"},
		"restart_deployment": {"namespace": "demo", "name": "web"},
		"scale_deployment":   {"namespace": "demo", "name": "web", "replicas": float64(3)},
	}
}

func call(tool string, args map[string]interface{}) api.ToolCall {
	return api.ToolCall{CallID: "call-" + tool, ToolName: tool, Arguments: args}
}

func without(args map[string]interface{}, key string) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		if k != key {
			out[k] = v
		}
	}
	return out
}

func with(args map[string]interface{}, key string, value interface{}) map[string]interface{} {
	out := without(args, key)
	out[key] = value
	return out
}
