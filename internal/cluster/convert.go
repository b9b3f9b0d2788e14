package cluster

import (
	"fmt"
	"sort"
	"strings"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/duration"

	kstrings "kubeask/pkg/strings"
)

const nodeRoleLabelPrefix = "node-role.kubernetes.io/"

// eventMessageMaxLen bounds event messages so a noisy event cannot flood the
// model context.
const eventMessageMaxLen = 512

func age(ts metav1.Time, now time.Time) string {
	if ts.IsZero() {
		return "<unknown>"
	}
	return duration.HumanDuration(now.Sub(ts.Time))
}

func toPodView(pod *corev1.Pod, now time.Time) PodView {
	view := PodView{
		Name:      pod.Name,
		Namespace: pod.Namespace,
		Phase:     string(pod.Status.Phase),
		Node:      pod.Spec.NodeName,
		IP:        pod.Status.PodIP,
		Age:       age(pod.CreationTimestamp, now),
		Labels:    pod.Labels,
	}

	statuses := make(map[string]corev1.ContainerStatus, len(pod.Status.ContainerStatuses))
	for _, cs := range pod.Status.ContainerStatuses {
		statuses[cs.Name] = cs
	}

	ready := 0
	view.Containers = make([]ContainerView, 0, len(pod.Spec.Containers))
	for _, c := range pod.Spec.Containers {
		cv := ContainerView{Name: c.Name, Image: c.Image, State: "unknown"}
		if cs, ok := statuses[c.Name]; ok {
			cv.Ready = cs.Ready
			cv.RestartCount = cs.RestartCount
			cv.State, cv.Reason = containerState(cs.State)
			if t := cs.LastTerminationState.Terminated; t != nil {
				cv.LastTermination = fmt.Sprintf("%s (exit code %d)", t.Reason, t.ExitCode)
			}
			view.Restarts += cs.RestartCount
			if cs.Ready {
				ready++
			}
		}
		view.Containers = append(view.Containers, cv)
	}
	view.Ready = fmt.Sprintf("%d/%d", ready, len(pod.Spec.Containers))

	if pod.DeletionTimestamp != nil {
		view.Phase = "Terminating"
	}
	return view
}

func containerState(s corev1.ContainerState) (string, string) {
	switch {
	case s.Running != nil:
		return "running", ""
	case s.Waiting != nil:
		return "waiting", s.Waiting.Reason
	case s.Terminated != nil:
		return "terminated", s.Terminated.Reason
	}
	return "unknown", ""
}

func toPodDetail(pod *corev1.Pod, events []EventView, now time.Time) *PodDetail {
	detail := &PodDetail{
		PodView:        toPodView(pod, now),
		ServiceAccount: pod.Spec.ServiceAccountName,
		QOSClass:       string(pod.Status.QOSClass),
		Conditions:     make([]ConditionView, 0, len(pod.Status.Conditions)),
		Events:         events,
	}
	for _, ref := range pod.OwnerReferences {
		if ref.Controller != nil && *ref.Controller {
			detail.Owner = ref.Kind + "/" + ref.Name
		}
	}
	for _, c := range pod.Status.Conditions {
		detail.Conditions = append(detail.Conditions, ConditionView{
			Type:    string(c.Type),
			Status:  string(c.Status),
			Reason:  c.Reason,
			Message: c.Message,
		})
	}
	return detail
}

func toDeploymentView(d *appsv1.Deployment, now time.Time) DeploymentView {
	view := DeploymentView{
		Name:              d.Name,
		Namespace:         d.Namespace,
		ReadyReplicas:     d.Status.ReadyReplicas,
		UpdatedReplicas:   d.Status.UpdatedReplicas,
		AvailableReplicas: d.Status.AvailableReplicas,
		Age:               age(d.CreationTimestamp, now),
		Images:            make([]string, 0, len(d.Spec.Template.Spec.Containers)),
	}
	if d.Spec.Replicas != nil {
		view.Replicas = *d.Spec.Replicas
	}
	if d.Spec.Selector != nil {
		view.Selector = d.Spec.Selector.MatchLabels
	}
	for _, c := range d.Spec.Template.Spec.Containers {
		view.Images = append(view.Images, c.Image)
	}
	return view
}

func toServiceView(s *corev1.Service, now time.Time) ServiceView {
	view := ServiceView{
		Name:        s.Name,
		Namespace:   s.Namespace,
		Type:        string(s.Spec.Type),
		ClusterIP:   s.Spec.ClusterIP,
		ExternalIPs: s.Spec.ExternalIPs,
		Selector:    s.Spec.Selector,
		Age:         age(s.CreationTimestamp, now),
		Ports:       make([]string, 0, len(s.Spec.Ports)),
	}
	for _, p := range s.Spec.Ports {
		port := fmt.Sprintf("%d/%s", p.Port, p.Protocol)
		if p.NodePort != 0 {
			port = fmt.Sprintf("%d:%d/%s", p.Port, p.NodePort, p.Protocol)
		}
		if p.TargetPort.String() != "" && p.TargetPort.String() != "0" {
			port += "->" + p.TargetPort.String()
		}
		view.Ports = append(view.Ports, port)
	}
	return view
}

func toNamespaceView(ns *corev1.Namespace, now time.Time) NamespaceView {
	return NamespaceView{
		Name:   ns.Name,
		Status: string(ns.Status.Phase),
		Age:    age(ns.CreationTimestamp, now),
	}
}

func toNodeView(n *corev1.Node, now time.Time) NodeView {
	view := NodeView{
		Name:           n.Name,
		KubeletVersion: n.Status.NodeInfo.KubeletVersion,
		Unschedulable:  n.Spec.Unschedulable,
		Age:            age(n.CreationTimestamp, now),
	}
	for label := range n.Labels {
		if role, ok := strings.CutPrefix(label, nodeRoleLabelPrefix); ok && role != "" {
			view.Roles = append(view.Roles, role)
		}
	}
	sort.Strings(view.Roles)
	for _, addr := range n.Status.Addresses {
		if addr.Type == corev1.NodeInternalIP {
			view.InternalIP = addr.Address
			break
		}
	}
	for _, c := range n.Status.Conditions {
		if c.Type == corev1.NodeReady {
			view.Ready = c.Status == corev1.ConditionTrue
		}
	}
	return view
}

func toNodeDetail(n *corev1.Node, now time.Time) *NodeDetail {
	detail := &NodeDetail{
		NodeView:         toNodeView(n, now),
		OSImage:          n.Status.NodeInfo.OSImage,
		ContainerRuntime: n.Status.NodeInfo.ContainerRuntimeVersion,
		Capacity:         resourceList(n.Status.Capacity),
		Allocatable:      resourceList(n.Status.Allocatable),
		Conditions:       make([]ConditionView, 0, len(n.Status.Conditions)),
	}
	for _, t := range n.Spec.Taints {
		detail.Taints = append(detail.Taints, t.ToString())
	}
	for _, c := range n.Status.Conditions {
		detail.Conditions = append(detail.Conditions, ConditionView{
			Type:    string(c.Type),
			Status:  string(c.Status),
			Reason:  c.Reason,
			Message: c.Message,
		})
	}
	return detail
}

func resourceList(rl corev1.ResourceList) map[string]string {
	if len(rl) == 0 {
		return nil
	}
	out := make(map[string]string, len(rl))
	for name, qty := range rl {
		out[string(name)] = qty.String()
	}
	return out
}

// eventTime picks the most meaningful timestamp of an event; newer event
// producers only fill EventTime or Series.
func eventTime(e *corev1.Event) time.Time {
	switch {
	case e.Series != nil && !e.Series.LastObservedTime.IsZero():
		return e.Series.LastObservedTime.Time
	case !e.LastTimestamp.IsZero():
		return e.LastTimestamp.Time
	case !e.EventTime.IsZero():
		return e.EventTime.Time
	}
	return e.CreationTimestamp.Time
}

func toEventView(e *corev1.Event) EventView {
	count := e.Count
	if e.Series != nil {
		count = e.Series.Count
	}
	if count == 0 {
		count = 1
	}
	return EventView{
		Type:     e.Type,
		Reason:   e.Reason,
		Object:   e.InvolvedObject.Kind + "/" + e.InvolvedObject.Name,
		Message:  kstrings.Ellipsize(e.Message, eventMessageMaxLen),
		Count:    count,
		LastSeen: eventTime(e),
	}
}

// sortEvents orders events oldest first, the way kubectl describe prints them.
func sortEvents(events []EventView) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].LastSeen.Before(events[j].LastSeen)
	})
}
