package cluster

import "time"

// ContainerView summarizes one container of a pod.
type ContainerView struct {
	Name         string `json:"name"`
	Image        string `json:"image"`
	Ready        bool   `json:"ready"`
	RestartCount int32  `json:"restartCount"`
	// State is one of running, waiting, terminated or unknown.
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
	// LastTermination describes the previous run when the container restarted.
	LastTermination string `json:"lastTermination,omitempty"`
}

// PodView summarizes a pod the way "kubectl get pods -o wide" does.
type PodView struct {
	Name       string            `json:"name"`
	Namespace  string            `json:"namespace"`
	Phase      string            `json:"phase"`
	Ready      string            `json:"ready"`
	Restarts   int32             `json:"restarts"`
	Node       string            `json:"node,omitempty"`
	IP         string            `json:"ip,omitempty"`
	Age        string            `json:"age"`
	Labels     map[string]string `json:"labels,omitempty"`
	Containers []ContainerView   `json:"containers"`
}

// ConditionView is a status condition of a pod or node.
type ConditionView struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// PodDetail is the describe output of a single pod.
type PodDetail struct {
	PodView
	ServiceAccount string          `json:"serviceAccount,omitempty"`
	QOSClass       string          `json:"qosClass,omitempty"`
	Owner          string          `json:"owner,omitempty"`
	Conditions     []ConditionView `json:"conditions"`
	Events         []EventView     `json:"events"`
}

// DeploymentView summarizes a deployment's rollout state.
type DeploymentView struct {
	Name              string            `json:"name"`
	Namespace         string            `json:"namespace"`
	Replicas          int32             `json:"replicas"`
	ReadyReplicas     int32             `json:"readyReplicas"`
	UpdatedReplicas   int32             `json:"updatedReplicas"`
	AvailableReplicas int32             `json:"availableReplicas"`
	Selector          map[string]string `json:"selector,omitempty"`
	Images            []string          `json:"images"`
	Age               string            `json:"age"`
}

// ServiceView summarizes a service.
type ServiceView struct {
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace"`
	Type        string            `json:"type"`
	ClusterIP   string            `json:"clusterIP,omitempty"`
	ExternalIPs []string          `json:"externalIPs,omitempty"`
	Ports       []string          `json:"ports"`
	Selector    map[string]string `json:"selector,omitempty"`
	Age         string            `json:"age"`
}

// NamespaceView summarizes a namespace.
type NamespaceView struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Age    string `json:"age"`
}

// NodeView summarizes a node.
type NodeView struct {
	Name           string   `json:"name"`
	Ready          bool     `json:"ready"`
	Roles          []string `json:"roles,omitempty"`
	KubeletVersion string   `json:"kubeletVersion"`
	InternalIP     string   `json:"internalIP,omitempty"`
	Unschedulable  bool     `json:"unschedulable,omitempty"`
	Age            string   `json:"age"`
}

// NodeDetail is the describe output of a single node.
type NodeDetail struct {
	NodeView
	OSImage          string            `json:"osImage,omitempty"`
	ContainerRuntime string            `json:"containerRuntime,omitempty"`
	Capacity         map[string]string `json:"capacity,omitempty"`
	Allocatable      map[string]string `json:"allocatable,omitempty"`
	Taints           []string          `json:"taints,omitempty"`
	Conditions       []ConditionView   `json:"conditions"`
}

// EventView is one Kubernetes event.
type EventView struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason"`
	Object   string    `json:"object"`
	Message  string    `json:"message"`
	Count    int32     `json:"count"`
	LastSeen time.Time `json:"lastSeen"`
}

// LogsView holds the tail of a container's log.
type LogsView struct {
	Pod       string `json:"pod"`
	Namespace string `json:"namespace"`
	Container string `json:"container,omitempty"`
	TailLines int64  `json:"tailLines"`
	Previous  bool   `json:"previous"`
	Logs      string `json:"logs"`
	Truncated bool   `json:"truncated,omitempty"`
}

// RestartOutcome reports a triggered rollout restart.
type RestartOutcome struct {
	Namespace   string    `json:"namespace"`
	Name        string    `json:"name"`
	RestartedAt time.Time `json:"restartedAt"`
	Generation  int64     `json:"generation"`
}

// ScaleOutcome reports a scale operation.
type ScaleOutcome struct {
	Namespace        string `json:"namespace"`
	Name             string `json:"name"`
	PreviousReplicas int32  `json:"previousReplicas"`
	Replicas         int32  `json:"replicas"`
}
