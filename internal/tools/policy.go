package tools

import (
	"fmt"
	"slices"

	"kubeask/internal/api"
)

// DefaultProtectedNamespaces are refused for mutations unless configured otherwise.
var DefaultProtectedNamespaces = []string{"kube-system"}

// Policy bounds what MUTATING tools may touch.
type Policy struct {
	// ReadOnly refuses every MUTATING tool.
	ReadOnly bool
	// ProtectedNamespaces refuse MUTATING tools targeting them.
	ProtectedNamespaces []string
}

// DefaultPolicy allows mutations outside kube-system.
func DefaultPolicy() Policy {
	return Policy{ProtectedNamespaces: slices.Clone(DefaultProtectedNamespaces)}
}

// Check returns a *api.MutationDeniedError when spec may not run with args.
// READ_ONLY tools always pass.
func (p Policy) Check(spec api.ToolSpec, args api.Arguments) error {
	if !spec.Mutating() {
		return nil
	}
	if p.ReadOnly {
		return &api.MutationDeniedError{
			ToolName: spec.Name,
			Reason:   "kubeask is running in read-only mode",
		}
	}
	if ns, ok := args["namespace"].(string); ok && slices.Contains(p.ProtectedNamespaces, ns) {
		return &api.MutationDeniedError{
			ToolName: spec.Name,
			Reason:   fmt.Sprintf("namespace %q is protected", ns),
		}
	}
	return nil
}
