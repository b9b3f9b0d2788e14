package tools

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"kubeask/internal/api"
	"kubeask/pkg/logging"
)

// ErrRegistryFrozen is returned when registering into a frozen registry.
var ErrRegistryFrozen = errors.New("tool registry is frozen")

type entry struct {
	spec    api.ToolSpec
	schemas map[string]*gojsonschema.Schema
}

// Registry is the closed set of tools keyed by name.
type Registry struct {
	entries map[string]*entry
	order   []string
	policy  Policy
	frozen  bool
}

// NewRegistry creates an empty registry guarded by policy.
func NewRegistry(policy Policy) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		policy:  policy,
	}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(spec api.ToolSpec) error {
	if r.frozen {
		return ErrRegistryFrozen
	}
	if spec.Name == "" {
		return fmt.Errorf("tool name must not be empty")
	}
	if spec.Handler == nil {
		return fmt.Errorf("tool %s has no handler", spec.Name)
	}
	if _, exists := r.entries[spec.Name]; exists {
		return &api.DuplicateToolError{ToolName: spec.Name}
	}

	seen := make(map[string]bool, len(spec.Parameters))
	for _, p := range spec.Parameters {
		if seen[p.Name] {
			return fmt.Errorf("tool %s declares parameter %s twice", spec.Name, p.Name)
		}
		seen[p.Name] = true
	}

	schemas, err := compileParameters(spec)
	if err != nil {
		return err
	}

	r.entries[spec.Name] = &entry{spec: spec, schemas: schemas}
	r.order = append(r.order, spec.Name)
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Policy returns the blast-radius policy applied to mutating tools.
func (r *Registry) Policy() Policy {
	return r.policy
}

// Resolve looks up a tool by name.
func (r *Registry) Resolve(name string) (api.ToolSpec, error) {
	e, ok := r.entries[name]
	if !ok {
		return api.ToolSpec{}, &api.UnknownToolError{ToolName: name}
	}
	return e.spec, nil
}

// Specs returns all tools in registration order.
func (r *Registry) Specs() []api.ToolSpec {
	specs := make([]api.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.entries[name].spec)
	}
	return specs
}

// InputSchema returns the JSON Schema object describing a tool's arguments.
func (r *Registry) InputSchema(name string) (map[string]interface{}, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, &api.UnknownToolError{ToolName: name}
	}
	return inputSchema(e.spec), nil
}

// Validate checks call against the tool's declared parameters and returns the
// arguments with defaults applied. The first violation found is returned as a
// *api.InvalidArgumentsError.
func (r *Registry) Validate(call api.ToolCall) (api.Arguments, error) {
	e, ok := r.entries[call.ToolName]
	if !ok {
		return nil, &api.UnknownToolError{ToolName: call.ToolName}
	}
	spec := e.spec

	present := func(name string) bool {
		v, ok := call.Arguments[name]
		return ok && v != nil
	}

	for _, p := range spec.Parameters {
		if p.Required && !present(p.Name) {
			return nil, api.NewInvalidArgumentsError(spec.Name, p.Name, "is required")
		}
	}

	undeclared := make([]string, 0)
	for name := range call.Arguments {
		if _, declared := spec.Parameter(name); !declared {
			undeclared = append(undeclared, name)
		}
	}
	if len(undeclared) > 0 {
		sort.Strings(undeclared)
		return nil, api.NewInvalidArgumentsError(spec.Name, undeclared[0], "is not a declared parameter")
	}

	args := make(api.Arguments, len(spec.Parameters))
	for _, p := range spec.Parameters {
		if !present(p.Name) {
			if p.Default != nil {
				args[p.Name] = p.Default
			}
			continue
		}
		value := call.Arguments[p.Name]
		reason, err := checkValue(e.schemas[p.Name], value)
		if err != nil {
			return nil, api.NewInvalidArgumentsError(spec.Name, p.Name, fmt.Sprintf("could not be checked: %v", err))
		}
		if reason != "" {
			return nil, api.NewInvalidArgumentsError(spec.Name, p.Name, reason)
		}
		args[p.Name] = value
	}
	return args, nil
}

// Execute validates call, applies the blast-radius policy and runs the tool.
// Every outcome, including panics and deadline expiry, is normalized into a
// ToolResult; Execute never returns without one.
func (r *Registry) Execute(ctx context.Context, call api.ToolCall) api.ToolResult {
	spec, err := r.Resolve(call.ToolName)
	if err != nil {
		return api.ErrorResult(call, err)
	}

	args, err := r.Validate(call)
	if err != nil {
		return api.ErrorResult(call, err)
	}

	if err := r.policy.Check(spec, args); err != nil {
		audit(ctx, spec, args, "denied", err)
		return api.ErrorResult(call, err)
	}

	payload, err := invoke(ctx, spec, args)
	if spec.Mutating() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		audit(ctx, spec, args, outcome, err)
	}
	if err != nil {
		return api.ErrorResult(call, err)
	}
	return api.OKResult(call, payload)
}

type invocation struct {
	payload interface{}
	err     error
}

// invoke runs the handler in its own goroutine so a handler that ignores its
// context cannot hold the caller past the deadline.
func invoke(ctx context.Context, spec api.ToolSpec, args api.Arguments) (interface{}, error) {
	done := make(chan invocation, 1)
	started := time.Now()

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				logging.Error("Tools", fmt.Errorf("%v", rec), "Tool %s panicked\n%s", spec.Name, debug.Stack())
				done <- invocation{err: &api.InternalError{Err: fmt.Errorf("tool %s panicked: %v", spec.Name, rec)}}
			}
		}()
		payload, err := spec.Handler(ctx, args)
		done <- invocation{payload: payload, err: err}
	}()

	select {
	case res := <-done:
		return res.payload, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &api.TimeoutError{Operation: spec.Name, Timeout: time.Since(started).Round(time.Millisecond)}
		}
		return nil, fmt.Errorf("tool %s: %w", spec.Name, ctx.Err())
	}
}

func audit(ctx context.Context, spec api.ToolSpec, args api.Arguments, outcome string, err error) {
	event := logging.AuditEvent{
		Action:    spec.Name,
		Outcome:   outcome,
		SessionID: logging.TruncateSessionID(SessionIDFromContext(ctx)),
		Target:    describeTarget(args),
	}
	if err != nil {
		event.Details = fmt.Sprintf("%s: %v", api.KindOf(err), err)
	}
	logging.Audit(event)
}

func describeTarget(args api.Arguments) string {
	ns, _ := args["namespace"].(string)
	name, _ := args["name"].(string)
	switch {
	case ns != "" && name != "":
		return ns + "/" + name
	case name != "":
		return name
	}
	return ns
}
