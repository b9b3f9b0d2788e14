package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind is the stable, user-facing name of an error category.
type ErrorKind string

const (
	KindInvalidArguments   ErrorKind = "InvalidArgumentsError"
	KindUnknownTool        ErrorKind = "UnknownToolError"
	KindDuplicateTool      ErrorKind = "DuplicateToolError"
	KindNotFound           ErrorKind = "NotFoundError"
	KindTimeout            ErrorKind = "TimeoutError"
	KindMutationDenied     ErrorKind = "MutationDeniedError"
	KindCluster            ErrorKind = "ClusterError"
	KindStepBudgetExceeded ErrorKind = "StepBudgetExceededError"
	KindTransportFault     ErrorKind = "TransportFault"
	KindSessionBusy        ErrorKind = "SessionBusyError"
	KindCancelled          ErrorKind = "CancelledError"
	KindBadRequest         ErrorKind = "BadRequest"
	KindInternal           ErrorKind = "InternalError"
)

// KindedError is implemented by every error of the taxonomy.
type KindedError interface {
	error
	Kind() ErrorKind
}

// KindOf returns the stable kind of err. Context deadline and cancellation
// errors map to TimeoutError and CancelledError; anything unrecognised is an
// InternalError.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var kinded KindedError
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	}
	return KindInternal
}

// HTTPStatus maps an error kind to the transport status code.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindBadRequest, KindInvalidArguments, KindUnknownTool:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindSessionBusy, KindCancelled:
		return http.StatusConflict
	case KindTransportFault:
		return http.StatusBadGateway
	case KindStepBudgetExceeded, KindTimeout:
		return http.StatusGatewayTimeout
	case KindMutationDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// InvalidArgumentsError reports the first violation found while validating a
// tool call.
type InvalidArgumentsError struct {
	ToolName  string
	Parameter string
	Reason    string
}

func (e *InvalidArgumentsError) Error() string {
	if e.Parameter == "" {
		return fmt.Sprintf("invalid arguments for tool %s: %s", e.ToolName, e.Reason)
	}
	return fmt.Sprintf("invalid arguments for tool %s: parameter %q %s", e.ToolName, e.Parameter, e.Reason)
}

func (e *InvalidArgumentsError) Kind() ErrorKind { return KindInvalidArguments }

// NewInvalidArgumentsError creates an InvalidArgumentsError.
func NewInvalidArgumentsError(tool, parameter, reason string) *InvalidArgumentsError {
	return &InvalidArgumentsError{ToolName: tool, Parameter: parameter, Reason: reason}
}

// UnknownToolError is returned when a tool name is not in the registry.
type UnknownToolError struct {
	ToolName string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.ToolName)
}

func (e *UnknownToolError) Kind() ErrorKind { return KindUnknownTool }

// DuplicateToolError is returned when a tool name is registered twice.
type DuplicateToolError struct {
	ToolName string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.ToolName)
}

func (e *DuplicateToolError) Kind() ErrorKind { return KindDuplicateTool }

// NotFoundError represents a resource not found error with contextual information.
// For cluster reads it is an expected outcome, surfaced to the model as an
// observation.
type NotFoundError struct {
	// ResourceType categorizes the resource (e.g. "pod", "deployment", "session").
	ResourceType string
	// Namespace is empty for cluster-scoped resources.
	Namespace string
	// ResourceName is the specific identifier of the resource that was not found.
	ResourceName string
	// Message overrides the default format when set.
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Namespace != "" {
		return fmt.Sprintf("%s %s/%s not found", e.ResourceType, e.Namespace, e.ResourceName)
	}
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

func (e *NotFoundError) Kind() ErrorKind { return KindNotFound }

// NewNotFoundError creates a new NotFoundError for a namespaced resource.
// Pass an empty namespace for cluster-scoped resources.
func NewNotFoundError(resourceType, namespace, name string) *NotFoundError {
	return &NotFoundError{ResourceType: resourceType, Namespace: namespace, ResourceName: name}
}

// NewSessionNotFoundError creates a session not found error.
func NewSessionNotFoundError(id string) *NotFoundError {
	return &NotFoundError{ResourceType: "session", ResourceName: id}
}

// IsNotFound checks if an error is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// TimeoutError reports an adapter or model call that exceeded its bound.
type TimeoutError struct {
	// Operation names what timed out, e.g. "list_pods" or "model".
	Operation string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.Timeout)
}

func (e *TimeoutError) Kind() ErrorKind { return KindTimeout }

// IsTimeout checks if an error is or wraps a TimeoutError.
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}

// MutationDeniedError is returned when the blast-radius policy refuses a
// MUTATING tool call.
type MutationDeniedError struct {
	ToolName string
	Reason   string
}

func (e *MutationDeniedError) Error() string {
	return fmt.Sprintf("tool %s refused: %s", e.ToolName, e.Reason)
}

func (e *MutationDeniedError) Kind() ErrorKind { return KindMutationDenied }

// ClusterError wraps a Kubernetes API error that is neither NotFound nor a
// connectivity failure (forbidden, conflict, invalid, ...).
type ClusterError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *ClusterError) Error() string {
	return fmt.Sprintf("kubernetes API error (%d %s): %v", e.StatusCode, e.Reason, e.Err)
}

func (e *ClusterError) Unwrap() error { return e.Err }

func (e *ClusterError) Kind() ErrorKind { return KindCluster }

// StepBudgetExceededError is returned when the agent loop hits its iteration
// ceiling. It is fatal for the request, not the process.
type StepBudgetExceededError struct {
	MaxIterations int
}

func (e *StepBudgetExceededError) Error() string {
	return fmt.Sprintf("step budget of %d tool calls exceeded", e.MaxIterations)
}

func (e *StepBudgetExceededError) Kind() ErrorKind { return KindStepBudgetExceeded }

// TransportFault reports that a collaborator (model provider or cluster API)
// could not be reached at all.
type TransportFault struct {
	// Source is "model" or "cluster".
	Source string
	Err    error
}

func (e *TransportFault) Error() string {
	return fmt.Sprintf("%s unreachable: %v", e.Source, e.Err)
}

func (e *TransportFault) Unwrap() error { return e.Err }

func (e *TransportFault) Kind() ErrorKind { return KindTransportFault }

// SessionBusyError is returned when a second request targets a session whose
// loop is still running.
type SessionBusyError struct {
	SessionID string
}

func (e *SessionBusyError) Error() string {
	return fmt.Sprintf("session %s is already handling a request", e.SessionID)
}

func (e *SessionBusyError) Kind() ErrorKind { return KindSessionBusy }

// CancelledError is returned when a run was cancelled before completing.
type CancelledError struct {
	SessionID string
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("request for session %s was cancelled", e.SessionID)
}

func (e *CancelledError) Kind() ErrorKind { return KindCancelled }

// BadRequestError reports a malformed transport request.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string {
	return "bad request: " + e.Reason
}

func (e *BadRequestError) Kind() ErrorKind { return KindBadRequest }

// InternalError wraps unexpected failures such as recovered handler panics.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %v", e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

func (e *InternalError) Kind() ErrorKind { return KindInternal }
