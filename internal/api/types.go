package api

import (
	"context"
	"encoding/json"
	"time"
)

// EffectClass declares whether a tool can change cluster state.
type EffectClass string

const (
	// EffectReadOnly tools never issue write verbs against the cluster.
	EffectReadOnly EffectClass = "READ_ONLY"
	// EffectMutating tools change cluster state and must be safe to retry.
	EffectMutating EffectClass = "MUTATING"
)

// ParamType is the JSON type of a tool parameter.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
)

// ParameterSpec describes one accepted tool parameter.
type ParameterSpec struct {
	Name        string      `json:"name" yaml:"name"`
	Type        ParamType   `json:"type" yaml:"type"`
	Required    bool        `json:"required" yaml:"required"`
	Description string      `json:"description" yaml:"description"`
	Default     interface{} `json:"default,omitempty" yaml:"default,omitempty"`

	// Constraints. Zero values mean "unconstrained".
	Enum      []string `json:"enum,omitempty" yaml:"enum,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MaxLength int      `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
}

// Arguments are validated tool arguments keyed by parameter name.
type Arguments map[string]interface{}

// ToolHandler executes a tool against its bound cluster operation.
type ToolHandler func(ctx context.Context, args Arguments) (interface{}, error)

// ToolSpec is one entry of the tool catalog.
type ToolSpec struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Parameters  []ParameterSpec `json:"parameters" yaml:"parameters"`
	Effect      EffectClass     `json:"effect" yaml:"effect"`
	Handler     ToolHandler     `json:"-" yaml:"-"`
}

// Mutating reports whether the tool is flagged MUTATING.
func (s ToolSpec) Mutating() bool {
	return s.Effect == EffectMutating
}

// Parameter returns the declared parameter with the given name.
func (s ToolSpec) Parameter(name string) (ParameterSpec, bool) {
	for _, p := range s.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	CallID    string                 `json:"call_id"`
	ToolName  string                 `json:"tool_name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ResultStatus is the outcome of a tool call.
type ResultStatus string

const (
	StatusOK    ResultStatus = "OK"
	StatusError ResultStatus = "ERROR"
)

// ToolResult is produced exactly once per ToolCall.
type ToolResult struct {
	CallID    string       `json:"call_id"`
	ToolName  string       `json:"tool_name"`
	Status    ResultStatus `json:"status"`
	Payload   interface{}  `json:"payload,omitempty"`
	ErrorKind ErrorKind    `json:"error_kind,omitempty"`
	Message   string       `json:"message,omitempty"`

	// Err is the error behind an ERROR result. It is never serialized.
	Err error `json:"-" yaml:"-"`
}

// OKResult builds a successful ToolResult.
func OKResult(call ToolCall, payload interface{}) ToolResult {
	return ToolResult{
		CallID:   call.CallID,
		ToolName: call.ToolName,
		Status:   StatusOK,
		Payload:  payload,
	}
}

// ErrorResult normalizes err into an ERROR ToolResult.
func ErrorResult(call ToolCall, err error) ToolResult {
	return ToolResult{
		CallID:    call.CallID,
		ToolName:  call.ToolName,
		Status:    StatusError,
		ErrorKind: KindOf(err),
		Message:   err.Error(),
		Err:       err,
	}
}

// IsError reports whether the result carries an error.
func (r ToolResult) IsError() bool {
	return r.Status == StatusError
}

// Render returns the observation text fed back to the model.
func (r ToolResult) Render() string {
	var v interface{}
	if r.IsError() {
		v = map[string]interface{}{
			"error": map[string]interface{}{
				"kind":    r.ErrorKind,
				"message": r.Message,
			},
		}
	} else {
		v = r.Payload
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error":{"kind":"InternalError","message":"unencodable tool payload"}}`
	}
	return string(data)
}

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of a conversation. Assistant turns that requested a tool
// carry ToolCall; tool turns carry ToolResult.
type Message struct {
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// UserMessage creates a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// AnswerMessage creates a final assistant turn.
func AnswerMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now()}
}

// ToolCallMessage creates the assistant turn that requested call.
func ToolCallMessage(text string, call ToolCall) Message {
	c := call
	return Message{Role: RoleAssistant, Content: text, ToolCall: &c, Timestamp: time.Now()}
}

// ToolResultMessage creates the tool turn carrying result.
func ToolResultMessage(result ToolResult) Message {
	r := result
	return Message{Role: RoleTool, Content: r.Render(), ToolResult: &r, Timestamp: time.Now()}
}
