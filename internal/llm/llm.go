// Package llm defines the boundary between the agent loop and a language
// model provider.
//
// A Model makes exactly one blocking call per loop iteration and returns a
// Step: a final answer, a single tool call, or a malformed response the loop
// reports back to the model. Providers disable parallel tool use; a response
// that still carries several tool calls is reported as malformed.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"kubeask/internal/api"
)

// ToolDefinition is a tool as presented to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// Request is the full context of one model call.
type Request struct {
	System   string
	Messages []api.Message
	Tools    []ToolDefinition
}

// StepKind is the variant of a model response.
type StepKind int

const (
	// StepFinal carries the final answer in Text.
	StepFinal StepKind = iota
	// StepToolCall carries exactly one tool call in Call.
	StepToolCall
	// StepMalformed means the response could not be interpreted. Call holds
	// whatever could be recovered, Problem says what was wrong.
	StepMalformed
)

func (k StepKind) String() string {
	switch k {
	case StepFinal:
		return "final"
	case StepToolCall:
		return "tool_call"
	case StepMalformed:
		return "malformed"
	}
	return fmt.Sprintf("StepKind(%d)", int(k))
}

// Step is the interpreted result of one model call.
type Step struct {
	Kind    StepKind
	Text    string
	Call    api.ToolCall
	Problem string
}

// Model is a language model provider.
type Model interface {
	// Name identifies the provider and model, e.g. "anthropic/claude-sonnet-4-5".
	Name() string
	// Next sends req and blocks until the model responds or ctx is done.
	Next(ctx context.Context, req Request) (Step, error)
}

// RawCall is a tool call as returned by a provider, before argument decoding.
type RawCall struct {
	ID        string
	Name      string
	Arguments string
}

// Interpret turns a provider response into a Step.
func Interpret(text string, calls []RawCall) Step {
	text = strings.TrimSpace(text)
	switch len(calls) {
	case 0:
		if text == "" {
			return Step{Kind: StepMalformed, Problem: "response contained neither an answer nor a tool call", Call: recoverCall(RawCall{})}
		}
		return Step{Kind: StepFinal, Text: text}
	case 1:
		raw := calls[0]
		call := recoverCall(raw)
		if raw.Name == "" {
			return Step{Kind: StepMalformed, Text: text, Call: call, Problem: "tool call has no tool name"}
		}
		args, err := DecodeArguments(raw.Arguments)
		if err != nil {
			return Step{Kind: StepMalformed, Text: text, Call: call, Problem: err.Error()}
		}
		call.Arguments = args
		return Step{Kind: StepToolCall, Text: text, Call: call}
	default:
		names := make([]string, 0, len(calls))
		for _, c := range calls {
			names = append(names, c.Name)
		}
		return Step{
			Kind:    StepMalformed,
			Text:    text,
			Call:    recoverCall(calls[0]),
			Problem: fmt.Sprintf("%d tool calls in one response (%s); call exactly one tool at a time", len(calls), strings.Join(names, ", ")),
		}
	}
}

// recoverCall keeps what can be salvaged from a raw call, synthesizing an id
// and a placeholder name so the call/result pair stays well formed.
func recoverCall(raw RawCall) api.ToolCall {
	call := api.ToolCall{CallID: raw.ID, ToolName: raw.Name, Arguments: map[string]interface{}{}}
	if call.CallID == "" {
		call.CallID = NewCallID()
	}
	if call.ToolName == "" {
		call.ToolName = "unknown"
	}
	return call
}

// DecodeArguments parses a JSON object of tool arguments. An empty string is
// an empty object.
func DecodeArguments(raw string) (map[string]interface{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("tool arguments are not a JSON object: %w", err)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return args, nil
}

// EncodeArguments renders tool arguments as a JSON object.
func EncodeArguments(args map[string]interface{}) string {
	if args == nil {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// NewCallID returns an id for a tool call the provider did not identify.
func NewCallID() string {
	return "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
