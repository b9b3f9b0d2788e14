package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kubeask/internal/api"
	"kubeask/internal/llm"
)

func decodeMessage(t *testing.T, data string) *anthropic.Message {
	t.Helper()
	var msg anthropic.Message
	require.NoError(t, json.Unmarshal([]byte(data), &msg))
	return &msg
}

func testRequest() llm.Request {
	call := api.ToolCall{CallID: "toolu_1", ToolName: "list_pods", Arguments: map[string]interface{}{"namespace": "demo"}}
	return llm.Request{
		System: "You are a Kubernetes assistant.",
		Messages: []api.Message{
			api.UserMessage("list pods in demo"),
			api.ToolCallMessage("", call),
			api.ToolResultMessage(api.OKResult(call, []string{"web-1", "web-2"})),
		},
		Tools: []llm.ToolDefinition{{
			Name:        "list_pods",
			Description: "List pods",
			InputSchema: map[string]interface{}{
				"type":                 "object",
				"properties":           map[string]interface{}{"namespace": map[string]interface{}{"type": "string"}},
				"required":             []string{"namespace"},
				"additionalProperties": false,
			},
		}},
	}
}

func TestBuildParams(t *testing.T) {
	temp := 0.2
	params := BuildParams("claude-sonnet-4-5", Config{Temperature: &temp}, testRequest())

	data, err := json.Marshal(params)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))

	assert.Equal(t, "claude-sonnet-4-5", body["model"])
	assert.Equal(t, float64(DefaultMaxTokens), body["max_tokens"])
	assert.Equal(t, 0.2, body["temperature"])

	toolChoice := body["tool_choice"].(map[string]interface{})
	assert.Equal(t, "auto", toolChoice["type"])
	assert.Equal(t, true, toolChoice["disable_parallel_tool_use"])

	tools := body["tools"].([]interface{})
	require.Len(t, tools, 1)
	schema := tools[0].(map[string]interface{})["input_schema"].(map[string]interface{})
	assert.Equal(t, []interface{}{"namespace"}, schema["required"])
	assert.Equal(t, false, schema["additionalProperties"])

	messages := body["messages"].([]interface{})
	require.Len(t, messages, 3)
	roles := []string{}
	for _, m := range messages {
		roles = append(roles, m.(map[string]interface{})["role"].(string))
	}
	assert.Equal(t, []string{"user", "assistant", "user"}, roles)

	result := messages[2].(map[string]interface{})["content"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "tool_result", result["type"])
	assert.Equal(t, "toolu_1", result["tool_use_id"])
}

func TestConvertMessages_MergesConsecutiveRoles(t *testing.T) {
	call := api.ToolCall{CallID: "toolu_1", ToolName: "list_pods"}
	out := convertMessages([]api.Message{
		api.UserMessage("first"),
		api.ToolCallMessage("checking", call),
		api.ToolResultMessage(api.ErrorResult(call, api.NewNotFoundError("namespace", "", "demo"))),
		api.UserMessage("second"),
	})

	require.Len(t, out, 3)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, out[1].Role)
	assert.Len(t, out[1].Content, 2)
	assert.Equal(t, anthropic.MessageParamRoleUser, out[2].Role)
	assert.Len(t, out[2].Content, 2)
}

func TestParseMessage(t *testing.T) {
	msg := decodeMessage(t, `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude",
		"content": [
			{"type": "text", "text": "Checking pods."},
			{"type": "tool_use", "id": "toolu_9", "name": "list_pods", "input": {"namespace": "demo"}}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`)

	step := ParseMessage(msg)
	require.Equal(t, llm.StepToolCall, step.Kind)
	assert.Equal(t, "toolu_9", step.Call.CallID)
	assert.Equal(t, "demo", step.Call.Arguments["namespace"])

	msg = decodeMessage(t, `{
		"id": "msg_2", "type": "message", "role": "assistant", "model": "claude",
		"content": [{"type": "text", "text": "Both pods are running."}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`)
	step = ParseMessage(msg)
	assert.Equal(t, llm.StepFinal, step.Kind)
	assert.Equal(t, "Both pods are running.", step.Text)
}

func TestProvider_Next(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude",
			"content": [{"type": "text", "text": "All good."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`)
	}))
	defer srv.Close()

	p := New("claude-test", WithAPIKey("test"), WithBaseURL(srv.URL), WithMaxRetries(0), WithMaxTokens(256))
	assert.Equal(t, "anthropic/claude-test", p.Name())

	step, err := p.Next(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, llm.StepFinal, step.Kind)
	assert.Equal(t, "All good.", step.Text)
	assert.Equal(t, float64(256), received["max_tokens"])
}

func TestProvider_NextServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"api_error","message":"overloaded"}}`)
	}))
	defer srv.Close()

	p := New("claude-test", WithAPIKey("test"), WithBaseURL(srv.URL), WithMaxRetries(0))
	_, err := p.Next(context.Background(), testRequest())
	assert.Error(t, err)
}
