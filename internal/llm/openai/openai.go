// Package openai implements llm.Model on the OpenAI Chat Completions API and
// compatible endpoints.
package openai

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"kubeask/internal/api"
	"kubeask/internal/llm"
)

// Config configures the provider.
type Config struct {
	APIKey      string
	BaseURL     string
	MaxTokens   int64
	Temperature *float64
	MaxRetries  *int
}

// Option is a functional option for this provider.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL sets a custom base URL, e.g. for an OpenAI-compatible gateway.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithTemperature sets the temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = &t }
}

// WithMaxTokens sets the max output tokens.
func WithMaxTokens(n int64) Option {
	return func(c *Config) { c.MaxTokens = n }
}

// WithMaxRetries sets how often the SDK retries transient failures.
func WithMaxRetries(n int) Option {
	return func(c *Config) { c.MaxRetries = &n }
}

// Provider is an llm.Model backed by Chat Completions.
type Provider struct {
	model  string
	cfg    Config
	client openai.Client
}

// New creates a Provider. The SDK reads OPENAI_API_KEY and OPENAI_BASE_URL
// from the environment unless set explicitly.
func New(model string, opts ...Option) *Provider {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	var clientOpts []option.RequestOption
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries != nil {
		clientOpts = append(clientOpts, option.WithMaxRetries(*cfg.MaxRetries))
	}
	return &Provider{model: model, cfg: cfg, client: openai.NewClient(clientOpts...)}
}

// Name implements llm.Model.
func (p *Provider) Name() string {
	return "openai/" + p.model
}

// Next implements llm.Model.
func (p *Provider) Next(ctx context.Context, req llm.Request) (llm.Step, error) {
	completion, err := p.client.Chat.Completions.New(ctx, BuildParams(p.model, p.cfg, req))
	if err != nil {
		return llm.Step{}, err
	}
	return ParseCompletion(completion), nil
}

// BuildParams converts a request into Chat Completions parameters.
func BuildParams(model string, cfg Config, req llm.Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
	}
	if req.System != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(req.System))
	}
	params.Messages = append(params.Messages, convertMessages(req.Messages)...)

	if cfg.Temperature != nil {
		params.Temperature = openai.Float(*cfg.Temperature)
	}
	if cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(cfg.MaxTokens)
	}

	for _, tool := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        tool.Name,
			Description: openai.String(tool.Description),
			Parameters:  shared.FunctionParameters(tool.InputSchema),
		}))
	}
	if len(params.Tools) > 0 {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String("auto"),
		}
		params.ParallelToolCalls = openai.Bool(false)
	}
	return params
}

func convertMessages(history []api.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case api.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case api.RoleAssistant:
			msg := openai.ChatCompletionAssistantMessageParam{}
			if strings.TrimSpace(m.Content) != "" {
				msg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(m.Content),
				}
			}
			if m.ToolCall != nil {
				msg.ToolCalls = []openai.ChatCompletionMessageToolCallUnionParam{{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: m.ToolCall.CallID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      m.ToolCall.ToolName,
							Arguments: llm.EncodeArguments(m.ToolCall.Arguments),
						},
					},
				}}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &msg})
		case api.RoleTool:
			if m.ToolResult == nil {
				continue
			}
			out = append(out, openai.ToolMessage(m.Content, m.ToolResult.CallID))
		}
	}
	return out
}

// ParseCompletion interprets a Chat Completions response.
func ParseCompletion(completion *openai.ChatCompletion) llm.Step {
	if completion == nil || len(completion.Choices) == 0 {
		return llm.Interpret("", nil)
	}
	message := completion.Choices[0].Message

	calls := make([]llm.RawCall, 0, len(message.ToolCalls))
	for _, tc := range message.ToolCalls {
		calls = append(calls, llm.RawCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return llm.Interpret(message.Content, calls)
}
