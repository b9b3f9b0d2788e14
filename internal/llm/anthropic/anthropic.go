// Package anthropic implements llm.Model on the Anthropic Messages API.
package anthropic

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"kubeask/internal/api"
	"kubeask/internal/llm"
)

// DefaultMaxTokens is used when no output limit is configured.
const DefaultMaxTokens = 4096

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

// WithBaseURL sets a custom base URL.
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

// Provider is an llm.Model backed by the Anthropic Messages API.
type Provider struct {
	model  string
	cfg    Config
	client anthropic.Client
}

// New creates a Provider. The SDK reads ANTHROPIC_API_KEY and
// ANTHROPIC_BASE_URL from the environment unless set explicitly.
func New(model string, opts ...Option) *Provider {
	cfg := Config{MaxTokens: DefaultMaxTokens}
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
	return &Provider{model: model, cfg: cfg, client: anthropic.NewClient(clientOpts...)}
}

// Name implements llm.Model.
func (p *Provider) Name() string {
	return "anthropic/" + p.model
}

// Next implements llm.Model.
func (p *Provider) Next(ctx context.Context, req llm.Request) (llm.Step, error) {
	msg, err := p.client.Messages.New(ctx, BuildParams(p.model, p.cfg, req))
	if err != nil {
		return llm.Step{}, err
	}
	return ParseMessage(msg), nil
}

// BuildParams converts a request into Messages API parameters.
func BuildParams(model string, cfg Config, req llm.Request) anthropic.MessageNewParams {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  convertMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if cfg.Temperature != nil {
		params.Temperature = anthropic.Float(*cfg.Temperature)
	}

	for _, tool := range req.Tools {
		params.Tools = append(params.Tools, convertTool(tool))
	}
	if len(params.Tools) > 0 {
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfAuto: &anthropic.ToolChoiceAutoParam{DisableParallelToolUse: anthropic.Bool(true)},
		}
	}
	return params
}

func convertTool(tool llm.ToolDefinition) anthropic.ToolUnionParam {
	schema := anthropic.ToolInputSchemaParam{
		Properties: tool.InputSchema["properties"],
	}
	if required, ok := tool.InputSchema["required"].([]string); ok {
		schema.Required = required
	}
	if additional, ok := tool.InputSchema["additionalProperties"]; ok {
		schema.ExtraFields = map[string]any{"additionalProperties": additional}
	}
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        tool.Name,
			Description: anthropic.String(tool.Description),
			InputSchema: schema,
		},
	}
}

// convertMessages maps the conversation onto alternating user/assistant
// turns. Tool results travel as user turns; consecutive turns of the same
// role are merged.
func convertMessages(history []api.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	appendBlocks := func(role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for _, m := range history {
		switch m.Role {
		case api.RoleUser:
			appendBlocks(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(m.Content))
		case api.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if strings.TrimSpace(m.Content) != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			if m.ToolCall != nil {
				input := m.ToolCall.Arguments
				if input == nil {
					input = map[string]interface{}{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(m.ToolCall.CallID, input, m.ToolCall.ToolName))
			}
			appendBlocks(anthropic.MessageParamRoleAssistant, blocks...)
		case api.RoleTool:
			if m.ToolResult == nil {
				continue
			}
			appendBlocks(anthropic.MessageParamRoleUser,
				anthropic.NewToolResultBlock(m.ToolResult.CallID, m.Content, m.ToolResult.IsError()))
		}
	}
	return out
}

// ParseMessage interprets a Messages API response.
func ParseMessage(msg *anthropic.Message) llm.Step {
	var (
		text  strings.Builder
		calls []llm.RawCall
	)
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(variant.Text)
		case anthropic.ToolUseBlock:
			calls = append(calls, llm.RawCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: string(variant.Input),
			})
		}
	}
	return llm.Interpret(text.String(), calls)
}
