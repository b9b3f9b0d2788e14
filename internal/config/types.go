package config

import "time"

// KubeaskConfig is the top-level configuration structure for kubeask.
type KubeaskConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Agent   AgentConfig   `yaml:"agent"`
	Model   ModelConfig   `yaml:"model"`
	Cluster ClusterConfig `yaml:"cluster"`
	Session SessionConfig `yaml:"session"`
	MCP     MCPConfig     `yaml:"mcp"`
}

// DeliveryMode selects how /ask responses are delivered.
type DeliveryMode string

const (
	// DeliverySync returns a single JSON document.
	DeliverySync DeliveryMode = "sync"
	// DeliveryStream streams progress and the answer as server-sent events.
	DeliveryStream DeliveryMode = "stream"
)

const (
	// MCPTransportStreamableHTTP is the streamable HTTP transport.
	MCPTransportStreamableHTTP = "streamable-http"
	// MCPTransportStdio is the standard I/O transport.
	MCPTransportStdio = "stdio"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Host           string        `yaml:"host,omitempty"`
	Port           int           `yaml:"port,omitempty"`
	DeliveryMode   DeliveryMode  `yaml:"deliveryMode,omitempty"`
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`
}

// AgentConfig bounds the agent loop.
type AgentConfig struct {
	MaxIterations int           `yaml:"maxIterations,omitempty"`
	ModelTimeout  time.Duration `yaml:"modelTimeout,omitempty"`
	ToolTimeout   time.Duration `yaml:"toolTimeout,omitempty"`
	SystemPrompt  string        `yaml:"systemPrompt,omitempty"`
}

// ModelConfig selects the language model provider.
type ModelConfig struct {
	Provider    string  `yaml:"provider,omitempty"`
	Name        string  `yaml:"name,omitempty"`
	BaseURL     string  `yaml:"baseURL,omitempty"`
	MaxTokens   int64   `yaml:"maxTokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// ClusterConfig configures access to the Kubernetes API.
type ClusterConfig struct {
	Kubeconfig          string        `yaml:"kubeconfig,omitempty"`
	Context             string        `yaml:"context,omitempty"`
	Timeout             time.Duration `yaml:"timeout,omitempty"`
	ReadOnly            bool          `yaml:"readOnly,omitempty"`
	ProtectedNamespaces []string      `yaml:"protectedNamespaces,omitempty"`
}

// SessionConfig configures the in-memory session store.
type SessionConfig struct {
	IdleTTL time.Duration `yaml:"idleTTL,omitempty"`
}

// MCPConfig configures exposure of the tool catalog over MCP.
type MCPConfig struct {
	Enabled   bool   `yaml:"enabled,omitempty"`
	Transport string `yaml:"transport,omitempty"`
	Host      string `yaml:"host,omitempty"`
	Port      int    `yaml:"port,omitempty"`
}
