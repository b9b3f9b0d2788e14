package config

import "time"

const (
	DefaultServerPort     = 8080
	DefaultMCPPort        = 8090
	DefaultRequestTimeout = 5 * time.Minute
	DefaultMaxIterations  = 10
	DefaultModelTimeout   = 60 * time.Second
	DefaultToolTimeout    = 20 * time.Second
	DefaultClusterTimeout = 15 * time.Second
	DefaultIdleTTL        = 30 * time.Minute
	DefaultMaxTokens      = 4096

	DefaultAnthropicModel = "claude-sonnet-4-5"
	DefaultOpenAIModel    = "gpt-4.1"
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() KubeaskConfig {
	return KubeaskConfig{
		Server: ServerConfig{
			Host:           "localhost",
			Port:           DefaultServerPort,
			DeliveryMode:   DeliverySync,
			RequestTimeout: DefaultRequestTimeout,
		},
		Agent: AgentConfig{
			MaxIterations: DefaultMaxIterations,
			ModelTimeout:  DefaultModelTimeout,
			ToolTimeout:   DefaultToolTimeout,
		},
		Model: ModelConfig{
			Provider:  ProviderAnthropic,
			Name:      DefaultAnthropicModel,
			MaxTokens: DefaultMaxTokens,
		},
		Cluster: ClusterConfig{
			Timeout:             DefaultClusterTimeout,
			ProtectedNamespaces: []string{"kube-system"},
		},
		Session: SessionConfig{
			IdleTTL: DefaultIdleTTL,
		},
		MCP: MCPConfig{
			Transport: MCPTransportStreamableHTTP,
			Host:      "localhost",
			Port:      DefaultMCPPort,
		},
	}
}

// DefaultModelName returns the model used for provider when none is configured.
func DefaultModelName(provider string) string {
	if provider == ProviderOpenAI {
		return DefaultOpenAIModel
	}
	return DefaultAnthropicModel
}
