// Package config provides configuration management for kubeask.
//
// Configuration is loaded from a single directory containing config.yaml.
// The default directory is ~/.config/kubeask; commands accept --config-path
// to use another one. A missing file is not an error: the defaults from
// GetDefaultConfig are used. Values present in the file override defaults
// field by field, and command-line flags override both.
//
// # Configuration Structure
//
//	server:
//	  host: "localhost"            # Address the HTTP transport binds to
//	  port: 8080
//	  deliveryMode: "sync"         # sync | stream (SSE)
//	  requestTimeout: 5m           # Upper bound for one /ask request
//	agent:
//	  maxIterations: 10            # Tool rounds per request
//	  modelTimeout: 60s
//	  toolTimeout: 20s
//	  systemPrompt: ""             # text/template with sprig functions; empty selects the built-in prompt
//	model:
//	  provider: "anthropic"        # anthropic | openai
//	  name: "claude-sonnet-4-5"
//	  baseURL: ""
//	  maxTokens: 4096
//	  temperature: 0
//	cluster:
//	  kubeconfig: ""               # Empty uses KUBECONFIG, in-cluster config or ~/.kube/config
//	  context: ""
//	  timeout: 15s                 # Per Kubernetes API call
//	  readOnly: false              # Refuse restart and scale tools
//	  protectedNamespaces: [kube-system]
//	session:
//	  idleTTL: 30m
//	mcp:
//	  enabled: false
//	  transport: "streamable-http" # streamable-http | stdio
//	  host: "localhost"
//	  port: 8090
//
// API keys are never read from the file. The model SDKs pick them up from
// ANTHROPIC_API_KEY and OPENAI_API_KEY.
//
// # Usage
//
//	cfg, err := config.LoadConfig(config.GetDefaultConfigPathOrPanic())
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
