package app

import (
	"fmt"
	"os"

	"kubeask/internal/config"
	"kubeask/internal/llm"
	"kubeask/internal/llm/anthropic"
	"kubeask/internal/llm/openai"
	"kubeask/pkg/logging"
)

// NewModel creates the configured model provider. API keys are read by the
// provider SDKs from their standard environment variables.
func NewModel(cfg config.ModelConfig) (llm.Model, error) {
	name := cfg.Name
	if name == "" {
		name = config.DefaultModelName(cfg.Provider)
	}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		warnMissingKey("ANTHROPIC_API_KEY")
		opts := []anthropic.Option{
			anthropic.WithMaxTokens(cfg.MaxTokens),
			anthropic.WithTemperature(cfg.Temperature),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		return anthropic.New(name, opts...), nil

	case config.ProviderOpenAI:
		warnMissingKey("OPENAI_API_KEY")
		opts := []openai.Option{
			openai.WithMaxTokens(cfg.MaxTokens),
			openai.WithTemperature(cfg.Temperature),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(name, opts...), nil

	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}

func warnMissingKey(env string) {
	if os.Getenv(env) == "" {
		logging.Warn("Bootstrap", "%s is not set; model calls will fail unless the endpoint needs no key", env)
	}
}
