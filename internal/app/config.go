package app

import (
	"kubeask/internal/config"
	"kubeask/pkg/logging"
)

// Config holds the application configuration
type Config struct {
	Debug     bool
	LogFormat logging.Format

	// ConfigPath is the directory containing config.yaml.
	ConfigPath string

	// Override is applied after loading the file; command-line flags use it.
	Override func(*config.KubeaskConfig)

	// KubeaskConfig, when set, is used instead of loading ConfigPath.
	KubeaskConfig *config.KubeaskConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		LogFormat:  logging.FormatText,
		ConfigPath: configPath,
	}
}
