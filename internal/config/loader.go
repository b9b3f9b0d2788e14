package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"kubeask/pkg/logging"
)

const (
	userConfigDir  = ".config/kubeask"
	configFileName = "config.yaml"
)

// osUserHomeDir is replaced in tests.
var osUserHomeDir = os.UserHomeDir

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := osUserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads config.yaml from configPath on top of the defaults.
func LoadConfig(configPath string) (KubeaskConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return KubeaskConfig{}, NewConfigurationError(configFilePath, configFileName, "io", err.Error())
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return KubeaskConfig{}, NewConfigurationError(configFilePath, configFileName, "parse", err.Error())
	}

	// A provider switch without an explicit model keeps the defaults consistent.
	if config.Model.Provider == ProviderOpenAI && config.Model.Name == DefaultAnthropicModel && !modelNameSet(data) {
		config.Model.Name = DefaultOpenAIModel
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

func modelNameSet(data []byte) bool {
	var probe struct {
		Model struct {
			Name *string `yaml:"name"`
		} `yaml:"model"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return false
	}
	return probe.Model.Name != nil
}
