package app

import (
	"fmt"
	"os"

	"kubeask/internal/config"
	"kubeask/pkg/logging"
)

// Application is a bootstrapped kubeask process.
type Application struct {
	config   *Config
	settings config.KubeaskConfig
	services *Services
}

// NewApplication loads and validates configuration and initializes the
// services shared by all commands.
func NewApplication(cfg *Config) (*Application, error) {
	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.Init(logging.Options{Level: level, Format: cfg.LogFormat, Output: os.Stderr})

	settings, err := loadSettings(cfg)
	if err != nil {
		return nil, err
	}

	services, err := InitializeServices(settings)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		settings: settings,
		services: services,
	}, nil
}

func loadSettings(cfg *Config) (config.KubeaskConfig, error) {
	var settings config.KubeaskConfig
	if cfg.KubeaskConfig != nil {
		settings = *cfg.KubeaskConfig
	} else {
		path := cfg.ConfigPath
		if path == "" {
			path = config.GetDefaultConfigPathOrPanic()
		}
		loaded, err := config.LoadConfig(path)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from %s", path)
			return config.KubeaskConfig{}, fmt.Errorf("failed to load configuration from %s: %w", path, err)
		}
		settings = loaded
	}

	if cfg.Override != nil {
		cfg.Override(&settings)
	}
	if err := settings.Validate(); err != nil {
		return config.KubeaskConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return settings, nil
}

// Settings returns the effective configuration.
func (a *Application) Settings() config.KubeaskConfig {
	return a.settings
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}
