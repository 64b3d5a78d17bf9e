package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// fileYAMLConfig represents the complete config.yaml file structure.
type fileYAMLConfig struct {
	Runtime   *RuntimeConfig             `yaml:"runtime"`
	Server    *ServerConfig              `yaml:"server"`
	Masking   *MaskingConfig             `yaml:"masking"`
	Retention *RetentionConfig           `yaml:"retention"`
	Tracing   *TracingConfig             `yaml:"tracing"`
	Providers map[string]*ProviderConfig `yaml:"providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load config.yaml from configDir (missing file is not an error — an
//     all-defaults Config is returned)
//  2. Expand environment variables
//  3. Merge user values over built-in defaults
//  4. Validate all configuration
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration initialized successfully",
		"providers", len(cfg.Providers),
		"listen_addr", cfg.Server.ListenAddr)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	fileCfg, err := loader.loadConfigYAML()
	if err != nil {
		return nil, NewLoadError("config.yaml", err)
	}

	runtime := DefaultRuntimeConfig()
	if fileCfg.Runtime != nil {
		if err := mergo.Merge(&runtime, fileCfg.Runtime, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge runtime config: %w", err)
		}
	}

	server := DefaultServerConfig()
	if fileCfg.Server != nil {
		if err := mergo.Merge(&server, fileCfg.Server, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge server config: %w", err)
		}
	}

	retention := DefaultRetentionConfig()
	if fileCfg.Retention != nil {
		if err := mergo.Merge(&retention, fileCfg.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	var masking MaskingConfig
	if fileCfg.Masking != nil {
		masking = *fileCfg.Masking
	}

	tracing := DefaultTracingConfig()
	if fileCfg.Tracing != nil {
		if err := mergo.Merge(&tracing, fileCfg.Tracing, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge tracing config: %w", err)
		}
	}

	providers := fileCfg.Providers
	if providers == nil {
		providers = make(map[string]*ProviderConfig)
	}

	return &Config{
		configDir: configDir,
		Runtime:   runtime,
		Server:    server,
		Masking:   masking,
		Retention: retention,
		Tracing:   tracing,
		Providers: providers,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	// Expand environment variables using shell-style $VAR/${VAR} syntax.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadConfigYAML() (*fileYAMLConfig, error) {
	var cfg fileYAMLConfig
	if err := l.loadYAML("config.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
