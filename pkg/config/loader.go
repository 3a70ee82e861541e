package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile loads configuration from a specific file.
	LoadFromFile(path string) (*Config, error)
}

// loader implements the Loader interface.
type loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, searches for config file in:
// 1. ./config.yaml (current directory)
// 2. ~/.config/mdq/config.yaml.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	// Start with default configuration
	cfg := Default()

	// Find config file path
	configPath := l.configPath
	if configPath == "" {
		configPath = os.Getenv("MDQ_CONFIG")
	}
	if configPath == "" {
		configPath = l.findConfigFile()
	}

	// Load from file if it exists
	if configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		if err != nil {
			// If file is specified but can't be loaded, return error
			if l.configPath != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
			// Otherwise, just use defaults
		} else {
			cfg = l.mergeConfigs(cfg, fileCfg)
		}
	}

	// Apply environment variable overrides
	cfg = l.applyEnvVars(cfg)

	// Validate final configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}

// findConfigFile searches for a config file in standard locations.
//
// Searches in order:
// 1. ./config.yaml
// 2. ~/.config/mdq/config.yaml
//
// Returns empty string if no config file is found.
func (l *loader) findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		defaultConfigPath(),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// mergeConfigs merges file configuration into default configuration.
//
// File values override defaults, but only if they are non-zero.
func (l *loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	// Merge scopes
	if len(override.Scopes) > 0 {
		result.Scopes = override.Scopes
	}

	// Search flags are bools, so the override always wins
	result.Search = override.Search

	// Merge batching config
	if override.Batching.InitialDelay > 0 {
		result.Batching.InitialDelay = override.Batching.InitialDelay
	}
	if override.Batching.InitialCountThreshold > 0 {
		result.Batching.InitialCountThreshold = override.Batching.InitialCountThreshold
	}
	if override.Batching.GatheringInterval > 0 {
		result.Batching.GatheringInterval = override.Batching.GatheringInterval
	}
	if override.Batching.GatheringCountThreshold > 0 {
		result.Batching.GatheringCountThreshold = override.Batching.GatheringCountThreshold
	}
	if override.Batching.MonitoringInterval > 0 {
		result.Batching.MonitoringInterval = override.Batching.MonitoringInterval
	}
	if override.Batching.MonitoringCountThreshold > 0 {
		result.Batching.MonitoringCountThreshold = override.Batching.MonitoringCountThreshold
	}

	// Merge performance config
	if override.Performance.PrefetchWorkers > 0 {
		result.Performance.PrefetchWorkers = override.Performance.PrefetchWorkers
	}
	if override.Performance.DebounceInterval > 0 {
		result.Performance.DebounceInterval = override.Performance.DebounceInterval
	}

	// Merge display config
	if override.Display.DefaultMode != "" {
		result.Display.DefaultMode = override.Display.DefaultMode
	}
	result.Display.ColorEnabled = override.Display.ColorEnabled

	// Merge storage config
	if override.Storage.DBPath != "" {
		result.Storage.DBPath = override.Storage.DBPath
	}

	// Merge logging config
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Output != "" {
		result.Logging.Output = override.Logging.Output
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}

	return &result
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - MDQ_SCOPES: Comma-separated list of search directories
//   - MDQ_CONFIG: Path to config file
//   - MDQ_DB: Path to value cache file
//   - MDQ_LOG_LEVEL: Log level
func (l *loader) applyEnvVars(cfg *Config) *Config {
	result := *cfg

	// MDQ_SCOPES: comma-separated paths
	if envScopes := os.Getenv("MDQ_SCOPES"); envScopes != "" {
		scopes := strings.Split(envScopes, ",")
		for i := range scopes {
			scopes[i] = strings.TrimSpace(scopes[i])
		}
		result.Scopes = scopes
	}

	// MDQ_DB: value cache path
	if dbPath := os.Getenv("MDQ_DB"); dbPath != "" {
		result.Storage.DBPath = dbPath
	}

	// MDQ_LOG_LEVEL: log level
	if logLevel := os.Getenv("MDQ_LOG_LEVEL"); logLevel != "" {
		result.Logging.Level = strings.ToLower(logLevel)
	}

	return &result
}

// Load is a convenience function that creates a loader and loads configuration.
//
// Equivalent to:
//
//	loader := NewLoader("")
//	return loader.Load()
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// LoadFromFile is a convenience function that loads configuration from a file.
//
// Equivalent to:
//
//	loader := NewLoader(path)
//	return loader.Load()
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Save writes the configuration to a YAML file.
//
// Creates parent directories if they don't exist.
// File is created with 0600 permissions (read/write for owner only).
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
