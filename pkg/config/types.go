// Package config provides configuration management for mdq.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Search scopes: %v\n", cfg.Scopes)
package config

import (
	"time"

	"github.com/hxhall/mdq/pkg/reconcile"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Scopes must have at least one directory
// - DebounceInterval must be > 0
// - PrefetchWorkers must be > 0
// - All batching thresholds must be > 0.
type Config struct {
	// Directories to search
	Scopes []string `yaml:"scopes"`

	// Search settings
	Search SearchConfig `yaml:"search"`

	// Result publish batching thresholds
	Batching reconcile.BatchingPolicy `yaml:"batching"`

	// Performance settings
	Performance PerformanceConfig `yaml:"performance"`

	// Display settings
	Display DisplayConfig `yaml:"display"`

	// Storage settings
	Storage StorageConfig `yaml:"storage"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// SearchConfig contains search behavior settings.
type SearchConfig struct {
	// Keep the query alive after gathering and report live updates
	Monitoring bool `yaml:"monitoring"`

	// Publish intermediate snapshots during the initial sweep
	PublishDuringGathering bool `yaml:"publish_during_gathering"`

	// Skip hidden files and directories
	SkipHidden bool `yaml:"skip_hidden"`
}

// PerformanceConfig contains performance tuning settings.
type PerformanceConfig struct {
	// Number of concurrent background value prefetchers
	PrefetchWorkers int `yaml:"prefetch_workers"`

	// Coalescing window for filesystem change events
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// DisplayConfig contains display-related settings.
type DisplayConfig struct {
	// Default display mode (table, simple, json)
	DefaultMode string `yaml:"default_mode"`

	// Enable colored output
	ColorEnabled bool `yaml:"color_enabled"`
}

// StorageConfig contains storage-related settings.
type StorageConfig struct {
	// Path to BoltDB value cache file; empty disables persistence
	DBPath string `yaml:"db_path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json)
	Format string `yaml:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Returns an error if any invariant is violated:
//   - No search scopes specified
//   - Invalid batching thresholds (must be > 0)
//   - Invalid prefetch worker count (must be > 0)
//   - Invalid debounce interval (must be > 0)
//   - Invalid display mode
//   - Invalid log level
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if len(c.Scopes) == 0 {
		return ErrNoScopes
	}

	// Validate batching config
	if c.Batching.InitialDelay <= 0 ||
		c.Batching.GatheringInterval <= 0 ||
		c.Batching.MonitoringInterval <= 0 {
		return ErrInvalidBatchingInterval
	}
	if c.Batching.InitialCountThreshold <= 0 ||
		c.Batching.GatheringCountThreshold <= 0 ||
		c.Batching.MonitoringCountThreshold <= 0 {
		return ErrInvalidBatchingThreshold
	}

	// Validate performance config
	if c.Performance.PrefetchWorkers <= 0 {
		return ErrInvalidPrefetchWorkers
	}
	if c.Performance.DebounceInterval <= 0 {
		return ErrInvalidDebounceInterval
	}

	// Validate display config
	validModes := map[string]bool{
		"table":  true,
		"simple": true,
		"json":   true,
	}
	if !validModes[c.Display.DefaultMode] {
		return ErrInvalidDisplayMode
	}

	// Validate logging config
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Scopes: defaultScopes(),
		Search: SearchConfig{
			Monitoring:             false,
			PublishDuringGathering: true,
			SkipHidden:             true,
		},
		Batching: reconcile.DefaultBatchingPolicy(),
		Performance: PerformanceConfig{
			PrefetchWorkers:  16,
			DebounceInterval: 100 * time.Millisecond,
		},
		Display: DisplayConfig{
			DefaultMode:  "table",
			ColorEnabled: true,
		},
		Storage: StorageConfig{
			DBPath: defaultDBPath(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}
