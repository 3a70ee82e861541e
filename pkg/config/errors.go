package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrNoScopes is returned when no search scopes are specified.
	ErrNoScopes = errors.New("no search scopes specified")

	// ErrInvalidBatchingInterval is returned when a batching interval is <= 0.
	ErrInvalidBatchingInterval = errors.New("invalid batching interval: must be > 0")

	// ErrInvalidBatchingThreshold is returned when a batching count threshold is <= 0.
	ErrInvalidBatchingThreshold = errors.New("invalid batching count threshold: must be > 0")

	// ErrInvalidPrefetchWorkers is returned when prefetch worker count is <= 0.
	ErrInvalidPrefetchWorkers = errors.New("invalid prefetch worker count: must be > 0")

	// ErrInvalidDebounceInterval is returned when debounce interval is <= 0.
	ErrInvalidDebounceInterval = errors.New("invalid debounce interval: must be > 0")

	// ErrInvalidDisplayMode is returned when display mode is not recognized.
	ErrInvalidDisplayMode = errors.New("invalid display mode: must be table, simple, or json")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
