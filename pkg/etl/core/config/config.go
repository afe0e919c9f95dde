package config

// Package config provides structures and utilities for managing application configuration.

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
// This is used when loading configuration from an embedded source (e.g., a compiled binary).
type EmbeddedConfig []byte

// EngineConfig holds configuration for the perceive/act/reflect loop engine.
type EngineConfig struct {
	// MaxIterations bounds the number of perceive/act/reflect cycles per run.
	MaxIterations int `yaml:"max_iterations"`
	// SuccessThreshold is the minimum success rate for a reflection to declare success.
	SuccessThreshold float64 `yaml:"success_threshold"`
	// RetryThreshold is the success rate below which a failed reflection requests a retry.
	RetryThreshold float64 `yaml:"retry_threshold"`
}

// LoaderConfig holds configuration for the multi-target loader.
type LoaderConfig struct {
	// BatchSize is the number of rows written per batch against each target.
	BatchSize int `yaml:"batch_size"`
	// TypeSampleSize is the number of non-null values sampled per column for type inference.
	TypeSampleSize int `yaml:"type_sample_size"`
}

// EmbeddingConfig holds configuration for the embedding-generation capability.
type EmbeddingConfig struct {
	// Host is the base URL of an OpenAI-compatible embedding endpoint.
	Host string `yaml:"host"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimension is the vector dimension produced by the model.
	Dimension int `yaml:"dimension"`
}

// AdvisorConfig holds configuration for the optional chat/completion capability
// used by workers for quality scoring. Failure of this capability degrades to a
// neutral default; it never aborts a run.
type AdvisorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Model   string `yaml:"model"`
}

// SearchConfig holds configuration for the search index destination.
type SearchConfig struct {
	// Endpoint is the base URL of the search service.
	Endpoint string `yaml:"endpoint"`
	// APIKey authenticates bulk requests, when required by the provider.
	APIKey string `yaml:"api_key"`
}

// RepositoryConfig holds configuration for the job/run store backend.
type RepositoryConfig struct {
	// Driver selects the backend: "sqlite", "postgres", "mysql", or "inmemory".
	Driver string `yaml:"driver"`
	// DSN is the connection string for SQL backends.
	DSN string `yaml:"dsn"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "Asia/Tokyo").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// UndertowConfig holds all configuration under the "undertow" top-level key.
type UndertowConfig struct {
	Engine     EngineConfig     `yaml:"engine"`
	Loader     LoaderConfig     `yaml:"loader"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Advisor    AdvisorConfig    `yaml:"advisor"`
	Search     SearchConfig     `yaml:"search"`
	Repository RepositoryConfig `yaml:"repository"`
	System     SystemConfig     `yaml:"system"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Undertow UndertowConfig `yaml:"undertow"`
	// EmbeddedConfig holds configuration loaded from an embedded source, not from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a Config populated with engine defaults.
func NewConfig() *Config {
	return &Config{
		Undertow: UndertowConfig{
			Engine: EngineConfig{
				MaxIterations:    3,
				SuccessThreshold: 0.95,
				RetryThreshold:   0.8,
			},
			Loader: LoaderConfig{
				BatchSize:      100,
				TypeSampleSize: 100,
			},
			Embedding: EmbeddingConfig{
				Dimension: 1536,
			},
			Repository: RepositoryConfig{
				Driver: "sqlite",
				DSN:    "file:undertow.db?cache=shared",
			},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
		},
	}
}
