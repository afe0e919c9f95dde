package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/undertow/pkg/etl/support/util/exception"
	"github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

const moduleName = "config"

// loadConfig loads configuration in three layers: defaults from NewConfig(),
// the embedded YAML document, and finally UNDERTOW_* environment variables.
// It is intended to be called only once during application startup.
func loadConfig(envFilePath string, embedded EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, exception.NewEngineError(moduleName, exception.CodeExecutionError,
				"failed to unmarshal embedded config", err)
		}
	}
	cfg.EmbeddedConfig = embedded

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides selected configuration fields from environment
// variables. Only the operationally relevant knobs are exposed this way.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("UNDERTOW_LOG_LEVEL"); v != "" {
		cfg.Undertow.System.Logging.Level = strings.ToUpper(v)
	}
	if v := os.Getenv("UNDERTOW_REPOSITORY_DRIVER"); v != "" {
		cfg.Undertow.Repository.Driver = v
	}
	if v := os.Getenv("UNDERTOW_REPOSITORY_DSN"); v != "" {
		cfg.Undertow.Repository.DSN = v
	}
	if v := os.Getenv("UNDERTOW_EMBEDDING_HOST"); v != "" {
		cfg.Undertow.Embedding.Host = v
	}
	if v := os.Getenv("UNDERTOW_EMBEDDING_MODEL"); v != "" {
		cfg.Undertow.Embedding.Model = v
	}
	if v := os.Getenv("UNDERTOW_ADVISOR_HOST"); v != "" {
		cfg.Undertow.Advisor.Host = v
		cfg.Undertow.Advisor.Enabled = true
	}
	if v := os.Getenv("UNDERTOW_SEARCH_ENDPOINT"); v != "" {
		cfg.Undertow.Search.Endpoint = v
	}
	if v := os.Getenv("UNDERTOW_SEARCH_API_KEY"); v != "" {
		cfg.Undertow.Search.APIKey = v
	}
	if v := os.Getenv("UNDERTOW_LOADER_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Undertow.Loader.BatchSize = n
		} else {
			logger.Warnf("Ignoring invalid UNDERTOW_LOADER_BATCH_SIZE value %q.", v)
		}
	}
}

// NewConfigProvider is an Fx provider that loads and provides *Config.
// It initializes the application configuration by loading defaults, merging
// from embedded YAML, and overriding with environment variables. It also sets
// the global logger level.
func NewConfigProvider(embedded EmbeddedConfig) (*Config, error) {
	cfg, err := loadConfig(os.Getenv("UNDERTOW_ENV_FILE"), embedded)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Undertow.System.Logging.Level)
	logger.Debugf("Configuration loaded. Repository driver: %s", cfg.Undertow.Repository.Driver)
	return cfg, nil
}
