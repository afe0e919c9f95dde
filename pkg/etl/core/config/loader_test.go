package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/undertow/pkg/etl/core/config"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := config.NewConfig()
	assert.Equal(t, 3, cfg.Undertow.Engine.MaxIterations)
	assert.InDelta(t, 0.95, cfg.Undertow.Engine.SuccessThreshold, 1e-9)
	assert.InDelta(t, 0.8, cfg.Undertow.Engine.RetryThreshold, 1e-9)
	assert.Equal(t, "sqlite", cfg.Undertow.Repository.Driver)
	assert.Equal(t, 100, cfg.Undertow.Loader.BatchSize)
}

func TestConfigProviderMergesEmbeddedYAML(t *testing.T) {
	embedded := []byte(`
undertow:
  engine:
    max_iterations: 2
  repository:
    driver: inmemory
  system:
    logging:
      level: DEBUG
`)

	cfg, err := config.NewConfigProvider(config.EmbeddedConfig(embedded))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Undertow.Engine.MaxIterations)
	assert.Equal(t, "inmemory", cfg.Undertow.Repository.Driver)
	// Untouched sections keep their defaults.
	assert.InDelta(t, 0.95, cfg.Undertow.Engine.SuccessThreshold, 1e-9)
	assert.Equal(t, "DEBUG", cfg.Undertow.System.Logging.Level)
}

func TestConfigProviderAppliesEnvOverrides(t *testing.T) {
	t.Setenv("UNDERTOW_REPOSITORY_DRIVER", "postgres")
	t.Setenv("UNDERTOW_REPOSITORY_DSN", "postgres://localhost/etl")
	t.Setenv("UNDERTOW_LOADER_BATCH_SIZE", "25")

	cfg, err := config.NewConfigProvider(nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Undertow.Repository.Driver)
	assert.Equal(t, "postgres://localhost/etl", cfg.Undertow.Repository.DSN)
	assert.Equal(t, 25, cfg.Undertow.Loader.BatchSize)
}

func TestConfigProviderIgnoresInvalidBatchSize(t *testing.T) {
	t.Setenv("UNDERTOW_LOADER_BATCH_SIZE", "not-a-number")

	cfg, err := config.NewConfigProvider(nil)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Undertow.Loader.BatchSize)
}

func TestConfigProviderRejectsMalformedYAML(t *testing.T) {
	_, err := config.NewConfigProvider(config.EmbeddedConfig("undertow: ["))
	assert.Error(t, err)
}
