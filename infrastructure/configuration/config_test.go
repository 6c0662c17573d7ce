package configuration

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigurationDefaults(t *testing.T) {
	t.Run("configuration_struct_exists", func(t *testing.T) {
		require.NotNil(t, &C, "Configuration should not be nil")
		require.NotNil(t, &C.App, "App configuration should exist")
		require.NotNil(t, &C.Database, "Database configuration should exist")
	})

	t.Run("lifecycle_defaults_filled", func(t *testing.T) {
		cfg := Config{}
		initDefaults(&cfg)

		require.Equal(t, 360, cfg.Scheduler.DefaultIntervalMinutes)
		require.Equal(t, 60, cfg.Scheduler.MinIntervalMinutes)
		require.Equal(t, 2880, cfg.Scheduler.MaxIntervalMinutes)
		require.Equal(t, 2, cfg.Refresher.ProactiveWindowHours)
		require.Equal(t, 5, cfg.Refresher.MaxAttempts)
		require.Equal(t, 0.85, cfg.Duplicate.SimilarityThreshold)
		require.Equal(t, 3, cfg.Duplicate.MaxRegenerations)
		require.Equal(t, int64(10000), cfg.Quota.DefaultCeiling)
	})

	t.Run("defaults_do_not_override_file_values", func(t *testing.T) {
		cfg := Config{}
		cfg.Duplicate.SimilarityThreshold = 0.9
		cfg.Refresher.ProactiveWindowHours = 6
		initDefaults(&cfg)

		require.Equal(t, 0.9, cfg.Duplicate.SimilarityThreshold)
		require.Equal(t, 6, cfg.Refresher.ProactiveWindowHours)
	})
}

func TestLoadEnvFromFileMissing(t *testing.T) {
	// Missing files must be silently skipped.
	LoadEnvFromFile("does-not-exist.env")
}
