package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/event-scout/internal/config"
)

func TestLoadConfig_NoPathUsesDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.SupportedCity, cfg.City)
	assert.Equal(t, 0.8, cfg.FuzzyThreshold)
	assert.Equal(t, config.DefaultSearchQueries, cfg.SearchQueries)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fuzzy_threshold": 0.95, "max_total_results": 10}`), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.95, cfg.FuzzyThreshold)
	assert.Equal(t, 10, cfg.MaxTotalResults)
	// Values the file leaves unset still come from defaults.
	assert.Equal(t, config.SupportedCity, cfg.City)
}

func TestLoadConfig_EnvCredentials(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.GeminiAPIKey)
}

func TestLoadConfig_InvalidValuesRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fuzzy_threshold": 2.0}`), 0o644))

	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestBuildRunner_MissingGeminiKey(t *testing.T) {
	cfg := config.Defaults()
	cfg.GeminiAPIKey = ""

	runner, geocoder, cleanup, err := buildRunner(context.Background(), cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, runner)
	assert.NotNil(t, geocoder)
	cleanup()
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
