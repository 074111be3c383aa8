package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, SupportedCity, cfg.City)
	assert.Equal(t, DefaultSearchQueries, cfg.SearchQueries)
	assert.Equal(t, 20, cfg.MaxResultsPerQuery)
	assert.Equal(t, 200, cfg.MaxTotalResults)
	assert.Equal(t, 30, cfg.MaxPostsPerPage)
	assert.Equal(t, 0.8, cfg.FuzzyThreshold)
	assert.Equal(t, 24, cfg.DateToleranceHours)
	assert.Equal(t, 3, cfg.DryRunSampleSize)
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeConfigFile(t, `{
		"city": "san-francisco",
		"fuzzy_threshold": 0.9,
		"max_total_results": 50,
		"use_browser": true
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "san-francisco", cfg.City)
	assert.Equal(t, 0.9, cfg.FuzzyThreshold)
	assert.Equal(t, 50, cfg.MaxTotalResults)
	assert.True(t, cfg.UseBrowser)
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := writeConfigFile(t, `{"city": `)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestFromEnv_FillsUnsetCredentials(t *testing.T) {
	t.Setenv("SERPAPI_KEY", "serp-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("GOOGLE_MAPS_API_KEY", "maps-key")
	t.Setenv("DATABASE_URL", "postgres://localhost/events")

	cfg := Config{}
	cfg.FromEnv()
	assert.Equal(t, "serp-key", cfg.SerpAPIKey)
	assert.Equal(t, "gemini-key", cfg.GeminiAPIKey)
	assert.Equal(t, "maps-key", cfg.GoogleMapsKey)
	assert.Equal(t, "postgres://localhost/events", cfg.DatabaseURL)
}

func TestFromEnv_FileValuesWin(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg := Config{GeminiAPIKey: "from-file"}
	cfg.FromEnv()
	assert.Equal(t, "from-file", cfg.GeminiAPIKey)
}

func TestValidate_GoodConfig(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_BadThreshold(t *testing.T) {
	cfg := Defaults()
	cfg.FuzzyThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg.FuzzyThreshold = -0.1
	assert.Error(t, cfg.Validate())
}

func TestValidate_NegativeCounts(t *testing.T) {
	cfg := Defaults()
	cfg.DateToleranceHours = -1
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.MaxTotalResults = -5
	assert.Error(t, cfg.Validate())
}

func TestValidate_MissingCredentialsAllowed(t *testing.T) {
	// Oracles degrade individually; validation does not require keys.
	cfg := Defaults()
	cfg.SerpAPIKey = ""
	cfg.GeminiAPIKey = ""
	cfg.GoogleMapsKey = ""
	assert.NoError(t, cfg.Validate())
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{FuzzyThreshold: 0.95, SerpAPIKey: "key"}
	merged := cfg.MergeWithDefaults(Defaults())

	// Explicit values survive.
	assert.Equal(t, 0.95, merged.FuzzyThreshold)
	assert.Equal(t, "key", merged.SerpAPIKey)

	// Unset values come from defaults.
	assert.Equal(t, SupportedCity, merged.City)
	assert.Equal(t, DefaultSearchQueries, merged.SearchQueries)
	assert.Equal(t, 200, merged.MaxTotalResults)
	assert.Equal(t, 24, merged.DateToleranceHours)
}
