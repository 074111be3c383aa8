// Package config provides configuration loading and validation for the
// ingestion service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SupportedCity is the only city the pipeline currently handles.
// Multi-city support is deliberately out of scope.
const SupportedCity = "san-francisco"

// DefaultSearchQueries is the fixed discovery query set for the
// supported city.
var DefaultSearchQueries = []string{
	"events san francisco this month",
	"sf concerts this month",
	"free events sf weekend",
	"san francisco festivals 2025",
	"sf tech meetups this month",
	"san francisco farmers markets",
	"sf art galleries events this month",
	"san francisco sports events this month",
	"sf community events calendar",
	"san francisco food festivals this month",
}

// Config represents the service configuration that can be loaded from a
// JSON file. Missing values use defaults or come from the environment.
type Config struct {
	// Credentials
	SerpAPIKey    string `json:"serpapi_key,omitempty"`     // Search oracle API key
	GeminiAPIKey  string `json:"gemini_api_key,omitempty"`  // Extraction oracle API key
	GoogleMapsKey string `json:"google_maps_key,omitempty"` // Geocoding oracle API key
	DatabaseURL   string `json:"database_url,omitempty"`    // PostgreSQL connection URL

	// Scope
	City string `json:"city,omitempty"` // Target city slug; must equal SupportedCity

	// Discovery
	SearchQueries      []string `json:"search_queries,omitempty"`
	MaxResultsPerQuery int      `json:"max_results_per_query,omitempty"`
	MaxTotalResults    int      `json:"max_total_results,omitempty"`

	// Extraction
	MaxPostsPerPage int `json:"max_posts_per_page,omitempty"` // Cap on posts sent to the oracle per page

	// Deduplication
	FuzzyThreshold     float64 `json:"fuzzy_threshold,omitempty"`      // Minimum title similarity (0.0-1.0)
	DateToleranceHours int     `json:"date_tolerance_hours,omitempty"` // Dedup comparison window

	// Behavior
	DryRunSampleSize int  `json:"dry_run_sample_size,omitempty"` // Fetch batch size in dry-run mode
	UseBrowser       bool `json:"use_browser,omitempty"`         // Headless browser fallback for SPA pages
	Verbose          bool `json:"verbose,omitempty"`
}

// Defaults returns the baseline configuration (credentials unset).
func Defaults() Config {
	return Config{
		City:               SupportedCity,
		SearchQueries:      DefaultSearchQueries,
		MaxResultsPerQuery: 20,
		MaxTotalResults:    200,
		MaxPostsPerPage:    30,
		FuzzyThreshold:     0.8,
		DateToleranceHours: 24,
		DryRunSampleSize:   3,
	}
}

// Load loads configuration from a JSON file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv fills unset credentials from the environment.
func (c *Config) FromEnv() {
	if c.SerpAPIKey == "" {
		c.SerpAPIKey = os.Getenv("SERPAPI_KEY")
	}
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.GoogleMapsKey == "" {
		c.GoogleMapsKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
}

// Validate checks that the configuration has valid values. Missing
// credentials are not an error here; each oracle client degrades on its
// own when its key is absent.
func (c *Config) Validate() error {
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("config error: 'fuzzy_threshold' must be in [0,1]")
	}
	if c.DateToleranceHours < 0 {
		return fmt.Errorf("config error: 'date_tolerance_hours' must be non-negative")
	}
	if c.MaxResultsPerQuery < 0 {
		return fmt.Errorf("config error: 'max_results_per_query' must be non-negative")
	}
	if c.MaxTotalResults < 0 {
		return fmt.Errorf("config error: 'max_total_results' must be non-negative")
	}
	if c.MaxPostsPerPage < 0 {
		return fmt.Errorf("config error: 'max_posts_per_page' must be non-negative")
	}
	if c.DryRunSampleSize < 0 {
		return fmt.Errorf("config error: 'dry_run_sample_size' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with unset fields filled from
// defaults. CLI flags and environment values should already be applied
// to the receiver before merging.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.City == "" {
		result.City = defaults.City
	}
	if len(result.SearchQueries) == 0 {
		result.SearchQueries = defaults.SearchQueries
	}
	if result.MaxResultsPerQuery == 0 {
		result.MaxResultsPerQuery = defaults.MaxResultsPerQuery
	}
	if result.MaxTotalResults == 0 {
		result.MaxTotalResults = defaults.MaxTotalResults
	}
	if result.MaxPostsPerPage == 0 {
		result.MaxPostsPerPage = defaults.MaxPostsPerPage
	}
	if result.FuzzyThreshold == 0 {
		result.FuzzyThreshold = defaults.FuzzyThreshold
	}
	if result.DateToleranceHours == 0 {
		result.DateToleranceHours = defaults.DateToleranceHours
	}
	if result.DryRunSampleSize == 0 {
		result.DryRunSampleSize = defaults.DryRunSampleSize
	}
	if result.SerpAPIKey == "" {
		result.SerpAPIKey = defaults.SerpAPIKey
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.GoogleMapsKey == "" {
		result.GoogleMapsKey = defaults.GoogleMapsKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	// Bool fields: cannot distinguish unset from false, so we don't merge.

	return result
}
