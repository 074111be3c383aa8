package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jonathan/event-scout/internal/config"
	"github.com/jonathan/event-scout/internal/db"
	"github.com/jonathan/event-scout/internal/fetch"
	"github.com/jonathan/event-scout/internal/geocode"
	"github.com/jonathan/event-scout/internal/llm"
	"github.com/jonathan/event-scout/internal/pipeline"
	"github.com/jonathan/event-scout/internal/search"
)

// loadConfig resolves the effective configuration: file values if a
// path was given, then environment credentials, then defaults, then
// validation.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Config{}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	cfg.FromEnv()
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if rootVerbose {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// buildRunner wires the pipeline from config. The geocoder is returned
// separately so the server can reuse it for the backfill endpoint. The
// returned cleanup closes the extraction client; the caller owns the
// store.
func buildRunner(ctx context.Context, cfg config.Config, store *db.DB, log zerolog.Logger) (*pipeline.Runner, *geocode.Client, func(), error) {
	searchClient := search.NewClient(search.Options{
		APIKey:             cfg.SerpAPIKey,
		Location:           "San Francisco, CA",
		Queries:            cfg.SearchQueries,
		MaxResultsPerQuery: cfg.MaxResultsPerQuery,
		MaxTotalResults:    cfg.MaxTotalResults,
	}, log)

	fetcher := fetch.New(fetch.Options{UseBrowser: cfg.UseBrowser}, log)

	// A missing extraction key degrades rather than failing the command,
	// like the search and geocoding oracles.
	var extractionClient llm.Client
	cleanup := func() {}
	if cfg.GeminiAPIKey != "" {
		geminiClient, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, llm.DefaultModel)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create extraction client: %w", err)
		}
		extractionClient = geminiClient
		cleanup = func() { _ = geminiClient.Close() }
	}
	extractor := llm.NewExtractor(extractionClient, log)

	geocoder := geocode.NewClient(geocode.Options{APIKey: cfg.GoogleMapsKey}, log)

	runner := pipeline.NewRunner(cfg, searchClient, fetcher, extractor, geocoder, store, log)
	return runner, geocoder, cleanup, nil
}

// connectStore opens the database and applies the schema.
func connectStore(ctx context.Context, cfg config.Config) (*db.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return store, nil
}
