package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/event-scout/internal/config"
	"github.com/jonathan/event-scout/internal/db"
	"github.com/jonathan/event-scout/internal/pipeline"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one full ingestion pass",
	Long: `Orchestrates the entire ingestion process: discovery -> fetching -> segmentation -> extraction -> geocoding -> deduplication -> persistence.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runIngest,
}

var (
	ingestConfigPath string
	ingestCity       string
	ingestDryRun     bool
	ingestUseBrowser bool
)

func init() {
	ingestCmd.Flags().StringVar(&ingestConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	ingestCmd.Flags().StringVar(&ingestCity, "city", config.SupportedCity, "Target city slug")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "Fetch and extract a small sample without writing to the database")
	ingestCmd.Flags().BoolVar(&ingestUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	log := newLogger()
	ctx := context.Background()

	cfg, err := loadConfig(ingestConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = ingestUseBrowser
	}

	// Dry runs never touch the database.
	var store *db.DB
	if !ingestDryRun {
		store, err = connectStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	runner, _, cleanup, err := buildRunner(ctx, cfg, store, log)
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := runner.Run(ctx, pipeline.Options{
		City:   ingestCity,
		DryRun: ingestDryRun,
		OnProgress: func(e pipeline.ProgressEvent) {
			fmt.Fprintf(os.Stderr, "[%s] %s (%d)\n", e.Stage, e.Message, e.Count)
		},
	})
	if err != nil {
		return err
	}

	fmt.Println(summary.String())
	if ingestDryRun && len(summary.Sample) > 0 {
		out, err := json.MarshalIndent(summary.Sample, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render sample: %w", err)
		}
		fmt.Println(string(out))
	}
	return nil
}
