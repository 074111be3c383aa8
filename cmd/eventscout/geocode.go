package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/event-scout/internal/geocode"
)

var geocodeConfigPath string

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Backfill coordinates for stored events missing them",
	RunE:  runGeocode,
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeConfigPath, "config", "", "Path to config.json file")
	rootCmd.AddCommand(geocodeCmd)
}

func runGeocode(_ *cobra.Command, _ []string) error {
	log := newLogger()
	ctx := context.Background()

	cfg, err := loadConfig(geocodeConfigPath)
	if err != nil {
		return err
	}

	store, err := connectStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	geocoder := geocode.NewClient(geocode.Options{APIKey: cfg.GoogleMapsKey}, log)

	candidates, err := store.EventsMissingCoordinates(ctx)
	if err != nil {
		return fmt.Errorf("failed to load geocode candidates: %w", err)
	}

	updated, skipped := 0, 0
	for _, c := range candidates {
		req := geocode.Request{VenueName: c.VenueName}
		if c.Address != nil {
			req.Address = *c.Address
		}

		result, err := geocoder.Venue(ctx, req)
		if err != nil || result == nil || !geocode.InBounds(result.Lat, result.Lng) {
			if err != nil {
				log.Warn().Err(err).Str("venue", c.VenueName).Msg("geocoding failed")
			}
			skipped++
			continue
		}

		if err := store.SetCoordinates(ctx, c.ID, result.Lat, result.Lng); err != nil {
			log.Warn().Err(err).Str("id", c.ID.String()).Msg("failed to store coordinates")
			skipped++
			continue
		}
		updated++
	}

	fmt.Printf("geocode backfill: %d candidates, %d updated, %d skipped\n", len(candidates), updated, skipped)
	return nil
}
