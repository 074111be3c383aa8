package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/event-scout/internal/server"
)

var (
	servePort       int
	serveConfigPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the event query interface and ingestion trigger endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	log := newLogger()

	cfg, err := loadConfig(serveConfigPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := connectStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runner, geocoder, cleanup, err := buildRunner(ctx, cfg, store, log)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.New(server.Config{Port: servePort}, store, runner, geocoder, log)

	fmt.Printf("event-scout API listening on :%d\n", servePort)
	return srv.Start()
}
