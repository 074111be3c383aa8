// Package main provides the entry point for the event-scout ingestion
// service and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "eventscout",
	Short: "San Francisco public-event ingestion service",
	Long:  "event-scout discovers event listing pages, extracts structured events with an LLM, geocodes venues, dedupes, and serves the results over a REST API.",
}

var rootVerbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Print detailed debug information")
}

// newLogger builds the process logger. Verbose mode switches to debug
// level with console formatting.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if rootVerbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
