package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/event-scout/internal/db"
	"github.com/jonathan/event-scout/internal/geocode"
	"github.com/jonathan/event-scout/internal/pipeline"
)

// Config holds server configuration.
type Config struct {
	Port int
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	store      *db.DB
	runner     *pipeline.Runner
	geocoder   *geocode.Client
	log        zerolog.Logger
}

// New creates a server wired to an already-constructed store, pipeline
// runner, and geocoding client.
func New(cfg Config, store *db.DB, runner *pipeline.Runner, geocoder *geocode.Client, log zerolog.Logger) *Server {
	s := &Server{
		store:    store,
		runner:   runner,
		geocoder: geocoder,
		log:      log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /ingest/run", s.handleIngestRun)
	mux.HandleFunc("GET /events", s.handleListEvents)
	mux.HandleFunc("GET /events/{id}", s.handleGetEvent)
	mux.HandleFunc("GET /categories", s.handleCategories)
	mux.HandleFunc("POST /admin/geocode-events", s.handleGeocodeBackfill)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 600 * time.Second, // an ingestion run can take several minutes
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening and blocks until SIGINT/SIGTERM, then shuts
// down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	s.log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// withLogging logs each request with its duration.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// decodeJSON parses a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeJSON serializes a success response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn().Err(err).Msg("failed to encode response")
	}
}

// writeError serializes a structured error payload with the status
// derived from the error type.
func (s *Server) writeError(w http.ResponseWriter, err error, detail string) {
	s.writeJSON(w, HTTPStatus(err), errorPayload{Error: err.Error(), Detail: detail})
}
