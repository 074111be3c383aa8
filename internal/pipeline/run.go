// Package pipeline orchestrates one ingestion run: discovery, fetch,
// segmentation, extraction, geocoding, deduplication, and upsert.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/event-scout/internal/config"
	"github.com/jonathan/event-scout/internal/db"
	"github.com/jonathan/event-scout/internal/dedupe"
	"github.com/jonathan/event-scout/internal/fetch"
	"github.com/jonathan/event-scout/internal/geocode"
	"github.com/jonathan/event-scout/internal/llm"
	"github.com/jonathan/event-scout/internal/search"
	"github.com/jonathan/event-scout/internal/segment"
	"github.com/jonathan/event-scout/internal/types"
)

// UnsupportedCityError is returned when a run is requested for a city
// other than the one the pipeline supports. It aborts the whole run.
type UnsupportedCityError struct {
	City string
}

func (e *UnsupportedCityError) Error() string {
	return fmt.Sprintf("unsupported city %q (only %q is supported)", e.City, config.SupportedCity)
}

// ProgressEvent is a progress update during a run.
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// ProgressCallback is invoked as stages complete.
type ProgressCallback func(event ProgressEvent)

// Options holds per-run parameters.
type Options struct {
	City       string
	DryRun     bool
	OnProgress ProgressCallback
}

// Summary reports per-stage counts for one run.
type Summary struct {
	Discovered int `json:"discovered"`
	Fetched    int `json:"fetched"`
	Posts      int `json:"posts"`
	Extracted  int `json:"extracted"`
	Geocoded   int `json:"geocoded"`
	Duplicates int `json:"duplicates"`
	NewEvents  int `json:"newEvents"`
	Upserted   int `json:"upserted"`

	DryRun bool                   `json:"dryRun"`
	Sample []types.ExtractedEvent `json:"sample,omitempty"`
}

// String renders the human-readable run summary.
func (s *Summary) String() string {
	mode := ""
	if s.DryRun {
		mode = " (dry run)"
	}
	return fmt.Sprintf(
		"ingestion%s: %d URLs discovered, %d fetched, %d posts, %d extracted, %d geocoded, %d duplicates, %d new, %d upserted",
		mode, s.Discovered, s.Fetched, s.Posts, s.Extracted, s.Geocoded, s.Duplicates, s.NewEvents, s.Upserted)
}

// Runner wires the pipeline stages together. Construct one per process
// and share it across runs; every stage client carries its own pacing.
type Runner struct {
	cfg       config.Config
	search    *search.Client
	fetcher   *fetch.Fetcher
	extractor *llm.Extractor
	geocoder  *geocode.Client
	store     *db.DB
	log       zerolog.Logger
}

// NewRunner creates a pipeline runner. store may be nil only if every
// run is a dry run.
func NewRunner(cfg config.Config, searchClient *search.Client, fetcher *fetch.Fetcher,
	extractor *llm.Extractor, geocoder *geocode.Client, store *db.DB, log zerolog.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		search:    searchClient,
		fetcher:   fetcher,
		extractor: extractor,
		geocoder:  geocoder,
		store:     store,
		log:       log,
	}
}

// Run executes one full ingestion pass. Stage failures are isolated
// per item; only an unsupported city or a cancelled context aborts the
// run.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.City != config.SupportedCity {
		return nil, &UnsupportedCityError{City: opts.City}
	}

	summary := &Summary{DryRun: opts.DryRun}

	// Discovery.
	urls, err := r.search.DiscoverEventURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery aborted: %w", err)
	}
	summary.Discovered = len(urls)
	r.emit(opts, "discovery", "candidate URLs collected", len(urls))

	if opts.DryRun && len(urls) > r.cfg.DryRunSampleSize {
		urls = urls[:r.cfg.DryRunSampleSize]
	}

	// Fetch.
	contents := r.fetcher.FetchMultiple(ctx, urls)
	summary.Fetched = len(contents)
	r.emit(opts, "fetch", "pages fetched", len(contents))

	// Segment + extract.
	extracted := r.extractAll(ctx, contents, summary)
	summary.Extracted = len(extracted)
	r.emit(opts, "extract", "events extracted", len(extracted))

	if opts.DryRun {
		summary.Sample = extracted
		r.log.Info().Msg(summary.String())
		return summary, nil
	}

	// Geocode.
	r.geocodeAll(ctx, extracted, summary)
	r.emit(opts, "geocode", "venues resolved", summary.Geocoded)

	// Dedup + upsert.
	if err := r.persistAll(ctx, extracted, summary); err != nil {
		return nil, err
	}
	r.emit(opts, "upsert", "events upserted", summary.Upserted)

	r.log.Info().Msg(summary.String())
	return summary, nil
}

// extractAll segments each fetched page into posts and runs the
// extraction oracle over each post. Per-post failures are logged and
// dropped.
func (r *Runner) extractAll(ctx context.Context, contents []types.FetchedContent, summary *Summary) []types.ExtractedEvent {
	var extracted []types.ExtractedEvent

	for _, content := range contents {
		posts, err := segment.Posts(content.HTML)
		if err != nil {
			r.log.Warn().Err(err).Str("url", content.URL).Msg("segmentation failed, skipping page")
			continue
		}
		if len(posts) == 0 {
			extracted = append(extracted, r.extractWholePage(ctx, content)...)
			continue
		}
		if r.cfg.MaxPostsPerPage > 0 && len(posts) > r.cfg.MaxPostsPerPage {
			posts = posts[:r.cfg.MaxPostsPerPage]
		}
		summary.Posts += len(posts)

		for _, post := range posts {
			event, err := r.extractor.ExtractFromPost(ctx, post, content.URL)
			if err != nil {
				if parseErr, ok := err.(*llm.ParseError); ok {
					r.log.Warn().Str("url", content.URL).Str("raw", parseErr.Raw).Msg("dropping non-conforming oracle response")
				} else {
					r.log.Warn().Err(err).Str("title", post.Title).Msg("extraction failed, skipping post")
				}
				continue
			}
			if event != nil {
				extracted = append(extracted, *event)
			}
		}
	}

	return extracted
}

// extractWholePage is the fallback for pages that segment into zero
// posts: one oracle call over the cleaned page text, returning zero or
// more events.
func (r *Runner) extractWholePage(ctx context.Context, content types.FetchedContent) []types.ExtractedEvent {
	pageText, err := segment.PageText(content.HTML)
	if err != nil {
		r.log.Warn().Err(err).Str("url", content.URL).Msg("page text extraction failed, skipping page")
		return nil
	}
	if pageText == "" {
		return nil
	}

	r.log.Debug().Str("url", content.URL).Msg("no posts segmented, extracting from whole page")
	events, err := r.extractor.ExtractFromPage(ctx, pageText, content.URL)
	if err != nil {
		if parseErr, ok := err.(*llm.ParseError); ok {
			r.log.Warn().Str("url", content.URL).Str("raw", parseErr.Raw).Msg("dropping non-conforming oracle response")
		} else {
			r.log.Warn().Err(err).Str("url", content.URL).Msg("page extraction failed, skipping page")
		}
		return nil
	}
	return events
}

// geocodeAll resolves venue coordinates in place. Out-of-bounds
// resolutions are discarded rather than stored.
func (r *Runner) geocodeAll(ctx context.Context, events []types.ExtractedEvent, summary *Summary) {
	for i := range events {
		event := &events[i]
		if event.VenueName == nil || *event.VenueName == "" || event.Lat != nil {
			continue
		}

		req := geocode.Request{VenueName: *event.VenueName}
		if event.Address != nil {
			req.Address = *event.Address
		}

		result, err := r.geocoder.Venue(ctx, req)
		if err != nil {
			r.log.Warn().Err(err).Str("venue", *event.VenueName).Msg("geocoding aborted")
			return
		}
		if result == nil {
			continue
		}
		if !geocode.InBounds(result.Lat, result.Lng) {
			r.log.Warn().Str("venue", *event.VenueName).
				Float64("lat", result.Lat).Float64("lng", result.Lng).
				Msg("geocoding result outside city bounds, discarding")
			continue
		}

		event.Lat = &result.Lat
		event.Lng = &result.Lng
		summary.Geocoded++
	}
}

// persistAll runs the duplicate check and upserts survivors. It also
// compares each candidate against events accepted earlier in the same
// batch, so two sources listing the same event in one run produce one
// row.
func (r *Runner) persistAll(ctx context.Context, events []types.ExtractedEvent, summary *Summary) error {
	checker := dedupe.NewChecker(r.store, dedupe.Options{
		FuzzyThreshold: r.cfg.FuzzyThreshold,
		DateTolerance:  time.Duration(r.cfg.DateToleranceHours) * time.Hour,
	})
	tolerance := time.Duration(r.cfg.DateToleranceHours) * time.Hour

	var accepted []dedupe.StoredEvent

	for i := range events {
		event := &events[i]

		result, err := checker.Check(ctx, event)
		if err != nil {
			r.log.Warn().Err(err).Str("title", event.Title).Msg("duplicate check failed, skipping event")
			continue
		}
		if !result.IsDuplicate {
			batch := batchWindow(accepted, event.StartsAt, tolerance)
			result = checker.BestMatch(event.Title, batch)
		}
		if result.IsDuplicate {
			summary.Duplicates++
			r.log.Debug().Str("title", event.Title).Float64("confidence", result.Confidence).Msg("duplicate, skipping")
			continue
		}

		summary.NewEvents++

		source, err := r.store.UpsertSource(ctx, event.SourceURL)
		if err != nil {
			r.log.Warn().Err(err).Str("url", event.SourceURL).Msg("source upsert failed, skipping event")
			continue
		}

		persisted, err := r.store.UpsertEvent(ctx, event, source.ID)
		if err != nil {
			r.log.Warn().Err(err).Str("title", event.Title).Msg("event upsert failed")
			continue
		}

		summary.Upserted++
		accepted = append(accepted, dedupe.StoredEvent{
			ID:       persisted.ID,
			Title:    persisted.Title,
			StartsAt: persisted.StartsAt,
		})
	}

	return nil
}

// batchWindow filters same-run accepted events to the candidate's date
// tolerance window.
func batchWindow(accepted []dedupe.StoredEvent, startsAt time.Time, tolerance time.Duration) []dedupe.StoredEvent {
	var window []dedupe.StoredEvent
	for _, a := range accepted {
		diff := a.StartsAt.Sub(startsAt)
		if diff < 0 {
			diff = -diff
		}
		if diff <= tolerance {
			window = append(window, a)
		}
	}
	return window
}

func (r *Runner) emit(opts Options, stage, message string, count int) {
	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{Stage: stage, Message: message, Count: count})
	}
}
