package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/event-scout/internal/config"
	"github.com/jonathan/event-scout/internal/db"
	"github.com/jonathan/event-scout/internal/geocode"
	"github.com/jonathan/event-scout/internal/pipeline"
	"github.com/jonathan/event-scout/internal/query"
	"github.com/jonathan/event-scout/internal/types"
)

type ingestRequest struct {
	City   string `json:"city"`
	DryRun bool   `json:"dryRun"`
}

type eventsResponse struct {
	Events []db.PersistedEvent `json:"events"`
	Count  int                 `json:"count"`
}

type geocodeBackfillResponse struct {
	Candidates int `json:"candidates"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
}

// handleIngestRun triggers a full ingestion run. The request body is
// optional; an empty body runs the configured city.
func (s *Server) handleIngestRun(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, &ErrValidation{Field: "body", Message: "invalid JSON"}, err.Error())
			return
		}
	}

	if req.City == "" {
		req.City = config.SupportedCity
	}

	summary, err := s.runner.Run(r.Context(), pipeline.Options{
		City:   req.City,
		DryRun: req.DryRun,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("ingestion run failed")
		s.writeError(w, err, "ingestion run failed")
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

// handleListEvents answers the map/list query. Date range, bounding
// box, and confidence are pushed down to SQL; category, price, time of
// day, and text match run over the returned rows.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, to := query.RangeFromPreset(q.Get("range"), time.Now())
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeError(w, &ErrValidation{Field: "from", Message: "must be RFC3339"}, v)
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeError(w, &ErrValidation{Field: "to", Message: "must be RFC3339"}, v)
			return
		}
		to = t
	}

	minConfidence := query.DefaultMinConfidence
	if v := q.Get("minConfidence"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			s.writeError(w, &ErrValidation{Field: "minConfidence", Message: "must be a number in [0,1]"}, v)
			return
		}
		minConfidence = f
	}

	limit := query.DefaultLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, &ErrValidation{Field: "limit", Message: "must be a positive integer"}, v)
			return
		}
		limit = n
	}

	var bbox *types.BoundingBox
	if v := q.Get("bbox"); v != "" {
		bbox = query.ParseBBox(v)
		if bbox == nil {
			s.writeError(w, &ErrValidation{Field: "bbox", Message: "must be minLng,minLat,maxLng,maxLat"}, v)
			return
		}
	}

	var categories []string
	if v := q.Get("categories"); v != "" {
		for _, slug := range strings.Split(v, ",") {
			slug = strings.TrimSpace(slug)
			if slug == "" {
				continue
			}
			if !types.ValidCategory(slug) {
				s.writeError(w, &ErrValidation{Field: "categories", Message: "unknown category"}, slug)
				return
			}
			categories = append(categories, slug)
		}
	}

	params := query.Params{
		Categories:    categories,
		Price:         q.Get("price"),
		TimeOfDay:     q.Get("timeOfDay"),
		Text:          q.Get("text"),
		MinConfidence: minConfidence,
		Limit:         limit,
	}

	// The store read uses headroom over the response limit so that
	// in-memory predicates do not under-fill the page.
	events, err := s.store.ListEvents(r.Context(), db.EventFilters{
		From:          from,
		To:            to,
		BBox:          bbox,
		MinConfidence: minConfidence,
		Limit:         query.ScanLimit(params),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list events")
		s.writeError(w, err, "failed to list events")
		return
	}

	filtered := query.Apply(events, params)

	if filtered == nil {
		filtered = []db.PersistedEvent{}
	}
	s.writeJSON(w, http.StatusOK, eventsResponse{Events: filtered, Count: len(filtered)})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, &ErrValidation{Field: "id", Message: "must be a UUID"}, r.PathValue("id"))
		return
	}

	event, err := s.store.GetEvent(r.Context(), id)
	if err != nil {
		s.log.Error().Err(err).Str("id", id.String()).Msg("failed to get event")
		s.writeError(w, err, "failed to get event")
		return
	}
	if event == nil {
		s.writeError(w, &ErrNotFound{Resource: "event"}, id.String())
		return
	}

	s.writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"categories": types.Categories})
}

// handleGeocodeBackfill resolves coordinates for stored events that
// have a venue but no lat/lng. Out-of-bounds results are skipped, not
// stored.
func (s *Server) handleGeocodeBackfill(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.store.EventsMissingCoordinates(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load geocode candidates")
		s.writeError(w, err, "failed to load geocode candidates")
		return
	}

	resp := geocodeBackfillResponse{Candidates: len(candidates)}
	for _, c := range candidates {
		req := geocode.Request{VenueName: c.VenueName}
		if c.Address != nil {
			req.Address = *c.Address
		}

		result, err := s.geocoder.Venue(r.Context(), req)
		if err != nil {
			s.log.Warn().Err(err).Str("venue", c.VenueName).Msg("geocoding failed")
			resp.Skipped++
			continue
		}
		if result == nil || !geocode.InBounds(result.Lat, result.Lng) {
			resp.Skipped++
			continue
		}

		if err := s.store.SetCoordinates(r.Context(), c.ID, result.Lat, result.Lng); err != nil {
			s.log.Warn().Err(err).Str("id", c.ID.String()).Msg("failed to store coordinates")
			resp.Skipped++
			continue
		}
		resp.Updated++
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
