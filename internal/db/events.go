package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/event-scout/internal/dedupe"
	"github.com/jonathan/event-scout/internal/types"
)

// eventColumns is the scan list shared by event queries.
const eventColumns = `id, source_id, source_hash, title, description, starts_at, ends_at,
	venue_name, address, lat, lng, price_min, price_max, currency, is_free,
	ticket_url, image_url, categories, source_url, status, source_confidence,
	created_at, updated_at`

// UpsertEvent persists an extracted event keyed by its source hash.
// The create path sets status ACTIVE and the source linkage; the update
// path refreshes mutable fields and updated_at but never touches
// source_hash, source_id, or status. Safe to call repeatedly with
// identical input.
func (db *DB) UpsertEvent(ctx context.Context, event *types.ExtractedEvent, sourceID uuid.UUID) (*PersistedEvent, error) {
	venue := ""
	if event.VenueName != nil {
		venue = *event.VenueName
	}
	hash := SourceHash(event.Title, event.StartsAt, venue)

	var p PersistedEvent
	err := db.pool.QueryRow(ctx,
		`INSERT INTO events (source_id, source_hash, title, description, starts_at, ends_at,
		                     venue_name, address, lat, lng, price_min, price_max, currency,
		                     is_free, ticket_url, image_url, categories, source_url,
		                     status, source_confidence)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		 ON CONFLICT (source_hash) DO UPDATE SET
		     description = EXCLUDED.description,
		     starts_at   = EXCLUDED.starts_at,
		     ends_at     = EXCLUDED.ends_at,
		     venue_name  = EXCLUDED.venue_name,
		     address     = EXCLUDED.address,
		     lat         = EXCLUDED.lat,
		     lng         = EXCLUDED.lng,
		     price_min   = EXCLUDED.price_min,
		     price_max   = EXCLUDED.price_max,
		     currency    = EXCLUDED.currency,
		     is_free     = EXCLUDED.is_free,
		     ticket_url  = EXCLUDED.ticket_url,
		     image_url   = EXCLUDED.image_url,
		     categories  = EXCLUDED.categories,
		     updated_at  = NOW()
		 RETURNING `+eventColumns,
		sourceID, hash, event.Title, event.Description, event.StartsAt, event.EndsAt,
		event.VenueName, event.Address, event.Lat, event.Lng, event.PriceMin, event.PriceMax,
		event.Currency, event.IsFree, event.TicketURL, event.ImageURL, event.Categories,
		event.SourceURL, StatusActive, DefaultSourceConfidence,
	).Scan(scanTargets(&p)...)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert event %q: %w", event.Title, err)
	}

	return &p, nil
}

// ActiveEventsBetween returns stored ACTIVE events whose start time
// falls within [from, to], in stable (starts_at, id) order. Implements
// the dedupe.Store interface.
func (db *DB) ActiveEventsBetween(ctx context.Context, from, to time.Time) ([]dedupe.StoredEvent, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, title, starts_at FROM events
		 WHERE status = $1 AND starts_at >= $2 AND starts_at <= $3
		 ORDER BY starts_at, id`,
		StatusActive, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events in window: %w", err)
	}
	defer rows.Close()

	var events []dedupe.StoredEvent
	for rows.Next() {
		var e dedupe.StoredEvent
		if err := rows.Scan(&e.ID, &e.Title, &e.StartsAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GeocodeCandidate is an event lacking coordinates but carrying a venue
// name to resolve.
type GeocodeCandidate struct {
	ID        uuid.UUID
	Title     string
	VenueName string
	Address   *string
}

// EventsMissingCoordinates returns events with a venue name but no
// resolved coordinates, for the geocoding backfill.
func (db *DB) EventsMissingCoordinates(ctx context.Context) ([]GeocodeCandidate, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, title, venue_name, address FROM events
		 WHERE lat IS NULL AND venue_name IS NOT NULL AND status = $1
		 ORDER BY starts_at`,
		StatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events missing coordinates: %w", err)
	}
	defer rows.Close()

	var candidates []GeocodeCandidate
	for rows.Next() {
		var c GeocodeCandidate
		if err := rows.Scan(&c.ID, &c.Title, &c.VenueName, &c.Address); err != nil {
			return nil, fmt.Errorf("failed to scan geocode candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// SetCoordinates stores resolved coordinates for an event.
func (db *DB) SetCoordinates(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE events SET lat = $1, lng = $2, updated_at = NOW() WHERE id = $3`,
		lat, lng, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set coordinates for %s: %w", id, err)
	}
	return nil
}

// EventFilters narrows the stored-event listing at the SQL level.
// Format-level filters (price bracket, time of day, categories, text)
// are applied by the query package on the returned rows.
type EventFilters struct {
	From          time.Time
	To            time.Time
	BBox          *types.BoundingBox
	MinConfidence float64
	Limit         int
}

// ListEvents returns ACTIVE events within the date range, optionally
// clipped to a bounding box, above the confidence threshold.
func (db *DB) ListEvents(ctx context.Context, filters EventFilters) ([]PersistedEvent, error) {
	if filters.Limit <= 0 {
		filters.Limit = 200
	}

	query := `SELECT ` + eventColumns + ` FROM events
		 WHERE status = $1 AND starts_at >= $2 AND starts_at <= $3 AND source_confidence >= $4`
	args := []any{StatusActive, filters.From, filters.To, filters.MinConfidence}

	if filters.BBox != nil {
		query += fmt.Sprintf(" AND lat >= $%d AND lat <= $%d AND lng >= $%d AND lng <= $%d",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4)
		args = append(args, filters.BBox.MinLat, filters.BBox.MaxLat, filters.BBox.MinLng, filters.BBox.MaxLng)
	}

	query += fmt.Sprintf(" ORDER BY starts_at, id LIMIT $%d", len(args)+1)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []PersistedEvent
	for rows.Next() {
		var p PersistedEvent
		if err := rows.Scan(scanTargets(&p)...); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, p)
	}
	return events, rows.Err()
}

// GetEvent retrieves one event by ID, or nil when absent.
func (db *DB) GetEvent(ctx context.Context, id uuid.UUID) (*PersistedEvent, error) {
	var p PersistedEvent
	err := db.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	).Scan(scanTargets(&p)...)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &p, nil
}

// scanTargets returns the scan destinations matching eventColumns.
func scanTargets(p *PersistedEvent) []any {
	return []any{
		&p.ID, &p.SourceID, &p.SourceHash, &p.Title, &p.Description, &p.StartsAt, &p.EndsAt,
		&p.VenueName, &p.Address, &p.Lat, &p.Lng, &p.PriceMin, &p.PriceMax, &p.Currency,
		&p.IsFree, &p.TicketURL, &p.ImageURL, &p.Categories, &p.SourceURL, &p.Status,
		&p.SourceConfidence, &p.CreatedAt, &p.UpdatedAt,
	}
}
