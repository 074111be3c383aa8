// Package types defines the data model shared across the ingestion pipeline.
package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultCurrency is assumed when the source does not state one.
const DefaultCurrency = "USD"

// FetchedContent is the raw result of fetching a candidate URL.
// The checksum is a cheap change-detection fingerprint, not an
// integrity hash.
type FetchedContent struct {
	URL         string
	HTML        string
	StatusCode  int
	ContentType string
	Checksum    string
}

// EventPost is a fragment of a fetched page believed to describe a
// single event. Posts are transient; they only exist between
// segmentation and extraction.
type EventPost struct {
	Title       string
	Description string
	FullText    string
	HTML        string
}

// ExtractedEvent is the canonical pipeline output unit. Lat/Lng are
// absent until the geocoding stage fills them in.
type ExtractedEvent struct {
	Title       string     `json:"title" validate:"required"`
	Description *string    `json:"description"`
	StartsAt    time.Time  `json:"startsAt" validate:"required"`
	EndsAt      *time.Time `json:"endsAt"`
	VenueName   *string    `json:"venueName"`
	Address     *string    `json:"address"`
	Lat         *float64   `json:"lat,omitempty"`
	Lng         *float64   `json:"lng,omitempty"`
	PriceMin    *float64   `json:"priceMin"`
	PriceMax    *float64   `json:"priceMax"`
	Currency    string     `json:"currency"`
	IsFree      bool       `json:"isFree"`
	TicketURL   *string    `json:"ticketUrl" validate:"omitempty,url"`
	ImageURL    *string    `json:"imageUrl" validate:"omitempty,url"`
	Categories  []string   `json:"categories"`
	SourceURL   string     `json:"sourceUrl" validate:"required,url"`
}

var validate = validator.New()

// Validate checks required fields and cross-field constraints.
func (e *ExtractedEvent) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("invalid extracted event: %w", err)
	}
	if e.PriceMin != nil && e.PriceMax != nil && *e.PriceMin > *e.PriceMax {
		return fmt.Errorf("invalid extracted event: priceMin %.2f exceeds priceMax %.2f", *e.PriceMin, *e.PriceMax)
	}
	return nil
}

// Normalize applies defaults and drops category slugs outside the
// taxonomy. The oracle is instructed to use taxonomy slugs, but its
// output is not trusted without this pass.
func (e *ExtractedEvent) Normalize() {
	if e.Currency == "" {
		e.Currency = DefaultCurrency
	}
	if len(e.Categories) > 0 {
		kept := e.Categories[:0]
		for _, slug := range e.Categories {
			if ValidCategory(slug) {
				kept = append(kept, slug)
			}
		}
		e.Categories = kept
	}
}

// BoundingBox is a rectangular lat/lng region, used for map viewport
// queries and geocoding sanity checks.
type BoundingBox struct {
	MinLng float64
	MinLat float64
	MaxLng float64
	MaxLat float64
}

// Contains reports whether the coordinate falls inside the box.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}
