// Package query implements the UI-facing event filters that are
// applied in memory on top of the store's date/bbox/confidence cut.
package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/event-scout/internal/db"
	"github.com/jonathan/event-scout/internal/types"
)

// DefaultMinConfidence hides low-trust events from the UI by default.
const DefaultMinConfidence = 0.4

// DefaultLimit caps result sets when the caller does not.
const DefaultLimit = 200

// MaxScanLimit bounds how many rows a filtered query reads from the
// store before the in-memory predicates run.
const MaxScanLimit = 1000

// Params holds the parsed query-interface filters.
type Params struct {
	BBox          *types.BoundingBox
	Start         time.Time
	End           time.Time
	Categories    []string // match-all semantics
	Price         string   // any|free|lt20|20to50|gt50
	TimeOfDay     string   // any|morning|afternoon|evening|late
	Text          string
	MinConfidence float64
	Limit         int
}

// ParseBBox parses "minLng,minLat,maxLng,maxLat", returning nil on any
// malformed input.
func ParseBBox(s string) *types.BoundingBox {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil
	}
	nums := make([]float64, 4)
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil
		}
		nums[i] = n
	}
	return &types.BoundingBox{MinLng: nums[0], MinLat: nums[1], MaxLng: nums[2], MaxLat: nums[3]}
}

// RangeFromPreset resolves a date preset (today, 3d, 7d) to a concrete
// range starting now. Unknown presets fall back to 3d.
func RangeFromPreset(preset string, now time.Time) (time.Time, time.Time) {
	switch preset {
	case "today":
		end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
		return now, end
	case "7d":
		return now, now.AddDate(0, 0, 7)
	default: // "3d" and anything unrecognized
		return now, now.AddDate(0, 0, 3)
	}
}

// ScanLimit returns how many rows to request from the store for the
// given params. When an in-memory predicate is active, capping the
// store read at the response limit would drop matching rows that sit
// past it, so the scan reads with headroom instead.
func ScanLimit(p Params) int {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(p.Categories) == 0 && inactiveFilter(p.Price) && inactiveFilter(p.TimeOfDay) && p.Text == "" {
		return limit
	}
	if limit > MaxScanLimit {
		return limit
	}
	return MaxScanLimit
}

func inactiveFilter(v string) bool { return v == "" || v == "any" }

// Apply filters events by categories, price bracket, time of day, and
// free text, then truncates to the limit.
func Apply(events []db.PersistedEvent, p Params) []db.PersistedEvent {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	filtered := make([]db.PersistedEvent, 0, len(events))
	for _, e := range events {
		if !MatchesCategories(&e, p.Categories) {
			continue
		}
		if !MatchesPrice(&e, p.Price) {
			continue
		}
		if !MatchesTimeOfDay(&e, p.TimeOfDay) {
			continue
		}
		if !MatchesText(&e, p.Text) {
			continue
		}
		filtered = append(filtered, e)
		if len(filtered) >= limit {
			break
		}
	}
	return filtered
}

// MatchesCategories requires every requested slug to be present
// (match-all semantics).
func MatchesCategories(e *db.PersistedEvent, slugs []string) bool {
	if len(slugs) == 0 {
		return true
	}
	have := make(map[string]bool, len(e.Categories))
	for _, c := range e.Categories {
		have[c] = true
	}
	for _, slug := range slugs {
		if !have[slug] {
			return false
		}
	}
	return true
}

// MatchesPrice applies the price bracket filter.
func MatchesPrice(e *db.PersistedEvent, price string) bool {
	if price == "" || price == "any" {
		return true
	}

	min, max := e.PriceMin, e.PriceMax
	switch price {
	case "free":
		if e.IsFree {
			return true
		}
		low, high := 0.0, 0.0
		if min != nil {
			low = *min
		}
		if max != nil {
			high = *max
		}
		return low == 0 && high == 0
	case "lt20":
		return (min != nil && *min < 20) || (max != nil && *max < 20)
	case "20to50":
		low := 0.0
		if min != nil {
			low = *min
		}
		high := low
		if max != nil {
			high = *max
		}
		return high >= 20 && low <= 50
	case "gt50":
		return (min != nil && *min > 50) || (max != nil && *max > 50)
	default:
		return true
	}
}

// MatchesTimeOfDay buckets the start hour: morning 5-12, afternoon
// 12-17, evening 17-21, late 21-5.
func MatchesTimeOfDay(e *db.PersistedEvent, tod string) bool {
	if tod == "" || tod == "any" {
		return true
	}

	hour := e.StartsAt.Hour()
	switch tod {
	case "morning":
		return hour >= 5 && hour < 12
	case "afternoon":
		return hour >= 12 && hour < 17
	case "evening":
		return hour >= 17 && hour < 21
	case "late":
		return hour >= 21 || hour < 5
	default:
		return true
	}
}

// MatchesText does a case-insensitive substring match over title,
// description, venue, address, and categories.
func MatchesText(e *db.PersistedEvent, text string) bool {
	if text == "" {
		return true
	}

	needle := strings.ToLower(text)
	parts := []string{e.Title}
	if e.Description != nil {
		parts = append(parts, *e.Description)
	}
	if e.VenueName != nil {
		parts = append(parts, *e.VenueName)
	}
	if e.Address != nil {
		parts = append(parts, *e.Address)
	}
	parts = append(parts, strings.Join(e.Categories, " "))

	return strings.Contains(strings.ToLower(strings.Join(parts, " ")), needle)
}
