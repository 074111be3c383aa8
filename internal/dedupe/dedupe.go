// Package dedupe flags candidate events that duplicate already-stored
// active events, using fuzzy title matching within a date window.
package dedupe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/event-scout/internal/types"
)

// DefaultFuzzyThreshold is the minimum title similarity for two events
// to be considered the same real-world event.
const DefaultFuzzyThreshold = 0.8

// DefaultDateTolerance is the window around a candidate's start time
// within which stored events are compared.
const DefaultDateTolerance = 24 * time.Hour

// StoredEvent is the slice of a persisted event the checker needs.
type StoredEvent struct {
	ID       uuid.UUID
	Title    string
	StartsAt time.Time
}

// Store provides stored active events within a time window, in stable
// order (starts_at, id).
type Store interface {
	ActiveEventsBetween(ctx context.Context, from, to time.Time) ([]StoredEvent, error)
}

// Result describes the outcome of a duplicate check.
type Result struct {
	IsDuplicate     bool
	Confidence      float64
	ExistingEventID uuid.UUID
	Reason          string
}

// Checker compares candidates against the store.
type Checker struct {
	store     Store
	threshold float64
	tolerance time.Duration
}

// Options configures a Checker. Zero values fall back to defaults.
type Options struct {
	FuzzyThreshold float64
	DateTolerance  time.Duration
}

// NewChecker creates a duplicate checker backed by the given store.
func NewChecker(store Store, opts Options) *Checker {
	if opts.FuzzyThreshold == 0 {
		opts.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if opts.DateTolerance == 0 {
		opts.DateTolerance = DefaultDateTolerance
	}
	return &Checker{store: store, threshold: opts.FuzzyThreshold, tolerance: opts.DateTolerance}
}

// Check determines whether the candidate duplicates a stored active
// event. Candidates missing a title or start time are never duplicates.
func (c *Checker) Check(ctx context.Context, event *types.ExtractedEvent) (Result, error) {
	if event.Title == "" || event.StartsAt.IsZero() {
		return Result{Reason: "missing title or start date"}, nil
	}

	from := event.StartsAt.Add(-c.tolerance)
	to := event.StartsAt.Add(c.tolerance)

	stored, err := c.store.ActiveEventsBetween(ctx, from, to)
	if err != nil {
		return Result{}, fmt.Errorf("failed to query events in window: %w", err)
	}
	if len(stored) == 0 {
		return Result{Reason: "no events found in date range"}, nil
	}

	best := c.BestMatch(event.Title, stored)
	return best, nil
}

// BestMatch scans stored events for the highest-similarity title match.
// Strictly greater similarity replaces the best match; ties keep the
// first found in input order.
func (c *Checker) BestMatch(title string, stored []StoredEvent) Result {
	best := Result{}
	for _, s := range stored {
		similarity := Similarity(title, s.Title)
		if similarity >= c.threshold && similarity > best.Confidence {
			best = Result{
				IsDuplicate:     true,
				Confidence:      similarity,
				ExistingEventID: s.ID,
				Reason:          fmt.Sprintf("fuzzy title match (%.0f%% similar)", similarity*100),
			}
		}
	}
	return best
}

// Similarity computes a case-insensitive normalized edit-distance
// similarity: 1 - lev(a,b)/max(len(a),len(b)). Two empty strings score
// 1.0. The function is symmetric and scores 1.0 for identical inputs.
func Similarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1.0
	}

	return 1.0 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// levenshtein computes edit distance over runes with a two-row matrix.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(b); j++ {
		curr[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[i] = min3(curr[i-1]+1, prev[i]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(a)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
