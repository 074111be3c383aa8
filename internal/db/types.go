package db

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event status values.
const (
	StatusActive   = "ACTIVE"
	StatusArchived = "ARCHIVED"
	StatusRejected = "REJECTED"
)

// Source kind values.
const (
	KindOfficialCal = "OFFICIAL_CAL"
	KindTicketSite  = "TICKET_SITE"
	KindMedia       = "MEDIA"
	KindBlog        = "BLOG"
)

// DefaultSourceConfidence is assigned to newly ingested events. The
// pipeline has no per-source trust model yet; everything starts at the
// same display threshold-passing value.
const DefaultSourceConfidence = 0.6

// Source is a website events were ingested from, keyed by registrable
// host.
type Source struct {
	ID       uuid.UUID `json:"id"`
	URL      string    `json:"url"`
	Label    string    `json:"label"`
	Kind     string    `json:"kind"`
	LastSeen time.Time `json:"last_seen"`
}

// PersistedEvent is a stored event row.
type PersistedEvent struct {
	ID               uuid.UUID  `json:"id"`
	SourceID         uuid.UUID  `json:"sourceId"`
	SourceHash       string     `json:"-"`
	Title            string     `json:"title"`
	Description      *string    `json:"description"`
	StartsAt         time.Time  `json:"startsAt"`
	EndsAt           *time.Time `json:"endsAt"`
	VenueName        *string    `json:"venueName"`
	Address          *string    `json:"address"`
	Lat              *float64   `json:"lat"`
	Lng              *float64   `json:"lng"`
	PriceMin         *float64   `json:"priceMin"`
	PriceMax         *float64   `json:"priceMax"`
	Currency         string     `json:"currency"`
	IsFree           bool       `json:"isFree"`
	TicketURL        *string    `json:"ticketUrl"`
	ImageURL         *string    `json:"imageUrl"`
	Categories       []string   `json:"categories"`
	SourceURL        string     `json:"sourceUrl"`
	Status           string     `json:"status"`
	SourceConfidence float64    `json:"sourceConfidence"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// SourceHash is the idempotency key for upsert: title|startsAt|venue.
// It conflates "same real-world event" with byte-identical fields, so a
// title or venue correction at the source creates a new row instead of
// updating the old one. Known limitation; the sources expose no stable
// external identifier to key on instead.
func SourceHash(title string, startsAt time.Time, venueName string) string {
	return fmt.Sprintf("%s|%s|%s", title, startsAt.UTC().Format(time.RFC3339), venueName)
}

// RegistrableHost extracts the host a source URL belongs to, with the
// leading www stripped.
func RegistrableHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid source URL %q", rawURL)
	}
	return strings.TrimPrefix(parsed.Hostname(), "www."), nil
}

// officialHosts, ticketHosts, mediaHosts classify the well-known SF
// event sources; anything else is treated as a blog.
var (
	officialHosts = map[string]bool{
		"sfrecpark.org": true,
		"sf.gov":        true,
		"sfarts.org":    true,
	}
	ticketHosts = map[string]bool{
		"eventbrite.com":   true,
		"ticketmaster.com": true,
		"goldstar.com":     true,
		"meetup.com":       true,
	}
	mediaHosts = map[string]bool{
		"sfchronicle.com":   true,
		"timeout.com":       true,
		"sfbayguardian.com": true,
	}
)

// KindForHost classifies a host into a source kind.
func KindForHost(host string) string {
	switch {
	case officialHosts[host]:
		return KindOfficialCal
	case ticketHosts[host]:
		return KindTicketSite
	case mediaHosts[host]:
		return KindMedia
	default:
		return KindBlog
	}
}
