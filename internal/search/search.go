// Package search discovers candidate event-listing URLs through an
// external web search oracle.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the search oracle endpoint.
const DefaultBaseURL = "https://serpapi.com/search"

// DefaultTimeout bounds a single search request.
const DefaultTimeout = 10 * time.Second

// queryInterval spaces consecutive search queries to respect the
// oracle's rate limits.
const queryInterval = time.Second

// Error represents a failure of a single search query.
type Error struct {
	Query   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("search error for %q: %s: %v", e.Query, e.Message, e.Cause)
	}
	return fmt.Sprintf("search error for %q: %s", e.Query, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Result is a single organic search hit.
type Result struct {
	URL     string
	Title   string
	Snippet string
}

// Options configures the discovery client.
type Options struct {
	APIKey             string
	BaseURL            string
	Location           string // e.g. "San Francisco, CA"
	Queries            []string
	MaxResultsPerQuery int
	MaxTotalResults    int
}

// Client issues event discovery queries against the search oracle.
type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a discovery client. A missing API key is tolerated;
// discovery then yields no URLs and the pipeline proceeds degraded.
func NewClient(opts Options, log zerolog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Location == "" {
		opts.Location = "San Francisco, CA"
	}
	if opts.MaxResultsPerQuery <= 0 {
		opts.MaxResultsPerQuery = 20
	}
	return &Client{
		opts:    opts,
		http:    &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Every(queryInterval), 1),
		log:     log,
	}
}

// serpResponse is the subset of the oracle response we consume.
type serpResponse struct {
	OrganicResults []struct {
		Link    string `json:"link"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// Search runs one query and returns its organic results.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if c.opts.APIKey == "" {
		return nil, &Error{Query: query, Message: "API key not configured"}
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", c.opts.APIKey)
	params.Set("engine", "google")
	params.Set("location", c.opts.Location)
	params.Set("num", strconv.Itoa(c.opts.MaxResultsPerQuery))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &Error{Query: query, Message: "failed to create request", Cause: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Query: query, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Query: query, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	var parsed serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &Error{Query: query, Message: "failed to decode response", Cause: err}
	}

	results := make([]Result, 0, len(parsed.OrganicResults))
	for _, r := range parsed.OrganicResults {
		if r.Link == "" {
			continue
		}
		results = append(results, Result{URL: r.Link, Title: r.Title, Snippet: r.Snippet})
	}
	return results, nil
}

// DiscoverEventURLs issues all configured queries and returns the
// deduplicated candidate URL set in first-seen order, truncated to the
// global cap. A failing query contributes zero URLs; it never stops the
// remaining queries.
func (c *Client) DiscoverEventURLs(ctx context.Context) ([]string, error) {
	if c.opts.APIKey == "" {
		c.log.Warn().Msg("SERPAPI_KEY not configured, discovery disabled")
		return nil, nil
	}

	seen := make(map[string]bool)
	var urls []string

	for _, query := range c.opts.Queries {
		if err := c.limiter.Wait(ctx); err != nil {
			return urls, err
		}

		c.log.Debug().Str("query", query).Msg("searching")
		results, err := c.Search(ctx, query)
		if err != nil {
			c.log.Warn().Err(err).Str("query", query).Msg("search query failed, skipping")
			continue
		}

		for _, r := range results {
			if !seen[r.URL] {
				seen[r.URL] = true
				urls = append(urls, r.URL)
			}
		}
	}

	if c.opts.MaxTotalResults > 0 && len(urls) > c.opts.MaxTotalResults {
		urls = urls[:c.opts.MaxTotalResults]
	}

	c.log.Info().Int("urls", len(urls)).Msg("discovery complete")
	return urls, nil
}
