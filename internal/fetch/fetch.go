// Package fetch retrieves raw HTML for candidate event pages.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jonathan/event-scout/internal/types"
)

// DefaultTimeout is the per-request timeout.
const DefaultTimeout = 10 * time.Second

// MaxRedirects bounds redirect following.
const MaxRedirects = 5

// requestInterval spaces consecutive page fetches for politeness.
const requestInterval = time.Second

// userAgents are rotating client identities. Event sites tend to block
// obvious bot agents outright.
var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Error represents a failure fetching a single URL.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetcher.
type Options struct {
	Timeout    time.Duration
	UseBrowser bool // render JS-heavy pages in a headless browser when plain HTTP yields too little
}

// Fetcher retrieves HTML pages sequentially with pacing between
// requests.
type Fetcher struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// New creates a Fetcher.
func New(opts Options, log zerolog.Logger) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Fetcher{
		opts: opts,
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= MaxRedirects {
					return fmt.Errorf("stopped after %d redirects", MaxRedirects)
				}
				return nil
			},
		},
		limiter: rate.NewLimiter(rate.Every(requestInterval), 1),
		log:     log,
	}
}

// Fetch retrieves a single URL and returns its content, or an *Error on
// timeout, network failure, or non-2xx status.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*types.FetchedContent, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &Error{URL: rawURL, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "failed to create request", Cause: err}
	}

	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{URL: rawURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "failed to read response body", Cause: err}
	}

	html := string(body)
	if f.opts.UseBrowser && ShouldUseBrowser(html) {
		rendered, err := WithBrowser(ctx, rawURL, 30*time.Second)
		if err != nil {
			f.log.Warn().Err(err).Str("url", rawURL).Msg("browser rendering failed, keeping plain HTTP content")
		} else {
			html = rendered
		}
	}

	return &types.FetchedContent{
		URL:         rawURL,
		HTML:        html,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Checksum:    Checksum(html),
	}, nil
}

// FetchMultiple retrieves URLs sequentially, pacing between requests,
// and returns only the successes. A failing URL is logged and skipped.
func (f *Fetcher) FetchMultiple(ctx context.Context, urls []string) []types.FetchedContent {
	results := make([]types.FetchedContent, 0, len(urls))

	for _, u := range urls {
		if err := f.limiter.Wait(ctx); err != nil {
			f.log.Warn().Err(err).Msg("fetch batch aborted")
			return results
		}

		content, err := f.Fetch(ctx, u)
		if err != nil {
			f.log.Warn().Err(err).Str("url", u).Msg("skipping URL")
			continue
		}
		f.log.Debug().Str("url", u).Int("bytes", len(content.HTML)).Msg("fetched")
		results = append(results, *content)
	}

	return results
}

// Checksum computes a 32-bit rolling hash of the content, hex encoded.
// It is only a change-detection fingerprint; it is not cryptographic
// and must not be used for integrity checks.
func Checksum(content string) string {
	var h int32
	for _, c := range content {
		h = (h << 5) - h + int32(c)
	}
	return fmt.Sprintf("%x", uint32(h))
}
