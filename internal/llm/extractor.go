package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jonathan/event-scout/internal/schemas"
	"github.com/jonathan/event-scout/internal/types"
)

// callInterval spaces consecutive oracle calls.
const callInterval = 500 * time.Millisecond

// maxPostTextLen truncates a post's full text before prompting.
const maxPostTextLen = 2000

// maxPageTextLen truncates whole-page text before prompting.
const maxPageTextLen = 8000

// ParseError indicates the oracle returned non-conforming JSON. Raw
// carries the payload for diagnosis.
type ParseError struct {
	SourceURL string
	Raw       string
	Cause     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("oracle parse error for %s: %v", e.SourceURL, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Extractor turns event posts into structured events via the oracle.
type Extractor struct {
	client  Client
	limiter *rate.Limiter
	log     zerolog.Logger
	now     func() time.Time
}

// NewExtractor creates an Extractor backed by the given oracle client.
// A nil client is tolerated; every extraction then yields nothing after
// a one-time configuration warning.
func NewExtractor(client Client, log zerolog.Logger) *Extractor {
	if client == nil {
		log.Warn().Msg("GEMINI_API_KEY not configured, extraction disabled")
	}
	return &Extractor{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(callInterval), 1),
		log:     log,
		now:     time.Now,
	}
}

// postEnvelope is the oracle response for the post-level variant.
type postEnvelope struct {
	Event json.RawMessage `json:"event"`
}

// pageEnvelope is the oracle response for the page-level variant.
type pageEnvelope struct {
	Events []json.RawMessage `json:"events"`
}

// ExtractFromPost sends one event post to the oracle and returns the
// extracted event, or (nil, nil) when the post does not describe a
// usable event. Parse and validation failures are returned as errors so
// the caller can log and drop the item.
func (x *Extractor) ExtractFromPost(ctx context.Context, post types.EventPost, sourceURL string) (*types.ExtractedEvent, error) {
	if x.client == nil {
		return nil, nil
	}

	if err := x.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	prompt := x.buildPostPrompt(post, sourceURL)
	raw, err := x.client.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("extraction call failed for %s: %w", sourceURL, err)
	}

	var envelope postEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, &ParseError{SourceURL: sourceURL, Raw: raw, Cause: err}
	}
	if len(envelope.Event) == 0 || string(envelope.Event) == "null" {
		return nil, nil
	}

	return x.parseEvent(envelope.Event, sourceURL)
}

// ExtractFromPage is the whole-page variant: one oracle call over the
// cleaned page text, returning zero or more events.
func (x *Extractor) ExtractFromPage(ctx context.Context, pageText, sourceURL string) ([]types.ExtractedEvent, error) {
	if x.client == nil {
		return nil, nil
	}

	if err := x.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	prompt := x.buildPagePrompt(pageText, sourceURL)
	raw, err := x.client.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("extraction call failed for %s: %w", sourceURL, err)
	}

	var envelope pageEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, &ParseError{SourceURL: sourceURL, Raw: raw, Cause: err}
	}

	events := make([]types.ExtractedEvent, 0, len(envelope.Events))
	for _, rawEvent := range envelope.Events {
		event, err := x.parseEvent(rawEvent, sourceURL)
		if err != nil {
			x.log.Warn().Err(err).Str("url", sourceURL).Msg("dropping non-conforming event")
			continue
		}
		if event != nil {
			events = append(events, *event)
		}
	}
	return events, nil
}

// parseEvent is the parse-and-validate boundary: schema check, decode,
// normalization, struct validation, then the defensive post-filter. The
// oracle is instructed to return only future city events, but that
// instruction is not trusted on its own.
func (x *Extractor) parseEvent(raw json.RawMessage, sourceURL string) (*types.ExtractedEvent, error) {
	if err := schemas.ValidateExtractedEvent(raw); err != nil {
		return nil, &ParseError{SourceURL: sourceURL, Raw: string(raw), Cause: err}
	}

	var event types.ExtractedEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, &ParseError{SourceURL: sourceURL, Raw: string(raw), Cause: err}
	}

	event.SourceURL = sourceURL
	event.Normalize()

	if err := event.Validate(); err != nil {
		return nil, &ParseError{SourceURL: sourceURL, Raw: string(raw), Cause: err}
	}

	if !event.StartsAt.After(x.now()) {
		x.log.Debug().Str("title", event.Title).Time("starts_at", event.StartsAt).Msg("dropping past event")
		return nil, nil
	}

	return &event, nil
}

// systemPrompt encodes the extraction contract: schema, taxonomy, city
// scope, future-only, and timezone normalization.
func (x *Extractor) systemPrompt(envelope string) string {
	var sb strings.Builder

	sb.WriteString("You are an expert at extracting public event information from web pages.\n\n")
	sb.WriteString("Extract event data and output it as valid JSON following this exact schema:\n\n")
	sb.WriteString(envelope)
	sb.WriteString("\n\nEvent object schema:\n")
	sb.WriteString(`{
  "title": "string (required)",
  "description": "string or null",
  "startsAt": "ISO 8601 date-time string (required)",
  "endsAt": "ISO 8601 date-time string or null",
  "venueName": "string or null",
  "address": "string or null",
  "priceMin": "number or null",
  "priceMax": "number or null",
  "currency": "string or null (default: USD)",
  "isFree": "boolean",
  "ticketUrl": "string or null",
  "imageUrl": "string or null",
  "categories": ["array of strings"]
}`)
	sb.WriteString("\n\nIMPORTANT RULES:\n")
	sb.WriteString("1. Only extract events that are happening in San Francisco or the Bay Area\n")
	sb.WriteString("2. Only extract future events (not past events)\n")
	sb.WriteString("3. Convert all times to America/Los_Angeles timezone\n")
	sb.WriteString("4. If you can't determine a field, use null\n")
	sb.WriteString("5. Don't hallucinate - only extract what's clearly stated\n")
	sb.WriteString("6. Return valid JSON only - no other text\n")
	sb.WriteString(fmt.Sprintf("7. Map categories to these slugs: %s\n", strings.Join(types.CategorySlugs(), ", ")))
	sb.WriteString(fmt.Sprintf("8. Today is %s. Dates without a year refer to the nearest future occurrence.\n",
		x.now().Format("Monday, January 2, 2006")))

	return sb.String()
}

func (x *Extractor) buildPostPrompt(post types.EventPost, sourceURL string) string {
	fullText := post.FullText
	if len(fullText) > maxPostTextLen {
		fullText = fullText[:maxPostTextLen]
	}
	description := post.Description
	if description == "" {
		description = "N/A"
	}

	var sb strings.Builder
	sb.WriteString(x.systemPrompt(`{"event": { ... } }` + "\nIf no valid event is found, return {\"event\": null}."))
	sb.WriteString("\n\nSOURCE_URL: ")
	sb.WriteString(sourceURL)
	sb.WriteString("\n\nEVENT POST CONTENT:\n")
	sb.WriteString("Title: " + post.Title + "\n")
	sb.WriteString("Description: " + description + "\n")
	sb.WriteString("Full Text: " + fullText + "\n")
	return sb.String()
}

func (x *Extractor) buildPagePrompt(pageText, sourceURL string) string {
	if len(pageText) > maxPageTextLen {
		pageText = pageText[:maxPageTextLen]
	}

	var sb strings.Builder
	sb.WriteString(x.systemPrompt(`{"events": [ ... ] }` + "\nIf no events are found, return {\"events\": []}."))
	sb.WriteString("\n\nSOURCE_URL: ")
	sb.WriteString(sourceURL)
	sb.WriteString("\n\nCONTENT (truncated):\n")
	sb.WriteString(pageText)
	sb.WriteString("\n")
	return sb.String()
}
