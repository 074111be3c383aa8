package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/event-scout/internal/types"
)

// fakeClient returns a canned response and records the prompt.
type fakeClient struct {
	response string
	err      error
	prompt   string
}

func (f *fakeClient) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func (f *fakeClient) Close() error { return nil }

func testExtractor(client Client) *Extractor {
	x := NewExtractor(client, zerolog.Nop())
	// Pin the clock so future-only filtering is deterministic.
	x.now = func() time.Time { return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) }
	return x
}

func samplePost() types.EventPost {
	return types.EventPost{
		Title:    "Jazz Night at the Chapel",
		FullText: "Jazz Night at the Chapel, Friday September 12 at 7pm, $25",
	}
}

func TestExtractFromPost_ValidEvent(t *testing.T) {
	client := &fakeClient{response: `{"event": {
		"title": "Jazz Night at the Chapel",
		"startsAt": "2026-09-12T19:00:00-07:00",
		"venueName": "The Chapel",
		"priceMin": 25,
		"priceMax": 25,
		"isFree": false,
		"categories": ["music"]
	}}`}

	event, err := testExtractor(client).ExtractFromPost(context.Background(), samplePost(), "https://sfevents.example.com/jazz")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "Jazz Night at the Chapel", event.Title)
	assert.Equal(t, "https://sfevents.example.com/jazz", event.SourceURL)
	assert.Equal(t, "USD", event.Currency)
	assert.Equal(t, []string{"music"}, event.Categories)
}

func TestExtractFromPost_NullEvent(t *testing.T) {
	client := &fakeClient{response: `{"event": null}`}

	event, err := testExtractor(client).ExtractFromPost(context.Background(), samplePost(), "https://example.com")
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestExtractFromPost_MalformedJSON(t *testing.T) {
	client := &fakeClient{response: `not json at all`}

	_, err := testExtractor(client).ExtractFromPost(context.Background(), samplePost(), "https://example.com")
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "not json at all", parseErr.Raw)
}

func TestExtractFromPost_SchemaViolation(t *testing.T) {
	// startsAt missing.
	client := &fakeClient{response: `{"event": {"title": "Jazz Night"}}`}

	_, err := testExtractor(client).ExtractFromPost(context.Background(), samplePost(), "https://example.com")
	require.Error(t, err)

	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestExtractFromPost_DropsPastEvent(t *testing.T) {
	client := &fakeClient{response: `{"event": {
		"title": "Last Year's Festival",
		"startsAt": "2025-06-01T12:00:00Z"
	}}`}

	event, err := testExtractor(client).ExtractFromPost(context.Background(), samplePost(), "https://example.com")
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestExtractFromPost_DropsUnknownCategories(t *testing.T) {
	client := &fakeClient{response: `{"event": {
		"title": "Jazz Night at the Chapel",
		"startsAt": "2026-09-12T19:00:00Z",
		"categories": ["music", "live-jazz"]
	}}`}

	event, err := testExtractor(client).ExtractFromPost(context.Background(), samplePost(), "https://example.com")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, []string{"music"}, event.Categories)
}

func TestExtractFromPost_OracleError(t *testing.T) {
	client := &fakeClient{err: errors.New("quota exceeded")}

	_, err := testExtractor(client).ExtractFromPost(context.Background(), samplePost(), "https://example.com")
	assert.Error(t, err)
}

func TestExtractFromPost_PromptContent(t *testing.T) {
	client := &fakeClient{response: `{"event": null}`}

	_, err := testExtractor(client).ExtractFromPost(context.Background(), samplePost(), "https://sfevents.example.com/jazz")
	require.NoError(t, err)
	assert.Contains(t, client.prompt, "Jazz Night at the Chapel")
	assert.Contains(t, client.prompt, "SOURCE_URL: https://sfevents.example.com/jazz")
	assert.Contains(t, client.prompt, "San Francisco")
	assert.Contains(t, client.prompt, "music, festival, parade")
	// The pinned clock appears in the date context line.
	assert.Contains(t, client.prompt, "September 1, 2026")
}

func TestExtractFromPage_MultipleEvents(t *testing.T) {
	client := &fakeClient{response: `{"events": [
		{"title": "Jazz Night at the Chapel", "startsAt": "2026-09-12T19:00:00Z"},
		{"title": "Mission Street Food Festival", "startsAt": "2026-09-13T11:00:00Z"}
	]}`}

	events, err := testExtractor(client).ExtractFromPage(context.Background(), "page text", "https://example.com")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Jazz Night at the Chapel", events[0].Title)
	assert.Equal(t, "Mission Street Food Festival", events[1].Title)
}

func TestExtractFromPage_DropsNonConformingItems(t *testing.T) {
	client := &fakeClient{response: `{"events": [
		{"title": "Jazz Night at the Chapel", "startsAt": "2026-09-12T19:00:00Z"},
		{"title": "Missing Start Date"},
		{"title": "Past Event", "startsAt": "2020-01-01T00:00:00Z"}
	]}`}

	events, err := testExtractor(client).ExtractFromPage(context.Background(), "page text", "https://example.com")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Jazz Night at the Chapel", events[0].Title)
}

func TestExtractFromPage_EmptyList(t *testing.T) {
	client := &fakeClient{response: `{"events": []}`}

	events, err := testExtractor(client).ExtractFromPage(context.Background(), "page text", "https://example.com")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestExtractor_NilClient(t *testing.T) {
	x := testExtractor(nil)

	event, err := x.ExtractFromPost(context.Background(), samplePost(), "https://example.com")
	require.NoError(t, err)
	assert.Nil(t, event)

	events, err := x.ExtractFromPage(context.Background(), "page text", "https://example.com")
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestCleanJSONBlock(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, CleanJSONBlock(`{"a": 1}`))
	assert.Equal(t, `{"a": 1}`, CleanJSONBlock("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, CleanJSONBlock("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, CleanJSONBlock("  {\"a\": 1}  "))
}
