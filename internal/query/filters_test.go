package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/event-scout/internal/db"
)

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

func eventAt(title string, hour int) db.PersistedEvent {
	return db.PersistedEvent{
		Title:    title,
		StartsAt: time.Date(2026, 9, 12, hour, 0, 0, 0, time.UTC),
	}
}

func TestParseBBox_Valid(t *testing.T) {
	bbox := ParseBBox("-122.55,37.7,-122.35,37.85")
	require.NotNil(t, bbox)
	assert.Equal(t, -122.55, bbox.MinLng)
	assert.Equal(t, 37.7, bbox.MinLat)
	assert.Equal(t, -122.35, bbox.MaxLng)
	assert.Equal(t, 37.85, bbox.MaxLat)
}

func TestParseBBox_Malformed(t *testing.T) {
	for _, s := range []string{"", "1,2,3", "1,2,3,4,5", "a,b,c,d", "1,,3,4"} {
		assert.Nil(t, ParseBBox(s), "expected nil for %q", s)
	}
}

func TestParseBBox_ToleratesSpaces(t *testing.T) {
	bbox := ParseBBox("-122.5, 37.7, -122.4, 37.8")
	require.NotNil(t, bbox)
	assert.Equal(t, 37.8, bbox.MaxLat)
}

func TestRangeFromPreset_Today(t *testing.T) {
	now := time.Date(2026, 9, 12, 14, 30, 0, 0, time.UTC)
	from, to := RangeFromPreset("today", now)
	assert.Equal(t, now, from)
	assert.Equal(t, time.Date(2026, 9, 12, 23, 59, 59, 0, time.UTC), to)
}

func TestRangeFromPreset_SevenDays(t *testing.T) {
	now := time.Date(2026, 9, 12, 14, 30, 0, 0, time.UTC)
	from, to := RangeFromPreset("7d", now)
	assert.Equal(t, now, from)
	assert.Equal(t, now.AddDate(0, 0, 7), to)
}

func TestRangeFromPreset_DefaultsToThreeDays(t *testing.T) {
	now := time.Date(2026, 9, 12, 14, 30, 0, 0, time.UTC)
	for _, preset := range []string{"3d", "", "bogus"} {
		from, to := RangeFromPreset(preset, now)
		assert.Equal(t, now, from)
		assert.Equal(t, now.AddDate(0, 0, 3), to, "preset %q", preset)
	}
}

func TestMatchesCategories_MatchAll(t *testing.T) {
	e := db.PersistedEvent{Categories: []string{"music", "food", "community"}}

	assert.True(t, MatchesCategories(&e, nil))
	assert.True(t, MatchesCategories(&e, []string{"music"}))
	assert.True(t, MatchesCategories(&e, []string{"music", "food"}))
	assert.False(t, MatchesCategories(&e, []string{"music", "sports"}))
	assert.False(t, MatchesCategories(&e, []string{"sports"}))
}

func TestMatchesPrice_Free(t *testing.T) {
	flagged := db.PersistedEvent{IsFree: true, PriceMin: floatPtr(10)}
	assert.True(t, MatchesPrice(&flagged, "free"))

	zeroed := db.PersistedEvent{PriceMin: floatPtr(0), PriceMax: floatPtr(0)}
	assert.True(t, MatchesPrice(&zeroed, "free"))

	unpriced := db.PersistedEvent{}
	assert.True(t, MatchesPrice(&unpriced, "free"))

	paid := db.PersistedEvent{PriceMin: floatPtr(15)}
	assert.False(t, MatchesPrice(&paid, "free"))
}

func TestMatchesPrice_Under20(t *testing.T) {
	cheap := db.PersistedEvent{PriceMin: floatPtr(10), PriceMax: floatPtr(25)}
	assert.True(t, MatchesPrice(&cheap, "lt20"))

	expensive := db.PersistedEvent{PriceMin: floatPtr(30), PriceMax: floatPtr(60)}
	assert.False(t, MatchesPrice(&expensive, "lt20"))
}

func TestMatchesPrice_MidBracketOverlaps(t *testing.T) {
	// 15-30 overlaps the 20-50 bracket.
	overlap := db.PersistedEvent{PriceMin: floatPtr(15), PriceMax: floatPtr(30)}
	assert.True(t, MatchesPrice(&overlap, "20to50"))

	below := db.PersistedEvent{PriceMin: floatPtr(5), PriceMax: floatPtr(10)}
	assert.False(t, MatchesPrice(&below, "20to50"))

	above := db.PersistedEvent{PriceMin: floatPtr(80), PriceMax: floatPtr(120)}
	assert.False(t, MatchesPrice(&above, "20to50"))
}

func TestMatchesPrice_Over50(t *testing.T) {
	pricey := db.PersistedEvent{PriceMin: floatPtr(40), PriceMax: floatPtr(75)}
	assert.True(t, MatchesPrice(&pricey, "gt50"))

	moderate := db.PersistedEvent{PriceMin: floatPtr(20), PriceMax: floatPtr(45)}
	assert.False(t, MatchesPrice(&moderate, "gt50"))
}

func TestMatchesPrice_AnyAndUnknown(t *testing.T) {
	e := db.PersistedEvent{PriceMin: floatPtr(999)}
	assert.True(t, MatchesPrice(&e, ""))
	assert.True(t, MatchesPrice(&e, "any"))
	assert.True(t, MatchesPrice(&e, "mystery"))
}

func TestMatchesTimeOfDay_Buckets(t *testing.T) {
	cases := []struct {
		hour    int
		tod     string
		matches bool
	}{
		{5, "morning", true},
		{11, "morning", true},
		{12, "morning", false},
		{12, "afternoon", true},
		{16, "afternoon", true},
		{17, "afternoon", false},
		{17, "evening", true},
		{20, "evening", true},
		{21, "evening", false},
		{21, "late", true},
		{2, "late", true},
		{4, "late", true},
		{5, "late", false},
	}

	for _, tc := range cases {
		e := eventAt("Jazz Night", tc.hour)
		assert.Equal(t, tc.matches, MatchesTimeOfDay(&e, tc.tod), "hour %d tod %s", tc.hour, tc.tod)
	}
}

func TestMatchesTimeOfDay_Any(t *testing.T) {
	e := eventAt("Jazz Night", 3)
	assert.True(t, MatchesTimeOfDay(&e, ""))
	assert.True(t, MatchesTimeOfDay(&e, "any"))
}

func TestMatchesText_SearchesAllFields(t *testing.T) {
	e := db.PersistedEvent{
		Title:       "Jazz Night",
		Description: strPtr("Live quartet on the main stage"),
		VenueName:   strPtr("The Chapel"),
		Address:     strPtr("777 Valencia St"),
		Categories:  []string{"music"},
	}

	assert.True(t, MatchesText(&e, "jazz"))
	assert.True(t, MatchesText(&e, "QUARTET"))
	assert.True(t, MatchesText(&e, "chapel"))
	assert.True(t, MatchesText(&e, "valencia"))
	assert.True(t, MatchesText(&e, "music"))
	assert.False(t, MatchesText(&e, "opera"))
	assert.True(t, MatchesText(&e, ""))
}

func TestApply_CombinesFiltersAndLimit(t *testing.T) {
	events := []db.PersistedEvent{
		{Title: "Morning Market", StartsAt: time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC), Categories: []string{"market"}, IsFree: true},
		{Title: "Jazz Night", StartsAt: time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC), Categories: []string{"music"}, PriceMin: floatPtr(25)},
		{Title: "Evening Market", StartsAt: time.Date(2026, 9, 12, 18, 0, 0, 0, time.UTC), Categories: []string{"market"}, IsFree: true},
	}

	got := Apply(events, Params{Categories: []string{"market"}})
	require.Len(t, got, 2)

	got = Apply(events, Params{Categories: []string{"market"}, TimeOfDay: "evening"})
	require.Len(t, got, 1)
	assert.Equal(t, "Evening Market", got[0].Title)

	got = Apply(events, Params{Limit: 1})
	assert.Len(t, got, 1)
}

func TestScanLimit(t *testing.T) {
	// Without in-memory predicates the store read matches the response
	// limit.
	assert.Equal(t, 50, ScanLimit(Params{Limit: 50}))
	assert.Equal(t, DefaultLimit, ScanLimit(Params{}))
	assert.Equal(t, 50, ScanLimit(Params{Limit: 50, Price: "any", TimeOfDay: "any"}))

	// Any active predicate widens the read so filtering cannot
	// under-fill the page.
	assert.Equal(t, MaxScanLimit, ScanLimit(Params{Limit: 50, Categories: []string{"music"}}))
	assert.Equal(t, MaxScanLimit, ScanLimit(Params{Limit: 50, Price: "free"}))
	assert.Equal(t, MaxScanLimit, ScanLimit(Params{Limit: 50, TimeOfDay: "evening"}))
	assert.Equal(t, MaxScanLimit, ScanLimit(Params{Limit: 50, Text: "jazz"}))

	// A caller limit above the headroom cap is honored as is.
	assert.Equal(t, 5000, ScanLimit(Params{Limit: 5000, Text: "jazz"}))
}

func TestApply_NoFiltersReturnsAll(t *testing.T) {
	events := []db.PersistedEvent{eventAt("A free show", 10), eventAt("Another show", 12)}
	got := Apply(events, Params{})
	assert.Len(t, got, 2)
}
