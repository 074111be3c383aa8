package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosts_ExtractsEventCards(t *testing.T) {
	html := `
		<html>
			<body>
				<div class="event-card">
					<h2>Jazz Night at the Chapel</h2>
					<p class="description">Live jazz every Friday evening.</p>
				</div>
				<div class="event-card">
					<h2>Mission Street Food Festival</h2>
					<p class="description">Two blocks of food stalls.</p>
				</div>
			</body>
		</html>
	`

	posts, err := Posts(html)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "Jazz Night at the Chapel", posts[0].Title)
	assert.Equal(t, "Live jazz every Friday evening.", posts[0].Description)
	assert.Equal(t, "Mission Street Food Festival", posts[1].Title)
}

func TestPosts_PrefersBookmarkAnchor(t *testing.T) {
	html := `
		<div class="post">
			<a rel="bookmark" href="/events/jazz-night">Jazz Night at the Chapel</a>
			<h2>Upcoming Events</h2>
		</div>
	`

	posts, err := Posts(html)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Jazz Night at the Chapel", posts[0].Title)
}

func TestPosts_FallsBackToAnchorText(t *testing.T) {
	html := `
		<div class="post">
			<a href="/events/1">Mission Street Food Festival</a>
		</div>
	`

	posts, err := Posts(html)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Mission Street Food Festival", posts[0].Title)
}

func TestPosts_RejectsShortTitles(t *testing.T) {
	html := `
		<div class="event">
			<h2>Expo</h2>
			<p>A four-character title is below the minimum.</p>
		</div>
	`

	posts, err := Posts(html)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPosts_AcceptsFiftyCharTitle(t *testing.T) {
	title := "Golden Gate Park Summer Concert Series Opening Day"
	require.Len(t, title, 50)

	html := `<div class="event"><h2>` + title + `</h2></div>`
	posts, err := Posts(html)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, title, posts[0].Title)
}

func TestPosts_RejectsMarkupInTitle(t *testing.T) {
	for _, title := range []string{
		"Concert <b>tonight</b> downtown",
		"Event with img tag inside it",
		`Poster src="banner.png" event`,
	} {
		assert.False(t, validTitle(title), "title should be rejected: %s", title)
	}
}

func TestPosts_DeduplicatesByTitle(t *testing.T) {
	html := `
		<div class="post"><h2>Jazz Night at the Chapel</h2><p>First listing.</p></div>
		<div class="post"><h2>Jazz Night at the Chapel</h2><p>Second listing.</p></div>
	`

	posts, err := Posts(html)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0].FullText, "First listing.")
}

func TestPosts_EmptyPage(t *testing.T) {
	posts, err := Posts("<html><body><p>Nothing here.</p></body></html>")
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPosts_CollapsesWhitespaceInFullText(t *testing.T) {
	html := `
		<div class="event">
			<h2>Jazz Night at the Chapel</h2>
			<p>Friday
				evening

				doors at 7</p>
		</div>
	`

	posts, err := Posts(html)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0].FullText, "Friday evening doors at 7")
}

func TestPageText_RemovesNoiseElements(t *testing.T) {
	html := `
		<html>
			<body>
				<nav>Home About Contact</nav>
				<script>var x = 1;</script>
				<div class="sidebar">Ads here</div>
				<main>Jazz Night at the Chapel, Friday 7pm</main>
				<footer>Copyright</footer>
			</body>
		</html>
	`

	text, err := PageText(html)
	require.NoError(t, err)
	assert.Contains(t, text, "Jazz Night at the Chapel")
	assert.NotContains(t, text, "Home About Contact")
	assert.NotContains(t, text, "var x = 1")
	assert.NotContains(t, text, "Ads here")
	assert.NotContains(t, text, "Copyright")
}

func TestPageText_CollapsesBlankLines(t *testing.T) {
	html := `<body><p>First</p>


		<p>Second</p></body>`

	text, err := PageText(html)
	require.NoError(t, err)
	assert.Equal(t, "First\nSecond", text)
}

func TestValidTitle_Bounds(t *testing.T) {
	assert.False(t, validTitle(""))
	assert.False(t, validTitle("Expo"))
	assert.False(t, validTitle("12345"))
	assert.True(t, validTitle("123456"))

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, validTitle(string(long)))
	assert.True(t, validTitle(string(long[:199])))
}
