// Package segment splits fetched pages into candidate event posts.
//
// Segmentation is heuristic and lossy on purpose: a missed event is
// acceptable, and a non-event fragment is cheap for the extraction
// oracle to discard, so the filters favor precision over recall.
package segment

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/event-scout/internal/types"
)

// postSelector matches DOM nodes that commonly wrap a single event or
// blog-style post.
const postSelector = ".post, .entry, .event, .event-item, .event-card, [class*=post], [class*=event], [class*=entry]"

// headingSelector matches the elements tried for a post title after
// bookmark links.
const headingSelector = "h1, h2, h3, h4, .title, .event-title, .post-title"

// descriptionSelector matches the first plausible description node.
const descriptionSelector = ".description, .excerpt, .summary, .content, p"

// Title length bounds; anything outside indicates a failed extraction.
const (
	minTitleLen = 5
	maxTitleLen = 200
)

var whitespace = regexp.MustCompile(`\s+`)

// Posts parses raw HTML and returns candidate event posts, deduplicated
// by exact title with first occurrence winning.
func Posts(html string) ([]types.EventPost, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var posts []types.EventPost

	doc.Find(postSelector).Each(func(_ int, sel *goquery.Selection) {
		title := extractTitle(sel)
		if !validTitle(title) {
			return
		}
		if seen[title] {
			return
		}
		seen[title] = true

		description := strings.TrimSpace(sel.Find(descriptionSelector).First().Text())
		fullText := whitespace.ReplaceAllString(strings.TrimSpace(sel.Text()), " ")
		inner, _ := sel.Html()

		posts = append(posts, types.EventPost{
			Title:       title,
			Description: description,
			FullText:    fullText,
			HTML:        inner,
		})
	})

	return posts, nil
}

// extractTitle derives a post title by trying, in order: the text of a
// bookmark permalink, the first heading-like element, and the first
// anchor with text of plausible title length.
func extractTitle(sel *goquery.Selection) string {
	if title := strings.TrimSpace(sel.Find(`a[rel="bookmark"]`).First().Text()); title != "" {
		return title
	}

	if title := strings.TrimSpace(sel.Find(headingSelector).First().Text()); title != "" {
		return title
	}

	var title string
	sel.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.TrimSpace(a.Text())
		if len(text) >= 10 && len(text) < maxTitleLen {
			title = text
			return false
		}
		return true
	})
	return title
}

// validTitle rejects titles that are empty, out of length bounds, or
// contain residual markup fragments (a failed title extraction).
func validTitle(title string) bool {
	if title == "" {
		return false
	}
	if len(title) <= minTitleLen || len(title) >= maxTitleLen {
		return false
	}
	if strings.Contains(title, "<") || strings.Contains(title, ">") {
		return false
	}
	if strings.Contains(title, "img") || strings.Contains(title, "src=") {
		return false
	}
	return true
}

// PageText extracts cleaned body text from a whole page for the
// page-level extraction variant. Noise elements are removed and
// whitespace is collapsed.
func PageText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("nav, footer, header, script, style, noscript, .ad, .advertisement, .ads, .sidebar, .cookie-banner, .popup").Remove()

	text := doc.Find("body").Text()
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(whitespace.ReplaceAllString(line, " "))
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n"), nil
}
