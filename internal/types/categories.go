package types

// Category is one entry of the fixed event taxonomy.
type Category struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Categories is the fixed taxonomy the extraction oracle maps events
// onto. The order is the display order.
var Categories = []Category{
	{Slug: "music", Name: "Music"},
	{Slug: "festival", Name: "Festival"},
	{Slug: "parade", Name: "Parade"},
	{Slug: "food", Name: "Food & Drink"},
	{Slug: "arts", Name: "Arts & Theater"},
	{Slug: "tech", Name: "Tech & Meetups"},
	{Slug: "sports", Name: "Sports"},
	{Slug: "family", Name: "Family"},
	{Slug: "market", Name: "Markets & Sales"},
	{Slug: "community", Name: "Community & Civic"},
}

var categorySlugs = func() map[string]bool {
	m := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		m[c.Slug] = true
	}
	return m
}()

// ValidCategory reports whether slug belongs to the taxonomy.
func ValidCategory(slug string) bool {
	return categorySlugs[slug]
}

// CategorySlugs returns the taxonomy slugs in display order.
func CategorySlugs() []string {
	slugs := make([]string, len(Categories))
	for i, c := range Categories {
		slugs[i] = c.Slug
	}
	return slugs
}
