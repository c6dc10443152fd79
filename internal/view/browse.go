// Package view holds the client-side state of the listing collection
// surfaces: public browsing, the owner's "my listings" tab, and the
// moderation queue. Views compute what to ask the backend for and how to
// slice what came back; they never talk to the network themselves.
package view

import (
	"net/url"
	"strconv"

	"doska-client/internal/model"
)

// BrowseFilters is the public browse filter set.
type BrowseFilters struct {
	Search   string
	Category string
	MinPrice string
	MaxPrice string
}

// Browse is the state of the public browsing view: one page of a
// server-filtered collection. State round-trips through url.Values so a
// reloaded or shared URL reproduces the same view.
type Browse struct {
	Page    int
	Filters BrowseFilters
	Sort    string
}

// NewBrowse starts at page 1, newest first, no filters.
func NewBrowse() *Browse {
	return &Browse{Page: 1, Sort: model.SortNewestFirst}
}

// BrowseFromQuery restores view state from a navigable location.
func BrowseFromQuery(q url.Values) *Browse {
	b := NewBrowse()
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		b.Page = page
	}
	b.Filters = BrowseFilters{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		MinPrice: q.Get("min_price"),
		MaxPrice: q.Get("max_price"),
	}
	b.Sort = normalizeSort(q.Get("ordering"))
	return b
}

// SetFilters replaces the filter set. Any actual change resets to page 1.
func (b *Browse) SetFilters(f BrowseFilters) {
	if f == b.Filters {
		return
	}
	b.Filters = f
	b.Page = 1
}

// SetSort replaces the sort key; a change resets to page 1. Unknown keys
// fall back to newest first.
func (b *Browse) SetSort(sort string) {
	sort = normalizeSort(sort)
	if sort == b.Sort {
		return
	}
	b.Sort = sort
	b.Page = 1
}

// SetPage moves within the current filter/sort state.
func (b *Browse) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	b.Page = page
}

// Query encodes the view state for both the backend request and the
// shareable location.
func (b *Browse) Query() url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(b.Page))
	q.Set("ordering", b.Sort)
	if b.Filters.Search != "" {
		q.Set("search", b.Filters.Search)
	}
	if b.Filters.Category != "" {
		q.Set("category", b.Filters.Category)
	}
	if b.Filters.MinPrice != "" {
		q.Set("min_price", b.Filters.MinPrice)
	}
	if b.Filters.MaxPrice != "" {
		q.Set("max_price", b.Filters.MaxPrice)
	}
	return q
}

// TotalPages derives the page count from the backend-reported total,
// never less than 1.
func TotalPages(count int) int {
	pages := (count + model.PageSize - 1) / model.PageSize
	if pages < 1 {
		return 1
	}
	return pages
}

func normalizeSort(sort string) string {
	switch sort {
	case model.SortPriceAsc, model.SortPriceDesc, model.SortNewestFirst:
		return sort
	default:
		return model.SortNewestFirst
	}
}
