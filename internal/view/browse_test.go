package view

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"doska-client/internal/model"
)

func TestBrowseFromQuery(t *testing.T) {
	q := url.Values{}
	q.Set("page", "3")
	q.Set("search", "bike")
	q.Set("category", "2")
	q.Set("min_price", "100")
	q.Set("ordering", "price")

	b := BrowseFromQuery(q)
	assert.Equal(t, 3, b.Page)
	assert.Equal(t, "bike", b.Filters.Search)
	assert.Equal(t, "2", b.Filters.Category)
	assert.Equal(t, "100", b.Filters.MinPrice)
	assert.Equal(t, model.SortPriceAsc, b.Sort)
}

func TestBrowseFromQueryDefaults(t *testing.T) {
	b := BrowseFromQuery(url.Values{})
	assert.Equal(t, 1, b.Page)
	assert.Equal(t, model.SortNewestFirst, b.Sort)

	q := url.Values{}
	q.Set("page", "-4")
	q.Set("ordering", "garbage")
	b = BrowseFromQuery(q)
	assert.Equal(t, 1, b.Page)
	assert.Equal(t, model.SortNewestFirst, b.Sort)
}

func TestBrowseFilterChangeResetsPage(t *testing.T) {
	b := NewBrowse()
	b.SetPage(5)

	// Same filters: stay put.
	b.SetFilters(BrowseFilters{})
	assert.Equal(t, 5, b.Page)

	b.SetFilters(BrowseFilters{Search: "sofa"})
	assert.Equal(t, 1, b.Page)

	b.SetPage(4)
	b.SetSort(model.SortPriceDesc)
	assert.Equal(t, 1, b.Page)

	// Same sort again: no reset.
	b.SetPage(2)
	b.SetSort(model.SortPriceDesc)
	assert.Equal(t, 2, b.Page)
}

func TestBrowseQueryOmitsEmptyFilters(t *testing.T) {
	b := NewBrowse()
	b.SetFilters(BrowseFilters{Search: "bike", MaxPrice: "500"})

	q := b.Query()
	assert.Equal(t, "1", q.Get("page"))
	assert.Equal(t, model.SortNewestFirst, q.Get("ordering"))
	assert.Equal(t, "bike", q.Get("search"))
	assert.Equal(t, "500", q.Get("max_price"))
	assert.False(t, q.Has("category"))
	assert.False(t, q.Has("min_price"))
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, TotalPages(0))
	assert.Equal(t, 1, TotalPages(1))
	assert.Equal(t, 1, TotalPages(model.PageSize))
	assert.Equal(t, 2, TotalPages(model.PageSize+1))
	assert.Equal(t, 5, TotalPages(5*model.PageSize))
}
