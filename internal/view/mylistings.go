package view

import (
	"sort"
	"strconv"
	"strings"

	"doska-client/internal/model"
)

// Status tabs of the my-listings view.
const (
	TabAll      = "all"
	TabPending  = model.StatusPending
	TabApproved = model.StatusApproved
	TabRejected = model.StatusRejected
)

// Sort keys of the my-listings view. These are client-side keys, distinct
// from the backend's ordering values.
const (
	MySortDate      = "date"
	MySortPriceAsc  = "price-asc"
	MySortPriceDesc = "price-desc"
)

// MyFilter is one rendering of the cached set.
type MyFilter struct {
	Tab    string
	Search string
	Sort   string
}

// MyListings is an explicit read-through cache of the caller's own listings:
// fetched once, unfiltered, and sliced client-side per render. Replace is
// the single refresh trigger, called after mutations (delete, successful
// create/update).
type MyListings struct {
	listings []model.Listing
	loaded   bool
}

// Replace swaps in a freshly fetched set.
func (m *MyListings) Replace(listings []model.Listing) {
	m.listings = listings
	m.loaded = true
}

// Loaded reports whether the initial fetch has happened.
func (m *MyListings) Loaded() bool { return m.loaded }

// All returns the unfiltered cached set.
func (m *MyListings) All() []model.Listing { return m.listings }

// Filtered applies status tab, free-text search over title and description,
// and sort against the cached set. No network involvement.
func (m *MyListings) Filtered(f MyFilter) []model.Listing {
	out := make([]model.Listing, 0, len(m.listings))
	query := strings.ToLower(strings.TrimSpace(f.Search))
	for _, l := range m.listings {
		if f.Tab != "" && f.Tab != TabAll && l.Status != f.Tab {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(l.Title), query) &&
			!strings.Contains(strings.ToLower(l.Description), query) {
			continue
		}
		out = append(out, l)
	}

	switch f.Sort {
	case MySortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return priceOf(out[i]) < priceOf(out[j]) })
	case MySortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return priceOf(out[i]) > priceOf(out[j]) })
	default: // newest first
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out
}

// TabCounts are the per-status totals shown on the tab bar, recomputed from
// the cached set on every render. All always equals the sum of the rest.
type TabCounts struct {
	All      int `json:"all"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// Counts derives the tab counters.
func (m *MyListings) Counts() TabCounts {
	c := TabCounts{All: len(m.listings)}
	for _, l := range m.listings {
		switch l.Status {
		case model.StatusPending:
			c.Pending++
		case model.StatusApproved:
			c.Approved++
		case model.StatusRejected:
			c.Rejected++
		}
	}
	return c
}

func priceOf(l model.Listing) float64 {
	v, err := strconv.ParseFloat(l.Price, 64)
	if err != nil {
		return 0
	}
	return v
}
