package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"doska-client/internal/model"
)

// Stats fetches the admin dashboard summary. Moderator-only server-side.
func (c *Client) Stats(ctx context.Context, token string) (*model.AdminStats, error) {
	var stats model.AdminStats
	if err := c.getJSON(ctx, "/api/admin/stats/", token, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// AdminListings fetches one page of the moderation queue.
func (c *Client) AdminListings(ctx context.Context, token string, filter model.ModerationFilter) (*model.ListingPage, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.Ordering != "" {
		query.Set("ordering", filter.Ordering)
	}
	if filter.Page > 1 {
		query.Set("page", strconv.Itoa(filter.Page))
	}

	var page model.ListingPage
	if err := c.getJSON(ctx, "/api/admin/listings/"+encodeQuery(query), token, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Moderate transitions one listing's status. The only status mutation the
// client ever requests; content stays with the author.
func (c *Client) Moderate(ctx context.Context, token string, id int64, status string) (*model.Listing, error) {
	body := map[string]string{"status": status}
	var listing model.Listing
	path := fmt.Sprintf("/api/admin/listings/%d/moderate/", id)
	err := c.sendJSON(ctx, http.MethodPatch, path, token, body, &listing)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, model.ErrListingNotFound
		}
		return nil, err
	}
	return &listing, nil
}
