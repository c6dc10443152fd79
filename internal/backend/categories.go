package backend

import (
	"context"

	"doska-client/internal/model"
)

// Categories fetches the flat category list. Public, no token.
func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := c.getJSON(ctx, "/api/categories/", "", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}
