package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"doska-client/internal/model"
)

// FilePart is one file destined for a multipart request.
type FilePart struct {
	Name        string
	ContentType string
	Data        []byte
}

// ListingPayload is the full multipart submission for a listing create or
// update. Images holds only files not yet stored by the backend; persisted
// images are never re-uploaded. DeleteImageIDs is meaningful on update only.
type ListingPayload struct {
	Title       string
	Description string
	Price       string
	Category    string
	AuthorPhone string
	AuthorEmail string

	Images         []FilePart
	DeleteImageIDs []int64
}

// List fetches one public browse page. query carries page, ordering and the
// filter set exactly as the view encodes them.
func (c *Client) List(ctx context.Context, query url.Values) (*model.ListingPage, error) {
	var page model.ListingPage
	if err := c.getJSON(ctx, "/api/listings/"+encodeQuery(query), "", &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get fetches one listing. Unauthenticated callers see approved listings
// only; the owner and moderators also see their pending/rejected ones.
func (c *Client) Get(ctx context.Context, token string, id int64) (*model.Listing, error) {
	var listing model.Listing
	err := c.getJSON(ctx, fmt.Sprintf("/api/listings/%d/", id), token, &listing)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, model.ErrListingNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// My fetches the caller's own listings across all statuses, unpaginated
// filtering happens client-side against this set.
func (c *Client) My(ctx context.Context, token string) ([]model.Listing, error) {
	var page model.ListingPage
	if err := c.getJSON(ctx, "/api/listings/my/", token, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// CreateListing submits a new listing as multipart form data. The created
// listing always comes back pending regardless of anything client-side.
func (c *Client) CreateListing(ctx context.Context, token string, payload ListingPayload) (*model.Listing, error) {
	body, contentType, err := encodeListingForm(payload, false)
	if err != nil {
		return nil, err
	}
	var listing model.Listing
	if err := c.do(ctx, http.MethodPost, "/api/listings/create/", token, body, contentType, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// UpdateListing patches an existing listing. Edits reset the listing to
// pending server-side; callers must not assume the prior status survives.
func (c *Client) UpdateListing(ctx context.Context, token string, id int64, payload ListingPayload) (*model.Listing, error) {
	body, contentType, err := encodeListingForm(payload, true)
	if err != nil {
		return nil, err
	}
	var listing model.Listing
	path := fmt.Sprintf("/api/listings/%d/update/", id)
	if err := c.do(ctx, http.MethodPatch, path, token, body, contentType, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// DeleteListing removes the caller's own listing.
func (c *Client) DeleteListing(ctx context.Context, token string, id int64) error {
	path := fmt.Sprintf("/api/listings/%d/delete/", id)
	err := c.do(ctx, http.MethodDelete, path, token, nil, "", nil)
	if errors.Is(err, ErrNotFound) {
		return model.ErrListingNotFound
	}
	return err
}

// encodeListingForm assembles the multipart body: scalar fields, one
// "images" part per new file in working-set order, and on update one
// "delete_image_ids" part per removed persisted image.
func encodeListingForm(payload ListingPayload, update bool) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"title", payload.Title},
		{"description", payload.Description},
		{"price", payload.Price},
		{"category", payload.Category},
		{"author_phone", payload.AuthorPhone},
		{"author_email", payload.AuthorEmail},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write listing field %s: %w", f.name, err)
		}
	}

	for i := range payload.Images {
		if err := writeFilePart(w, "images", &payload.Images[i]); err != nil {
			return nil, "", err
		}
	}

	if update {
		for _, id := range payload.DeleteImageIDs {
			if err := w.WriteField("delete_image_ids", strconv.FormatInt(id, 10)); err != nil {
				return nil, "", fmt.Errorf("write delete_image_ids: %w", err)
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize listing form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// writeFilePart adds a file field with its real content type instead of the
// application/octet-stream default of CreateFormFile.
func writeFilePart(w *multipart.Writer, field string, file *FilePart) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, escapeQuotes(file.Name)))
	h.Set("Content-Type", file.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create %s part: %w", field, err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return fmt.Errorf("write %s part: %w", field, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
