package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"doska-client/internal/backend"
	"doska-client/internal/form"
	"doska-client/internal/httputil"
	"doska-client/internal/model"
	"doska-client/internal/transport/http/middleware"
)

// successRedirectDelayMs tells the browser how long to show the success
// indicator before navigating to "my listings". Purely a visibility delay.
const successRedirectDelayMs = 2000

// OpenCreateForm handles POST /forms/listings: opens an empty create form
// with the contact fields prefilled from the profile.
func (h *ListingHandler) OpenCreateForm(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())

	c := form.NewCreate(sess.User())
	h.forms.Put(c)
	h.writeFormState(w, http.StatusCreated, c)
}

// OpenEditForm handles POST /listings/{id}/edit-form: fetches the listing
// and opens an edit form over it. Someone else's listing refuses to load;
// the browser must redirect away.
func (h *ListingHandler) OpenEditForm(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid listing ID")
		return
	}

	var listing *model.Listing
	err = sess.Authorized(r.Context(), func(token string) error {
		fetched, callErr := h.client.Get(r.Context(), token, id)
		if callErr != nil {
			return callErr
		}
		listing = fetched
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, model.ErrListingNotFound):
			httputil.WriteNotFound(w, "Listing not found")
		case errors.Is(err, model.ErrSessionExpired):
			httputil.WriteUnauthorized(w, "Session expired")
		default:
			h.logger.Error("edit form fetch failed", zap.Int64("listing", id), zap.Error(err))
			httputil.WriteInternalError(w, "Failed to load listing")
		}
		return
	}

	c, err := form.NewEdit(listing, sess.User().ID)
	if err != nil {
		if errors.Is(err, model.ErrNotListingOwner) {
			httputil.WriteForbidden(w, "You can only edit your own listings")
			return
		}
		httputil.WriteInternalError(w, "Failed to open form")
		return
	}

	h.forms.Put(c)
	h.writeFormState(w, http.StatusCreated, c)
}

// FormState handles GET /forms/{formID}: the full working-set snapshot,
// including the dirty flag the navigation guard asks about.
func (h *ListingHandler) FormState(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookupForm(w, r)
	if !ok {
		return
	}
	h.writeFormState(w, http.StatusOK, c)
}

// SetFields handles PATCH /forms/{formID}/fields with a JSON object of
// field name to value.
func (h *ListingHandler) SetFields(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookupForm(w, r)
	if !ok {
		return
	}

	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	for name, value := range fields {
		if err := c.SetField(name, value); err != nil {
			if errors.Is(err, form.ErrUnknownField) {
				httputil.WriteBadRequest(w, "Unknown field: "+name)
				return
			}
			httputil.WriteNotFound(w, "Form is no longer open")
			return
		}
	}
	h.writeFormState(w, http.StatusOK, c)
}

// AddImages handles POST /forms/{formID}/images: a multipart batch of
// files. A batch that would exceed the cap is refused wholesale; otherwise
// invalid files get one message each and valid ones join the working set.
func (h *ListingHandler) AddImages(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookupForm(w, r)
	if !ok {
		return
	}

	maxFormSize := int64(model.MaxListingImages)*model.MaxImageSizeBytes + 1024*1024
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		httputil.WriteBadRequest(w, "Invalid form data")
		return
	}

	var files []form.IncomingFile
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["images"] {
			f, err := header.Open()
			if err != nil {
				httputil.WriteBadRequest(w, "Invalid file upload")
				return
			}
			data, err := io.ReadAll(io.LimitReader(f, model.MaxImageSizeBytes+1))
			f.Close()
			if err != nil {
				httputil.WriteBadRequest(w, "Invalid file upload")
				return
			}
			files = append(files, form.IncomingFile{Name: header.Filename, Data: data})
		}
	}
	if len(files) == 0 {
		httputil.WriteBadRequest(w, "No files provided")
		return
	}

	fileErrors, err := c.AddImages(files)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTooManyImages):
			httputil.WriteBadRequestWithCode(w, model.CodeTooManyImages, "At most 5 images per listing")
		case errors.Is(err, form.ErrFormClosed):
			httputil.WriteNotFound(w, "Form is no longer open")
		default:
			httputil.WriteInternalError(w, "Failed to add images")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"images":      c.Images(),
		"file_errors": fileErrors,
	})
}

// RemoveImage handles DELETE /forms/{formID}/images/{position}.
func (h *ListingHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookupForm(w, r)
	if !ok {
		return
	}
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid image position")
		return
	}
	if !c.RemoveImage(position) {
		httputil.WriteBadRequest(w, "No image at that position")
		return
	}
	h.writeFormState(w, http.StatusOK, c)
}

// MoveImage handles POST /forms/{formID}/images/move with {"from","to"}.
// The resulting order is the submission order; nothing else changes.
func (h *ListingHandler) MoveImage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookupForm(w, r)
	if !ok {
		return
	}

	var req struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if !c.MoveImage(req.From, req.To) {
		httputil.WriteBadRequest(w, "Invalid image positions")
		return
	}
	h.writeFormState(w, http.StatusOK, c)
}

// Preview handles GET /forms/{formID}/previews/{ref}: the local thumbnail
// of a pending image that has no server URL yet.
func (h *ListingHandler) Preview(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookupForm(w, r)
	if !ok {
		return
	}
	data, contentType, ok := c.Preview(chi.URLParam(r, "ref"))
	if !ok {
		httputil.WriteNotFound(w, "Preview not found")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

// Submit handles POST /forms/{formID}/submit: validate, assemble the
// multipart payload, and create or update through the backend. On success
// the form closes and the browser is told where to navigate after the
// success indicator has been visible.
func (h *ListingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())
	c, ok := h.lookupForm(w, r)
	if !ok {
		return
	}

	listing, err := c.Submit(r.Context(), h.submitFunc(sess, c))
	if err != nil {
		switch {
		case errors.Is(err, form.ErrValidationFailed):
			httputil.WriteFieldErrors(w, http.StatusBadRequest, model.CodeValidationFailed, "Validation failed", c.Errors())
		case errors.Is(err, form.ErrSubmitInFlight):
			httputil.WriteError(w, http.StatusConflict, "SUBMIT_IN_FLIGHT", "Submission already in progress")
		case errors.Is(err, form.ErrFormClosed):
			httputil.WriteNotFound(w, "Form is no longer open")
		case errors.Is(err, model.ErrSessionExpired):
			httputil.WriteUnauthorized(w, "Session expired")
		default:
			h.logger.Error("listing submit failed",
				zap.String("form", c.ID()),
				zap.Int64("listing", c.ListingID()),
				zap.Error(err))
			httputil.WriteFieldErrors(w, http.StatusBadGateway, "SUBMIT_FAILED", "Submission failed", c.Errors())
		}
		return
	}

	h.forms.Remove(c.ID())

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"listing":           listing,
		"redirect":          "/my-listings",
		"redirect_delay_ms": successRedirectDelayMs,
	})
}

// Discard handles DELETE /forms/{formID}: close the form and release its
// previews. The unsaved-changes warning is the browser's job; discarding is
// always allowed.
func (h *ListingHandler) Discard(w http.ResponseWriter, r *http.Request) {
	h.forms.Remove(chi.URLParam(r, "formID"))
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

func (h *ListingHandler) submitFunc(sess sessionAuthorizer, c *form.Controller) form.SubmitFunc {
	return func(ctx context.Context, payload backend.ListingPayload) (*model.Listing, error) {
		var listing *model.Listing
		err := sess.Authorized(ctx, func(token string) error {
			var callErr error
			if c.Mode() == form.ModeEdit {
				listing, callErr = h.client.UpdateListing(ctx, token, c.ListingID(), payload)
			} else {
				listing, callErr = h.client.CreateListing(ctx, token, payload)
			}
			return callErr
		})
		return listing, err
	}
}

// sessionAuthorizer is the slice of the session the submit path needs;
// tests substitute it without a cookie store.
type sessionAuthorizer interface {
	Authorized(ctx context.Context, fn func(token string) error) error
}

func (h *ListingHandler) lookupForm(w http.ResponseWriter, r *http.Request) (*form.Controller, bool) {
	c, ok := h.forms.Get(chi.URLParam(r, "formID"))
	if !ok {
		httputil.WriteNotFound(w, "Form is no longer open")
		return nil, false
	}
	return c, true
}

func (h *ListingHandler) writeFormState(w http.ResponseWriter, status int, c *form.Controller) {
	httputil.WriteJSON(w, status, map[string]interface{}{
		"form_id":           c.ID(),
		"mode":              modeName(c.Mode()),
		"listing_id":        c.ListingID(),
		"fields":            c.Fields(),
		"errors":            c.Errors(),
		"images":            c.Images(),
		"deleted_image_ids": c.DeletedImageIDs(),
		"dirty":             c.Dirty(),
	})
}

func modeName(m form.Mode) string {
	if m == form.ModeEdit {
		return "edit"
	}
	return "create"
}
