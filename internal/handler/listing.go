package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"doska-client/internal/backend"
	"doska-client/internal/form"
	"doska-client/internal/httputil"
	"doska-client/internal/model"
	"doska-client/internal/transport/http/middleware"
	"doska-client/internal/view"
)

// ListingHandler serves the listing collection surfaces and the owner's
// delete action. The form workflow lives in formflow.go on the same type.
type ListingHandler struct {
	client *backend.Client
	forms  *form.Registry
	logger *zap.Logger
}

func NewListingHandler(client *backend.Client, forms *form.Registry, logger *zap.Logger) *ListingHandler {
	return &ListingHandler{client: client, forms: forms, logger: logger}
}

// Browse handles GET /listings: the public server-filtered page. The query
// both drives the backend request and round-trips into the response so the
// browser can mirror it into its location.
func (h *ListingHandler) Browse(w http.ResponseWriter, r *http.Request) {
	b := view.BrowseFromQuery(r.URL.Query())

	page, err := h.client.List(r.Context(), b.Query())
	if err != nil {
		h.logger.Error("browse fetch failed", zap.Error(err))
		httputil.WriteInternalError(w, "Failed to load listings")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results":     page.Results,
		"count":       page.Count,
		"page":        b.Page,
		"total_pages": view.TotalPages(page.Count),
		"ordering":    b.Sort,
		"query":       b.Query().Encode(),
	})
}

// Detail handles GET /listings/{id}. Authenticated owners and moderators
// can see non-approved listings, so the token rides along when present.
func (h *ListingHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid listing ID")
		return
	}

	sess, _ := middleware.GetSession(r.Context())
	if sess != nil {
		// Best effort: an invalid persisted token degrades to public view.
		_ = sess.Init(r.Context())
	}

	var listing *model.Listing
	if sess != nil && sess.IsAuthenticated() {
		err = sess.Authorized(r.Context(), func(token string) error {
			fetched, callErr := h.client.Get(r.Context(), token, id)
			if callErr != nil {
				return callErr
			}
			listing = fetched
			return nil
		})
	} else {
		listing, err = h.client.Get(r.Context(), "", id)
	}
	if err != nil {
		if errors.Is(err, model.ErrListingNotFound) {
			httputil.WriteNotFound(w, "Listing not found")
			return
		}
		h.logger.Error("detail fetch failed", zap.Int64("listing", id), zap.Error(err))
		httputil.WriteInternalError(w, "Failed to load listing")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, listing)
}

// My handles GET /my-listings: one unfiltered fetch of the caller's own
// listings, then status tab, search and sort applied client-side.
func (h *ListingHandler) My(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())

	var mine view.MyListings
	err := sess.Authorized(r.Context(), func(token string) error {
		listings, callErr := h.client.My(r.Context(), token)
		if callErr != nil {
			return callErr
		}
		mine.Replace(listings)
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrSessionExpired) {
			httputil.WriteUnauthorized(w, "Session expired")
			return
		}
		h.logger.Error("my listings fetch failed", zap.Error(err))
		httputil.WriteInternalError(w, "Failed to load your listings")
		return
	}

	q := r.URL.Query()
	filter := view.MyFilter{
		Tab:    q.Get("status"),
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": mine.Filtered(filter),
		"counts":  mine.Counts(),
	})
}

// Delete handles DELETE /listings/{id}. A failure leaves the item intact
// and is surfaced as a blocking error for the confirm dialog.
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid listing ID")
		return
	}

	err = sess.Authorized(r.Context(), func(token string) error {
		return h.client.DeleteListing(r.Context(), token, id)
	})
	if err != nil {
		switch {
		case errors.Is(err, model.ErrListingNotFound):
			httputil.WriteNotFound(w, "Listing not found")
		case errors.Is(err, backend.ErrForbidden):
			httputil.WriteForbidden(w, "You can only delete your own listings")
		case errors.Is(err, model.ErrSessionExpired):
			httputil.WriteUnauthorized(w, "Session expired")
		default:
			h.logger.Error("delete failed", zap.Int64("listing", id), zap.Error(err))
			httputil.WriteError(w, http.StatusBadGateway, model.CodeDeleteFailed, "Failed to delete listing")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
