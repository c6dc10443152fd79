package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"doska-client/internal/backend"
	"doska-client/internal/httputil"
	"doska-client/internal/model"
	"doska-client/internal/transport/http/middleware"
	"doska-client/internal/view"
)

// AdminHandler serves the moderator surface: dashboard stats, the
// moderation queue, and the status-transition action. Routes are gated by
// RequireModerator; the backend enforces the same rule again.
type AdminHandler struct {
	client *backend.Client
	logger *zap.Logger
}

func NewAdminHandler(client *backend.Client, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{client: client, logger: logger}
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())

	var stats *model.AdminStats
	err := sess.Authorized(r.Context(), func(token string) error {
		fetched, callErr := h.client.Stats(r.Context(), token)
		if callErr != nil {
			return callErr
		}
		stats = fetched
		return nil
	})
	if err != nil {
		h.logger.Error("admin stats fetch failed", zap.Error(err))
		httputil.WriteInternalError(w, "Failed to load stats")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// Listings handles GET /admin/listings: one server-paginated page of the
// moderation queue, each row annotated with its available actions.
func (h *AdminHandler) Listings(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())

	m := view.NewModeration()
	q := r.URL.Query()
	if status := q.Get("status"); status != "" {
		m.SetStatus(status)
	}
	m.SetSearch(q.Get("search"))
	if ordering := q.Get("ordering"); ordering != "" {
		m.SetOrdering(ordering)
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		m.SetPage(page)
	}

	var page *model.ListingPage
	err := sess.Authorized(r.Context(), func(token string) error {
		fetched, callErr := h.client.AdminListings(r.Context(), token, m.Filter)
		if callErr != nil {
			return callErr
		}
		page = fetched
		return nil
	})
	if err != nil {
		h.logger.Error("moderation queue fetch failed", zap.Error(err))
		httputil.WriteInternalError(w, "Failed to load moderation queue")
		return
	}

	type row struct {
		model.Listing
		Actions []string `json:"actions"`
	}
	rows := make([]row, 0, len(page.Results))
	for _, l := range page.Results {
		rows = append(rows, row{Listing: l, Actions: view.Actions(l)})
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results":     rows,
		"count":       page.Count,
		"page":        m.Filter.Page,
		"total_pages": view.TotalPages(page.Count),
	})
}

// Moderate handles PATCH /admin/listings/{id}/moderate: the single status
// transition a moderator may issue. The response carries the transient
// outcome notice; the browser re-fetches the queue for fresh counts.
func (h *AdminHandler) Moderate(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid listing ID")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Status != model.StatusApproved && req.Status != model.StatusRejected {
		httputil.WriteBadRequest(w, "Status must be approved or rejected")
		return
	}

	var listing *model.Listing
	err = sess.Authorized(r.Context(), func(token string) error {
		moderated, callErr := h.client.Moderate(r.Context(), token, id, req.Status)
		if callErr != nil {
			return callErr
		}
		listing = moderated
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrListingNotFound) {
			httputil.WriteNotFound(w, "Listing not found")
			return
		}
		h.logger.Error("moderation action failed",
			zap.Int64("listing", id),
			zap.String("status", req.Status),
			zap.Error(err))
		httputil.WriteInternalError(w, "Failed to moderate listing")
		return
	}

	m := view.NewModeration()
	if req.Status == model.StatusApproved {
		m.Notify("Listing approved", "success")
	} else {
		m.Notify("Listing rejected", "success")
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"listing": listing,
		"actions": view.Actions(*listing),
		"notice":  m.Notice(),
	})
}
