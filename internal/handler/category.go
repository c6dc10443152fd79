package handler

import (
	"net/http"

	"go.uber.org/zap"

	"doska-client/internal/cache"
	"doska-client/internal/httputil"
)

// CategoryHandler serves the cached category reference list.
type CategoryHandler struct {
	categories cache.Categories
	logger     *zap.Logger
}

func NewCategoryHandler(categories cache.Categories, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, logger: logger}
}

// List handles GET /categories through the read-through cache.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.Get(r.Context())
	if err != nil {
		h.logger.Error("category fetch failed", zap.Error(err))
		httputil.WriteInternalError(w, "Failed to load categories")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, categories)
}
