package search

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shoiron/shoiron/internal/platform/httpx"
	"github.com/shoiron/shoiron/internal/shared"
)

// Handler exposes the public search endpoint.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers the search endpoint. The caller wraps it with the
// search throttle.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/search", h.search)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	page, pageSize := shared.ParsePage(r)
	result, err := h.service.Search(r.Context(), r.URL.Query().Get("q"), page, pageSize)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("search failed", slog.Any("error", err))
		}
		httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
