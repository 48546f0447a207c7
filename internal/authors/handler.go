package authors

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shoiron/shoiron/internal/platform/httpx"
	"github.com/shoiron/shoiron/internal/shared"
)

// Handler exposes the public author endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers the public routes. authorPoems serves the author's
// visible poems; its implementation lives with the poems handler.
func (h *Handler) MountRoutes(r chi.Router, authorPoems http.HandlerFunc) {
	r.Route("/authors", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/random", h.random)
		r.Get("/{id}", h.detail)
		r.Get("/{id}/poems", authorPoems)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, pageSize := shared.ParsePage(r)
	params := r.URL.Query()
	items, total, err := h.service.ListPublic(r.Context(), PublicQuery{
		Q:        params.Get("q"),
		Ordering: params.Get("ordering"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Paginated(items, total, page, pageSize))
}

func (h *Handler) random(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	limit, _ := strconv.Atoi(params.Get("limit"))
	exclude, _ := strconv.ParseInt(params.Get("exclude"), 10, 64)
	items, err := h.service.RandomPublic(r.Context(), limit, exclude)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return
	}
	author, err := h.service.DetailPublic(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, author)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return
	}
	if h.logger != nil {
		h.logger.Error("authors request failed", slog.Any("error", err))
	}
	httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
}
