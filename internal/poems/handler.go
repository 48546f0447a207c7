package poems

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shoiron/shoiron/internal/identity"
	"github.com/shoiron/shoiron/internal/platform/httpx"
	"github.com/shoiron/shoiron/internal/shared"
)

// Handler exposes the public poem endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers the public routes. viewThrottle wraps the view
// registration endpoint with its per-poem rate limit.
func (h *Handler) MountRoutes(r chi.Router, viewThrottle func(http.Handler) http.Handler) {
	r.Get("/healthz", h.healthz)
	r.Get("/stats", h.stats)
	r.Get("/home", h.home)
	r.Get("/home/recommendation/next", h.random)
	r.Route("/poems", func(r chi.Router) {
		r.Get("/random", h.random)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.detail)
			r.Get("/neighbors", h.neighbors)
			r.With(viewThrottle).Post("/view", h.registerView)
		})
	})
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	payload, err := h.service.Home(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) random(w http.ResponseWriter, r *http.Request) {
	poem, err := h.service.Random(r.Context())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Detail(w, http.StatusNotFound, "No poems")
			return
		}
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, poem)
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	poem, err := h.service.Detail(r.Context(), id, identity.HashFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, poem)
}

func (h *Handler) neighbors(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	neighbors, err := h.service.Neighbors(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, neighbors)
}

func (h *Handler) registerView(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	hash := identity.HashFromContext(r.Context())
	if hash == "" {
		httpx.Detail(w, http.StatusBadRequest, "Visitor identity is required.")
		return
	}
	result, err := h.service.RegisterView(r.Context(), id, hash)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// ListByAuthor serves the author's visible poems. The authors router mounts
// it under /authors/{id}/poems.
func (h *Handler) ListByAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	page, pageSize := shared.ParsePage(r)
	items, total, err := h.service.ListByAuthor(r.Context(), id, page, pageSize)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Paginated(items, total, page, pageSize))
}

func (h *Handler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return
	}
	if h.logger != nil {
		h.logger.Error("poems request failed", slog.Any("error", err))
	}
	httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
}
