package poems

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shoiron/shoiron/internal/auth"
	"github.com/shoiron/shoiron/internal/platform/httpx"
	"github.com/shoiron/shoiron/internal/rbac"
	"github.com/shoiron/shoiron/internal/shared"
)

// AdminHandler exposes the dashboard poem endpoints and the dashboard home.
type AdminHandler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(service *Service, validate *validator.Validate, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{service: service, validate: validate, logger: logger}
}

// MountRoutes registers dashboard poem routes guarded per action. The
// dashboard home is open to anyone holding read on at least one module.
func (h *AdminHandler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.With(guard.RequireAnyRead).Get("/home", h.home)

	r.Route("/poems", func(r chi.Router) {
		r.With(guard.Require(rbac.ModulePoems, rbac.ActionRead)).Get("/", h.list)
		r.With(guard.Require(rbac.ModulePoems, rbac.ActionCreate)).Post("/", h.create)
		r.Route("/{id}", func(r chi.Router) {
			r.With(guard.Require(rbac.ModulePoems, rbac.ActionRead)).Get("/", h.get)
			r.With(guard.Require(rbac.ModulePoems, rbac.ActionUpdate)).Patch("/", h.update)
			r.With(guard.Require(rbac.ModulePoems, rbac.ActionDelete)).Delete("/", h.delete)
			r.With(guard.Require(rbac.ModulePoems, rbac.ActionUpdate)).Post("/restore", h.restore)
			r.With(guard.Require(rbac.ModulePoems, rbac.ActionDelete)).Delete("/permanent", h.hardDelete)
		})
	})
}

type dashboardHomeResponse struct {
	Profile *auth.ProfilePayload `json:"profile"`
	Stats   *DashboardStats      `json:"stats"`
}

func (h *AdminHandler) home(w http.ResponseWriter, r *http.Request) {
	access := rbac.AccessFromContext(r.Context())
	if access.Profile == nil {
		httpx.Detail(w, http.StatusUnauthorized, "Authentication required.")
		return
	}
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dashboardHomeResponse{
		Profile: auth.NewProfilePayload(access.Profile),
		Stats:   stats,
	})
}

func (h *AdminHandler) list(w http.ResponseWriter, r *http.Request) {
	page, pageSize := shared.ParsePage(r)
	params := r.URL.Query()
	authorID, _ := strconv.ParseInt(params.Get("author_id"), 10, 64)
	items, total, err := h.service.List(r.Context(), ListQuery{
		Trash:     params.Get("trash"),
		Published: params.Get("published"),
		Q:         params.Get("q"),
		Sort:      params.Get("sort"),
		AuthorID:  authorID,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Paginated(items, total, page, pageSize))
}

// ListForAuthor serves one author's poems for the dashboard. The authors
// admin router mounts it under /authors/{id}/poems.
func (h *AdminHandler) ListForAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	page, pageSize := shared.ParsePage(r)
	params := r.URL.Query()
	items, total, err := h.service.ListForAuthor(r.Context(), id, ListQuery{
		Trash:     params.Get("trash"),
		Published: params.Get("published"),
		Q:         params.Get("q"),
		Sort:      params.Get("sort"),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Paginated(items, total, page, pageSize))
}

type authorPoemRequest struct {
	Title       string `json:"title" validate:"required,max=500"`
	Text        string `json:"text" validate:"required"`
	IsPublished *bool  `json:"is_published"`
}

// CreateForAuthor inserts a poem under the author named by the URL.
func (h *AdminHandler) CreateForAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var req authorPoemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid poem payload.")
		return
	}
	isPublished := true
	if req.IsPublished != nil {
		isPublished = *req.IsPublished
	}
	poem, err := h.service.Create(r.Context(), CreateInput{
		AuthorID:    id,
		Title:       req.Title,
		Text:        req.Text,
		IsPublished: isPublished,
	})
	if err != nil {
		// The author is named by the URL here, so a trashed or missing
		// author reads as a missing resource.
		if errors.Is(err, ErrAuthorUnavailable) {
			httpx.Detail(w, http.StatusNotFound, "Not found.")
			return
		}
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, poem)
}

type createRequest struct {
	AuthorID    int64  `json:"author_id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required,max=500"`
	Text        string `json:"text" validate:"required"`
	IsPublished *bool  `json:"is_published"`
}

func (h *AdminHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid poem payload.")
		return
	}
	isPublished := true
	if req.IsPublished != nil {
		isPublished = *req.IsPublished
	}
	poem, err := h.service.Create(r.Context(), CreateInput{
		AuthorID:    req.AuthorID,
		Title:       req.Title,
		Text:        req.Text,
		IsPublished: isPublished,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, poem)
}

func (h *AdminHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	poem, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, poem)
}

type updateRequest struct {
	AuthorID    *int64  `json:"author_id" validate:"omitempty,gt=0"`
	Title       *string `json:"title" validate:"omitempty,max=500"`
	Text        *string `json:"text"`
	IsPublished *bool   `json:"is_published"`
}

func (h *AdminHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid poem payload.")
		return
	}
	poem, err := h.service.Update(r.Context(), id, UpdateInput{
		AuthorID:    req.AuthorID,
		Title:       req.Title,
		Text:        req.Text,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, poem)
}

func (h *AdminHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Poem moved to trash.")
}

func (h *AdminHandler) restore(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Restore(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Poem restored from trash.")
}

func (h *AdminHandler) hardDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.service.HardDelete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Poem deleted permanently.")
}

func (h *AdminHandler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}

func (h *AdminHandler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Detail(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, ErrAuthorUnavailable):
		httpx.Detail(w, http.StatusBadRequest, "Author does not exist or is trashed.")
	default:
		if h.logger != nil {
			h.logger.Error("poems admin request failed", slog.Any("error", err))
		}
		httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
	}
}
