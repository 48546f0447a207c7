package authors

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shoiron/shoiron/internal/platform/httpx"
	"github.com/shoiron/shoiron/internal/rbac"
	"github.com/shoiron/shoiron/internal/shared"
)

// AdminHandler exposes the dashboard author endpoints.
type AdminHandler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(service *Service, validate *validator.Validate, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{service: service, validate: validate, logger: logger}
}

// MountRoutes registers dashboard author routes guarded per action. The
// author-scoped poem handlers come from the poems package; listing them is
// an authors read, creating one is a poems create.
func (h *AdminHandler) MountRoutes(r chi.Router, guard rbac.Middleware, listAuthorPoems, createAuthorPoem http.HandlerFunc) {
	r.Route("/authors", func(r chi.Router) {
		r.With(guard.Require(rbac.ModuleAuthors, rbac.ActionRead)).Get("/", h.list)
		r.With(guard.Require(rbac.ModuleAuthors, rbac.ActionCreate)).Post("/", h.create)
		r.Route("/{id}", func(r chi.Router) {
			r.With(guard.Require(rbac.ModuleAuthors, rbac.ActionRead)).Get("/", h.get)
			r.With(guard.Require(rbac.ModuleAuthors, rbac.ActionUpdate)).Patch("/", h.update)
			r.With(guard.Require(rbac.ModuleAuthors, rbac.ActionDelete)).Delete("/", h.delete)
			r.With(guard.Require(rbac.ModuleAuthors, rbac.ActionUpdate)).Post("/restore", h.restore)
			r.With(guard.Require(rbac.ModuleAuthors, rbac.ActionDelete)).Delete("/permanent", h.hardDelete)
			r.With(guard.Require(rbac.ModuleAuthors, rbac.ActionRead)).Get("/poems", listAuthorPoems)
			r.With(guard.Require(rbac.ModulePoems, rbac.ActionCreate)).Post("/poems", createAuthorPoem)
		})
	})
}

func (h *AdminHandler) list(w http.ResponseWriter, r *http.Request) {
	page, pageSize := shared.ParsePage(r)
	params := r.URL.Query()
	items, total, err := h.service.List(r.Context(), ListQuery{
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

type createRequest struct {
	FullName    string  `json:"full_name" validate:"required,max=255"`
	BirthYear   *int    `json:"birth_year"`
	DeathYear   *int    `json:"death_year"`
	BiographyMD *string `json:"biography_md"`
	PhotoURL    *string `json:"photo_url" validate:"omitempty,url"`
	IsPublished *bool   `json:"is_published"`
}

func (h *AdminHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid author payload.")
		return
	}
	isPublished := true
	if req.IsPublished != nil {
		isPublished = *req.IsPublished
	}
	author, err := h.service.Create(r.Context(), CreateInput{
		FullName:    req.FullName,
		BirthYear:   req.BirthYear,
		DeathYear:   req.DeathYear,
		BiographyMD: req.BiographyMD,
		PhotoURL:    req.PhotoURL,
		IsPublished: isPublished,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, author)
}

func (h *AdminHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	author, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, author)
}

type updateRequest struct {
	FullName    *string `json:"full_name" validate:"omitempty,max=255"`
	BirthYear   *int    `json:"birth_year"`
	DeathYear   *int    `json:"death_year"`
	BiographyMD *string `json:"biography_md"`
	PhotoURL    *string `json:"photo_url" validate:"omitempty,url"`
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
		httpx.Detail(w, http.StatusBadRequest, "Invalid author payload.")
		return
	}
	author, err := h.service.Update(r.Context(), id, UpdateInput{
		FullName:    req.FullName,
		BirthYear:   req.BirthYear,
		DeathYear:   req.DeathYear,
		BiographyMD: req.BiographyMD,
		PhotoURL:    req.PhotoURL,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, author)
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
	httpx.Message(w, http.StatusOK, "Author moved to trash.")
}

func (h *AdminHandler) restore(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.service.Restore(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Author restored from trash.")
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
	httpx.Message(w, http.StatusOK, "Author deleted permanently.")
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
	if errors.Is(err, ErrNotFound) {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return
	}
	if h.logger != nil {
		h.logger.Error("authors admin request failed", slog.Any("error", err))
	}
	httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
}
