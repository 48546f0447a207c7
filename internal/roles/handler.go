package roles

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

// Handler exposes the role admin endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, validate *validator.Validate, logger *slog.Logger) *Handler {
	return &Handler{service: service, validate: validate, logger: logger}
}

// MountRoutes registers role routes guarded per action.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Route("/roles", func(r chi.Router) {
		r.With(guard.Require(rbac.ModuleRoles, rbac.ActionRead)).Get("/", h.list)
		r.With(guard.Require(rbac.ModuleRoles, rbac.ActionCreate)).Post("/", h.create)
		r.Route("/{id}", func(r chi.Router) {
			r.With(guard.Require(rbac.ModuleRoles, rbac.ActionRead)).Get("/", h.get)
			r.With(guard.Require(rbac.ModuleRoles, rbac.ActionUpdate)).Patch("/", h.update)
			r.With(guard.Require(rbac.ModuleRoles, rbac.ActionDelete)).Delete("/", h.delete)
			r.With(guard.Require(rbac.ModuleRoles, rbac.ActionUpdate)).Post("/restore", h.restore)
			r.With(guard.Require(rbac.ModuleRoles, rbac.ActionDelete)).Delete("/permanent", h.hardDelete)
		})
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, pageSize := shared.ParsePage(r)
	params := r.URL.Query()
	items, total, err := h.service.List(r.Context(), ListQuery{
		Trash:    params.Get("trash"),
		Status:   params.Get("status"),
		Q:        params.Get("q"),
		Sort:     params.Get("sort"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Paginated(items, total, page, pageSize))
}

type permissionRowRequest struct {
	Module    string `json:"module" validate:"required"`
	CanCreate bool   `json:"can_create"`
	CanRead   bool   `json:"can_read"`
	CanUpdate bool   `json:"can_update"`
	CanDelete bool   `json:"can_delete"`
}

type createRequest struct {
	Name        string                 `json:"name" validate:"required,max=120"`
	IsActive    *bool                  `json:"is_active"`
	Permissions []permissionRowRequest `json:"permissions" validate:"required,dive"`
	EmployeeIDs []int64                `json:"employee_ids"`
}

func permissionRows(in []permissionRowRequest) []rbac.PermissionRow {
	rows := make([]rbac.PermissionRow, 0, len(in))
	for _, row := range in {
		rows = append(rows, rbac.PermissionRow{
			Module:    rbac.Module(row.Module),
			CanCreate: row.CanCreate,
			CanRead:   row.CanRead,
			CanUpdate: row.CanUpdate,
			CanDelete: row.CanDelete,
		})
	}
	return rows
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid role payload.")
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	role, err := h.service.Create(r.Context(), CreateInput{
		Name:        req.Name,
		IsActive:    isActive,
		Permissions: permissionRows(req.Permissions),
		EmployeeIDs: req.EmployeeIDs,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

type updateRequest struct {
	Name        *string                 `json:"name" validate:"omitempty,max=120"`
	IsActive    *bool                   `json:"is_active"`
	Permissions *[]permissionRowRequest `json:"permissions" validate:"omitempty,dive"`
	EmployeeIDs *[]int64                `json:"employee_ids"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
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
		httpx.Detail(w, http.StatusBadRequest, "Invalid role payload.")
		return
	}
	in := UpdateInput{Name: req.Name, IsActive: req.IsActive, EmployeeIDs: req.EmployeeIDs}
	if req.Permissions != nil {
		rows := permissionRows(*req.Permissions)
		in.Permissions = &rows
	}
	role, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Role moved to trash.")
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Restore(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Role restored from trash.")
}

func (h *Handler) hardDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.service.HardDelete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Role deleted permanently.")
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
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Detail(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, ErrNameTaken):
		httpx.Detail(w, http.StatusBadRequest, "A role with this name already exists.")
	case errors.Is(err, ErrTrashed):
		httpx.Detail(w, http.StatusBadRequest, "Role is in trash.")
	case errors.Is(err, ErrLastAdminRole):
		httpx.Detail(w, http.StatusBadRequest, "The last admin-capable role cannot be disabled or removed.")
	default:
		if h.logger != nil {
			h.logger.Error("roles request failed", slog.Any("error", err))
		}
		httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
	}
}
