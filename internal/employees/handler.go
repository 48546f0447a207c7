package employees

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

// Handler exposes the employee admin endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, validate *validator.Validate, logger *slog.Logger) *Handler {
	return &Handler{service: service, validate: validate, logger: logger}
}

// MountRoutes registers employee routes guarded per action.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Route("/employees", func(r chi.Router) {
		r.With(guard.Require(rbac.ModuleEmployees, rbac.ActionRead)).Get("/", h.list)
		r.With(guard.Require(rbac.ModuleEmployees, rbac.ActionCreate)).Post("/", h.create)
		r.Route("/{id}", func(r chi.Router) {
			r.With(guard.Require(rbac.ModuleEmployees, rbac.ActionRead)).Get("/", h.get)
			r.With(guard.Require(rbac.ModuleEmployees, rbac.ActionUpdate)).Patch("/", h.update)
			r.With(guard.Require(rbac.ModuleEmployees, rbac.ActionDelete)).Delete("/", h.delete)
			r.With(guard.Require(rbac.ModuleEmployees, rbac.ActionUpdate)).Post("/restore", h.restore)
			r.With(guard.Require(rbac.ModuleEmployees, rbac.ActionDelete)).Delete("/permanent", h.hardDelete)
			r.With(guard.Require(rbac.ModuleEmployees, rbac.ActionUpdate)).Post("/reset-password", h.resetPassword)
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

type createRequest struct {
	FullName        string `json:"full_name" validate:"required,max=255"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	RoleID          int64  `json:"role_id" validate:"required"`
	IsActive        *bool  `json:"is_active"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid employee payload.")
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	employee, err := h.service.Create(r.Context(), CreateInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		RoleID:   req.RoleID,
		IsActive: isActive,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, employee)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	employee, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, employee)
}

type updateRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
	Email    *string `json:"email" validate:"omitempty,email"`
	RoleID   *int64  `json:"role_id"`
	IsActive *bool   `json:"is_active"`
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
		httpx.Detail(w, http.StatusBadRequest, "Invalid employee payload.")
		return
	}
	employee, err := h.service.Update(r.Context(), h.actorID(r), id, UpdateInput{
		FullName: req.FullName,
		Email:    req.Email,
		RoleID:   req.RoleID,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, employee)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), h.actorID(r), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Employee moved to trash.")
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
	httpx.Message(w, http.StatusOK, "Employee restored from trash.")
}

func (h *Handler) hardDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.service.HardDelete(r.Context(), h.actorID(r), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Employee deleted permanently.")
}

type resetPasswordRequest struct {
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Passwords must match and be at least 8 characters.")
		return
	}
	if err := h.service.ResetPassword(r.Context(), id, req.NewPassword); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Password updated.")
}

func (h *Handler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}

func (h *Handler) actorID(r *http.Request) int64 {
	access := rbac.AccessFromContext(r.Context())
	if access.Profile == nil {
		return 0
	}
	return access.Profile.ID
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Detail(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, ErrEmailTaken):
		httpx.Detail(w, http.StatusBadRequest, "Email is already in use.")
	case errors.Is(err, ErrRoleUnavailable):
		httpx.Detail(w, http.StatusBadRequest, "Role does not exist or is trashed.")
	case errors.Is(err, ErrSelfDeactivate):
		httpx.Detail(w, http.StatusBadRequest, "You cannot deactivate your own account.")
	case errors.Is(err, ErrSelfDelete):
		httpx.Detail(w, http.StatusBadRequest, "You cannot delete your own account.")
	case errors.Is(err, ErrLastAdmin):
		httpx.Detail(w, http.StatusBadRequest, "The last active administrator cannot be disabled or removed.")
	default:
		if h.logger != nil {
			h.logger.Error("employees request failed", slog.Any("error", err))
		}
		httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
	}
}
