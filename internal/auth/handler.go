package auth

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

// Handler exposes the dashboard auth endpoints.
type Handler struct {
	service  *Service
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, validate *validator.Validate, logger *slog.Logger) *Handler {
	return &Handler{service: service, sessions: sessions, csrf: csrf, validate: validate, logger: logger}
}

// MountRoutes registers the auth routes on a dashboard router that already
// carries session and access middleware.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Post("/login", h.login)
	r.Post("/forgot-password", h.forgotPassword)
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireSession)
		r.Post("/logout", h.logout)
		r.Get("/me", h.me)
		r.Post("/change-password", h.changePassword)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Message             string          `json:"message,omitempty"`
	CSRFToken           string          `json:"csrf_token"`
	ForceChangePassword bool            `json:"force_change_password"`
	Profile             *ProfilePayload `json:"profile"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Email and password are required.")
		return
	}

	profile, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondLoginError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	sess.SetUser(strconv.FormatInt(profile.ID, 10))
	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	httpx.JSON(w, http.StatusOK, sessionResponse{
		Message:             "ok",
		CSRFToken:           token,
		ForceChangePassword: profile.MustChangePassword,
		Profile:             NewProfilePayload(profile),
	})
}

func (h *Handler) respondLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		httpx.Detail(w, http.StatusBadRequest, "Invalid email or password.")
	case errors.Is(err, ErrUserInactive):
		httpx.Detail(w, http.StatusForbidden, "User account is inactive.")
	case errors.Is(err, ErrRoleInactive):
		httpx.Detail(w, http.StatusForbidden, "User role is inactive or deleted.")
	case errors.Is(err, ErrTempPasswordExpired):
		httpx.Detail(w, http.StatusForbidden, "Temporary password has expired. Request a new one.")
	default:
		if h.logger != nil {
			h.logger.Error("login failed", slog.Any("error", err))
		}
		httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
	}
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	h.sessions.Destroy(sess)
	httpx.Message(w, http.StatusOK, "Logged out.")
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	access := rbac.AccessFromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		CSRFToken:           token,
		ForceChangePassword: access.MustChangePassword(),
		Profile:             NewProfilePayload(access.Profile),
	})
}

type changePasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Password must be at least 8 characters.")
		return
	}

	access := rbac.AccessFromContext(r.Context())
	if access.Profile == nil {
		httpx.Detail(w, http.StatusForbidden, string(rbac.ReasonAuthRequired))
		return
	}
	if err := h.service.ChangePassword(r.Context(), access.Profile.ID, req.NewPassword); err != nil {
		if h.logger != nil {
			h.logger.Error("change password failed", slog.Any("error", err))
		}
		httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	httpx.Message(w, http.StatusOK, "Password changed.")
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "A valid email is required.")
		return
	}

	if _, err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		if h.logger != nil {
			h.logger.Error("forgot password failed", slog.Any("error", err))
		}
		httpx.Detail(w, http.StatusInternalServerError, "Failed to send the email. Try again later.")
		return
	}
	// Same response for unknown emails.
	httpx.Message(w, http.StatusOK, "If the email is registered, a temporary password has been sent.")
}
