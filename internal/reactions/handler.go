package reactions

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shoiron/shoiron/internal/identity"
	"github.com/shoiron/shoiron/internal/platform/httpx"
)

// Handler exposes the public reaction toggle.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, validate *validator.Validate, logger *slog.Logger) *Handler {
	return &Handler{service: service, validate: validate, logger: logger}
}

// MountRoutes registers the toggle endpoint. The caller wraps it with the
// reactions throttle.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/reactions/toggle", h.toggle)
}

type toggleRequest struct {
	PoemID int64  `json:"poem_id" validate:"required,gt=0"`
	Type   string `json:"type" validate:"required"`
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "poem_id and type are required.")
		return
	}

	hash := identity.HashFromContext(r.Context())
	summary, err := h.service.Toggle(r.Context(), req.PoemID, hash, Type(req.Type))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidType):
			httpx.Detail(w, http.StatusBadRequest, "Unknown reaction type.")
		case errors.Is(err, ErrPoemNotFound):
			httpx.Detail(w, http.StatusNotFound, "Not found.")
		default:
			if h.logger != nil {
				h.logger.Error("reaction toggle failed", slog.Any("error", err))
			}
			httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
