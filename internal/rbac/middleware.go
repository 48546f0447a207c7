package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shoiron/shoiron/internal/platform/httpx"
	"github.com/shoiron/shoiron/internal/shared"
)

type accessContextKey struct{}

// ContextWithAccess stores an evaluated access in context.
func ContextWithAccess(ctx context.Context, access Access) context.Context {
	return context.WithValue(ctx, accessContextKey{}, access)
}

// AccessFromContext extracts the evaluated access from context.
func AccessFromContext(ctx context.Context) Access {
	access, ok := ctx.Value(accessContextKey{}).(Access)
	if !ok {
		return Denied(ReasonAuthRequired)
	}
	return access
}

// Middleware wires dashboard authorization for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// WithAccess resolves the session principal into an Access and stores it in
// the request context. Evaluation happens once per request, never cached
// across requests.
func (m Middleware) WithAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access, err := m.Service.LoadAccess(r.Context(), m.currentUserID(r))
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("rbac load access", slog.Any("error", err))
			}
			httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithAccess(r.Context(), access)))
	})
}

// RequireSession admits any allowed principal, including one in the forced
// password-change state. Used for me, logout and change-password.
func (m Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access := AccessFromContext(r.Context())
		if !access.Allowed {
			httpx.Detail(w, http.StatusForbidden, string(access.Reason))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Require gates a route on one (module, action) pair. A principal in the
// forced password-change state is denied regardless of its matrix.
func (m Middleware) Require(module Module, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access := AccessFromContext(r.Context())
			if denied := m.deny(access); denied != "" {
				httpx.Detail(w, http.StatusForbidden, string(denied))
				return
			}
			if !access.Can(module, action) {
				httpx.Detail(w, http.StatusForbidden, string(ReasonInsufficientPermissions))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyRead gates a route on holding read permission for at least one
// module. Used for the dashboard home aggregates.
func (m Middleware) RequireAnyRead(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access := AccessFromContext(r.Context())
		if denied := m.deny(access); denied != "" {
			httpx.Detail(w, http.StatusForbidden, string(denied))
			return
		}
		if !access.CanReadAnything() {
			httpx.Detail(w, http.StatusForbidden, string(ReasonInsufficientPermissions))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) deny(access Access) Reason {
	if !access.Allowed {
		return access.Reason
	}
	if access.MustChangePassword() {
		return ReasonPasswordChangeRequired
	}
	return ""
}

func (m Middleware) currentUserID(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac parse user id", slog.String("value", raw))
		}
		return 0
	}
	return id
}
