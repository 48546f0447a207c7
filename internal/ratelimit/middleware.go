package ratelimit

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shoiron/shoiron/internal/identity"
	"github.com/shoiron/shoiron/internal/platform/httpx"
)

// KeyFunc derives the throttle identity for a request.
type KeyFunc func(r *http.Request) string

// ByIdentity keys the window on the visitor hash alone.
func ByIdentity(r *http.Request) string {
	return identity.HashFromContext(r.Context())
}

// ByIdentityAndParam keys the window on the visitor hash plus a URL
// parameter, making the limit per-item rather than global per-visitor.
func ByIdentityAndParam(param string) KeyFunc {
	return func(r *http.Request) string {
		hash := identity.HashFromContext(r.Context())
		if hash == "" {
			return ""
		}
		return hash + ":" + chi.URLParam(r, param)
	}
}

// Throttle rejects requests exceeding the rule before the handler runs, so
// a throttled request has no side effects. Limiter failures admit the
// request; losing redis must not take the portal down.
func (l *Limiter) Throttle(rule Rule, key KeyFunc) func(http.Handler) http.Handler {
	if key == nil {
		key = ByIdentity
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := l.Allow(r.Context(), rule, key(r))
			if err != nil {
				if l.logger != nil {
					l.logger.Warn("ratelimit check failed", slog.String("scope", string(rule.Scope)), slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				httpx.Detail(w, http.StatusTooManyRequests, "Request was throttled.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
