// Package identity derives a stable pseudonymous hash for anonymous
// visitors. The hash is the sole deduplication and throttle key for public
// traffic; it authenticates nobody and carries no access rights.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// CookieName is the long-lived anonymous visitor cookie.
	CookieName = "shoieron_uid"

	hashNamespace   = "shoieron"
	ipHashNamespace = "shoieron_ip"

	cookieMaxAge = 365 * 24 * time.Hour
)

type contextKey struct{}

// FromCookie hashes a visitor cookie value.
func FromCookie(cookieValue string) string {
	return digest(fmt.Sprintf("%s:%s", hashNamespace, cookieValue))
}

// FromRequestMeta hashes the client IP and user agent. Used when no visitor
// cookie is present; the identity is then only as stable as the client's
// network position.
func FromRequestMeta(clientIP, userAgent string) string {
	return digest(fmt.Sprintf("%s:%s:%s", ipHashNamespace, clientIP, userAgent))
}

// FromRequest derives the visitor hash for an HTTP request, preferring the
// anonymous cookie over IP and user agent.
func FromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return FromCookie(cookie.Value)
	}
	return FromRequestMeta(ClientIP(r), r.UserAgent())
}

// ClientIP resolves the client address, honoring the first entry of
// X-Forwarded-For when present.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ContextWithHash stores the visitor hash in context.
func ContextWithHash(ctx context.Context, hash string) context.Context {
	return context.WithValue(ctx, contextKey{}, hash)
}

// HashFromContext extracts the visitor hash from context.
func HashFromContext(ctx context.Context) string {
	hash, _ := ctx.Value(contextKey{}).(string)
	return hash
}

// Middleware derives the visitor hash once per request and issues the
// anonymous cookie when the client does not carry one yet. The hash placed
// in context always reflects the cookie the client will send next time.
func Middleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hash := ""
			if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
				hash = FromCookie(cookie.Value)
			} else {
				value := uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    value,
					Path:     "/",
					Expires:  time.Now().Add(cookieMaxAge),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
				hash = FromCookie(value)
			}
			next.ServeHTTP(w, r.WithContext(ContextWithHash(r.Context(), hash)))
		})
	}
}

func digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
