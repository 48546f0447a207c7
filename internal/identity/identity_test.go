package identity_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoiron/shoiron/internal/identity"
)

func TestFromRequestPrefersCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:41000"
	req.Header.Set("User-Agent", "test-agent")
	req.AddCookie(&http.Cookie{Name: identity.CookieName, Value: "visitor-1"})

	got := identity.FromRequest(req)
	assert.Equal(t, identity.FromCookie("visitor-1"), got)
	assert.NotEqual(t, identity.FromRequestMeta("203.0.113.7", "test-agent"), got)
}

func TestFromRequestFallsBackToIPAndUserAgent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:41000"
	req.Header.Set("User-Agent", "test-agent")

	assert.Equal(t, identity.FromRequestMeta("203.0.113.7", "test-agent"), identity.FromRequest(req))
}

func TestFromRequestHonorsForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")
	req.Header.Set("User-Agent", "test-agent")

	assert.Equal(t, identity.FromRequestMeta("198.51.100.9", "test-agent"), identity.FromRequest(req))
}

func TestHashIsDeterministicAndOpaque(t *testing.T) {
	a := identity.FromCookie("same-value")
	b := identity.FromCookie("same-value")
	c := identity.FromCookie("other-value")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestMiddlewareIssuesCookieAndStoresHash(t *testing.T) {
	var seen string
	handler := identity.Middleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = identity.HashFromContext(r.Context())
	}))

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(res, req)

	require.NotEmpty(t, seen)
	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, identity.CookieName, cookies[0].Name)
	assert.Equal(t, identity.FromCookie(cookies[0].Value), seen)
}

func TestMiddlewareKeepsExistingCookie(t *testing.T) {
	var seen string
	handler := identity.Middleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = identity.HashFromContext(r.Context())
	}))

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: identity.CookieName, Value: "visitor-2"})
	handler.ServeHTTP(res, req)

	assert.Equal(t, identity.FromCookie("visitor-2"), seen)
	assert.Empty(t, res.Result().Cookies())
}
