package ratelimit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoiron/shoiron/internal/identity"
	"github.com/shoiron/shoiron/internal/ratelimit"
)

func newLimiter(t *testing.T) (*ratelimit.Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return ratelimit.NewLimiter(client, nil), mr
}

func TestAllowWithinLimit(t *testing.T) {
	limiter, _ := newLimiter(t)
	rule := ratelimit.Rule{Scope: ratelimit.ScopeSearch, Limit: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(context.Background(), rule, "visitor-a")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i+1)
	}
	ok, err := limiter.Allow(context.Background(), rule, "visitor-a")
	require.NoError(t, err)
	assert.False(t, ok, "fourth request should be throttled")
}

func TestLimitIsPerIdentity(t *testing.T) {
	limiter, _ := newLimiter(t)
	rule := ratelimit.Rule{Scope: ratelimit.ScopeReactions, Limit: 1, Window: time.Minute}

	ok, err := limiter.Allow(context.Background(), rule, "visitor-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.Allow(context.Background(), rule, "visitor-b")
	require.NoError(t, err)
	assert.True(t, ok, "another identity has its own window")
}

func TestWindowExpires(t *testing.T) {
	limiter, mr := newLimiter(t)
	rule := ratelimit.Rule{Scope: ratelimit.ScopeViews, Limit: 1, Window: time.Minute}

	ok, err := limiter.Allow(context.Background(), rule, "visitor-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.Allow(context.Background(), rule, "visitor-a")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(time.Minute + time.Second)

	ok, err = limiter.Allow(context.Background(), rule, "visitor-a")
	require.NoError(t, err)
	assert.True(t, ok, "window should reset after expiry")
}

func TestEmptyIdentityIsNotThrottled(t *testing.T) {
	limiter, _ := newLimiter(t)
	rule := ratelimit.Rule{Scope: ratelimit.ScopeSearch, Limit: 1, Window: time.Minute}

	for i := 0; i < 5; i++ {
		ok, err := limiter.Allow(context.Background(), rule, "")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestThrottleMiddlewareRejectsBeforeHandler(t *testing.T) {
	limiter, _ := newLimiter(t)
	rule := ratelimit.Rule{Scope: ratelimit.ScopeReactions, Limit: 1, Window: time.Minute}

	calls := 0
	handler := limiter.Throttle(rule, ratelimit.ByIdentity)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/reactions/toggle", nil)
		req = req.WithContext(identity.ContextWithHash(req.Context(), "visitor-a"))
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		return res.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
	assert.Equal(t, 1, calls, "throttled request must not reach the handler")
}

func TestThrottlePerItemKey(t *testing.T) {
	limiter, _ := newLimiter(t)
	rule := ratelimit.Rule{Scope: ratelimit.ScopeViews, Limit: 1, Window: time.Minute}

	router := chi.NewRouter()
	router.With(limiter.Throttle(rule, ratelimit.ByIdentityAndParam("id"))).
		Post("/poems/{id}/view", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

	do := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req = req.WithContext(identity.ContextWithHash(req.Context(), "visitor-a"))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		return res.Code
	}

	assert.Equal(t, http.StatusOK, do("/poems/1/view"))
	assert.Equal(t, http.StatusTooManyRequests, do("/poems/1/view"))
	// A different item has its own window for the same visitor.
	assert.Equal(t, http.StatusOK, do("/poems/2/view"))
}
