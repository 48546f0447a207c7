// Package ratelimit throttles public endpoints per visitor identity. Window
// state lives in Redis so limits hold across server processes.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Scope names a throttled endpoint family.
type Scope string

const (
	ScopeReactions Scope = "reactions"
	ScopeViews     Scope = "views"
	ScopeSearch    Scope = "search"
)

// Rule configures one scope's window.
type Rule struct {
	Scope  Scope
	Limit  int
	Window time.Duration
}

// Limiter is a fixed-window counter with atomic increment-and-check.
type Limiter struct {
	client *redis.Client
	logger *slog.Logger
}

// NewLimiter constructs a Limiter.
func NewLimiter(client *redis.Client, logger *slog.Logger) *Limiter {
	return &Limiter{client: client, logger: logger}
}

// Allow registers one request for (rule.Scope, ident) and reports whether it
// fits the window. INCR and EXPIRE run in one pipeline; the expiry is only
// set when the key is fresh, so the window does not slide on every hit.
func (l *Limiter) Allow(ctx context.Context, rule Rule, ident string) (bool, error) {
	if ident == "" {
		return true, nil
	}
	key := fmt.Sprintf("throttle:%s:%s", rule.Scope, ident)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, rule.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("ratelimit: %w", err)
	}
	return incr.Val() <= int64(rule.Limit), nil
}
