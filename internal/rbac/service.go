package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Service evaluates dashboard access. Role and soft-delete state are read
// fresh from storage on every call; there is no cross-request cache.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// LoadAccess resolves and evaluates the principal behind a dashboard user
// ID. A zero ID means no authenticated principal.
func (s *Service) LoadAccess(ctx context.Context, userID int64) (Access, error) {
	if userID <= 0 {
		return Denied(ReasonAuthRequired), nil
	}
	profile, err := FetchProfile(ctx, s.pool, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Evaluate(nil), nil
		}
		return Access{}, err
	}
	return Evaluate(profile), nil
}
