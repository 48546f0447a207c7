package reactions

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoiron/shoiron/internal/platform/db"
)

// Service implements the reaction toggle.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{pool: pool, logger: logger}
}

// Toggle flips the visitor's reaction of the given type on a poem and
// returns the freshly recomputed summary. The delete-then-insert sequence
// runs in one transaction so partial states are never visible.
func (s *Service) Toggle(ctx context.Context, poemID int64, hash string, t Type) (*Summary, error) {
	if !ValidType(t) {
		return nil, ErrInvalidType
	}
	exists, err := poemExists(ctx, s.pool, poemID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPoemNotFound
	}

	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return toggle(&pgStore{ctx: ctx, tx: tx}, poemID, hash, t)
	})
	if err != nil {
		return nil, err
	}
	return Summarize(ctx, s.pool, poemID, hash)
}
