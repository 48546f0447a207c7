package authors

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoiron/shoiron/internal/platform/db"
	"github.com/shoiron/shoiron/internal/poems"
)

const defaultRandomLimit = 5

// Service implements public author reads and the admin CRUD.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{pool: pool, logger: logger, now: time.Now}
}

// ListPublic pages the visible authors.
func (s *Service) ListPublic(ctx context.Context, query PublicQuery) ([]PublicAuthor, int, error) {
	return listPublic(ctx, s.pool, query)
}

// DetailPublic returns one visible author with the biography.
func (s *Service) DetailPublic(ctx context.Context, id int64) (*PublicDetail, error) {
	return fetchPublicDetail(ctx, s.pool, id)
}

// RandomPublic samples visible authors, optionally excluding one id.
func (s *Service) RandomPublic(ctx context.Context, limit int, exclude int64) ([]PublicAuthor, error) {
	if limit <= 0 {
		limit = defaultRandomLimit
	}
	return listRandomPublic(ctx, s.pool, limit, exclude)
}

// List pages authors for the dashboard.
func (s *Service) List(ctx context.Context, query ListQuery) ([]AdminAuthor, int, error) {
	return listAdmin(ctx, s.pool, query)
}

// Get returns one author in any trash state with its live poems embedded.
func (s *Service) Get(ctx context.Context, id int64) (*AdminAuthor, error) {
	author, err := getAdmin(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	author.Poems, err = poems.ListAdminByAuthor(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	return author, nil
}

// Create inserts an author.
func (s *Service) Create(ctx context.Context, in CreateInput) (*AdminAuthor, error) {
	id, err := insertAuthor(ctx, s.pool, in)
	if err != nil {
		return nil, err
	}
	return getAdmin(ctx, s.pool, id)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*AdminAuthor, error) {
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		current, err := getAdmin(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.FullName != nil {
			current.FullName = *in.FullName
		}
		if in.BirthYear != nil {
			current.BirthYear = in.BirthYear
		}
		if in.DeathYear != nil {
			current.DeathYear = in.DeathYear
		}
		if in.BiographyMD != nil {
			current.BiographyMD = in.BiographyMD
		}
		if in.PhotoURL != nil {
			current.PhotoURL = in.PhotoURL
		}
		if in.IsPublished != nil {
			current.IsPublished = *in.IsPublished
		}
		return updateAuthor(ctx, tx, current)
	})
	if err != nil {
		return nil, err
	}
	return getAdmin(ctx, s.pool, id)
}

// Delete trashes a live author and cascades over its live poems, all in one
// transaction so the catalog never shows a poem of a trashed author.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		current, err := getAdmin(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.DeletedAt != nil {
			return ErrNotFound
		}
		return softDeleteAuthor(ctx, tx, id, s.now())
	})
}

// Restore untrashes an author and brings its trashed poems back with it.
func (s *Service) Restore(ctx context.Context, id int64) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		current, err := getAdmin(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.DeletedAt == nil {
			return ErrNotFound
		}
		return restoreAuthor(ctx, tx, id)
	})
}

// HardDelete removes an author permanently with everything hanging off it.
func (s *Service) HardDelete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := getAdmin(ctx, tx, id); err != nil {
			return err
		}
		return hardDeleteAuthor(ctx, tx, id)
	})
}
