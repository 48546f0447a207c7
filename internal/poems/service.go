package poems

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shoiron/shoiron/internal/platform/db"
	"github.com/shoiron/shoiron/internal/reactions"
)

const (
	// heroText is the portal tagline shown on the public home payload.
	heroText = "Портали асарҳои шоирони классикӣ ва муосири форсу-тоҷик."

	homeCacheKey = "home_payload"
	homeCacheTTL = time.Minute

	topLimit = 5
)

// StatsPayload carries the public catalog counters.
type StatsPayload struct {
	AuthorsCount int `json:"authors_count"`
	PoemsCount   int `json:"poems_count"`
}

// HomePayload is the public home response, cached for a minute.
type HomePayload struct {
	HeroText   string      `json:"hero_text"`
	Stats      StatsPayload `json:"stats"`
	TopPoems   []ListItem  `json:"top_poems"`
	TopAuthors []TopAuthor `json:"top_authors"`
}

// Service implements public poem reads, the view counter and the admin CRUD.
type Service struct {
	pool   *pgxpool.Pool
	rdb    *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(pool *pgxpool.Pool, rdb *redis.Client, logger *slog.Logger) *Service {
	return &Service{pool: pool, rdb: rdb, logger: logger, now: time.Now}
}

// Home returns the cached public home payload, rebuilding it on a miss.
// Redis failures degrade to a direct rebuild.
func (s *Service) Home(ctx context.Context) (*HomePayload, error) {
	if raw, err := s.rdb.Get(ctx, homeCacheKey).Bytes(); err == nil {
		var payload HomePayload
		if err := json.Unmarshal(raw, &payload); err == nil {
			return &payload, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("home cache read failed", slog.Any("error", err))
	}

	return s.RefreshHome(ctx)
}

// RefreshHome rebuilds the home payload from the database and rewrites the
// cache entry. The background warmup job calls it ahead of expiry so visitors
// rarely pay for a rebuild.
func (s *Service) RefreshHome(ctx context.Context) (*HomePayload, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	topPoems, err := topPublicPoems(ctx, s.pool, topLimit)
	if err != nil {
		return nil, err
	}
	topAuthors, err := topPublicAuthors(ctx, s.pool, topLimit)
	if err != nil {
		return nil, err
	}

	payload := &HomePayload{
		HeroText:   heroText,
		Stats:      *stats,
		TopPoems:   topPoems,
		TopAuthors: topAuthors,
	}
	if raw, err := json.Marshal(payload); err == nil {
		if err := s.rdb.Set(ctx, homeCacheKey, raw, homeCacheTTL).Err(); err != nil {
			s.logger.Warn("home cache write failed", slog.Any("error", err))
		}
	}
	return payload, nil
}

// Stats returns the visible-catalog counters.
func (s *Service) Stats(ctx context.Context) (*StatsPayload, error) {
	poemsCount, err := countPublicPoems(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	authorsCount, err := countPublicAuthors(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	return &StatsPayload{AuthorsCount: authorsCount, PoemsCount: poemsCount}, nil
}

// Random picks one visible poem uniformly, in the list shape.
func (s *Service) Random(ctx context.Context) (*ListItem, error) {
	return fetchRandomPublic(ctx, s.pool)
}

// Detail returns a visible poem with the visitor's reaction summary attached.
func (s *Service) Detail(ctx context.Context, id int64, hash string) (*Detail, error) {
	detail, err := fetchPublicDetail(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	summary, err := reactions.Summarize(ctx, s.pool, id, hash)
	if err != nil {
		return nil, err
	}
	detail.Reactions = summary
	return detail, nil
}

// Neighbors returns the previous and next visible poem of the same author.
func (s *Service) Neighbors(ctx context.Context, poemID int64) (*Neighbors, error) {
	detail, err := fetchPublicDetail(ctx, s.pool, poemID)
	if err != nil {
		return nil, err
	}
	return fetchNeighbors(ctx, s.pool, detail.Author.ID, poemID)
}

// ListByAuthor pages the author's visible poems by id ascending.
func (s *Service) ListByAuthor(ctx context.Context, authorID int64, page, pageSize int) ([]ListItem, int, error) {
	visible, err := authorVisible(ctx, s.pool, authorID)
	if err != nil {
		return nil, 0, err
	}
	if !visible {
		return nil, 0, ErrNotFound
	}
	return listPublicByAuthor(ctx, s.pool, authorID, page, pageSize)
}

// RegisterView counts at most one view per visitor, poem and day. The daily
// row insert and the counter updates share one transaction, so two
// concurrent requests settle on one incremented total.
func (s *Service) RegisterView(ctx context.Context, poemID int64, hash string) (*ViewResult, error) {
	visible, err := poemVisible(ctx, s.pool, poemID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrNotFound
	}

	var result ViewResult
	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		result, err = registerView(&pgLedger{ctx: ctx, tx: tx}, poemID, hash, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// List pages poems for the dashboard.
func (s *Service) List(ctx context.Context, query ListQuery) ([]AdminPoem, int, error) {
	return listAdmin(ctx, s.pool, query)
}

// ListForAuthor pages a single author's poems for the dashboard. The author
// may be trashed; a missing author is a 404.
func (s *Service) ListForAuthor(ctx context.Context, authorID int64, query ListQuery) ([]AdminPoem, int, error) {
	exists, err := authorExists(ctx, s.pool, authorID)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, ErrNotFound
	}
	query.AuthorID = authorID
	return listAdmin(ctx, s.pool, query)
}

// Get returns one poem in any trash state.
func (s *Service) Get(ctx context.Context, id int64) (*AdminPoem, error) {
	return getAdmin(ctx, s.pool, id)
}

// Create inserts a poem under a live author.
func (s *Service) Create(ctx context.Context, in CreateInput) (*AdminPoem, error) {
	var id int64
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		live, err := authorLive(ctx, tx, in.AuthorID)
		if err != nil {
			return err
		}
		if !live {
			return ErrAuthorUnavailable
		}
		id, err = insertPoem(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return getAdmin(ctx, s.pool, id)
}

// Update applies a partial update; moving the poem to another author
// requires that author to be live.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*AdminPoem, error) {
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		current, err := getAdmin(ctx, tx, id)
		if err != nil {
			return err
		}

		authorID := current.Author.ID
		if in.AuthorID != nil && *in.AuthorID != authorID {
			live, err := authorLive(ctx, tx, *in.AuthorID)
			if err != nil {
				return err
			}
			if !live {
				return ErrAuthorUnavailable
			}
			authorID = *in.AuthorID
		}
		title := current.Title
		if in.Title != nil {
			title = *in.Title
		}
		text := current.Text
		if in.Text != nil {
			text = *in.Text
		}
		isPublished := current.IsPublished
		if in.IsPublished != nil {
			isPublished = *in.IsPublished
		}
		return updatePoem(ctx, tx, id, authorID, title, text, isPublished)
	})
	if err != nil {
		return nil, err
	}
	return getAdmin(ctx, s.pool, id)
}

// Delete moves a live poem to the trash.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		current, err := getAdmin(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.DeletedAt != nil {
			return ErrNotFound
		}
		return softDeletePoem(ctx, tx, id, s.now())
	})
}

// Restore brings a trashed poem back.
func (s *Service) Restore(ctx context.Context, id int64) (*AdminPoem, error) {
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		current, err := getAdmin(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.DeletedAt == nil {
			return ErrNotFound
		}
		return restorePoem(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	return getAdmin(ctx, s.pool, id)
}

// HardDelete removes a poem permanently, along with its view and reaction
// rows via the schema's cascades.
func (s *Service) HardDelete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := getAdmin(ctx, tx, id); err != nil {
			return err
		}
		return hardDeletePoem(ctx, tx, id)
	})
}
