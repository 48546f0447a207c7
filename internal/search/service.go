package search

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/shoiron/shoiron/internal/authors"
	"github.com/shoiron/shoiron/internal/platform/httpx"
	"github.com/shoiron/shoiron/internal/poems"
	"github.com/shoiron/shoiron/internal/shared"
)

// Result carries the two independently paginated envelopes.
type Result struct {
	Authors httpx.Page `json:"authors"`
	Poems   httpx.Page `json:"poems"`
}

// Service runs the author and poem searches.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a Service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Search queries authors and poems concurrently. A blank or tokenless query
// returns empty envelopes rather than an error.
func (s *Service) Search(ctx context.Context, q string, page, pageSize int) (*Result, error) {
	q = strings.TrimSpace(q)
	rawQuery := buildQuery(q)
	if rawQuery == "" {
		return &Result{
			Authors: httpx.Paginated([]authors.PublicAuthor{}, 0, page, pageSize),
			Poems:   httpx.Paginated([]poems.ListItem{}, 0, page, pageSize),
		}, nil
	}

	offset := shared.Offset(page, pageSize)
	var (
		authorItems  []authors.PublicAuthor
		authorsTotal int
		poemItems    []poems.ListItem
		poemsTotal   int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		authorItems, authorsTotal, err = authors.SearchPublic(gctx, s.pool, rawQuery, q, pageSize, offset)
		return err
	})
	g.Go(func() error {
		var err error
		poemItems, poemsTotal, err = poems.SearchPublic(gctx, s.pool, rawQuery, q, pageSize, offset)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Result{
		Authors: httpx.Paginated(authorItems, authorsTotal, page, pageSize),
		Poems:   httpx.Paginated(poemItems, poemsTotal, page, pageSize),
	}, nil
}
