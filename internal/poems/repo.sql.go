package poems

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shoiron/shoiron/internal/platform/db"
	"github.com/shoiron/shoiron/internal/shared"
)

// visibleSQL is the public visibility filter: the poem and its author must
// both be live and published. Aliases p (poems) and a (authors).
const visibleSQL = `p.deleted_at IS NULL AND p.is_published = TRUE
	AND a.deleted_at IS NULL AND a.is_published = TRUE`

const publicColumns = `p.id, p.title, p.text, p.views, a.id, a.full_name`

const publicFrom = ` FROM poems p JOIN authors a ON a.id = p.author_id `

type publicRow struct {
	id             int64
	title          string
	text           string
	views          int64
	authorID       int64
	authorFullName string
}

func (r publicRow) listItem() ListItem {
	slug, urlSlug := poemSlug(r.id, r.title)
	return ListItem{
		ID:      r.id,
		Title:   r.title,
		Preview: preview(r.text),
		Author:  AuthorRef{ID: r.authorID, FullName: r.authorFullName, Slug: authorSlug(r.authorFullName)},
		Views:   r.views,
		Slug:    slug,
		URLSlug: urlSlug,
	}
}

func (r publicRow) detail() *Detail {
	slug, urlSlug := poemSlug(r.id, r.title)
	return &Detail{
		ID:      r.id,
		Title:   r.title,
		Text:    r.text,
		Author:  AuthorRef{ID: r.authorID, FullName: r.authorFullName, Slug: authorSlug(r.authorFullName)},
		Views:   r.views,
		Slug:    slug,
		URLSlug: urlSlug,
	}
}

func scanPublicRow(row pgx.Row) (publicRow, error) {
	var r publicRow
	err := row.Scan(&r.id, &r.title, &r.text, &r.views, &r.authorID, &r.authorFullName)
	return r, err
}

func fetchPublicDetail(ctx context.Context, q db.Querier, id int64) (*Detail, error) {
	row, err := scanPublicRow(q.QueryRow(ctx,
		`SELECT `+publicColumns+publicFrom+`WHERE p.id = $1 AND `+visibleSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("poems: fetch detail: %w", err)
	}
	return row.detail(), nil
}

func fetchRandomPublic(ctx context.Context, q db.Querier) (*ListItem, error) {
	row, err := scanPublicRow(q.QueryRow(ctx,
		`SELECT `+publicColumns+publicFrom+`WHERE `+visibleSQL+` ORDER BY random() LIMIT 1`))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("poems: random: %w", err)
	}
	item := row.listItem()
	return &item, nil
}

func listPublicByAuthor(ctx context.Context, q db.Querier, authorID int64, page, pageSize int) ([]ListItem, int, error) {
	var total int
	err := q.QueryRow(ctx, `SELECT count(*)`+publicFrom+`WHERE p.author_id = $1 AND `+visibleSQL, authorID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("poems: count by author: %w", err)
	}

	rows, err := q.Query(ctx, `SELECT `+publicColumns+publicFrom+
		`WHERE p.author_id = $1 AND `+visibleSQL+` ORDER BY p.id LIMIT $2 OFFSET $3`,
		authorID, pageSize, shared.Offset(page, pageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("poems: list by author: %w", err)
	}
	defer rows.Close()

	items := make([]ListItem, 0, pageSize)
	for rows.Next() {
		r, err := scanPublicRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("poems: scan: %w", err)
		}
		items = append(items, r.listItem())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("poems: list by author: %w", err)
	}
	return items, total, nil
}

func topPublicPoems(ctx context.Context, q db.Querier, limit int) ([]ListItem, error) {
	rows, err := q.Query(ctx, `SELECT `+publicColumns+publicFrom+
		`WHERE `+visibleSQL+` ORDER BY p.views DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("poems: top poems: %w", err)
	}
	defer rows.Close()

	items := []ListItem{}
	for rows.Next() {
		r, err := scanPublicRow(rows)
		if err != nil {
			return nil, fmt.Errorf("poems: scan: %w", err)
		}
		items = append(items, r.listItem())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("poems: top poems: %w", err)
	}
	return items, nil
}

func countPublicPoems(ctx context.Context, q db.Querier) (int, error) {
	var total int
	err := q.QueryRow(ctx, `SELECT count(*)`+publicFrom+`WHERE `+visibleSQL).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("poems: count public: %w", err)
	}
	return total, nil
}

func countPublicAuthors(ctx context.Context, q db.Querier) (int, error) {
	var total int
	err := q.QueryRow(ctx, `SELECT count(*) FROM authors
		WHERE deleted_at IS NULL AND is_published = TRUE`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("poems: count authors: %w", err)
	}
	return total, nil
}

func topPublicAuthors(ctx context.Context, q db.Querier, limit int) ([]TopAuthor, error) {
	rows, err := q.Query(ctx, `SELECT a.id, a.full_name, a.birth_year, a.death_year, a.photo_url,
			count(p.id) AS poems_count, COALESCE(sum(p.views), 0) AS popularity
		`+publicFrom+`WHERE `+visibleSQL+`
		GROUP BY a.id ORDER BY popularity DESC, a.full_name ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("poems: top authors: %w", err)
	}
	defer rows.Close()

	items := []TopAuthor{}
	for rows.Next() {
		var a TopAuthor
		if err := rows.Scan(&a.ID, &a.FullName, &a.BirthYear, &a.DeathYear, &a.PhotoURL, &a.PoemsCount, &a.Popularity); err != nil {
			return nil, fmt.Errorf("poems: scan author: %w", err)
		}
		a.Slug = authorSlug(a.FullName)
		a.URLSlug = shared.URLSlug(a.ID, a.Slug)
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("poems: top authors: %w", err)
	}
	return items, nil
}

func poemVisible(ctx context.Context, q db.Querier, poemID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (
			SELECT 1`+publicFrom+`WHERE p.id = $1 AND `+visibleSQL+`
		)`, poemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("poems: poem lookup: %w", err)
	}
	return exists, nil
}

func authorVisible(ctx context.Context, q db.Querier, authorID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (
			SELECT 1 FROM authors WHERE id = $1 AND deleted_at IS NULL AND is_published = TRUE
		)`, authorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("poems: author lookup: %w", err)
	}
	return exists, nil
}

func fetchNeighbors(ctx context.Context, q db.Querier, authorID, poemID int64) (*Neighbors, error) {
	fetch := func(cmp, order string) (*Neighbor, error) {
		row := q.QueryRow(ctx, `SELECT p.id, p.title`+publicFrom+
			`WHERE p.author_id = $1 AND `+visibleSQL+` AND p.id `+cmp+` $2 ORDER BY p.id `+order+` LIMIT 1`,
			authorID, poemID)
		var n Neighbor
		if err := row.Scan(&n.ID, &n.Title); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("poems: neighbor: %w", err)
		}
		_, n.URLSlug = poemSlug(n.ID, n.Title)
		return &n, nil
	}

	prev, err := fetch("<", "DESC")
	if err != nil {
		return nil, err
	}
	next, err := fetch(">", "ASC")
	if err != nil {
		return nil, err
	}
	return &Neighbors{Prev: prev, Next: next}, nil
}

// SearchPublic matches visible poems against a prefix tsquery with ILIKE and
// trigram fallbacks, ranked by text rank, similarity, then views. rawQuery is
// the caller-assembled "token:* & token:*" expression.
func SearchPublic(ctx context.Context, q db.Querier, rawQuery, term string, limit, offset int) ([]ListItem, int, error) {
	where := `WHERE ` + visibleSQL + ` AND (
			p.search_vector @@ to_tsquery('simple', $1)
			OR p.title ILIKE $2 OR p.text ILIKE $2 OR p.title % $3
		)`
	like := "%" + term + "%"

	var total int
	err := q.QueryRow(ctx, `SELECT count(*)`+publicFrom+where, rawQuery, like, term).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("poems: search count: %w", err)
	}

	rows, err := q.Query(ctx, `SELECT `+publicColumns+publicFrom+where+`
		ORDER BY ts_rank(p.search_vector, to_tsquery('simple', $1)) DESC,
			greatest(similarity(p.title, $3), similarity(p.text, $3)) DESC,
			p.views DESC
		LIMIT $4 OFFSET $5`, rawQuery, like, term, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("poems: search: %w", err)
	}
	defer rows.Close()

	items := []ListItem{}
	for rows.Next() {
		r, err := scanPublicRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("poems: scan: %w", err)
		}
		items = append(items, r.listItem())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("poems: search: %w", err)
	}
	return items, total, nil
}

const adminColumns = `p.id, p.title, p.text, p.is_published, p.views,
	p.created_at, p.updated_at, p.deleted_at,
	a.id, a.full_name, a.is_published, a.deleted_at`

func scanAdminPoem(row pgx.Row) (AdminPoem, error) {
	var p AdminPoem
	err := row.Scan(&p.ID, &p.Title, &p.Text, &p.IsPublished, &p.Views,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
		&p.Author.ID, &p.Author.FullName, &p.Author.IsPublished, &p.Author.DeletedAt)
	return p, err
}

func listAdmin(ctx context.Context, q db.Querier, query ListQuery) ([]AdminPoem, int, error) {
	where := ""
	args := []any{}
	and := func(cond string) {
		if where == "" {
			where = " WHERE " + cond
			return
		}
		where += " AND " + cond
	}

	switch shared.ParseTrash(query.Trash) {
	case shared.TrashOnly:
		and("p.deleted_at IS NOT NULL")
	case shared.TrashActive:
		and("p.deleted_at IS NULL")
	}
	switch shared.ParsePublished(query.Published) {
	case shared.PublishedOnly:
		and("p.is_published = TRUE")
	case shared.UnpublishedOnly:
		and("p.is_published = FALSE")
	}
	if query.Q != "" {
		args = append(args, "%"+query.Q+"%")
		and(fmt.Sprintf("(p.title ILIKE $%d OR p.text ILIKE $%d)", len(args), len(args)))
	}
	if query.AuthorID > 0 {
		args = append(args, query.AuthorID)
		and(fmt.Sprintf("p.author_id = $%d", len(args)))
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT count(*)`+publicFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("poems: admin count: %w", err)
	}

	order := shared.SortExpr(query.Sort, map[string]string{
		"alphabetic": "p.title ASC",
		"oldest":     "p.created_at ASC",
		"newest":     "p.created_at DESC",
	}, "p.created_at DESC")

	args = append(args, query.PageSize, shared.Offset(query.Page, query.PageSize))
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s%s%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		adminColumns, publicFrom, where, order, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("poems: admin list: %w", err)
	}
	defer rows.Close()

	items := make([]AdminPoem, 0, query.PageSize)
	for rows.Next() {
		p, err := scanAdminPoem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("poems: scan admin: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("poems: admin list: %w", err)
	}
	return items, total, nil
}

func getAdmin(ctx context.Context, q db.Querier, id int64) (*AdminPoem, error) {
	p, err := scanAdminPoem(q.QueryRow(ctx, `SELECT `+adminColumns+publicFrom+`WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("poems: admin get: %w", err)
	}
	return &p, nil
}

// ListAdminByAuthor returns the author's live poems, newest first, for the
// author admin detail payload.
func ListAdminByAuthor(ctx context.Context, q db.Querier, authorID int64) ([]AdminPoem, error) {
	rows, err := q.Query(ctx, `SELECT `+adminColumns+publicFrom+
		`WHERE p.author_id = $1 AND p.deleted_at IS NULL ORDER BY p.created_at DESC`, authorID)
	if err != nil {
		return nil, fmt.Errorf("poems: list by author: %w", err)
	}
	defer rows.Close()

	items := []AdminPoem{}
	for rows.Next() {
		p, err := scanAdminPoem(rows)
		if err != nil {
			return nil, fmt.Errorf("poems: scan admin: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("poems: list by author: %w", err)
	}
	return items, nil
}

func authorExists(ctx context.Context, q db.Querier, authorID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM authors WHERE id = $1)`, authorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("poems: author lookup: %w", err)
	}
	return exists, nil
}

func authorLive(ctx context.Context, q db.Querier, authorID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (
			SELECT 1 FROM authors WHERE id = $1 AND deleted_at IS NULL
		)`, authorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("poems: author lookup: %w", err)
	}
	return exists, nil
}

func insertPoem(ctx context.Context, q db.Querier, in CreateInput) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `INSERT INTO poems (author_id, title, text, is_published, views, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, now(), now()) RETURNING id`,
		in.AuthorID, in.Title, in.Text, in.IsPublished).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("poems: insert: %w", err)
	}
	return id, nil
}

func updatePoem(ctx context.Context, q db.Querier, id, authorID int64, title, text string, isPublished bool) error {
	_, err := q.Exec(ctx, `UPDATE poems
		SET author_id = $2, title = $3, text = $4, is_published = $5, updated_at = now()
		WHERE id = $1`, id, authorID, title, text, isPublished)
	if err != nil {
		return fmt.Errorf("poems: update: %w", err)
	}
	return nil
}

func softDeletePoem(ctx context.Context, q db.Querier, id int64, at time.Time) error {
	_, err := q.Exec(ctx, `UPDATE poems SET deleted_at = $2, updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("poems: soft delete: %w", err)
	}
	return nil
}

func restorePoem(ctx context.Context, q db.Querier, id int64) error {
	_, err := q.Exec(ctx, `UPDATE poems SET deleted_at = NULL, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("poems: restore: %w", err)
	}
	return nil
}

func hardDeletePoem(ctx context.Context, q db.Querier, id int64) error {
	_, err := q.Exec(ctx, `DELETE FROM poems WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("poems: hard delete: %w", err)
	}
	return nil
}

// pgLedger implements viewLedger on one transaction.
type pgLedger struct {
	ctx context.Context
	tx  pgx.Tx
}

// Insert claims the (poem, visitor, day) row. The unique constraint decides
// the winner; a violation rolls back only the savepoint and reads as "seen
// today already".
func (l *pgLedger) Insert(poemID int64, hash string, day time.Time) (bool, error) {
	inner, err := l.tx.Begin(l.ctx)
	if err != nil {
		return false, fmt.Errorf("poems: savepoint: %w", err)
	}
	_, err = inner.Exec(l.ctx, `INSERT INTO poem_views (poem_id, user_hash, viewed_date, created_at)
		VALUES ($1, $2, $3, now())`, poemID, hash, day)
	if err != nil {
		_ = inner.Rollback(l.ctx)
		if db.UniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("poems: insert view: %w", err)
	}
	if err := inner.Commit(l.ctx); err != nil {
		return false, fmt.Errorf("poems: savepoint commit: %w", err)
	}
	return true, nil
}

func (l *pgLedger) Increment(poemID int64, month time.Time) error {
	if _, err := l.tx.Exec(l.ctx, `UPDATE poems SET views = views + 1 WHERE id = $1`, poemID); err != nil {
		return fmt.Errorf("poems: increment views: %w", err)
	}
	_, err := l.tx.Exec(l.ctx, `INSERT INTO poem_monthly_visits (poem_id, month_start, visits_count, created_at, updated_at)
		VALUES ($1, $2, 1, now(), now())
		ON CONFLICT (poem_id, month_start)
		DO UPDATE SET visits_count = poem_monthly_visits.visits_count + 1, updated_at = now()`,
		poemID, month)
	if err != nil {
		return fmt.Errorf("poems: increment monthly: %w", err)
	}
	return nil
}

func (l *pgLedger) Total(poemID int64) (int64, error) {
	var views int64
	if err := l.tx.QueryRow(l.ctx, `SELECT views FROM poems WHERE id = $1`, poemID).Scan(&views); err != nil {
		return 0, fmt.Errorf("poems: total views: %w", err)
	}
	return views, nil
}
