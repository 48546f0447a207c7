package authors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shoiron/shoiron/internal/platform/db"
	"github.com/shoiron/shoiron/internal/shared"
)

// Public payload aggregates only count the author's visible poems.
const publicAggSQL = `(SELECT count(*) FROM poems p
		WHERE p.author_id = a.id AND p.deleted_at IS NULL AND p.is_published = TRUE) AS poems_count,
	(SELECT COALESCE(sum(p.views), 0) FROM poems p
		WHERE p.author_id = a.id AND p.deleted_at IS NULL AND p.is_published = TRUE) AS popularity`

const publicVisibleSQL = `a.deleted_at IS NULL AND a.is_published = TRUE`

func scanPublicAuthor(row pgx.Row) (PublicAuthor, error) {
	var a PublicAuthor
	err := row.Scan(&a.ID, &a.FullName, &a.BirthYear, &a.DeathYear, &a.PhotoURL, &a.PoemsCount, &a.Popularity)
	if err != nil {
		return a, err
	}
	a.Slug, a.URLSlug = slugPair(a.ID, a.FullName)
	return a, nil
}

func listPublic(ctx context.Context, q db.Querier, query PublicQuery) ([]PublicAuthor, int, error) {
	where := ` WHERE ` + publicVisibleSQL
	args := []any{}
	if query.Q != "" {
		args = append(args, "%"+query.Q+"%")
		where += fmt.Sprintf(" AND a.full_name ILIKE $%d", len(args))
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM authors a`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("authors: count: %w", err)
	}

	args = append(args, query.PageSize, shared.Offset(query.Page, query.PageSize))
	rows, err := q.Query(ctx, fmt.Sprintf(
		`SELECT a.id, a.full_name, a.birth_year, a.death_year, a.photo_url, %s
		 FROM authors a%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		publicAggSQL, where, publicOrderExpr(query.Ordering), len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("authors: list: %w", err)
	}
	defer rows.Close()

	items := make([]PublicAuthor, 0, query.PageSize)
	for rows.Next() {
		a, err := scanPublicAuthor(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("authors: scan: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("authors: list: %w", err)
	}
	return items, total, nil
}

func fetchPublicDetail(ctx context.Context, q db.Querier, id int64) (*PublicDetail, error) {
	row := q.QueryRow(ctx,
		`SELECT a.id, a.full_name, a.birth_year, a.death_year, a.photo_url, `+publicAggSQL+`, a.biography_md
		 FROM authors a WHERE a.id = $1 AND `+publicVisibleSQL, id)
	var d PublicDetail
	err := row.Scan(&d.ID, &d.FullName, &d.BirthYear, &d.DeathYear, &d.PhotoURL,
		&d.PoemsCount, &d.Popularity, &d.BiographyMD)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("authors: detail: %w", err)
	}
	d.Slug, d.URLSlug = slugPair(d.ID, d.FullName)
	return &d, nil
}

func listRandomPublic(ctx context.Context, q db.Querier, limit int, exclude int64) ([]PublicAuthor, error) {
	where := ` WHERE ` + publicVisibleSQL
	args := []any{}
	if exclude > 0 {
		args = append(args, exclude)
		where += fmt.Sprintf(" AND a.id <> $%d", len(args))
	}
	args = append(args, limit)
	rows, err := q.Query(ctx, fmt.Sprintf(
		`SELECT a.id, a.full_name, a.birth_year, a.death_year, a.photo_url, %s
		 FROM authors a%s ORDER BY random() LIMIT $%d`,
		publicAggSQL, where, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("authors: random: %w", err)
	}
	defer rows.Close()

	items := []PublicAuthor{}
	for rows.Next() {
		a, err := scanPublicAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("authors: scan: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("authors: random: %w", err)
	}
	return items, nil
}

// SearchPublic matches visible authors against a prefix tsquery with ILIKE
// and trigram fallbacks, ranked by text rank, name similarity, then
// popularity. rawQuery is the caller-assembled "token:* & token:*" expression.
func SearchPublic(ctx context.Context, q db.Querier, rawQuery, term string, limit, offset int) ([]PublicAuthor, int, error) {
	where := ` WHERE ` + publicVisibleSQL + ` AND (
			a.search_vector @@ to_tsquery('simple', $1)
			OR a.full_name ILIKE $2 OR a.full_name % $3
		)`
	like := "%" + term + "%"

	var total int
	err := q.QueryRow(ctx, `SELECT count(*) FROM authors a`+where, rawQuery, like, term).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("authors: search count: %w", err)
	}

	rows, err := q.Query(ctx,
		`SELECT a.id, a.full_name, a.birth_year, a.death_year, a.photo_url, `+publicAggSQL+`
		 FROM authors a`+where+`
		 ORDER BY ts_rank(a.search_vector, to_tsquery('simple', $1)) DESC,
			similarity(a.full_name, $3) DESC, popularity DESC
		 LIMIT $4 OFFSET $5`, rawQuery, like, term, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("authors: search: %w", err)
	}
	defer rows.Close()

	items := []PublicAuthor{}
	for rows.Next() {
		a, err := scanPublicAuthor(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("authors: scan: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("authors: search: %w", err)
	}
	return items, total, nil
}

// Admin payloads count all live poems regardless of published state.
const adminColumns = `a.id, a.full_name, a.birth_year, a.death_year, a.biography_md, a.photo_url,
	a.is_published, a.created_at, a.updated_at, a.deleted_at,
	(SELECT count(*) FROM poems p WHERE p.author_id = a.id AND p.deleted_at IS NULL) AS poems_count`

func scanAdminAuthor(row pgx.Row) (AdminAuthor, error) {
	var a AdminAuthor
	err := row.Scan(&a.ID, &a.FullName, &a.BirthYear, &a.DeathYear, &a.BiographyMD, &a.PhotoURL,
		&a.IsPublished, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt, &a.PoemsCount)
	return a, err
}

func listAdmin(ctx context.Context, q db.Querier, query ListQuery) ([]AdminAuthor, int, error) {
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
		and("a.deleted_at IS NOT NULL")
	case shared.TrashActive:
		and("a.deleted_at IS NULL")
	}
	switch shared.ParsePublished(query.Published) {
	case shared.PublishedOnly:
		and("a.is_published = TRUE")
	case shared.UnpublishedOnly:
		and("a.is_published = FALSE")
	}
	if query.Q != "" {
		args = append(args, "%"+query.Q+"%")
		and(fmt.Sprintf("a.full_name ILIKE $%d", len(args)))
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM authors a`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("authors: admin count: %w", err)
	}

	order := shared.SortExpr(query.Sort, map[string]string{
		"alphabetic": "a.full_name ASC",
		"oldest":     "a.created_at ASC",
		"newest":     "a.created_at DESC",
	}, "a.full_name ASC")

	args = append(args, query.PageSize, shared.Offset(query.Page, query.PageSize))
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s FROM authors a%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		adminColumns, where, order, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("authors: admin list: %w", err)
	}
	defer rows.Close()

	items := make([]AdminAuthor, 0, query.PageSize)
	for rows.Next() {
		a, err := scanAdminAuthor(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("authors: scan admin: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("authors: admin list: %w", err)
	}
	return items, total, nil
}

func getAdmin(ctx context.Context, q db.Querier, id int64) (*AdminAuthor, error) {
	a, err := scanAdminAuthor(q.QueryRow(ctx, `SELECT `+adminColumns+` FROM authors a WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("authors: admin get: %w", err)
	}
	return &a, nil
}

func insertAuthor(ctx context.Context, q db.Querier, in CreateInput) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `INSERT INTO authors
		(full_name, birth_year, death_year, biography_md, photo_url, is_published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now()) RETURNING id`,
		in.FullName, in.BirthYear, in.DeathYear, in.BiographyMD, in.PhotoURL, in.IsPublished).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("authors: insert: %w", err)
	}
	return id, nil
}

func updateAuthor(ctx context.Context, q db.Querier, a *AdminAuthor) error {
	_, err := q.Exec(ctx, `UPDATE authors
		SET full_name = $2, birth_year = $3, death_year = $4, biography_md = $5,
			photo_url = $6, is_published = $7, updated_at = now()
		WHERE id = $1`,
		a.ID, a.FullName, a.BirthYear, a.DeathYear, a.BiographyMD, a.PhotoURL, a.IsPublished)
	if err != nil {
		return fmt.Errorf("authors: update: %w", err)
	}
	return nil
}

// softDeleteAuthor trashes the author and every live poem with one shared
// timestamp, inside the caller's transaction.
func softDeleteAuthor(ctx context.Context, q db.Querier, id int64, at time.Time) error {
	if _, err := q.Exec(ctx, `UPDATE authors SET deleted_at = $2, updated_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("authors: soft delete: %w", err)
	}
	if _, err := q.Exec(ctx, `UPDATE poems SET deleted_at = $2, updated_at = $2
		WHERE author_id = $1 AND deleted_at IS NULL`, id, at); err != nil {
		return fmt.Errorf("authors: cascade soft delete: %w", err)
	}
	return nil
}

// restoreAuthor untrashes the author and all of its trashed poems.
func restoreAuthor(ctx context.Context, q db.Querier, id int64) error {
	if _, err := q.Exec(ctx, `UPDATE authors SET deleted_at = NULL, updated_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("authors: restore: %w", err)
	}
	if _, err := q.Exec(ctx, `UPDATE poems SET deleted_at = NULL, updated_at = now()
		WHERE author_id = $1 AND deleted_at IS NOT NULL`, id); err != nil {
		return fmt.Errorf("authors: cascade restore: %w", err)
	}
	return nil
}

func hardDeleteAuthor(ctx context.Context, q db.Querier, id int64) error {
	// Poems, views and reactions follow through the FK cascades.
	if _, err := q.Exec(ctx, `DELETE FROM authors WHERE id = $1`, id); err != nil {
		return fmt.Errorf("authors: hard delete: %w", err)
	}
	return nil
}
