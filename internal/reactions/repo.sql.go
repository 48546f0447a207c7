package reactions

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shoiron/shoiron/internal/platform/db"
)

// CountsByType returns the reaction totals for a poem, with every type
// present in the map.
func CountsByType(ctx context.Context, q db.Querier, poemID int64) (map[Type]int, error) {
	counts := make(map[Type]int, len(Types()))
	for _, t := range Types() {
		counts[t] = 0
	}
	rows, err := q.Query(ctx, `SELECT type, count(*) FROM reactions WHERE poem_id = $1 GROUP BY type`, poemID)
	if err != nil {
		return nil, fmt.Errorf("reactions: counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t Type
		var c int
		if err := rows.Scan(&t, &c); err != nil {
			return nil, fmt.Errorf("reactions: scan count: %w", err)
		}
		if ValidType(t) {
			counts[t] = c
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reactions: counts: %w", err)
	}
	return counts, nil
}

// FlagsFor returns which types the visitor currently holds on a poem.
func FlagsFor(ctx context.Context, q db.Querier, poemID int64, hash string) (map[Type]bool, error) {
	flags := make(map[Type]bool, len(Types()))
	for _, t := range Types() {
		flags[t] = false
	}
	if hash == "" {
		return flags, nil
	}
	rows, err := q.Query(ctx, `SELECT type FROM reactions WHERE poem_id = $1 AND user_hash = $2`, poemID, hash)
	if err != nil {
		return nil, fmt.Errorf("reactions: flags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t Type
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("reactions: scan flag: %w", err)
		}
		if ValidType(t) {
			flags[t] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reactions: flags: %w", err)
	}
	return flags, nil
}

// Summarize recomputes the full summary for a poem and visitor.
func Summarize(ctx context.Context, q db.Querier, poemID int64, hash string) (*Summary, error) {
	counts, err := CountsByType(ctx, q, poemID)
	if err != nil {
		return nil, err
	}
	flags, err := FlagsFor(ctx, q, poemID, hash)
	if err != nil {
		return nil, err
	}
	return &Summary{CountsByType: counts, UserFlagsByType: flags}, nil
}

func poemExists(ctx context.Context, q db.Querier, poemID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM poems WHERE id = $1)`, poemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("reactions: poem lookup: %w", err)
	}
	return exists, nil
}

// pgStore runs the toggle mutations on one transaction.
type pgStore struct {
	ctx context.Context
	tx  pgx.Tx
}

func (s *pgStore) Has(poemID int64, hash string, t Type) (bool, error) {
	var exists bool
	err := s.tx.QueryRow(s.ctx, `SELECT EXISTS (
			SELECT 1 FROM reactions WHERE poem_id = $1 AND user_hash = $2 AND type = $3
		)`, poemID, hash, string(t)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("reactions: lookup: %w", err)
	}
	return exists, nil
}

func (s *pgStore) Delete(poemID int64, hash string, t Type) error {
	_, err := s.tx.Exec(s.ctx, `DELETE FROM reactions
		WHERE poem_id = $1 AND user_hash = $2 AND type = $3`, poemID, hash, string(t))
	if err != nil {
		return fmt.Errorf("reactions: delete: %w", err)
	}
	return nil
}

func (s *pgStore) DeleteOthers(poemID int64, hash string, keep Type) error {
	_, err := s.tx.Exec(s.ctx, `DELETE FROM reactions
		WHERE poem_id = $1 AND user_hash = $2 AND type <> $3`, poemID, hash, string(keep))
	if err != nil {
		return fmt.Errorf("reactions: delete others: %w", err)
	}
	return nil
}

// Insert adds the reaction row. A concurrent identical insert surfaces as a
// unique violation on the savepoint and reads as "already present".
func (s *pgStore) Insert(poemID int64, hash string, t Type) error {
	inner, err := s.tx.Begin(s.ctx)
	if err != nil {
		return fmt.Errorf("reactions: savepoint: %w", err)
	}
	_, err = inner.Exec(s.ctx, `INSERT INTO reactions (poem_id, type, user_hash, created_at)
		VALUES ($1, $2, $3, now())`, poemID, string(t), hash)
	if err != nil {
		_ = inner.Rollback(s.ctx)
		if db.UniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("reactions: insert: %w", err)
	}
	return inner.Commit(s.ctx)
}
