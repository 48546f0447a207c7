package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingQuerier captures the SQL handed to it and fails the call, so
// tests can assert on query shape without a database.
type recordingQuerier struct {
	queries []string
}

func (q *recordingQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (q *recordingQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.queries = append(q.queries, sql)
	return nil, errors.New("recorded")
}

func (q *recordingQuerier) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	q.queries = append(q.queries, sql)
	return nil
}

func TestFetchActiveProfilesLocksCountedRows(t *testing.T) {
	q := &recordingQuerier{}
	_, err := FetchActiveProfiles(context.Background(), q)
	require.Error(t, err)
	require.Len(t, q.queries, 1)

	sql := q.queries[0]
	// Without the row locks two concurrent demotions each count the other
	// admin from their own snapshot and both commit.
	assert.Contains(t, sql, "FOR UPDATE OF du")
	assert.Contains(t, sql, "du.deleted_at IS NULL AND du.is_active = TRUE")
}
