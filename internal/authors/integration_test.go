//go:build integration

package authors_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoiron/shoiron/internal/authors"
	"github.com/shoiron/shoiron/internal/platform/db"
)

// testPool connects to the scratch database named by PG_TEST_DSN; the
// database must have scripts/schema.sql loaded.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("PG_TEST_DSN")
	if dsn == "" {
		t.Skip("PG_TEST_DSN not set")
	}
	pool, err := db.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func insertPoem(t *testing.T, pool *pgxpool.Pool, authorID int64, title string) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(), `INSERT INTO poems
		(author_id, title, text, is_published, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, now(), now()) RETURNING id`,
		authorID, title, "first line\nsecond line").Scan(&id)
	require.NoError(t, err)
	return id
}

func poemDeletedAt(t *testing.T, pool *pgxpool.Pool, id int64) *time.Time {
	t.Helper()
	var deletedAt *time.Time
	err := pool.QueryRow(context.Background(),
		`SELECT deleted_at FROM poems WHERE id = $1`, id).Scan(&deletedAt)
	require.NoError(t, err)
	return deletedAt
}

func TestDeleteCascadesAndRestoreRevives(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	svc := authors.NewService(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))

	author, err := svc.Create(ctx, authors.CreateInput{
		FullName:    "Cascade Poet " + uuid.NewString()[:8],
		IsPublished: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM authors WHERE id = $1`, author.ID)
	})

	first := insertPoem(t, pool, author.ID, "First poem")
	second := insertPoem(t, pool, author.ID, "Second poem")
	trashedEarlier := insertPoem(t, pool, author.ID, "Already trashed")
	_, err = pool.Exec(ctx, `UPDATE poems SET deleted_at = now() - interval '1 day' WHERE id = $1`, trashedEarlier)
	require.NoError(t, err)
	earlierStamp := poemDeletedAt(t, pool, trashedEarlier)
	require.NotNil(t, earlierStamp)

	require.NoError(t, svc.Delete(ctx, author.ID))

	trashed, err := svc.Get(ctx, author.ID)
	require.NoError(t, err)
	require.NotNil(t, trashed.DeletedAt)

	// Live poems fall with the author, in the same instant.
	for _, id := range []int64{first, second} {
		stamp := poemDeletedAt(t, pool, id)
		require.NotNil(t, stamp)
		assert.True(t, stamp.Equal(*trashed.DeletedAt), "poem %d trashed at %v, author at %v", id, stamp, trashed.DeletedAt)
	}
	// A poem trashed on its own keeps its original timestamp.
	kept := poemDeletedAt(t, pool, trashedEarlier)
	require.NotNil(t, kept)
	assert.True(t, kept.Equal(*earlierStamp))

	// The trashed author is gone from the public catalog.
	_, err = svc.DetailPublic(ctx, author.ID)
	assert.ErrorIs(t, err, authors.ErrNotFound)

	// Trashing twice is rejected.
	assert.ErrorIs(t, svc.Delete(ctx, author.ID), authors.ErrNotFound)

	require.NoError(t, svc.Restore(ctx, author.ID))

	restored, err := svc.Get(ctx, author.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)
	for _, id := range []int64{first, second, trashedEarlier} {
		assert.Nil(t, poemDeletedAt(t, pool, id), "poem %d should be live again", id)
	}
}
