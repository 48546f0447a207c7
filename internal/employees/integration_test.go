//go:build integration

package employees_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoiron/shoiron/internal/employees"
	"github.com/shoiron/shoiron/internal/platform/db"
	"github.com/shoiron/shoiron/internal/rbac"
	"github.com/shoiron/shoiron/internal/roles"
)

// testPool connects to the scratch database named by PG_TEST_DSN. The
// database must have scripts/schema.sql loaded and hold no admin-capable
// users of its own, or the lockout assertions below cannot trip.
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

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fullPermissionRows() []rbac.PermissionRow {
	rows := make([]rbac.PermissionRow, 0, len(rbac.Modules()))
	for _, module := range rbac.Modules() {
		rows = append(rows, rbac.PermissionRow{
			Module: module, CanCreate: true, CanRead: true, CanUpdate: true, CanDelete: true,
		})
	}
	return rows
}

func TestLastAdminSurvivesDemotionAndRemoval(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	logger := discardLogger()

	roleSvc := roles.NewService(pool, logger)
	svc := employees.NewService(pool, logger)

	suffix := uuid.NewString()[:8]
	adminRole, err := roleSvc.Create(ctx, roles.CreateInput{
		Name: "Admins " + suffix, IsActive: true, Permissions: fullPermissionRows(),
	})
	require.NoError(t, err)
	editorRole, err := roleSvc.Create(ctx, roles.CreateInput{
		Name: "Editors " + suffix, IsActive: true,
		Permissions: []rbac.PermissionRow{{Module: rbac.ModulePoems, CanRead: true}},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM dashboard_users WHERE email LIKE $1`, "%"+suffix+"%")
		_, _ = pool.Exec(ctx, `DELETE FROM roles WHERE id IN ($1, $2)`, adminRole.ID, editorRole.ID)
	})

	admin, err := svc.Create(ctx, employees.CreateInput{
		FullName: "Sole Admin",
		Email:    fmt.Sprintf("admin-%s@example.com", suffix),
		Password: "first-password-1",
		RoleID:   adminRole.ID,
		IsActive: true,
	})
	require.NoError(t, err)
	editor, err := svc.Create(ctx, employees.CreateInput{
		FullName: "Editor",
		Email:    fmt.Sprintf("editor-%s@example.com", suffix),
		Password: "first-password-2",
		RoleID:   editorRole.ID,
		IsActive: true,
	})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(ctx, editor.ID, admin.ID, employees.UpdateInput{IsActive: &inactive})
	assert.ErrorIs(t, err, employees.ErrLastAdmin, "deactivating the only admin")

	_, err = svc.Update(ctx, editor.ID, admin.ID, employees.UpdateInput{RoleID: &editorRole.ID})
	assert.ErrorIs(t, err, employees.ErrLastAdmin, "moving the only admin onto a weaker role")

	err = svc.Delete(ctx, editor.ID, admin.ID)
	assert.ErrorIs(t, err, employees.ErrLastAdmin, "trashing the only admin")

	err = svc.HardDelete(ctx, editor.ID, admin.ID)
	assert.ErrorIs(t, err, employees.ErrLastAdmin, "hard-deleting the only admin")

	// The rejected mutations must leave the admin untouched.
	current, err := svc.Get(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, current.IsActive)
	assert.Nil(t, current.DeletedAt)
	require.NotNil(t, current.Role)
	assert.Equal(t, adminRole.ID, current.Role.ID)

	// A second admin lifts the restriction.
	_, err = svc.Create(ctx, employees.CreateInput{
		FullName: "Second Admin",
		Email:    fmt.Sprintf("admin2-%s@example.com", suffix),
		Password: "first-password-3",
		RoleID:   adminRole.ID,
		IsActive: true,
	})
	require.NoError(t, err)

	demoted, err := svc.Update(ctx, editor.ID, admin.ID, employees.UpdateInput{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, demoted.IsActive)
}
