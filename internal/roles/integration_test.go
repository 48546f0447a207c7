//go:build integration

package roles_test

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

func fullPermissionRows() []rbac.PermissionRow {
	rows := make([]rbac.PermissionRow, 0, len(rbac.Modules()))
	for _, module := range rbac.Modules() {
		rows = append(rows, rbac.PermissionRow{
			Module: module, CanCreate: true, CanRead: true, CanUpdate: true, CanDelete: true,
		})
	}
	return rows
}

func TestRoleBackingLastAdminCannotBeDemoted(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := roles.NewService(pool, logger)
	employeeSvc := employees.NewService(pool, logger)

	suffix := uuid.NewString()[:8]
	adminRole, err := svc.Create(ctx, roles.CreateInput{
		Name: "Admins " + suffix, IsActive: true, Permissions: fullPermissionRows(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM dashboard_users WHERE email LIKE $1`, "%"+suffix+"%")
		_, _ = pool.Exec(ctx, `DELETE FROM roles WHERE name LIKE $1`, "%"+suffix)
	})

	_, err = employeeSvc.Create(ctx, employees.CreateInput{
		FullName: "Sole Admin",
		Email:    fmt.Sprintf("admin-%s@example.com", suffix),
		Password: "first-password-1",
		RoleID:   adminRole.ID,
		IsActive: true,
	})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(ctx, adminRole.ID, roles.UpdateInput{IsActive: &inactive})
	assert.ErrorIs(t, err, roles.ErrLastAdminRole, "deactivating the role of the only admin")

	readOnly := []rbac.PermissionRow{{Module: rbac.ModulePoems, CanRead: true}}
	_, err = svc.Update(ctx, adminRole.ID, roles.UpdateInput{Permissions: &readOnly})
	assert.ErrorIs(t, err, roles.ErrLastAdminRole, "stripping the matrix of the only admin's role")

	err = svc.Delete(ctx, adminRole.ID)
	assert.ErrorIs(t, err, roles.ErrLastAdminRole, "trashing the role of the only admin")

	// The rejected mutations must leave the role untouched.
	current, err := svc.Get(ctx, adminRole.ID)
	require.NoError(t, err)
	assert.True(t, current.IsActive)
	assert.Nil(t, current.DeletedAt)
	for _, row := range current.Permissions {
		assert.True(t, row.CanCreate && row.CanRead && row.CanUpdate && row.CanDelete,
			"module %s lost a grant", row.Module)
	}

	// An admin on a second full-grant role lifts the restriction.
	backupRole, err := svc.Create(ctx, roles.CreateInput{
		Name: "Backup admins " + suffix, IsActive: true, Permissions: fullPermissionRows(),
	})
	require.NoError(t, err)
	_, err = employeeSvc.Create(ctx, employees.CreateInput{
		FullName: "Backup Admin",
		Email:    fmt.Sprintf("backup-%s@example.com", suffix),
		Password: "first-password-2",
		RoleID:   backupRole.ID,
		IsActive: true,
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, adminRole.ID, roles.UpdateInput{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}
