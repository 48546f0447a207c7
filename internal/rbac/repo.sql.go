package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shoiron/shoiron/internal/platform/db"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

const profileColumns = `
	du.id, du.email, du.full_name, du.is_active, du.is_superuser,
	du.must_change_password, du.temp_password_expires_at, du.deleted_at,
	du.created_at, du.updated_at,
	r.id, r.name, r.is_active, r.deleted_at, r.created_at, r.updated_at`

const profileFrom = `
	FROM dashboard_users du
	LEFT JOIN roles r ON r.id = du.role_id`

// FetchProfile loads a profile with its role and permission matrix. The
// querier may be a pool or an open transaction.
func FetchProfile(ctx context.Context, q db.Querier, id int64) (*Profile, error) {
	row := q.QueryRow(ctx, `SELECT`+profileColumns+profileFrom+` WHERE du.id = $1`, id)
	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rbac: fetch profile: %w", err)
	}
	if err := attachMatrices(ctx, q, []*Profile{profile}); err != nil {
		return nil, err
	}
	return profile, nil
}

// FetchProfileByEmail loads a live (not soft-deleted) profile by email,
// case-insensitively.
func FetchProfileByEmail(ctx context.Context, q db.Querier, email string) (*Profile, error) {
	row := q.QueryRow(ctx, `SELECT`+profileColumns+profileFrom+`
		WHERE lower(du.email) = lower($1) AND du.deleted_at IS NULL`, email)
	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rbac: fetch profile by email: %w", err)
	}
	if err := attachMatrices(ctx, q, []*Profile{profile}); err != nil {
		return nil, err
	}
	return profile, nil
}

// FetchActiveProfiles loads every active, non-deleted profile with its role
// and matrix, locking the user rows for the rest of the transaction. The
// lockout guard counts admin capability over this set; the row locks make
// concurrent lockout-affecting transactions serialize instead of counting
// from disjoint snapshots. Only the user side of the join is lockable, the
// role side is nullable.
func FetchActiveProfiles(ctx context.Context, q db.Querier) ([]Profile, error) {
	rows, err := q.Query(ctx, `SELECT`+profileColumns+profileFrom+`
		WHERE du.deleted_at IS NULL AND du.is_active = TRUE
		FOR UPDATE OF du`)
	if err != nil {
		return nil, fmt.Errorf("rbac: fetch active profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("rbac: scan active profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: fetch active profiles: %w", err)
	}
	if err := attachMatrices(ctx, q, profiles); err != nil {
		return nil, err
	}

	out := make([]Profile, len(profiles))
	for i, p := range profiles {
		out[i] = *p
	}
	return out, nil
}

// FetchRole loads a role with its matrix.
func FetchRole(ctx context.Context, q db.Querier, id int64) (*Role, error) {
	var role Role
	var deletedAt *time.Time
	err := q.QueryRow(ctx, `SELECT id, name, is_active, deleted_at, created_at, updated_at
		FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.IsActive, &deletedAt, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rbac: fetch role: %w", err)
	}
	role.DeletedAt = deletedAt
	matrix, err := FetchMatrix(ctx, q, role.ID)
	if err != nil {
		return nil, err
	}
	role.Matrix = matrix
	return &role, nil
}

// FetchMatrix loads the permission matrix for one role. Modules without a
// stored row read as all-deny.
func FetchMatrix(ctx context.Context, q db.Querier, roleID int64) (Matrix, error) {
	matrices, err := fetchMatrices(ctx, q, []int64{roleID})
	if err != nil {
		return nil, err
	}
	if m, ok := matrices[roleID]; ok {
		return m, nil
	}
	return NewMatrix(), nil
}

// EnsurePermissionRows lazily creates the per-module permission rows for a
// role with all flags false. Exactly one row per (role, module) exists at
// all times afterwards.
func EnsurePermissionRows(ctx context.Context, q db.Querier, roleID int64) error {
	for _, module := range Modules() {
		_, err := q.Exec(ctx, `INSERT INTO role_permissions (role_id, module, created_at, updated_at)
			VALUES ($1, $2, now(), now())
			ON CONFLICT (role_id, module) DO NOTHING`, roleID, string(module))
		if err != nil {
			return fmt.Errorf("rbac: ensure permission rows: %w", err)
		}
	}
	return nil
}

// UpsertPermissionRows writes the full matrix for a role. Modules absent
// from rows are reset to all-deny, so the stored matrix always matches the
// payload exactly.
func UpsertPermissionRows(ctx context.Context, q db.Querier, roleID int64, rows []PermissionRow) error {
	if err := EnsurePermissionRows(ctx, q, roleID); err != nil {
		return err
	}
	next := NewMatrix().WithOverrides(rows)
	for _, module := range Modules() {
		set := next[module]
		_, err := q.Exec(ctx, `UPDATE role_permissions
			SET can_create = $3, can_read = $4, can_update = $5, can_delete = $6, updated_at = now()
			WHERE role_id = $1 AND module = $2`,
			roleID, string(module), set.Create, set.Read, set.Update, set.Delete)
		if err != nil {
			return fmt.Errorf("rbac: upsert permission rows: %w", err)
		}
	}
	return nil
}

// FetchMatrices loads the matrices for a set of roles in one query. Roles
// without stored rows are absent from the result.
func FetchMatrices(ctx context.Context, q db.Querier, roleIDs []int64) (map[int64]Matrix, error) {
	return fetchMatrices(ctx, q, roleIDs)
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	var roleID *int64
	var roleName *string
	var roleActive *bool
	var roleDeletedAt, roleCreatedAt, roleUpdatedAt *time.Time
	err := row.Scan(
		&p.ID, &p.Email, &p.FullName, &p.IsActive, &p.IsSuperuser,
		&p.MustChangePassword, &p.TempPasswordExpiresAt, &p.DeletedAt,
		&p.CreatedAt, &p.UpdatedAt,
		&roleID, &roleName, &roleActive, &roleDeletedAt, &roleCreatedAt, &roleUpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if roleID != nil {
		role := Role{ID: *roleID, Matrix: NewMatrix()}
		if roleName != nil {
			role.Name = *roleName
		}
		if roleActive != nil {
			role.IsActive = *roleActive
		}
		role.DeletedAt = roleDeletedAt
		if roleCreatedAt != nil {
			role.CreatedAt = *roleCreatedAt
		}
		if roleUpdatedAt != nil {
			role.UpdatedAt = *roleUpdatedAt
		}
		p.Role = &role
	}
	return &p, nil
}

func attachMatrices(ctx context.Context, q db.Querier, profiles []*Profile) error {
	ids := make([]int64, 0, len(profiles))
	seen := make(map[int64]struct{})
	for _, p := range profiles {
		if p.Role == nil {
			continue
		}
		if _, ok := seen[p.Role.ID]; ok {
			continue
		}
		seen[p.Role.ID] = struct{}{}
		ids = append(ids, p.Role.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	matrices, err := fetchMatrices(ctx, q, ids)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		if p.Role == nil {
			continue
		}
		if m, ok := matrices[p.Role.ID]; ok {
			p.Role.Matrix = m
		}
	}
	return nil
}

func fetchMatrices(ctx context.Context, q db.Querier, roleIDs []int64) (map[int64]Matrix, error) {
	rows, err := q.Query(ctx, `SELECT role_id, module, can_create, can_read, can_update, can_delete
		FROM role_permissions WHERE role_id = ANY($1)`, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("rbac: fetch matrices: %w", err)
	}
	defer rows.Close()

	matrices := make(map[int64]Matrix, len(roleIDs))
	for rows.Next() {
		var roleID int64
		var module string
		var set PermissionSet
		if err := rows.Scan(&roleID, &module, &set.Create, &set.Read, &set.Update, &set.Delete); err != nil {
			return nil, fmt.Errorf("rbac: scan permission row: %w", err)
		}
		m, ok := matrices[roleID]
		if !ok {
			m = NewMatrix()
			matrices[roleID] = m
		}
		m[Module(module)] = set
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: fetch matrices: %w", err)
	}
	return matrices, nil
}
