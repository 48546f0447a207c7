package roles

import (
	"context"
	"fmt"
	"time"

	"github.com/shoiron/shoiron/internal/platform/db"
	"github.com/shoiron/shoiron/internal/rbac"
	"github.com/shoiron/shoiron/internal/shared"
)

const roleColumns = `r.id, r.name, r.is_active, r.created_at, r.updated_at, r.deleted_at,
	(SELECT count(*) FROM dashboard_users du WHERE du.role_id = r.id AND du.deleted_at IS NULL)`

func listRoles(ctx context.Context, q db.Querier, query ListQuery) ([]Role, int, error) {
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
		and("r.deleted_at IS NOT NULL")
	case shared.TrashActive:
		and("r.deleted_at IS NULL")
	}
	switch shared.ParseStatus(query.Status) {
	case shared.StatusActive:
		and("r.is_active = TRUE")
	case shared.StatusInactive:
		and("r.is_active = FALSE")
	}
	if query.Q != "" {
		args = append(args, "%"+query.Q+"%")
		and(fmt.Sprintf("r.name ILIKE $%d", len(args)))
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM roles r`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("roles: count: %w", err)
	}

	order := shared.SortExpr(query.Sort, map[string]string{
		"alphabetic": "r.name ASC",
		"oldest":     "r.created_at ASC",
		"newest":     "r.created_at DESC",
	}, "r.name ASC")

	args = append(args, query.PageSize, shared.Offset(query.Page, query.PageSize))
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s FROM roles r %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		roleColumns, where, order, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("roles: list: %w", err)
	}
	defer rows.Close()

	items := make([]Role, 0, query.PageSize)
	for rows.Next() {
		var role Role
		err := rows.Scan(&role.ID, &role.Name, &role.IsActive, &role.CreatedAt, &role.UpdatedAt,
			&role.DeletedAt, &role.EmployeesCount)
		if err != nil {
			return nil, 0, fmt.Errorf("roles: scan: %w", err)
		}
		items = append(items, role)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("roles: list: %w", err)
	}

	if err := attachPermissions(ctx, q, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func getRole(ctx context.Context, q db.Querier, id int64) (*Role, error) {
	role, err := rbac.FetchRole(ctx, q, id)
	if err != nil {
		if err == rbac.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	out := Role{
		ID:          role.ID,
		Name:        role.Name,
		IsActive:    role.IsActive,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
		DeletedAt:   role.DeletedAt,
		Permissions: matrixRows(role.Matrix),
	}
	err = q.QueryRow(ctx, `SELECT count(*) FROM dashboard_users
		WHERE role_id = $1 AND deleted_at IS NULL`, id).Scan(&out.EmployeesCount)
	if err != nil {
		return nil, fmt.Errorf("roles: member count: %w", err)
	}
	return &out, nil
}

func attachPermissions(ctx context.Context, q db.Querier, items []Role) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	matrices, err := rbac.FetchMatrices(ctx, q, ids)
	if err != nil {
		return err
	}
	for i := range items {
		matrix, ok := matrices[items[i].ID]
		if !ok {
			matrix = rbac.NewMatrix()
		}
		items[i].Permissions = matrixRows(matrix)
	}
	return nil
}

func listMembers(ctx context.Context, q db.Querier, roleID int64) ([]Member, error) {
	rows, err := q.Query(ctx, `SELECT id, full_name, email, is_active, must_change_password,
			temp_password_expires_at, created_at, updated_at
		FROM dashboard_users
		WHERE role_id = $1 AND deleted_at IS NULL
		ORDER BY full_name`, roleID)
	if err != nil {
		return nil, fmt.Errorf("roles: list members: %w", err)
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var m Member
		err := rows.Scan(&m.ID, &m.FullName, &m.Email, &m.IsActive, &m.MustChangePassword,
			&m.TempPasswordExpiresAt, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("roles: scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roles: list members: %w", err)
	}
	return members, nil
}

func roleNameTaken(ctx context.Context, q db.Querier, name string, excludeID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (
			SELECT 1 FROM roles WHERE lower(name) = lower($1) AND id <> $2
		)`, name, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("roles: name lookup: %w", err)
	}
	return exists, nil
}

func insertRole(ctx context.Context, q db.Querier, name string, isActive bool) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `INSERT INTO roles (name, is_active, created_at, updated_at)
		VALUES ($1, $2, now(), now()) RETURNING id`, name, isActive).Scan(&id)
	if err != nil {
		if db.UniqueViolation(err) {
			return 0, ErrNameTaken
		}
		return 0, fmt.Errorf("roles: insert: %w", err)
	}
	return id, nil
}

func updateRole(ctx context.Context, q db.Querier, id int64, name string, isActive bool) error {
	_, err := q.Exec(ctx, `UPDATE roles SET name = $2, is_active = $3, updated_at = now()
		WHERE id = $1`, id, name, isActive)
	if err != nil {
		if db.UniqueViolation(err) {
			return ErrNameTaken
		}
		return fmt.Errorf("roles: update: %w", err)
	}
	return nil
}

func softDeleteRole(ctx context.Context, q db.Querier, id int64, at time.Time) error {
	_, err := q.Exec(ctx, `UPDATE roles SET deleted_at = $2, is_active = FALSE, updated_at = $2
		WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("roles: soft delete: %w", err)
	}
	return nil
}

func restoreRole(ctx context.Context, q db.Querier, id int64) error {
	_, err := q.Exec(ctx, `UPDATE roles SET deleted_at = NULL, updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("roles: restore: %w", err)
	}
	return nil
}

func hardDeleteRole(ctx context.Context, q db.Querier, id int64) error {
	// Members keep their accounts; the weak FK goes null first.
	if _, err := q.Exec(ctx, `UPDATE dashboard_users SET role_id = NULL, updated_at = now()
		WHERE role_id = $1 AND deleted_at IS NULL`, id); err != nil {
		return fmt.Errorf("roles: detach members: %w", err)
	}
	if _, err := q.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("roles: hard delete: %w", err)
	}
	return nil
}

func assignMembers(ctx context.Context, q db.Querier, roleID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `UPDATE dashboard_users SET role_id = $1, updated_at = now()
		WHERE id = ANY($2) AND deleted_at IS NULL`, roleID, ids)
	if err != nil {
		return fmt.Errorf("roles: assign members: %w", err)
	}
	return nil
}

func replaceMembers(ctx context.Context, q db.Querier, roleID int64, ids []int64) error {
	_, err := q.Exec(ctx, `UPDATE dashboard_users SET role_id = NULL, updated_at = now()
		WHERE role_id = $1 AND deleted_at IS NULL AND NOT (id = ANY($2))`, roleID, ids)
	if err != nil {
		return fmt.Errorf("roles: detach members: %w", err)
	}
	return assignMembers(ctx, q, roleID, ids)
}
