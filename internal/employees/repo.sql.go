package employees

import (
	"context"
	"fmt"
	"time"

	"github.com/shoiron/shoiron/internal/platform/db"
	"github.com/shoiron/shoiron/internal/shared"
)

func listEmployees(ctx context.Context, q db.Querier, query ListQuery) ([]Employee, int, error) {
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
		and("du.deleted_at IS NOT NULL")
	case shared.TrashActive:
		and("du.deleted_at IS NULL")
	}
	switch shared.ParseStatus(query.Status) {
	case shared.StatusActive:
		and("du.is_active = TRUE")
	case shared.StatusInactive:
		and("du.is_active = FALSE")
	}
	if query.Q != "" {
		args = append(args, "%"+query.Q+"%")
		and(fmt.Sprintf("du.full_name ILIKE $%d", len(args)))
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM dashboard_users du`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("employees: count: %w", err)
	}

	order := shared.SortExpr(query.Sort, map[string]string{
		"alphabetic": "du.full_name ASC",
		"oldest":     "du.created_at ASC",
		"newest":     "du.created_at DESC",
	}, "du.full_name ASC")

	args = append(args, query.PageSize, shared.Offset(query.Page, query.PageSize))
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT
			du.id, du.full_name, du.email, du.is_active, du.must_change_password,
			du.temp_password_expires_at, du.created_at, du.updated_at, du.deleted_at,
			r.id, r.name, r.is_active
		FROM dashboard_users du
		LEFT JOIN roles r ON r.id = du.role_id
		%s ORDER BY %s LIMIT $%d OFFSET $%d`, where, order, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("employees: list: %w", err)
	}
	defer rows.Close()

	items := make([]Employee, 0, query.PageSize)
	for rows.Next() {
		var e Employee
		var roleID *int64
		var roleName *string
		var roleActive *bool
		err := rows.Scan(
			&e.ID, &e.FullName, &e.Email, &e.IsActive, &e.MustChangePassword,
			&e.TempPasswordExpiresAt, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
			&roleID, &roleName, &roleActive,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("employees: scan: %w", err)
		}
		if roleID != nil {
			ref := RoleRef{ID: *roleID}
			if roleName != nil {
				ref.Name = *roleName
			}
			if roleActive != nil {
				ref.IsActive = *roleActive
			}
			e.Role = &ref
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("employees: list: %w", err)
	}
	return items, total, nil
}

func emailInUse(ctx context.Context, q db.Querier, email string, excludeID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (
			SELECT 1 FROM dashboard_users WHERE lower(email) = lower($1) AND id <> $2
		)`, email, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("employees: email lookup: %w", err)
	}
	return exists, nil
}

func insertEmployee(ctx context.Context, q db.Querier, in CreateInput, passwordHash string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `INSERT INTO dashboard_users
			(email, password_hash, full_name, role_id, is_active, must_change_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, now(), now())
		RETURNING id`,
		in.Email, passwordHash, in.FullName, in.RoleID, in.IsActive).Scan(&id)
	if err != nil {
		if db.UniqueViolation(err) {
			return 0, ErrEmailTaken
		}
		return 0, fmt.Errorf("employees: insert: %w", err)
	}
	return id, nil
}

func updateEmployee(ctx context.Context, q db.Querier, id int64, fullName, email string, roleID *int64, isActive bool) error {
	_, err := q.Exec(ctx, `UPDATE dashboard_users
		SET full_name = $2, email = $3, role_id = $4, is_active = $5, updated_at = now()
		WHERE id = $1`, id, fullName, email, roleID, isActive)
	if err != nil {
		if db.UniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("employees: update: %w", err)
	}
	return nil
}

func softDeleteEmployee(ctx context.Context, q db.Querier, id int64, at time.Time) error {
	_, err := q.Exec(ctx, `UPDATE dashboard_users
		SET deleted_at = $2, is_active = FALSE, updated_at = $2
		WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("employees: soft delete: %w", err)
	}
	return nil
}

func restoreEmployee(ctx context.Context, q db.Querier, id int64) error {
	_, err := q.Exec(ctx, `UPDATE dashboard_users
		SET deleted_at = NULL, is_active = TRUE, updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("employees: restore: %w", err)
	}
	return nil
}

func hardDeleteEmployee(ctx context.Context, q db.Querier, id int64) error {
	_, err := q.Exec(ctx, `DELETE FROM dashboard_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("employees: hard delete: %w", err)
	}
	return nil
}

func setEmployeePassword(ctx context.Context, q db.Querier, id int64, hash string) error {
	_, err := q.Exec(ctx, `UPDATE dashboard_users
		SET password_hash = $2, must_change_password = FALSE, temp_password_expires_at = NULL, updated_at = now()
		WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("employees: set password: %w", err)
	}
	return nil
}
