// Package roles manages permission roles: CRUD, the trash lifecycle, the
// permission matrix writes and the last-admin-role lockout guard.
package roles

import (
	"errors"
	"time"

	"github.com/shoiron/shoiron/internal/rbac"
)

var (
	ErrNotFound      = errors.New("roles: not found")
	ErrNameTaken     = errors.New("roles: name already exists")
	ErrTrashed       = errors.New("roles: role is in trash")
	ErrLastAdminRole = errors.New("roles: would remove the last admin-capable role")
)

// Member is the employee fragment embedded in a role detail payload.
type Member struct {
	ID                    int64      `json:"id"`
	FullName              string     `json:"full_name"`
	Email                 string     `json:"email"`
	IsActive              bool       `json:"is_active"`
	MustChangePassword    bool       `json:"must_change_password"`
	TempPasswordExpiresAt *time.Time `json:"temp_password_expires_at"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Role is the admin API payload: the role row, its live-member count and the
// full permission matrix as a row list.
type Role struct {
	ID             int64                `json:"id"`
	Name           string               `json:"name"`
	IsActive       bool                 `json:"is_active"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	DeletedAt      *time.Time           `json:"deleted_at"`
	EmployeesCount int                  `json:"employees_count"`
	Permissions    []rbac.PermissionRow `json:"permissions"`
	Members        []Member             `json:"employees,omitempty"`
}

// CreateInput carries a validated create payload.
type CreateInput struct {
	Name        string
	IsActive    bool
	Permissions []rbac.PermissionRow
	EmployeeIDs []int64
}

// UpdateInput carries a partial update; nil fields are untouched.
type UpdateInput struct {
	Name        *string
	IsActive    *bool
	Permissions *[]rbac.PermissionRow
	EmployeeIDs *[]int64
}

// ListQuery carries normalized list filters.
type ListQuery struct {
	Trash    string
	Status   string
	Q        string
	Sort     string
	Page     int
	PageSize int
}

// matrixRows flattens a matrix into rows in the fixed module order, so the
// payload shape is stable regardless of storage order.
func matrixRows(m rbac.Matrix) []rbac.PermissionRow {
	rows := make([]rbac.PermissionRow, 0, len(rbac.Modules()))
	for _, module := range rbac.Modules() {
		set := m[module]
		rows = append(rows, rbac.PermissionRow{
			Module:    module,
			CanCreate: set.Create,
			CanRead:   set.Read,
			CanUpdate: set.Update,
			CanDelete: set.Delete,
		})
	}
	return rows
}

// nextState computes the role's post-update activity and matrix without
// touching storage. Permission writes reset unlisted modules to deny, and the
// guard sees exactly what the write will apply.
func nextState(current *rbac.Role, in UpdateInput) (isActive bool, matrix rbac.Matrix) {
	isActive = current.IsActive
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	matrix = current.Matrix
	if in.Permissions != nil {
		matrix = rbac.NewMatrix().WithOverrides(*in.Permissions)
	}
	return isActive, matrix
}
