// Package employees manages dashboard user accounts: CRUD, the trash
// lifecycle and password resets, with the last-admin lockout guard enforced
// on every mutation that could remove admin capability.
package employees

import (
	"errors"
	"time"

	"github.com/shoiron/shoiron/internal/rbac"
)

var (
	ErrNotFound        = errors.New("employees: not found")
	ErrEmailTaken      = errors.New("employees: email already in use")
	ErrRoleUnavailable = errors.New("employees: role missing or trashed")
	ErrSelfDeactivate  = errors.New("employees: cannot deactivate own account")
	ErrSelfDelete      = errors.New("employees: cannot delete own account")
	ErrLastAdmin       = errors.New("employees: would remove the last active admin")
)

// RoleRef is the embedded role fragment of an employee payload.
type RoleRef struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// Employee is the dashboard user as returned by the admin API.
type Employee struct {
	ID                    int64      `json:"id"`
	FullName              string     `json:"full_name"`
	Email                 string     `json:"email"`
	Role                  *RoleRef   `json:"role"`
	IsActive              bool       `json:"is_active"`
	MustChangePassword    bool       `json:"must_change_password"`
	TempPasswordExpiresAt *time.Time `json:"temp_password_expires_at"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	DeletedAt             *time.Time `json:"deleted_at"`
}

func fromProfile(p *rbac.Profile) *Employee {
	if p == nil {
		return nil
	}
	e := &Employee{
		ID:                    p.ID,
		FullName:              p.FullName,
		Email:                 p.Email,
		IsActive:              p.IsActive,
		MustChangePassword:    p.MustChangePassword,
		TempPasswordExpiresAt: p.TempPasswordExpiresAt,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
		DeletedAt:             p.DeletedAt,
	}
	if p.Role != nil {
		e.Role = &RoleRef{ID: p.Role.ID, Name: p.Role.Name, IsActive: p.Role.IsActive}
	}
	return e
}

// CreateInput carries a validated create payload.
type CreateInput struct {
	FullName string
	Email    string
	Password string
	RoleID   int64
	IsActive bool
}

// UpdateInput carries a partial update; nil fields are untouched.
type UpdateInput struct {
	FullName *string
	Email    *string
	RoleID   *int64
	IsActive *bool
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
