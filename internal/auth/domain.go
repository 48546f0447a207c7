package auth

import (
	"errors"

	"github.com/shoiron/shoiron/internal/rbac"
)

// Login and password-reset failure modes. The handler maps these to 400/403
// responses; anything else is a server error.
var (
	ErrInvalidCredentials  = errors.New("auth: invalid email or password")
	ErrUserInactive        = errors.New("auth: user is inactive")
	ErrRoleInactive        = errors.New("auth: user role is inactive")
	ErrTempPasswordExpired = errors.New("auth: temporary password expired")
)

// Credential pairs a dashboard profile with its stored password hash.
type Credential struct {
	Profile      *rbac.Profile
	PasswordHash string
}

// RolePayload is the role fragment of the profile payload.
type RolePayload struct {
	ID       *int64 `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// ProfilePayload is the JSON shape returned by login, me and the dashboard
// home. Permissions always carry the fully populated matrix.
type ProfilePayload struct {
	ID                 int64       `json:"id"`
	FullName           string      `json:"full_name"`
	Email              string      `json:"email"`
	Role               RolePayload `json:"role"`
	IsActive           bool        `json:"is_active"`
	MustChangePassword bool        `json:"must_change_password"`
	Permissions        rbac.Matrix `json:"permissions"`
}

// NewProfilePayload builds the payload for a profile. Superusers report the
// all-grant matrix regardless of their role.
func NewProfilePayload(p *rbac.Profile) *ProfilePayload {
	if p == nil {
		return nil
	}
	payload := &ProfilePayload{
		ID:                 p.ID,
		FullName:           p.FullName,
		Email:              p.Email,
		IsActive:           p.IsActive,
		MustChangePassword: p.MustChangePassword,
		Permissions:        p.EffectiveMatrix(),
	}
	if p.Role != nil {
		payload.Role = RolePayload{ID: &p.Role.ID, Name: p.Role.Name, IsActive: p.Role.IsActive}
	}
	return payload
}
