package rbac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func guardFixture() []Profile {
	now := time.Now()
	admin := fullRole(1)
	editor := &Role{ID: 2, Name: "Editor", IsActive: true, Matrix: NewMatrix().WithOverrides([]PermissionRow{
		{Module: ModulePoems, CanCreate: true, CanRead: true, CanUpdate: true, CanDelete: true},
	})}
	return []Profile{
		{ID: 1, IsActive: true, Role: admin},
		{ID: 2, IsActive: true, Role: admin},
		{ID: 3, IsActive: true, Role: editor},
		{ID: 4, IsActive: false, Role: admin},
		{ID: 5, IsActive: true, Role: admin, DeletedAt: &now},
	}
}

func TestCountActiveAdminCapable(t *testing.T) {
	profiles := guardFixture()

	assert.Equal(t, 2, CountActiveAdminCapable(profiles, 0))
	assert.Equal(t, 1, CountActiveAdminCapable(profiles, 1))
	// Excluding a non-admin member changes nothing.
	assert.Equal(t, 2, CountActiveAdminCapable(profiles, 3))
}

func TestLastAdminCannotBeExcluded(t *testing.T) {
	profiles := guardFixture()[1:] // only profile 2 remains admin-capable
	assert.Equal(t, 0, CountActiveAdminCapable(profiles, 2))
}

func TestCountActiveAdminCapableOutsideRole(t *testing.T) {
	profiles := guardFixture()

	// Every admin-capable profile sits on role 1; demoting it strands the system.
	assert.Equal(t, 0, CountActiveAdminCapableOutsideRole(profiles, 1))
	assert.Equal(t, 2, CountActiveAdminCapableOutsideRole(profiles, 2))
}

func TestCountActiveMembersOfRole(t *testing.T) {
	profiles := guardFixture()

	// Inactive and soft-deleted members do not count.
	assert.Equal(t, 2, CountActiveMembersOfRole(profiles, 1))
	assert.Equal(t, 1, CountActiveMembersOfRole(profiles, 2))
	assert.Equal(t, 0, CountActiveMembersOfRole(profiles, 99))
}
