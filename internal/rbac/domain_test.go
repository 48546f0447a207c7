package rbac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fullRole(id int64) *Role {
	return &Role{ID: id, Name: "Admin", IsActive: true, Matrix: FullMatrix()}
}

func TestNewMatrixDeniesEverything(t *testing.T) {
	m := NewMatrix()
	for _, module := range Modules() {
		for _, action := range Actions() {
			assert.False(t, m.Allows(module, action), "%s.%s should default to deny", module, action)
		}
	}
}

func TestMatrixAllowsUnknownPairsDeny(t *testing.T) {
	m := NewMatrix()
	m[ModuleAuthors] = PermissionSet{Read: true}

	assert.True(t, m.Allows(ModuleAuthors, ActionRead))
	assert.False(t, m.Allows(ModuleAuthors, ActionCreate))
	assert.False(t, m.Allows(Module("unknown"), ActionRead))
	assert.False(t, m.Allows(ModuleAuthors, Action("grant")))
}

func TestMatrixWithOverridesResetsUnlistedModules(t *testing.T) {
	current := FullMatrix()
	next := NewMatrix().WithOverrides([]PermissionRow{
		{Module: ModuleAuthors, CanRead: true},
		{Module: "bogus", CanCreate: true, CanRead: true, CanUpdate: true, CanDelete: true},
	})

	assert.True(t, next.Allows(ModuleAuthors, ActionRead))
	assert.False(t, next.Allows(ModuleAuthors, ActionCreate))
	for _, module := range []Module{ModulePoems, ModuleEmployees, ModuleRoles} {
		for _, action := range Actions() {
			assert.False(t, next.Allows(module, action))
		}
	}
	// Overrides never mutate the source matrix.
	assert.True(t, current.AllGranted())
}

func TestRoleAdminCapable(t *testing.T) {
	now := time.Now()

	role := fullRole(1)
	assert.True(t, role.AdminCapable())

	inactive := fullRole(2)
	inactive.IsActive = false
	assert.False(t, inactive.AdminCapable())

	deleted := fullRole(3)
	deleted.DeletedAt = &now
	assert.False(t, deleted.AdminCapable())

	partial := fullRole(4)
	set := partial.Matrix[ModuleRoles]
	set.Delete = false
	partial.Matrix[ModuleRoles] = set
	assert.False(t, partial.AdminCapable())

	var nilRole *Role
	assert.False(t, nilRole.AdminCapable())
}

func TestProfileAdminCapable(t *testing.T) {
	now := time.Now()
	profile := Profile{ID: 1, IsActive: true, Role: fullRole(1)}
	assert.True(t, profile.AdminCapable())

	profile.DeletedAt = &now
	assert.False(t, profile.AdminCapable())

	profile.DeletedAt = nil
	profile.IsActive = false
	assert.False(t, profile.AdminCapable())

	profile.IsActive = true
	profile.Role = nil
	assert.False(t, profile.AdminCapable())
}

func TestEffectiveMatrix(t *testing.T) {
	super := Profile{IsSuperuser: true}
	assert.True(t, super.EffectiveMatrix().AllGranted())

	roleless := Profile{IsActive: true}
	assert.False(t, roleless.EffectiveMatrix().Allows(ModuleAuthors, ActionRead))

	limited := Profile{IsActive: true, Role: &Role{ID: 9, IsActive: true, Matrix: NewMatrix().WithOverrides([]PermissionRow{
		{Module: ModuleAuthors, CanRead: true},
	})}}
	assert.True(t, limited.EffectiveMatrix().Allows(ModuleAuthors, ActionRead))
	assert.False(t, limited.EffectiveMatrix().Allows(ModulePoems, ActionRead))
}

func TestHasExpiredTempPassword(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&Profile{}).HasExpiredTempPassword(now))
	assert.True(t, (&Profile{TempPasswordExpiresAt: &past}).HasExpiredTempPassword(now))
	assert.False(t, (&Profile{TempPasswordExpiresAt: &future}).HasExpiredTempPassword(now))
}
