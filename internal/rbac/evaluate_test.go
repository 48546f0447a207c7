package rbac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateStateMachine(t *testing.T) {
	now := time.Now()

	t.Run("missing profile", func(t *testing.T) {
		access := Evaluate(nil)
		assert.False(t, access.Allowed)
		assert.Equal(t, ReasonDashboardUserMissing, access.Reason)
	})

	t.Run("superuser bypasses every gate", func(t *testing.T) {
		access := Evaluate(&Profile{IsSuperuser: true, IsActive: false})
		assert.True(t, access.Allowed)
		assert.True(t, access.Can(ModuleRoles, ActionDelete))
	})

	t.Run("soft deleted profile", func(t *testing.T) {
		access := Evaluate(&Profile{IsActive: true, DeletedAt: &now, Role: fullRole(1)})
		assert.False(t, access.Allowed)
		assert.Equal(t, ReasonDashboardUserDeleted, access.Reason)
	})

	t.Run("inactive profile", func(t *testing.T) {
		access := Evaluate(&Profile{IsActive: false, Role: fullRole(1)})
		assert.Equal(t, ReasonDashboardUserInactive, access.Reason)
	})

	t.Run("no role", func(t *testing.T) {
		access := Evaluate(&Profile{IsActive: true})
		assert.Equal(t, ReasonRoleMissing, access.Reason)
	})

	t.Run("deleted role", func(t *testing.T) {
		role := fullRole(1)
		role.DeletedAt = &now
		access := Evaluate(&Profile{IsActive: true, Role: role})
		assert.Equal(t, ReasonRoleInactive, access.Reason)
	})

	t.Run("inactive role", func(t *testing.T) {
		role := fullRole(1)
		role.IsActive = false
		access := Evaluate(&Profile{IsActive: true, Role: role})
		assert.Equal(t, ReasonRoleInactive, access.Reason)
	})

	t.Run("allowed", func(t *testing.T) {
		access := Evaluate(&Profile{IsActive: true, Role: fullRole(1)})
		assert.True(t, access.Allowed)
		assert.Empty(t, access.Reason)
	})
}

func TestAccessCanConsultsMatrix(t *testing.T) {
	role := &Role{ID: 5, Name: "Limited", IsActive: true, Matrix: NewMatrix().WithOverrides([]PermissionRow{
		{Module: ModuleAuthors, CanRead: true},
	})}
	access := Evaluate(&Profile{IsActive: true, Role: role})

	assert.True(t, access.Can(ModuleAuthors, ActionRead))
	assert.False(t, access.Can(ModuleAuthors, ActionCreate))
	assert.False(t, access.Can(ModulePoems, ActionRead))
	assert.True(t, access.CanReadAnything())
}

func TestDeniedAccessCanNothing(t *testing.T) {
	access := Denied(ReasonAuthRequired)
	assert.False(t, access.Can(ModuleAuthors, ActionRead))
	assert.False(t, access.CanReadAnything())
}

func TestCanReadAnythingFalseWithoutReads(t *testing.T) {
	role := &Role{ID: 5, IsActive: true, Matrix: NewMatrix().WithOverrides([]PermissionRow{
		{Module: ModulePoems, CanCreate: true, CanUpdate: true},
	})}
	access := Evaluate(&Profile{IsActive: true, Role: role})
	assert.False(t, access.CanReadAnything())
}
