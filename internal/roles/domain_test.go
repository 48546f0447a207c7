package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shoiron/shoiron/internal/rbac"
)

func TestMatrixRowsFixedOrder(t *testing.T) {
	matrix := rbac.NewMatrix()
	matrix[rbac.ModulePoems] = rbac.PermissionSet{Read: true}

	rows := matrixRows(matrix)
	assert.Len(t, rows, len(rbac.Modules()))
	for i, module := range rbac.Modules() {
		assert.Equal(t, module, rows[i].Module)
	}
	assert.True(t, rows[1].CanRead, "poems read flag survives the flattening")
	assert.False(t, rows[0].CanRead)
}

func TestNextStateKeepsCurrentWhenUntouched(t *testing.T) {
	role := &rbac.Role{IsActive: true, Matrix: rbac.FullMatrix()}

	isActive, matrix := nextState(role, UpdateInput{})
	assert.True(t, isActive)
	assert.True(t, matrix.AllGranted())
}

func TestNextStateResetsUnlistedModules(t *testing.T) {
	role := &rbac.Role{IsActive: true, Matrix: rbac.FullMatrix()}
	rows := []rbac.PermissionRow{
		{Module: rbac.ModuleAuthors, CanCreate: true, CanRead: true, CanUpdate: true, CanDelete: true},
	}

	_, matrix := nextState(role, UpdateInput{Permissions: &rows})
	assert.True(t, matrix.Allows(rbac.ModuleAuthors, rbac.ActionRead))
	assert.False(t, matrix.Allows(rbac.ModulePoems, rbac.ActionRead), "modules missing from the payload read as deny")
	assert.False(t, matrix.AllGranted())
}

func TestNextStateDeactivation(t *testing.T) {
	role := &rbac.Role{IsActive: true, Matrix: rbac.FullMatrix()}
	inactive := false

	isActive, matrix := nextState(role, UpdateInput{IsActive: &inactive})
	assert.False(t, isActive)
	assert.True(t, matrix.AllGranted(), "the matrix itself is untouched by deactivation")
}
