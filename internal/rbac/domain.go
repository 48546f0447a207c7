package rbac

import "time"

// Module is a fixed administrative resource category. The set is a versioned
// constant: adding a module here automatically widens the admin-capable
// predicate and the matrix shape.
type Module string

const (
	ModuleAuthors   Module = "authors"
	ModulePoems     Module = "poems"
	ModuleEmployees Module = "employees"
	ModuleRoles     Module = "roles"
)

// Modules returns the fixed module set in permission-granularity order.
func Modules() []Module {
	return []Module{ModuleAuthors, ModulePoems, ModuleEmployees, ModuleRoles}
}

// Action is one of the four permission flags per module.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Actions returns the fixed action set.
func Actions() []Action {
	return []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
}

// PermissionSet is the four-action boolean record for one module.
type PermissionSet struct {
	Create bool `json:"create"`
	Read   bool `json:"read"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

// Allows reports whether the set grants the given action. Unknown actions
// are never granted.
func (p PermissionSet) Allows(action Action) bool {
	switch action {
	case ActionCreate:
		return p.Create
	case ActionRead:
		return p.Read
	case ActionUpdate:
		return p.Update
	case ActionDelete:
		return p.Delete
	}
	return false
}

// All reports whether every action is granted.
func (p PermissionSet) All() bool {
	return p.Create && p.Read && p.Update && p.Delete
}

// Matrix maps every fixed module to its permission record. A matrix is
// always fully populated; missing pairs read as denied.
type Matrix map[Module]PermissionSet

// NewMatrix returns a fully populated all-deny matrix.
func NewMatrix() Matrix {
	m := make(Matrix, len(Modules()))
	for _, module := range Modules() {
		m[module] = PermissionSet{}
	}
	return m
}

// FullMatrix returns a fully populated all-grant matrix, used for the
// superuser profile payload.
func FullMatrix() Matrix {
	m := make(Matrix, len(Modules()))
	for _, module := range Modules() {
		m[module] = PermissionSet{Create: true, Read: true, Update: true, Delete: true}
	}
	return m
}

// Allows reports whether the matrix grants action on module, defaulting to
// false for any undefined pair.
func (m Matrix) Allows(module Module, action Action) bool {
	return m[module].Allows(action)
}

// AllGranted reports whether every action on every fixed module is granted.
func (m Matrix) AllGranted() bool {
	for _, module := range Modules() {
		if !m[module].All() {
			return false
		}
	}
	return true
}

// PermissionRow is a write payload for one module's permission record.
type PermissionRow struct {
	Module    Module `json:"module"`
	CanCreate bool   `json:"can_create"`
	CanRead   bool   `json:"can_read"`
	CanUpdate bool   `json:"can_update"`
	CanDelete bool   `json:"can_delete"`
}

// WithOverrides returns a copy of the matrix with the given rows applied.
// Rows naming modules outside the fixed set are ignored.
func (m Matrix) WithOverrides(rows []PermissionRow) Matrix {
	next := NewMatrix()
	for _, module := range Modules() {
		next[module] = m[module]
	}
	known := make(map[Module]struct{}, len(Modules()))
	for _, module := range Modules() {
		known[module] = struct{}{}
	}
	for _, row := range rows {
		if _, ok := known[row.Module]; !ok {
			continue
		}
		next[row.Module] = PermissionSet{
			Create: row.CanCreate,
			Read:   row.CanRead,
			Update: row.CanUpdate,
			Delete: row.CanDelete,
		}
	}
	return next
}

// Role is a named permission grouping with soft-delete lifecycle.
type Role struct {
	ID        int64
	Name      string
	IsActive  bool
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	Matrix    Matrix
}

// AdminCapable reports whether the role is active, not soft-deleted and
// grants every action on every fixed module. The predicate is derived, never
// stored.
func (r *Role) AdminCapable() bool {
	if r == nil || r.DeletedAt != nil || !r.IsActive {
		return false
	}
	return r.Matrix.AllGranted()
}

// Profile is the dashboard principal: an authentication identity plus an
// optional role reference and soft-delete lifecycle.
type Profile struct {
	ID                    int64
	Email                 string
	FullName              string
	Role                  *Role
	IsActive              bool
	IsSuperuser           bool
	MustChangePassword    bool
	TempPasswordExpiresAt *time.Time
	DeletedAt             *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Active reports whether the profile is usable: not soft-deleted and active.
func (p *Profile) Active() bool {
	return p != nil && p.DeletedAt == nil && p.IsActive
}

// AdminCapable reports whether the profile currently counts towards the
// admin-lockout invariant.
func (p *Profile) AdminCapable() bool {
	return p.Active() && p.Role.AdminCapable()
}

// HasExpiredTempPassword reports whether a forced temporary password has
// passed its expiry.
func (p *Profile) HasExpiredTempPassword(now time.Time) bool {
	if p == nil || p.TempPasswordExpiresAt == nil {
		return false
	}
	return now.After(*p.TempPasswordExpiresAt)
}

// EffectiveMatrix returns the matrix the profile operates under: all-grant
// for superusers, the role matrix otherwise, all-deny without a role.
func (p *Profile) EffectiveMatrix() Matrix {
	if p == nil {
		return NewMatrix()
	}
	if p.IsSuperuser {
		return FullMatrix()
	}
	if p.Role == nil {
		return NewMatrix()
	}
	return p.Role.Matrix
}
