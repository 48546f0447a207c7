package rbac

// Reason is a machine-readable denial code surfaced to the caller.
type Reason string

const (
	ReasonAuthRequired            Reason = "auth_required"
	ReasonDashboardUserMissing    Reason = "dashboard_user_missing"
	ReasonDashboardUserDeleted    Reason = "dashboard_user_deleted"
	ReasonDashboardUserInactive   Reason = "dashboard_user_inactive"
	ReasonRoleMissing             Reason = "role_missing"
	ReasonRoleInactive            Reason = "role_inactive"
	ReasonPasswordChangeRequired  Reason = "password_change_required"
	ReasonInsufficientPermissions Reason = "insufficient_permissions"
)

// Access is the result of evaluating a principal. It is computed fresh on
// every request; nothing here survives across requests.
type Access struct {
	Profile *Profile
	Allowed bool
	Reason  Reason
}

// Denied constructs a denial without a profile.
func Denied(reason Reason) Access {
	return Access{Allowed: false, Reason: reason}
}

// Evaluate runs the per-principal state machine. A nil profile means the
// session referenced a dashboard user that no longer exists. Superusers
// short-circuit the matrix entirely.
func Evaluate(profile *Profile) Access {
	if profile != nil && profile.IsSuperuser {
		return Access{Profile: profile, Allowed: true}
	}
	if profile == nil {
		return Denied(ReasonDashboardUserMissing)
	}
	if profile.DeletedAt != nil {
		return Access{Profile: profile, Reason: ReasonDashboardUserDeleted}
	}
	if !profile.IsActive {
		return Access{Profile: profile, Reason: ReasonDashboardUserInactive}
	}
	if profile.Role == nil {
		return Access{Profile: profile, Reason: ReasonRoleMissing}
	}
	if profile.Role.DeletedAt != nil || !profile.Role.IsActive {
		return Access{Profile: profile, Reason: ReasonRoleInactive}
	}
	return Access{Profile: profile, Allowed: true}
}

// Can reports whether the evaluated principal may perform action on module.
func (a Access) Can(module Module, action Action) bool {
	if !a.Allowed {
		return false
	}
	if a.Profile != nil && a.Profile.IsSuperuser {
		return true
	}
	if a.Profile == nil || a.Profile.Role == nil {
		return false
	}
	return a.Profile.Role.Matrix.Allows(module, action)
}

// CanReadAnything reports whether any module grants read. The dashboard home
// is visible to any principal with at least one read permission.
func (a Access) CanReadAnything() bool {
	if !a.Allowed {
		return false
	}
	if a.Profile != nil && a.Profile.IsSuperuser {
		return true
	}
	for _, module := range Modules() {
		if a.Can(module, ActionRead) {
			return true
		}
	}
	return false
}

// MustChangePassword reports whether the principal is in the forced
// password-change state.
func (a Access) MustChangePassword() bool {
	return a.Profile != nil && a.Profile.MustChangePassword
}
