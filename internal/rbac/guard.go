package rbac

// Admin-lockout guard arithmetic. All functions are pure over the active
// profiles loaded by FetchActiveProfiles inside the mutating transaction;
// that read locks the counted user rows, so two concurrent demotions
// serialize on them rather than both counting a stale set and slipping past
// the check.

// CountActiveAdminCapable counts active, non-deleted, admin-capable
// profiles, optionally excluding one profile ID (the mutation target).
// Pass 0 to exclude nobody.
func CountActiveAdminCapable(profiles []Profile, excludeProfileID int64) int {
	total := 0
	for i := range profiles {
		p := &profiles[i]
		if excludeProfileID != 0 && p.ID == excludeProfileID {
			continue
		}
		if p.AdminCapable() {
			total++
		}
	}
	return total
}

// CountActiveAdminCapableOutsideRole counts admin-capable profiles whose
// role is not the given one. Demoting, deactivating or deleting a role is
// rejected when this count is zero and the role currently backs at least one
// active admin-capable profile.
func CountActiveAdminCapableOutsideRole(profiles []Profile, roleID int64) int {
	total := 0
	for i := range profiles {
		p := &profiles[i]
		if p.Role != nil && p.Role.ID == roleID {
			continue
		}
		if p.AdminCapable() {
			total++
		}
	}
	return total
}

// CountActiveMembersOfRole counts active, non-deleted profiles attached to
// the role, regardless of admin capability.
func CountActiveMembersOfRole(profiles []Profile, roleID int64) int {
	total := 0
	for i := range profiles {
		p := &profiles[i]
		if p.Role == nil || p.Role.ID != roleID {
			continue
		}
		if p.Active() {
			total++
		}
	}
	return total
}
