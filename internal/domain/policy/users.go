package policy

import "github.com/oksasatya/go-adoptme/internal/domain/entity"

// CanAccessUser allows the user themself or an admin.
func CanAccessUser(s entity.Subject, userID string) bool {
	return s.Authenticated() && (s.IsAdmin() || s.ID == userID)
}

// CanChangeRole is admin only.
func CanChangeRole(s entity.Subject) bool { return s.IsAdmin() }

// CanDeleteUser allows self or admin, but only admins may remove another admin.
func CanDeleteUser(s entity.Subject, target *entity.User) bool {
	if target == nil || !CanAccessUser(s, target.ID) {
		return false
	}
	if target.Role == entity.RoleAdmin && !s.IsAdmin() {
		return false
	}
	return true
}

// CanManagePets covers pet create, update, delete and mock data generation.
func CanManagePets(s entity.Subject) bool { return s.IsAdmin() }
