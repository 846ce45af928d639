package auth

// Role represents an API role carried in token claims.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleReporter Role = "reporter"
	RoleVerifier Role = "verifier"
	RoleSender   Role = "sender"
	RoleAdmin    Role = "admin"
)

// NormalizeRole validates and normalizes a role string.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleViewer, RoleReporter, RoleVerifier, RoleSender, RoleAdmin:
		return Role(value), true
	default:
		return "", false
	}
}

// RoleSatisfies returns true when any of the granted roles covers the
// required one. Roles are independent grants, not ranks: admin covers
// everything, and every authenticated role covers viewer.
func RoleSatisfies(granted []Role, required Role) bool {
	for _, role := range granted {
		if role == RoleAdmin || role == required {
			return true
		}
		if required == RoleViewer && role != "" {
			return true
		}
	}
	return false
}
