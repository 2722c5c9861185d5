package domain

// Role constants define the allowed user roles.
const (
	RoleAdmin     = "ADMIN"
	RoleTeacher   = "TEACHER"
	RoleSecretary = "SECRETARY"
)

// ValidRoles returns the set of valid user roles.
func ValidRoles() []string {
	return []string{RoleAdmin, RoleTeacher, RoleSecretary}
}

// IsValidRole checks whether the given role string is a valid user role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// SignupDeciderRoles are the roles allowed to list and decide signup requests.
func SignupDeciderRoles() []string {
	return []string{RoleAdmin, RoleSecretary}
}
