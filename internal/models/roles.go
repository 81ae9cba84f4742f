package models

// Account roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var validRoles = map[string]bool{
	RoleUser:  true,
	RoleAdmin: true,
}

// IsValidRole reports whether role is one the store accepts.
func IsValidRole(role string) bool {
	return validRoles[role]
}
