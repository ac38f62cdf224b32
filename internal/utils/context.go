package utils

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "email"
	UserRoleKey  contextKey = "role"
)

const (
	RoleClient   = "client"
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

// IsStaffRole reports whether role may use the back-office.
func IsStaffRole(role string) bool {
	return role == RoleAdmin || role == RoleEmployee
}
