package account

import "time"

type Role string

const (
	RoleSupervisor Role = "supervisor"
	RoleLabor      Role = "labor"
)

// Profile mirrors the profiles table. Identity is the phone number; the role
// decides whether the holder posts jobs or applies to them.
type Profile struct {
	ID        string
	Phone     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Claims is what a verified bearer token carries.
type Claims struct {
	UserID string
	Role   Role
}

func isValidRole(role Role) bool {
	switch role {
	case RoleSupervisor, RoleLabor:
		return true
	default:
		return false
	}
}
