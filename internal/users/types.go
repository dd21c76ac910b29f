package users

import "time"

// Role is the staff role assigned to a user account.
type Role string

const (
	RoleLawyer    Role = "lawyer"
	RoleAttendant Role = "attendant"
	RoleAdmin     Role = "admin"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleLawyer, RoleAttendant, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is a staff account. The password hash never leaves the service.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
	Phone    string `json:"phone"`
}

type UpdateRequest struct {
	Name     *string `json:"name"`
	Role     *Role   `json:"role"`
	Phone    *string `json:"phone"`
	Active   *bool   `json:"active"`
	Password *string `json:"password"`
}
