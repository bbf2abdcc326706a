package domain

// Role represents the role carried by an access token.
type Role string

// Roles.
const (
	RoleBarber Role = "barber"
)

// IsValid checks if the role is known.
func (r Role) IsValid() bool {
	return r == RoleBarber
}
