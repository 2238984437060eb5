package domain

import "time"

// Role is the permission class of a staff profile.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)

// StaffRoles lists the roles that appear on the dashboard roster.
var StaffRoles = []Role{RoleAdmin, RoleAgent}

// Valid reports whether the role is one the application knows about.
// Unknown roles may still be stored and are treated as unprivileged.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleAgent
}

// Profile is the application-side record of a staff member. Its ID equals
// the identity ID issued by the authentication provider.
type Profile struct {
	ID        string
	Email     string
	FullName  *string
	Role      Role
	CreatedAt time.Time
}

// IsAdmin is shorthand for the role check used across the dashboard.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// DisplayName returns the full name, falling back to the email.
func (p *Profile) DisplayName() string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return p.Email
}
