package workflow

// Role is a coarse permission category carried by the acting user
type Role string

const (
	RoleStaff      Role = "staff"
	RoleApprove    Role = "approve"
	RoleAccomplish Role = "accomplish"
	RoleAccounting Role = "accounting"

	// RoleViewer is assigned to anyone whose role matches no action role
	RoleViewer Role = "viewer"
)

var knownRoles = map[Role]bool{
	RoleStaff:      true,
	RoleApprove:    true,
	RoleAccomplish: true,
	RoleAccounting: true,
	RoleViewer:     true,
}

// ParseRole maps a stored role name onto the closed role vocabulary.
// Anything outside the vocabulary resolves to RoleViewer.
func ParseRole(name string) Role {
	r := Role(name)
	if knownRoles[r] {
		return r
	}
	return RoleViewer
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is part of the vocabulary
func (r Role) IsValid() bool {
	return knownRoles[r]
}

// CanSign returns true if the role may be named as the required role of a transition
func (r Role) CanSign() bool {
	return r.IsValid() && r != RoleViewer
}
