package domain

import dErrors "aurum/pkg/domain-errors"

// Role is the staff or customer role a principal acts under.
// Invariant: the value must be one of the supported roles.
//
// Usage: construct via ParseRole at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Role string

const (
	RoleOwner       Role = "OWNER"
	RoleAdmin       Role = "ADMIN"
	RoleBilling     Role = "BILLING"
	RoleDispatch    Role = "DISPATCH"
	RoleTagEntry    Role = "TAG_ENTRY"
	RoleTagFinalize Role = "TAG_FINALIZE"
	RoleCustomer    Role = "CUSTOMER"

	// RoleSystem tags actions that run without an authenticated actor.
	// It is never assignable to a user.
	RoleSystem Role = "SYSTEM"
)

var assignableRoles = map[Role]bool{
	RoleOwner:       true,
	RoleAdmin:       true,
	RoleBilling:     true,
	RoleDispatch:    true,
	RoleTagEntry:    true,
	RoleTagFinalize: true,
	RoleCustomer:    true,
}

// ParseRole constructs a Role from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, unknown, or SYSTEM.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

// IsValid reports whether the role can be assigned to a user.
func (r Role) IsValid() bool {
	return assignableRoles[r]
}

// IsGated reports whether the role may only authenticate while operations
// are open. Owners and customers are never gated.
func (r Role) IsGated() bool {
	return r.IsValid() && r != RoleOwner && r != RoleCustomer
}

func (r Role) String() string {
	return string(r)
}
