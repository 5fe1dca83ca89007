package identity

import (
	"fmt"
	"strings"
)

// Role is an access-control label gating document visibility and tool permissions.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleVendor     Role = "vendor"
	RoleAssociate  Role = "associate"
	RoleLeadership Role = "leadership"
	RoleHR         Role = "hr"
)

var validRoles = map[Role]bool{
	RoleCustomer:   true,
	RoleVendor:     true,
	RoleAssociate:  true,
	RoleLeadership: true,
	RoleHR:         true,
}

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !validRoles[r] {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

// Identity is the authenticated (tenant, role) pair for a session.
// It is validated once at the service boundary; downstream components
// never re-interpret role shape.
type Identity struct {
	TenantID string
	Role     Role
}

// ErrMissingTenantOrRole is fatal: access scoping cannot be established,
// so no retrieval or generation is attempted.
var ErrMissingTenantOrRole = fmt.Errorf("identity missing tenant or role")

// New validates and builds an Identity.
func New(tenantID, role string) (Identity, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return Identity{}, ErrMissingTenantOrRole
	}
	r, err := ParseRole(role)
	if err != nil {
		return Identity{}, ErrMissingTenantOrRole
	}
	return Identity{TenantID: tenantID, Role: r}, nil
}

// Validate re-checks invariants on an already-built value.
func (id Identity) Validate() error {
	if id.TenantID == "" || !validRoles[id.Role] {
		return ErrMissingTenantOrRole
	}
	return nil
}
