// Package identity carries the acting principal through a request.
package identity

import (
	"context"
	"slices"
)

// Roles known to the plant.
const (
	RoleOperator   = "Operator"
	RoleTechnician = "Teknisi"
	RoleSupervisor = "Supervisor"
	RoleManager    = "Manager"
)

// Roles lists every valid role.
var Roles = []string{RoleOperator, RoleTechnician, RoleSupervisor, RoleManager}

// ValidRole reports whether role is one of Roles.
func ValidRole(role string) bool {
	return slices.Contains(Roles, role)
}

// Principal is the authenticated caller. The core trusts it completely.
type Principal struct {
	Username   string `json:"username"`
	Role       string `json:"role"`
	Name       string `json:"name"`
	Department string `json:"department"`
}

// DisplayName returns the principal's name, falling back to the username.
func (p Principal) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Username
}

// HasRole reports whether the principal holds any of roles.
func (p Principal) HasRole(roles ...string) bool {
	return slices.Contains(roles, p.Role)
}

type ctxKey struct{}

// With returns a copy of ctx carrying p.
func With(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// From returns the principal stored in ctx.
func From(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok && p.Username != ""
}
