// Package service provides the policy enforcer behind the access gate.
package service

import (
	"github.com/casbin/casbin/v2"
	casbinModel "github.com/casbin/casbin/v2/model"

	"github.com/themisguard/datashield/internal/access/domain"
	apperrors "github.com/themisguard/datashield/internal/errors"
)

// rbacModel matches a principal's role against the permission table. Roles
// without policy rows (system_admin, readonly_analyst) match nothing, which
// is the explicit deny.
const rbacModel = `
[request_definition]
r = role, perm

[policy_definition]
p = role, perm

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.role == p.role && r.perm == p.perm
`

// Enforcer answers whether a role holds a permission, backed by the static
// role table loaded into an in-memory casbin enforcer.
type Enforcer struct {
	enforcer *casbin.Enforcer
}

// NewEnforcer builds the enforcer from the static role table.
func NewEnforcer() (*Enforcer, error) {
	model, err := casbinModel.NewModelFromString(rbacModel)
	if err != nil {
		return nil, apperrors.Wrap(err, "parse rbac model")
	}

	enforcer, err := casbin.NewEnforcer(model)
	if err != nil {
		return nil, apperrors.Wrap(err, "create enforcer")
	}

	for role, permissions := range domain.RolePermissions {
		for _, permission := range permissions {
			if _, err := enforcer.AddPolicy(string(role), string(permission)); err != nil {
				return nil, apperrors.Wrap(err, "load role policy")
			}
		}
	}

	return &Enforcer{enforcer: enforcer}, nil
}

// HasPermission reports whether the role grants the permission.
func (e *Enforcer) HasPermission(role domain.Role, permission domain.Permission) (bool, error) {
	return e.enforcer.Enforce(string(role), string(permission))
}
