// Package usecase implements the access control gate.
//
// Every customer data operation passes through the gate before it runs.
// Denials short-circuit: the operation body, the envelope engine, and the key
// service are never reached. Every decision, allowed or denied, emits exactly
// one audit event.
package usecase

import (
	"context"

	"github.com/themisguard/datashield/internal/access/domain"
)

// PermissionChecker answers whether a role grants a permission.
type PermissionChecker interface {
	HasPermission(role domain.Role, permission domain.Permission) (bool, error)
}

// Gate authorizes customer data operations.
type Gate interface {
	// Authorize checks that the principal may perform action on the tenant's
	// data with the given permission. Returns nil when allowed; emits exactly
	// one audit event either way.
	Authorize(ctx context.Context, principal domain.Principal, tenantID string, permission domain.Permission, action string) error
}
