package domain

import (
	"github.com/themisguard/datashield/internal/errors"
)

// Access control error definitions.
var (
	// ErrPermissionDenied indicates the principal's role does not grant the
	// required permission.
	ErrPermissionDenied = errors.Wrap(errors.ErrForbidden, "permission denied")

	// ErrTenantMismatch indicates the principal tried to act on a tenant
	// other than their own.
	ErrTenantMismatch = errors.Wrap(errors.ErrForbidden, "principal and resource tenants differ")

	// ErrNoPrincipal indicates the operation ran without an authenticated
	// principal in scope.
	ErrNoPrincipal = errors.Wrap(errors.ErrUnauthorized, "no principal in context")
)
