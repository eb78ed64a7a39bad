// Package tenant provides the TenantScope value object that deterministically
// derives every tenant-scoped storage identifier. Constructing a scope validates
// the identifiers once, so no business logic ever builds table names or object
// paths from raw strings.
package tenant

import (
	"fmt"
	"regexp"

	validation "github.com/jellydator/validation"

	apperrors "github.com/themisguard/datashield/internal/errors"
)

var (
	// identifierRegex restricts tenant and resource identifiers to characters
	// that are safe in table names, object keys, and KMS aliases.
	identifierRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]{0,62}$`)
)

// Scope identifies one tenant's slice of every storage backend.
type Scope struct {
	tenantID string
}

// NewScope validates the tenant identifier and returns a Scope for it.
// Returns ErrInvalidInput when the identifier cannot be used to address storage.
func NewScope(tenantID string) (Scope, error) {
	err := validation.Validate(tenantID,
		validation.Required,
		validation.Match(identifierRegex),
	)
	if err != nil {
		return Scope{}, apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("tenant id %q: %s", tenantID, err))
	}
	return Scope{tenantID: tenantID}, nil
}

// MustScope is a test helper that panics on an invalid tenant identifier.
func MustScope(tenantID string) Scope {
	scope, err := NewScope(tenantID)
	if err != nil {
		panic(err)
	}
	return scope
}

// TenantID returns the validated tenant identifier.
func (s Scope) TenantID() string {
	return s.tenantID
}

// TableName derives the document-store table for a tenant-scoped resource type.
func (s Scope) TableName(resourceType string) (string, error) {
	if err := validateResourceIdentifier(resourceType); err != nil {
		return "", err
	}
	return fmt.Sprintf("customer-%s-%s", s.tenantID, resourceType), nil
}

// ObjectPrefix derives the object-store prefix for one resource's blobs.
func (s Scope) ObjectPrefix(resourceType, resourceID string) (string, error) {
	if err := validateResourceIdentifier(resourceType); err != nil {
		return "", err
	}
	if err := validateResourceIdentifier(resourceID); err != nil {
		return "", err
	}
	return fmt.Sprintf("customers/%s/%s/%s/", s.tenantID, resourceType, resourceID), nil
}

// ObjectRoot derives the object-store prefix covering every blob the tenant
// owns.
func (s Scope) ObjectRoot() string {
	return fmt.Sprintf("customers/%s/", s.tenantID)
}

// ExportPrefix derives the object-store prefix for data-export bundles.
func (s Scope) ExportPrefix() string {
	return fmt.Sprintf("customers/%s/exports/", s.tenantID)
}

// KeyAlias derives the key service alias for the tenant's encryption key.
func (s Scope) KeyAlias() string {
	return fmt.Sprintf("alias/customer-%s-key", s.tenantID)
}

func validateResourceIdentifier(value string) error {
	err := validation.Validate(value,
		validation.Required,
		validation.Match(identifierRegex),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("resource identifier %q: %s", value, err))
	}
	return nil
}
