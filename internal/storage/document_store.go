// Package storage provides the tenant-scoped document and object stores the
// deletion executor operates on. All addressing goes through tenant.Scope so
// a caller can never reach outside its tenant's slice of the backends.
package storage

import (
	"context"

	"github.com/themisguard/datashield/internal/errors"
	"github.com/themisguard/datashield/internal/tenant"
)

// ErrDocumentNotFound indicates no live document exists at the address.
var ErrDocumentNotFound = errors.Wrap(errors.ErrNotFound, "document not found")

// DocumentStore persists tenant-scoped documents. Soft-deleted documents are
// invisible to Get but still physically present; Exists reports physical
// presence, which is what hard-delete verification needs.
type DocumentStore interface {
	// Put stores or replaces a document.
	Put(ctx context.Context, scope tenant.Scope, resourceType, resourceID string, document map[string]any) error

	// Get retrieves a live document.
	Get(ctx context.Context, scope tenant.Scope, resourceType, resourceID string) (map[string]any, error)

	// Delete physically removes a document.
	Delete(ctx context.Context, scope tenant.Scope, resourceType, resourceID string) error

	// SoftDelete marks a document deleted while keeping it recoverable.
	SoftDelete(ctx context.Context, scope tenant.Scope, resourceType, resourceID string) error

	// Exists reports whether the document is physically present, including
	// soft-deleted documents.
	Exists(ctx context.Context, scope tenant.Scope, resourceType, resourceID string) (bool, error)

	// DropTenant physically removes every document belonging to the tenant.
	// Returns the number of documents removed.
	DropTenant(ctx context.Context, scope tenant.Scope) (int, error)
}
