package storage

import (
	"context"
	"sync"
	"time"

	"github.com/themisguard/datashield/internal/tenant"
)

type memoryDocument struct {
	tenantID  string
	body      map[string]any
	deletedAt *time.Time
}

// MemoryDocumentStore is an in-memory DocumentStore for tests and local
// development.
type MemoryDocumentStore struct {
	mu        sync.Mutex
	documents map[string]map[string]*memoryDocument // table -> resource id
}

// NewMemoryDocumentStore creates an empty MemoryDocumentStore.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		documents: make(map[string]map[string]*memoryDocument),
	}
}

// Put stores or replaces a document.
func (s *MemoryDocumentStore) Put(ctx context.Context, scope tenant.Scope, resourceType, resourceID string, document map[string]any) error {
	table, err := scope.TableName(resourceType)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.documents[table] == nil {
		s.documents[table] = make(map[string]*memoryDocument)
	}
	copied := make(map[string]any, len(document))
	for key, value := range document {
		copied[key] = value
	}
	s.documents[table][resourceID] = &memoryDocument{
		tenantID: scope.TenantID(),
		body:     copied,
	}
	return nil
}

// Get retrieves a live document.
func (s *MemoryDocumentStore) Get(ctx context.Context, scope tenant.Scope, resourceType, resourceID string) (map[string]any, error) {
	table, err := scope.TableName(resourceType)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[table][resourceID]
	if !ok || doc.deletedAt != nil {
		return nil, ErrDocumentNotFound
	}

	copied := make(map[string]any, len(doc.body))
	for key, value := range doc.body {
		copied[key] = value
	}
	return copied, nil
}

// Delete physically removes a document.
func (s *MemoryDocumentStore) Delete(ctx context.Context, scope tenant.Scope, resourceType, resourceID string) error {
	table, err := scope.TableName(resourceType)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents[table], resourceID)
	return nil
}

// SoftDelete marks a document deleted while keeping it recoverable.
func (s *MemoryDocumentStore) SoftDelete(ctx context.Context, scope tenant.Scope, resourceType, resourceID string) error {
	table, err := scope.TableName(resourceType)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.documents[table][resourceID]; ok && doc.deletedAt == nil {
		now := time.Now().UTC()
		doc.deletedAt = &now
	}
	return nil
}

// Exists reports whether the document is physically present.
func (s *MemoryDocumentStore) Exists(ctx context.Context, scope tenant.Scope, resourceType, resourceID string) (bool, error) {
	table, err := scope.TableName(resourceType)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.documents[table][resourceID]
	return ok, nil
}

// DropTenant physically removes every document belonging to the tenant.
func (s *MemoryDocumentStore) DropTenant(ctx context.Context, scope tenant.Scope) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for table, docs := range s.documents {
		for resourceID, doc := range docs {
			if doc.tenantID == scope.TenantID() {
				delete(docs, resourceID)
				removed++
			}
		}
		if len(docs) == 0 {
			delete(s.documents, table)
		}
	}
	return removed, nil
}
