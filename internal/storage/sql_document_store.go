package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/themisguard/datashield/internal/database"
	"github.com/themisguard/datashield/internal/tenant"
)

// SQLDocumentStore implements DocumentStore on a relational backend. Documents
// live in a single table keyed by the tenant-derived table name, so the
// customer-<tenant>-<resource_type> addressing survives without runtime DDL.
type SQLDocumentStore struct {
	db       *sql.DB
	bindvars func(n int) []string
}

// NewPostgreSQLDocumentStore creates a DocumentStore for PostgreSQL.
func NewPostgreSQLDocumentStore(db *sql.DB) *SQLDocumentStore {
	return &SQLDocumentStore{db: db, bindvars: postgresBindvars}
}

// NewMySQLDocumentStore creates a DocumentStore for MySQL.
func NewMySQLDocumentStore(db *sql.DB) *SQLDocumentStore {
	return &SQLDocumentStore{db: db, bindvars: mysqlBindvars}
}

func postgresBindvars(n int) []string {
	vars := make([]string, n)
	for i := range vars {
		vars[i] = fmt.Sprintf("$%d", i+1)
	}
	return vars
}

func mysqlBindvars(n int) []string {
	vars := make([]string, n)
	for i := range vars {
		vars[i] = "?"
	}
	return vars
}

// Put stores or replaces a document.
func (s *SQLDocumentStore) Put(ctx context.Context, scope tenant.Scope, resourceType, resourceID string, document map[string]any) error {
	table, err := scope.TableName(resourceType)
	if err != nil {
		return err
	}
	body, err := json.Marshal(document)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, s.db)
	vars := s.bindvars(4)

	// Upsert via delete-then-insert keeps the statement portable across both
	// supported backends.
	if _, err := querier.ExecContext(ctx,
		`DELETE FROM tenant_documents WHERE tenant_table = `+vars[0]+` AND resource_id = `+vars[1],
		table, resourceID); err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx,
		`INSERT INTO tenant_documents (tenant_id, tenant_table, resource_id, body, deleted_at, created_at, updated_at)
		 VALUES (`+vars[0]+`, `+vars[1]+`, `+vars[2]+`, `+vars[3]+`, NULL, NOW(), NOW())`,
		scope.TenantID(), table, resourceID, body)
	return err
}

// Get retrieves a live document.
func (s *SQLDocumentStore) Get(ctx context.Context, scope tenant.Scope, resourceType, resourceID string) (map[string]any, error) {
	table, err := scope.TableName(resourceType)
	if err != nil {
		return nil, err
	}

	querier := database.GetTx(ctx, s.db)
	vars := s.bindvars(2)

	var body []byte
	err = querier.QueryRowContext(ctx,
		`SELECT body FROM tenant_documents
		 WHERE tenant_table = `+vars[0]+` AND resource_id = `+vars[1]+` AND deleted_at IS NULL`,
		table, resourceID).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}

	var document map[string]any
	if err := json.Unmarshal(body, &document); err != nil {
		return nil, err
	}
	return document, nil
}

// Delete physically removes a document.
func (s *SQLDocumentStore) Delete(ctx context.Context, scope tenant.Scope, resourceType, resourceID string) error {
	table, err := scope.TableName(resourceType)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, s.db)
	vars := s.bindvars(2)

	_, err = querier.ExecContext(ctx,
		`DELETE FROM tenant_documents WHERE tenant_table = `+vars[0]+` AND resource_id = `+vars[1],
		table, resourceID)
	return err
}

// SoftDelete marks a document deleted while keeping it recoverable.
func (s *SQLDocumentStore) SoftDelete(ctx context.Context, scope tenant.Scope, resourceType, resourceID string) error {
	table, err := scope.TableName(resourceType)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, s.db)
	vars := s.bindvars(2)

	_, err = querier.ExecContext(ctx,
		`UPDATE tenant_documents SET deleted_at = NOW(), updated_at = NOW()
		 WHERE tenant_table = `+vars[0]+` AND resource_id = `+vars[1]+` AND deleted_at IS NULL`,
		table, resourceID)
	return err
}

// Exists reports whether the document is physically present.
func (s *SQLDocumentStore) Exists(ctx context.Context, scope tenant.Scope, resourceType, resourceID string) (bool, error) {
	table, err := scope.TableName(resourceType)
	if err != nil {
		return false, err
	}

	querier := database.GetTx(ctx, s.db)
	vars := s.bindvars(2)

	var count int
	err = querier.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tenant_documents WHERE tenant_table = `+vars[0]+` AND resource_id = `+vars[1],
		table, resourceID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DropTenant physically removes every document belonging to the tenant.
func (s *SQLDocumentStore) DropTenant(ctx context.Context, scope tenant.Scope) (int, error) {
	querier := database.GetTx(ctx, s.db)
	vars := s.bindvars(1)

	result, err := querier.ExecContext(ctx,
		`DELETE FROM tenant_documents WHERE tenant_id = `+vars[0], scope.TenantID())
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
