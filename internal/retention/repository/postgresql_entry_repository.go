// Package repository provides data persistence for the retention ledger and
// the deletion queue.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/themisguard/datashield/internal/database"
	"github.com/themisguard/datashield/internal/retention/domain"
)

// PostgreSQLEntryRepository handles retention ledger persistence for PostgreSQL.
type PostgreSQLEntryRepository struct {
	db *sql.DB
}

// NewPostgreSQLEntryRepository creates a new PostgreSQLEntryRepository.
func NewPostgreSQLEntryRepository(db *sql.DB) *PostgreSQLEntryRepository {
	return &PostgreSQLEntryRepository{
		db: db,
	}
}

// Create inserts a new retention ledger entry.
func (r *PostgreSQLEntryRepository) Create(ctx context.Context, entry *domain.Entry) error {
	querier := database.GetTx(ctx, r.db)

	extensions, err := marshalExtensions(entry.Extensions)
	if err != nil {
		return err
	}

	query := `INSERT INTO retention_entries (id, tenant_id, resource_type, resource_id, category, status, audit_level, stored_at, expires_at, extensions, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`

	_, err = querier.ExecContext(ctx, query, entry.ID, entry.TenantID, entry.ResourceType, entry.ResourceID,
		entry.Category, entry.Status, entry.AuditLevel, entry.StoredAt, entry.ExpiresAt, extensions)

	return err
}

// GetByID retrieves one ledger entry.
func (r *PostgreSQLEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, resource_type, resource_id, category, status, audit_level, stored_at, expires_at, extensions, created_at, updated_at
			  FROM retention_entries
			  WHERE id = $1`

	entry, err := scanEntry(querier.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListExpired retrieves active entries whose window has passed, locked
// against concurrent sweepers.
func (r *PostgreSQLEntryRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]*domain.Entry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, resource_type, resource_id, category, status, audit_level, stored_at, expires_at, extensions, created_at, updated_at
			  FROM retention_entries
			  WHERE status = $1 AND expires_at IS NOT NULL AND expires_at <= $2
			  ORDER BY expires_at ASC
			  LIMIT $3
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.EntryStatusActive, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanEntries(rows)
}

// ListByTenant retrieves all ledger entries for a tenant.
func (r *PostgreSQLEntryRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Entry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, resource_type, resource_id, category, status, audit_level, stored_at, expires_at, extensions, created_at, updated_at
			  FROM retention_entries
			  WHERE tenant_id = $1
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanEntries(rows)
}

// Update updates a ledger entry's status, expiry, and extension history.
func (r *PostgreSQLEntryRepository) Update(ctx context.Context, entry *domain.Entry) error {
	querier := database.GetTx(ctx, r.db)

	extensions, err := marshalExtensions(entry.Extensions)
	if err != nil {
		return err
	}

	query := `UPDATE retention_entries
			  SET status = $1, expires_at = $2, extensions = $3, updated_at = NOW()
			  WHERE id = $4`

	_, err = querier.ExecContext(ctx, query, entry.Status, entry.ExpiresAt, extensions, entry.ID)

	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var entry domain.Entry
	var extensions []byte

	err := row.Scan(&entry.ID, &entry.TenantID, &entry.ResourceType, &entry.ResourceID,
		&entry.Category, &entry.Status, &entry.AuditLevel, &entry.StoredAt, &entry.ExpiresAt, &extensions,
		&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(extensions) > 0 {
		if err := json.Unmarshal(extensions, &entry.Extensions); err != nil {
			return nil, err
		}
	}
	return &entry, nil
}

func scanEntries(rows *sql.Rows) ([]*domain.Entry, error) {
	var entries []*domain.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// marshalExtensions serializes the append-only extension history for storage.
func marshalExtensions(extensions []domain.Extension) ([]byte, error) {
	if len(extensions) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(extensions)
}
