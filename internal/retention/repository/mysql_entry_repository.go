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

// MySQLEntryRepository handles retention ledger persistence for MySQL.
type MySQLEntryRepository struct {
	db *sql.DB
}

// NewMySQLEntryRepository creates a new MySQLEntryRepository.
func NewMySQLEntryRepository(db *sql.DB) *MySQLEntryRepository {
	return &MySQLEntryRepository{
		db: db,
	}
}

// Create inserts a new retention ledger entry.
func (r *MySQLEntryRepository) Create(ctx context.Context, entry *domain.Entry) error {
	querier := database.GetTx(ctx, r.db)

	extensions, err := marshalExtensions(entry.Extensions)
	if err != nil {
		return err
	}

	query := `INSERT INTO retention_entries (id, tenant_id, resource_type, resource_id, category, status, audit_level, stored_at, expires_at, extensions, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`

	_, err = querier.ExecContext(ctx, query, entry.ID[:], entry.TenantID, entry.ResourceType, entry.ResourceID,
		entry.Category, entry.Status, entry.AuditLevel, entry.StoredAt, entry.ExpiresAt, extensions)

	return err
}

// GetByID retrieves one ledger entry.
func (r *MySQLEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, resource_type, resource_id, category, status, audit_level, stored_at, expires_at, extensions, created_at, updated_at
			  FROM retention_entries
			  WHERE id = ?`

	entry, err := scanMySQLEntry(querier.QueryRowContext(ctx, query, id[:]))
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
func (r *MySQLEntryRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]*domain.Entry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, resource_type, resource_id, category, status, audit_level, stored_at, expires_at, extensions, created_at, updated_at
			  FROM retention_entries
			  WHERE status = ? AND expires_at IS NOT NULL AND expires_at <= ?
			  ORDER BY expires_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.EntryStatusActive, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanMySQLEntries(rows)
}

// ListByTenant retrieves all ledger entries for a tenant.
func (r *MySQLEntryRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Entry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, resource_type, resource_id, category, status, audit_level, stored_at, expires_at, extensions, created_at, updated_at
			  FROM retention_entries
			  WHERE tenant_id = ?
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanMySQLEntries(rows)
}

// Update updates a ledger entry's status, expiry, and extension history.
func (r *MySQLEntryRepository) Update(ctx context.Context, entry *domain.Entry) error {
	querier := database.GetTx(ctx, r.db)

	extensions, err := marshalExtensions(entry.Extensions)
	if err != nil {
		return err
	}

	query := `UPDATE retention_entries
			  SET status = ?, expires_at = ?, extensions = ?, updated_at = NOW()
			  WHERE id = ?`

	_, err = querier.ExecContext(ctx, query, entry.Status, entry.ExpiresAt, extensions, entry.ID[:])

	return err
}

func scanMySQLEntry(row rowScanner) (*domain.Entry, error) {
	var entry domain.Entry
	var idBytes []byte
	var extensions []byte

	err := row.Scan(&idBytes, &entry.TenantID, &entry.ResourceType, &entry.ResourceID,
		&entry.Category, &entry.Status, &entry.AuditLevel, &entry.StoredAt, &entry.ExpiresAt, &extensions,
		&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, err
	}

	entry.ID, err = uuid.FromBytes(idBytes)
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

func scanMySQLEntries(rows *sql.Rows) ([]*domain.Entry, error) {
	var entries []*domain.Entry
	for rows.Next() {
		entry, err := scanMySQLEntry(rows)
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
