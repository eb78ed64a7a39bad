package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/themisguard/datashield/internal/database"
	"github.com/themisguard/datashield/internal/retention/domain"
)

// MySQLQueueRepository handles deletion queue persistence for MySQL.
type MySQLQueueRepository struct {
	db *sql.DB
}

// NewMySQLQueueRepository creates a new MySQLQueueRepository.
func NewMySQLQueueRepository(db *sql.DB) *MySQLQueueRepository {
	return &MySQLQueueRepository{
		db: db,
	}
}

// Create inserts a new deletion queue item.
func (r *MySQLQueueRepository) Create(ctx context.Context, item *domain.QueueItem) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO deletion_queue_items (id, entry_id, tenant_id, resource_type, resource_id, category, method, status, requested_by, reason, attempts, last_error, approved_by, approved_at, completed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, item.ID[:], item.EntryID[:], item.TenantID, item.ResourceType,
		item.ResourceID, item.Category, item.Method, item.Status, item.RequestedBy, item.Reason,
		item.Attempts, item.LastError, item.ApprovedBy, item.ApprovedAt, item.CompletedAt)

	return err
}

// GetByID retrieves one queue item.
func (r *MySQLQueueRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.QueueItem, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, entry_id, tenant_id, resource_type, resource_id, category, method, status, requested_by, reason, attempts, last_error, approved_by, approved_at, completed_at, created_at, updated_at
			  FROM deletion_queue_items
			  WHERE id = ?`

	item, err := scanMySQLQueueItem(querier.QueryRowContext(ctx, query, id[:]))
	if err == sql.ErrNoRows {
		return nil, domain.ErrQueueItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListByStatus retrieves queue items in the given status, locked against
// concurrent executors.
func (r *MySQLQueueRepository) ListByStatus(ctx context.Context, status domain.QueueItemStatus, limit int) ([]*domain.QueueItem, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, entry_id, tenant_id, resource_type, resource_id, category, method, status, requested_by, reason, attempts, last_error, approved_by, approved_at, completed_at, created_at, updated_at
			  FROM deletion_queue_items
			  WHERE status = ?
			  ORDER BY created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanMySQLQueueItems(rows)
}

// ListByTenant retrieves all queue items for a tenant.
func (r *MySQLQueueRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.QueueItem, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, entry_id, tenant_id, resource_type, resource_id, category, method, status, requested_by, reason, attempts, last_error, approved_by, approved_at, completed_at, created_at, updated_at
			  FROM deletion_queue_items
			  WHERE tenant_id = ?
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanMySQLQueueItems(rows)
}

// Update updates a queue item's execution state.
func (r *MySQLQueueRepository) Update(ctx context.Context, item *domain.QueueItem) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE deletion_queue_items
			  SET status = ?, attempts = ?, last_error = ?, approved_by = ?, approved_at = ?, completed_at = ?, updated_at = NOW()
			  WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, item.Status, item.Attempts, item.LastError,
		item.ApprovedBy, item.ApprovedAt, item.CompletedAt, item.ID[:])

	return err
}

func scanMySQLQueueItem(row rowScanner) (*domain.QueueItem, error) {
	var item domain.QueueItem
	var idBytes, entryIDBytes []byte

	err := row.Scan(&idBytes, &entryIDBytes, &item.TenantID, &item.ResourceType, &item.ResourceID,
		&item.Category, &item.Method, &item.Status, &item.RequestedBy, &item.Reason,
		&item.Attempts, &item.LastError, &item.ApprovedBy, &item.ApprovedAt, &item.CompletedAt,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if item.ID, err = uuid.FromBytes(idBytes); err != nil {
		return nil, err
	}
	if item.EntryID, err = uuid.FromBytes(entryIDBytes); err != nil {
		return nil, err
	}
	return &item, nil
}

func scanMySQLQueueItems(rows *sql.Rows) ([]*domain.QueueItem, error) {
	var items []*domain.QueueItem
	for rows.Next() {
		item, err := scanMySQLQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
