package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/themisguard/datashield/internal/database"
	"github.com/themisguard/datashield/internal/retention/domain"
)

// PostgreSQLQueueRepository handles deletion queue persistence for PostgreSQL.
type PostgreSQLQueueRepository struct {
	db *sql.DB
}

// NewPostgreSQLQueueRepository creates a new PostgreSQLQueueRepository.
func NewPostgreSQLQueueRepository(db *sql.DB) *PostgreSQLQueueRepository {
	return &PostgreSQLQueueRepository{
		db: db,
	}
}

// Create inserts a new deletion queue item.
func (r *PostgreSQLQueueRepository) Create(ctx context.Context, item *domain.QueueItem) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO deletion_queue_items (id, entry_id, tenant_id, resource_type, resource_id, category, method, status, requested_by, reason, attempts, last_error, approved_by, approved_at, completed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, item.ID, item.EntryID, item.TenantID, item.ResourceType,
		item.ResourceID, item.Category, item.Method, item.Status, item.RequestedBy, item.Reason,
		item.Attempts, item.LastError, item.ApprovedBy, item.ApprovedAt, item.CompletedAt)

	return err
}

// GetByID retrieves one queue item.
func (r *PostgreSQLQueueRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.QueueItem, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, entry_id, tenant_id, resource_type, resource_id, category, method, status, requested_by, reason, attempts, last_error, approved_by, approved_at, completed_at, created_at, updated_at
			  FROM deletion_queue_items
			  WHERE id = $1`

	item, err := scanQueueItem(querier.QueryRowContext(ctx, query, id))
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
func (r *PostgreSQLQueueRepository) ListByStatus(ctx context.Context, status domain.QueueItemStatus, limit int) ([]*domain.QueueItem, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, entry_id, tenant_id, resource_type, resource_id, category, method, status, requested_by, reason, attempts, last_error, approved_by, approved_at, completed_at, created_at, updated_at
			  FROM deletion_queue_items
			  WHERE status = $1
			  ORDER BY created_at ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanQueueItems(rows)
}

// ListByTenant retrieves all queue items for a tenant.
func (r *PostgreSQLQueueRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.QueueItem, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, entry_id, tenant_id, resource_type, resource_id, category, method, status, requested_by, reason, attempts, last_error, approved_by, approved_at, completed_at, created_at, updated_at
			  FROM deletion_queue_items
			  WHERE tenant_id = $1
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanQueueItems(rows)
}

// Update updates a queue item's execution state.
func (r *PostgreSQLQueueRepository) Update(ctx context.Context, item *domain.QueueItem) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE deletion_queue_items
			  SET status = $1, attempts = $2, last_error = $3, approved_by = $4, approved_at = $5, completed_at = $6, updated_at = NOW()
			  WHERE id = $7`

	_, err := querier.ExecContext(ctx, query, item.Status, item.Attempts, item.LastError,
		item.ApprovedBy, item.ApprovedAt, item.CompletedAt, item.ID)

	return err
}

func scanQueueItem(row rowScanner) (*domain.QueueItem, error) {
	var item domain.QueueItem

	err := row.Scan(&item.ID, &item.EntryID, &item.TenantID, &item.ResourceType, &item.ResourceID,
		&item.Category, &item.Method, &item.Status, &item.RequestedBy, &item.Reason,
		&item.Attempts, &item.LastError, &item.ApprovedBy, &item.ApprovedAt, &item.CompletedAt,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func scanQueueItems(rows *sql.Rows) ([]*domain.QueueItem, error) {
	var items []*domain.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
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
