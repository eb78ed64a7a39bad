package repository

import (
	"context"
	"database/sql"

	auditDomain "github.com/themisguard/datashield/internal/audit/domain"
	"github.com/themisguard/datashield/internal/database"
)

// MySQLOutboxEventRepository handles audit outbox persistence for MySQL.
// UUIDs are stored as BINARY(16) and timestamps as DATETIME(6).
type MySQLOutboxEventRepository struct {
	db *sql.DB
}

// NewMySQLOutboxEventRepository creates a new MySQLOutboxEventRepository.
func NewMySQLOutboxEventRepository(db *sql.DB) *MySQLOutboxEventRepository {
	return &MySQLOutboxEventRepository{
		db: db,
	}
}

// Create inserts a new buffered audit event.
func (r *MySQLOutboxEventRepository) Create(ctx context.Context, event *auditDomain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO audit_outbox_events (id, event_type, payload, status, retries, last_error, processed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, NOW(6), NOW(6))`

	_, err := querier.ExecContext(ctx, query, event.ID[:], event.EventType, event.Payload, event.Status,
		event.Retries, event.LastError, event.ProcessedAt)

	return err
}

// GetPendingEvents retrieves pending events with limit, locking them against
// concurrent relay workers.
func (r *MySQLOutboxEventRepository) GetPendingEvents(
	ctx context.Context,
	limit int,
) ([]*auditDomain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, event_type, payload, status, retries, last_error, processed_at, created_at, updated_at
			  FROM audit_outbox_events
			  WHERE status = ?
			  ORDER BY created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, auditDomain.OutboxEventStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var events []*auditDomain.OutboxEvent
	for rows.Next() {
		var event auditDomain.OutboxEvent
		var id []byte

		err := rows.Scan(&id, &event.EventType, &event.Payload, &event.Status,
			&event.Retries, &event.LastError, &event.ProcessedAt, &event.CreatedAt, &event.UpdatedAt)
		if err != nil {
			return nil, err
		}

		if event.ID, err = bytesToUUID(id); err != nil {
			return nil, err
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// Update updates a buffered audit event.
func (r *MySQLOutboxEventRepository) Update(ctx context.Context, event *auditDomain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE audit_outbox_events
			  SET event_type = ?, payload = ?, status = ?, retries = ?, last_error = ?,
			      processed_at = ?, updated_at = NOW(6)
			  WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, event.EventType, event.Payload, event.Status,
		event.Retries, event.LastError, event.ProcessedAt, event.ID[:])

	return err
}
