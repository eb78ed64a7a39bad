// Package repository provides data persistence for the customer key registry.
//
// The registry table enforces the one-active-key-per-tenant invariant with a
// unique (tenant_id, active_slot) index: active keys carry slot 1, all other
// states carry NULL. Concurrent creations race on the index and converge on
// the surviving row.
package repository

import (
	"context"
	"database/sql"

	"github.com/themisguard/datashield/internal/database"
	"github.com/themisguard/datashield/internal/keyring/domain"
)

// PostgreSQLCustomerKeyRepository handles customer key persistence for PostgreSQL.
type PostgreSQLCustomerKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLCustomerKeyRepository creates a new PostgreSQLCustomerKeyRepository.
func NewPostgreSQLCustomerKeyRepository(db *sql.DB) *PostgreSQLCustomerKeyRepository {
	return &PostgreSQLCustomerKeyRepository{
		db: db,
	}
}

// Create inserts a new customer key. Returns false without error when another
// row already holds the tenant's active slot.
func (r *PostgreSQLCustomerKeyRepository) Create(ctx context.Context, key *domain.CustomerKey) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO customer_keys (id, tenant_id, key_id, alias, state, active_slot, created_at, rotated_at, destroy_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
			  ON CONFLICT DO NOTHING`

	result, err := querier.ExecContext(ctx, query, key.ID, key.TenantID, key.KeyID, key.Alias,
		key.State, activeSlot(key.State), key.CreatedAt, key.RotatedAt, key.DestroyAt)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetActive retrieves the tenant's active key.
func (r *PostgreSQLCustomerKeyRepository) GetActive(ctx context.Context, tenantID string) (*domain.CustomerKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, key_id, alias, state, created_at, rotated_at, destroy_at
			  FROM customer_keys
			  WHERE tenant_id = $1 AND state = $2`

	var key domain.CustomerKey
	err := querier.QueryRowContext(ctx, query, tenantID, domain.KeyStateActive).Scan(
		&key.ID, &key.TenantID, &key.KeyID, &key.Alias, &key.State,
		&key.CreatedAt, &key.RotatedAt, &key.DestroyAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}

	return &key, nil
}

// GetByState retrieves all tenant keys in the given state.
func (r *PostgreSQLCustomerKeyRepository) GetByState(ctx context.Context, tenantID string, state domain.KeyState) ([]*domain.CustomerKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, key_id, alias, state, created_at, rotated_at, destroy_at
			  FROM customer_keys
			  WHERE tenant_id = $1 AND state = $2
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, tenantID, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var keys []*domain.CustomerKey
	for rows.Next() {
		var key domain.CustomerKey

		err := rows.Scan(&key.ID, &key.TenantID, &key.KeyID, &key.Alias, &key.State,
			&key.CreatedAt, &key.RotatedAt, &key.DestroyAt)
		if err != nil {
			return nil, err
		}

		keys = append(keys, &key)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

// Update updates a customer key's lifecycle fields.
func (r *PostgreSQLCustomerKeyRepository) Update(ctx context.Context, key *domain.CustomerKey) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE customer_keys
			  SET state = $1, active_slot = $2, rotated_at = $3, destroy_at = $4, updated_at = NOW()
			  WHERE id = $5`

	_, err := querier.ExecContext(ctx, query, key.State, activeSlot(key.State),
		key.RotatedAt, key.DestroyAt, key.ID)

	return err
}
