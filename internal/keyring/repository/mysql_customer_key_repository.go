package repository

import (
	"context"
	"database/sql"

	"github.com/themisguard/datashield/internal/database"
	"github.com/themisguard/datashield/internal/keyring/domain"
)

// MySQLCustomerKeyRepository handles customer key persistence for MySQL.
type MySQLCustomerKeyRepository struct {
	db *sql.DB
}

// NewMySQLCustomerKeyRepository creates a new MySQLCustomerKeyRepository.
func NewMySQLCustomerKeyRepository(db *sql.DB) *MySQLCustomerKeyRepository {
	return &MySQLCustomerKeyRepository{
		db: db,
	}
}

// Create inserts a new customer key. Returns false without error when another
// row already holds the tenant's active slot.
func (r *MySQLCustomerKeyRepository) Create(ctx context.Context, key *domain.CustomerKey) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT IGNORE INTO customer_keys (id, tenant_id, key_id, alias, state, active_slot, created_at, rotated_at, destroy_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW())`

	result, err := querier.ExecContext(ctx, query, key.ID[:], key.TenantID, key.KeyID, key.Alias,
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
func (r *MySQLCustomerKeyRepository) GetActive(ctx context.Context, tenantID string) (*domain.CustomerKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, key_id, alias, state, created_at, rotated_at, destroy_at
			  FROM customer_keys
			  WHERE tenant_id = ? AND state = ?`

	var key domain.CustomerKey
	var idBytes []byte
	err := querier.QueryRowContext(ctx, query, tenantID, domain.KeyStateActive).Scan(
		&idBytes, &key.TenantID, &key.KeyID, &key.Alias, &key.State,
		&key.CreatedAt, &key.RotatedAt, &key.DestroyAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}

	key.ID, err = bytesToUUID(idBytes)
	if err != nil {
		return nil, err
	}

	return &key, nil
}

// GetByState retrieves all tenant keys in the given state.
func (r *MySQLCustomerKeyRepository) GetByState(ctx context.Context, tenantID string, state domain.KeyState) ([]*domain.CustomerKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, tenant_id, key_id, alias, state, created_at, rotated_at, destroy_at
			  FROM customer_keys
			  WHERE tenant_id = ? AND state = ?
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, tenantID, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var keys []*domain.CustomerKey
	for rows.Next() {
		var key domain.CustomerKey
		var idBytes []byte

		err := rows.Scan(&idBytes, &key.TenantID, &key.KeyID, &key.Alias, &key.State,
			&key.CreatedAt, &key.RotatedAt, &key.DestroyAt)
		if err != nil {
			return nil, err
		}

		key.ID, err = bytesToUUID(idBytes)
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
func (r *MySQLCustomerKeyRepository) Update(ctx context.Context, key *domain.CustomerKey) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE customer_keys
			  SET state = ?, active_slot = ?, rotated_at = ?, destroy_at = ?, updated_at = NOW()
			  WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, key.State, activeSlot(key.State),
		key.RotatedAt, key.DestroyAt, key.ID[:])

	return err
}
