package apikey

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const apiKeyColumns = `id, tenant_id, user_id, key_hash, key_prefix, description, revoked_at, created_at`

// Store provides database operations for API keys using the global pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates an API key Store backed by the given global connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateParams holds parameters for creating an API key.
type CreateParams struct {
	TenantID    uuid.UUID
	UserID      uuid.UUID
	KeyHash     string
	KeyPrefix   string
	Description string
}

func scanRow(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(
		&r.ID, &r.TenantID, &r.UserID, &r.KeyHash, &r.KeyPrefix,
		&r.Description, &r.RevokedAt, &r.CreatedAt,
	)
	return r, err
}

func scanRows(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()
	var items []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating api key rows: %w", err)
	}
	return items, nil
}

// List returns all API keys for the given tenant.
func (s *Store) List(ctx context.Context, tenantID uuid.UUID) ([]Row, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE tenant_id = $1 ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	return scanRows(rows)
}

// Create inserts a new API key and returns the created row.
func (s *Store) Create(ctx context.Context, p CreateParams) (Row, error) {
	query := `INSERT INTO api_keys (tenant_id, user_id, key_hash, key_prefix, description)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING ` + apiKeyColumns

	row := s.pool.QueryRow(ctx, query, p.TenantID, p.UserID, p.KeyHash, p.KeyPrefix, p.Description)
	return scanRow(row)
}

// FindByHash looks up a non-revoked API key by its hash. Returns pgx.ErrNoRows
// if no such key exists or it has been revoked.
func (s *Store) FindByHash(ctx context.Context, keyHash string) (Row, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL`
	row := s.pool.QueryRow(ctx, query, keyHash)
	return scanRow(row)
}

// Revoke sets revoked_at on an API key by ID.
func (s *Store) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
