package alertsub

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veriscope/veriscope/internal/db"
)

type Store struct {
	dbtx db.DBTX
}

func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const subscriptionColumns = `id, tenant_id, user_id, scope, entity_type, entity_id, severity_min, confidence_min,
	channel, endpoint, secret, signature_version, is_enabled, created_at, updated_at`

func scanSubscription(row pgx.Row) (Subscription, error) {
	var s Subscription
	err := row.Scan(
		&s.ID, &s.TenantID, &s.UserID, &s.Scope, &s.EntityType, &s.EntityID, &s.SeverityMin, &s.ConfidenceMin,
		&s.Channel, &s.Endpoint, &s.Secret, &s.SignatureVersion, &s.IsEnabled, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

func scanSubscriptions(rows pgx.Rows) ([]Subscription, error) {
	defer rows.Close()
	var items []Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning subscription row: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscription rows: %w", err)
	}
	return items, nil
}

func (s *Store) GetByID(ctx context.Context, tenantID, id uuid.UUID) (Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM alert_subscriptions WHERE tenant_id = $1 AND id = $2`
	return scanSubscription(s.dbtx.QueryRow(ctx, query, tenantID, id))
}

func (s *Store) List(ctx context.Context, tenantID uuid.UUID) ([]Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM alert_subscriptions WHERE tenant_id = $1 ORDER BY created_at DESC`
	rows, err := s.dbtx.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	return scanSubscriptions(rows)
}

// Enabled returns every is_enabled subscription for a tenant, optionally
// scoped to a single user, for the dispatcher's per-run load step.
func (s *Store) Enabled(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID) ([]Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM alert_subscriptions WHERE tenant_id = $1 AND is_enabled = true`
	args := []any{tenantID}
	if userID != nil {
		args = append(args, *userID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	rows, err := s.dbtx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing enabled subscriptions: %w", err)
	}
	return scanSubscriptions(rows)
}

func (s *Store) Create(ctx context.Context, tenantID, userID uuid.UUID, req CreateRequest) (Subscription, error) {
	query := `INSERT INTO alert_subscriptions (
		tenant_id, user_id, scope, entity_type, entity_id, severity_min, confidence_min, channel, endpoint, secret
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	RETURNING ` + subscriptionColumns

	row := s.dbtx.QueryRow(ctx, query,
		tenantID, userID, req.Scope, req.EntityType, req.EntityID, req.SeverityMin, req.ConfidenceMin,
		req.Channel, req.Endpoint, req.Secret,
	)
	return scanSubscription(row)
}

func (s *Store) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateRequest) (Subscription, error) {
	query := `UPDATE alert_subscriptions SET
		severity_min   = COALESCE($3, severity_min),
		confidence_min = COALESCE($4, confidence_min),
		endpoint       = COALESCE($5, endpoint),
		secret         = COALESCE($6, secret),
		is_enabled     = COALESCE($7, is_enabled),
		updated_at     = now()
	WHERE tenant_id = $1 AND id = $2
	RETURNING ` + subscriptionColumns

	row := s.dbtx.QueryRow(ctx, query, tenantID, id, req.SeverityMin, req.ConfidenceMin, req.Endpoint, req.Secret, req.IsEnabled)
	return scanSubscription(row)
}

func (s *Store) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := s.dbtx.Exec(ctx, `DELETE FROM alert_subscriptions WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
