package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veriscope/veriscope/internal/db"
	"github.com/veriscope/veriscope/internal/httpserver"
)

type Store struct {
	dbtx db.DBTX
}

func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const deliveryColumns = `id, run_id, subscription_id, cluster_id, tenant_id, user_id, status, attempts,
	last_http_status, latency_ms, sent_at, error, created_at`

func scanDelivery(row pgx.Row) (Delivery, error) {
	var d Delivery
	err := row.Scan(
		&d.ID, &d.RunID, &d.SubscriptionID, &d.ClusterID, &d.TenantID, &d.UserID, &d.Status, &d.Attempts,
		&d.LastHTTPStatus, &d.LatencyMs, &d.SentAt, &d.Error, &d.CreatedAt,
	)
	return d, err
}

func scanDeliveries(rows pgx.Rows) ([]Delivery, error) {
	defer rows.Close()
	var items []Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning delivery row: %w", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating delivery rows: %w", err)
	}
	return items, nil
}

// Create records a new delivery attempt set for (run, subscription, cluster).
func (s *Store) Create(ctx context.Context, d Delivery) (Delivery, error) {
	query := `INSERT INTO alert_deliveries (
		run_id, subscription_id, cluster_id, tenant_id, user_id, status, attempts,
		last_http_status, latency_ms, sent_at, error
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	RETURNING ` + deliveryColumns

	row := s.dbtx.QueryRow(ctx, query,
		d.RunID, d.SubscriptionID, d.ClusterID, d.TenantID, d.UserID, d.Status, d.Attempts,
		d.LastHTTPStatus, d.LatencyMs, d.SentAt, d.Error,
	)
	return scanDelivery(row)
}

// UpdateResult updates the terminal status, attempt count, and outcome
// fields of a delivery after a send has finished.
func (s *Store) UpdateResult(ctx context.Context, id uuid.UUID, status string, attempts int, lastHTTPStatus, latencyMs *int, sentAt *time.Time, errMsg *string) (Delivery, error) {
	query := `UPDATE alert_deliveries SET
		status = $2, attempts = $3, last_http_status = $4, latency_ms = $5, sent_at = $6, error = $7
		WHERE id = $1
	RETURNING ` + deliveryColumns

	row := s.dbtx.QueryRow(ctx, query, id, status, attempts, lastHTTPStatus, latencyMs, sentAt, errMsg)
	return scanDelivery(row)
}

func (s *Store) GetByID(ctx context.Context, tenantID, id uuid.UUID) (Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM alert_deliveries WHERE tenant_id = $1 AND id = $2`
	row := s.dbtx.QueryRow(ctx, query, tenantID, id)
	return scanDelivery(row)
}

// GetByIDUnscoped loads a delivery by ID alone, for background paths (the
// DLQ drainer) that operate across tenants.
func (s *Store) GetByIDUnscoped(ctx context.Context, id uuid.UUID) (Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM alert_deliveries WHERE id = $1`
	row := s.dbtx.QueryRow(ctx, query, id)
	return scanDelivery(row)
}

// ListFilter parameters for GET /alerts/deliveries.
type ListFilter struct {
	Status         *string
	SubscriptionID *uuid.UUID
}

// List returns deliveries for tenantID newest-first, keyset-paginated on
// (created_at, id) via httpserver's delivery cursor params.
func (s *Store) List(ctx context.Context, tenantID uuid.UUID, f ListFilter, p httpserver.CursorParams) ([]Delivery, error) {
	where := "WHERE tenant_id = $1"
	args := []any{tenantID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != nil {
		where += " AND status = " + arg(*f.Status)
	}
	if f.SubscriptionID != nil {
		where += " AND subscription_id = " + arg(*f.SubscriptionID)
	}
	if p.After != nil {
		where += fmt.Sprintf(" AND (created_at, id) < (%s, %s)", arg(p.After.CreatedAt), arg(p.After.ID))
	}

	limit := p.Limit
	if limit <= 0 {
		limit = httpserver.DefaultPageSize
	}
	args = append(args, limit+1)

	query := `SELECT ` + deliveryColumns + ` FROM alert_deliveries ` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := s.dbtx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries: %w", err)
	}
	return scanDeliveries(rows)
}

func (s *Store) ListAttempts(ctx context.Context, deliveryID uuid.UUID) ([]DeliveryAttempt, error) {
	query := `SELECT id, delivery_id, attempt_no, status, http_status, latency_ms, error, created_at
		FROM alert_delivery_attempts WHERE delivery_id = $1 ORDER BY attempt_no ASC`
	rows, err := s.dbtx.Query(ctx, query, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("listing delivery attempts: %w", err)
	}
	defer rows.Close()

	var items []DeliveryAttempt
	for rows.Next() {
		var a DeliveryAttempt
		if err := rows.Scan(&a.ID, &a.DeliveryID, &a.AttemptNo, &a.Status, &a.HTTPStatus, &a.LatencyMs, &a.Error, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning delivery attempt row: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// RecordAttempts persists the attempt log produced by a sender, in order.
func (s *Store) RecordAttempts(ctx context.Context, deliveryID uuid.UUID, attempts []DeliveryAttempt) error {
	for _, a := range attempts {
		_, err := s.dbtx.Exec(ctx, `INSERT INTO alert_delivery_attempts
			(delivery_id, attempt_no, status, http_status, latency_ms, error)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			deliveryID, a.AttemptNo, a.Status, a.HTTPStatus, a.LatencyMs, a.Error,
		)
		if err != nil {
			return fmt.Errorf("recording delivery attempt: %w", err)
		}
	}
	return nil
}

const dlqColumns = `id, delivery_id, next_attempt_at, attempt_count, max_attempts, last_error, created_at, updated_at`

func scanDLQEntry(row pgx.Row) (DLQEntry, error) {
	var e DLQEntry
	err := row.Scan(&e.ID, &e.DeliveryID, &e.NextAttemptAt, &e.AttemptCount, &e.MaxAttempts, &e.LastError, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// Enqueue upserts a DLQ entry for deliveryID, bumping attempt_count by one
// and scheduling the next re-drain per the escalating backoff schedule. The
// attempt_count bump happens first so NextAttemptDelay sees the count the
// upcoming re-drain will actually be. maxAttempts is only applied on first
// insert; later calls keep the entry's original ceiling.
func (s *Store) Enqueue(ctx context.Context, deliveryID uuid.UUID, now time.Time, lastError string, maxAttempts int) (DLQEntry, error) {
	bumpQuery := `INSERT INTO alert_dlq (delivery_id, next_attempt_at, attempt_count, max_attempts, last_error)
		VALUES ($1, $2, 1, $3, $4)
		ON CONFLICT (delivery_id) DO UPDATE SET
			attempt_count = alert_dlq.attempt_count + 1,
			last_error    = EXCLUDED.last_error,
			updated_at    = now()
		RETURNING ` + dlqColumns

	row := s.dbtx.QueryRow(ctx, bumpQuery, deliveryID, now.Add(NextAttemptDelay(1)), maxAttempts, lastError)
	entry, err := scanDLQEntry(row)
	if err != nil {
		return DLQEntry{}, fmt.Errorf("enqueuing dlq entry: %w", err)
	}
	if entry.AttemptCount == 1 {
		return entry, nil
	}

	row = s.dbtx.QueryRow(ctx, `UPDATE alert_dlq SET next_attempt_at = $2 WHERE id = $1 RETURNING `+dlqColumns,
		entry.ID, now.Add(NextAttemptDelay(entry.AttemptCount)))
	return scanDLQEntry(row)
}

func scanDLQEntries(rows pgx.Rows) ([]DLQEntry, error) {
	defer rows.Close()
	var items []DLQEntry
	for rows.Next() {
		e, err := scanDLQEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning dlq row: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// DueEntries returns up to limit DLQ entries ready for re-drain, ordered by
// next_attempt_at so the oldest-overdue entry is drained first.
func (s *Store) DueEntries(ctx context.Context, now time.Time, limit int) ([]DLQEntry, error) {
	query := `SELECT ` + dlqColumns + ` FROM alert_dlq WHERE next_attempt_at <= $1 AND attempt_count < max_attempts ORDER BY next_attempt_at ASC LIMIT $2`
	rows, err := s.dbtx.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("listing due dlq entries: %w", err)
	}
	return scanDLQEntries(rows)
}

// Depth returns the current number of undrained DLQ rows, for ops monitoring.
func (s *Store) Depth(ctx context.Context) (int, error) {
	var n int
	if err := s.dbtx.QueryRow(ctx, `SELECT count(*) FROM alert_dlq`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting dlq depth: %w", err)
	}
	return n, nil
}

// Resolve removes a DLQ entry once its delivery has finally succeeded or has
// exhausted max_attempts and been marked terminally FAILED.
func (s *Store) Resolve(ctx context.Context, id uuid.UUID) error {
	_, err := s.dbtx.Exec(ctx, `DELETE FROM alert_dlq WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("resolving dlq entry: %w", err)
	}
	return nil
}
