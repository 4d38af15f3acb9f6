package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

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

const signalColumns = `id, signal_type, entity_type, entity_id, day, severity, value, baseline, stddev, zscore,
	delta_pct, confidence_score, confidence_band, method, cluster_id, cluster_key, cluster_type,
	cluster_severity, cluster_summary, explanation, metadata, created_at, updated_at`

func scanSignal(row pgx.Row) (Signal, error) {
	var s Signal
	var metadataRaw []byte
	err := row.Scan(
		&s.ID, &s.SignalType, &s.EntityType, &s.EntityID, &s.Day, &s.Severity, &s.Value, &s.Baseline, &s.Stddev, &s.ZScore,
		&s.DeltaPct, &s.ConfidenceScore, &s.ConfidenceBand, &s.Method, &s.ClusterID, &s.ClusterKey, &s.ClusterType,
		&s.ClusterSeverity, &s.ClusterSummary, &s.Explanation, &metadataRaw, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return s, err
	}
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &s.Metadata); err != nil {
			return s, fmt.Errorf("unmarshaling signal metadata: %w", err)
		}
	}
	return s, nil
}

func scanSignals(rows pgx.Rows) ([]Signal, error) {
	defer rows.Close()
	var items []Signal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning signal row: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating signal rows: %w", err)
	}
	return items, nil
}

// Upsert writes s idempotently keyed on (signal_type, entity_type,
// entity_id, day). Re-running with identical inputs updates the row to
// bit-identical column values, satisfying signal idempotence.
func (s *Store) Upsert(ctx context.Context, sig Signal) (Signal, error) {
	metadataRaw, err := json.Marshal(sig.Metadata)
	if err != nil {
		return Signal{}, fmt.Errorf("marshaling signal metadata: %w", err)
	}

	query := `INSERT INTO signals (
		signal_type, entity_type, entity_id, day, severity, value, baseline, stddev, zscore,
		delta_pct, confidence_score, confidence_band, method, cluster_id, cluster_key, cluster_type,
		cluster_severity, cluster_summary, explanation, metadata
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	ON CONFLICT (signal_type, entity_type, entity_id, day) DO UPDATE SET
		severity           = EXCLUDED.severity,
		value              = EXCLUDED.value,
		baseline           = EXCLUDED.baseline,
		stddev             = EXCLUDED.stddev,
		zscore             = EXCLUDED.zscore,
		delta_pct          = EXCLUDED.delta_pct,
		confidence_score   = EXCLUDED.confidence_score,
		confidence_band    = EXCLUDED.confidence_band,
		method             = EXCLUDED.method,
		cluster_id         = EXCLUDED.cluster_id,
		cluster_key        = EXCLUDED.cluster_key,
		cluster_type       = EXCLUDED.cluster_type,
		cluster_severity   = EXCLUDED.cluster_severity,
		cluster_summary    = EXCLUDED.cluster_summary,
		explanation        = EXCLUDED.explanation,
		metadata           = EXCLUDED.metadata,
		updated_at         = now()
	RETURNING ` + signalColumns

	row := s.dbtx.QueryRow(ctx, query,
		sig.SignalType, sig.EntityType, sig.EntityID, sig.Day, sig.Severity, sig.Value, sig.Baseline, sig.Stddev, sig.ZScore,
		sig.DeltaPct, sig.ConfidenceScore, sig.ConfidenceBand, sig.Method, sig.ClusterID, sig.ClusterKey, sig.ClusterType,
		sig.ClusterSeverity, sig.ClusterSummary, sig.Explanation, metadataRaw,
	)
	return scanSignal(row)
}

// ForClusterOnDay returns every signal sharing clusterID, used by the
// dispatcher and by delivery retries to load a cluster's member signals.
func (s *Store) ForClusterOnDay(ctx context.Context, clusterID string) ([]Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals WHERE cluster_id = $1`
	rows, err := s.dbtx.Query(ctx, query, clusterID)
	if err != nil {
		return nil, fmt.Errorf("listing cluster signals: %w", err)
	}
	return scanSignals(rows)
}

// ListFilter parameters for the external GET /signals read surface.
type ListFilter struct {
	EntityType  *string
	SignalType  *string
	Severity    *string
	SeverityMin *string
	DayFrom     *time.Time
	DayTo       *time.Time
	PortID      *uuid.UUID
	Clustered   *bool
	Limit       int
	Offset      int
}

// List returns signals matching filter plus the total matching count,
// ignoring Limit/Offset, for the REST pagination envelope.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Signal, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.EntityType != nil {
		where += " AND entity_type = " + arg(*f.EntityType)
	}
	if f.PortID != nil {
		where += " AND entity_id = " + arg(*f.PortID)
	}
	if f.SignalType != nil {
		where += " AND signal_type = " + arg(*f.SignalType)
	}
	if f.Severity != nil {
		where += " AND severity = " + arg(*f.Severity)
	}
	if f.SeverityMin != nil {
		where += " AND severity = ANY(" + arg(severitiesAtLeast(*f.SeverityMin)) + ")"
	}
	if f.DayFrom != nil {
		where += " AND day >= " + arg(*f.DayFrom)
	}
	if f.DayTo != nil {
		where += " AND day <= " + arg(*f.DayTo)
	}

	countQuery := "SELECT count(*) FROM signals " + where
	var total int
	if err := s.dbtx.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting signals: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 25
	}
	listArgs := append(append([]any{}, args...), limit, f.Offset)
	query := `SELECT ` + signalColumns + ` FROM signals ` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(listArgs)-1, len(listArgs))

	rows, err := s.dbtx.Query(ctx, query, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing signals: %w", err)
	}
	items, err := scanSignals(rows)
	return items, total, err
}

func severitiesAtLeast(min string) []string {
	var out []string
	for _, sev := range []string{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		if SeverityAtLeast(sev, min) {
			out = append(out, sev)
		}
	}
	return out
}
