package baseline

import (
	"context"
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

const baselineColumns = `id, port_id, day, arrivals, departures, unique_vessels, avg_dwell_hours, open_calls,
	arrivals_30d_avg, arrivals_30d_std, dwell_30d_avg, dwell_30d_std, open_calls_30d_avg, created_at, updated_at`

func scanBaseline(row pgx.Row) (Baseline, error) {
	var b Baseline
	err := row.Scan(
		&b.ID, &b.PortID, &b.Day, &b.Arrivals, &b.Departures, &b.UniqueVessels, &b.AvgDwellHours, &b.OpenCalls,
		&b.Arrivals30dAvg, &b.Arrivals30dStd, &b.Dwell30dAvg, &b.Dwell30dStd, &b.OpenCalls30dAvg, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func scanBaselines(rows pgx.Rows) ([]Baseline, error) {
	defer rows.Close()
	var items []Baseline
	for rows.Next() {
		b, err := scanBaseline(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning baseline row: %w", err)
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating baseline rows: %w", err)
	}
	return items, nil
}

// ForDay fetches the baseline row for a single (port, day).
func (s *Store) ForDay(ctx context.Context, portID uuid.UUID, day time.Time) (Baseline, error) {
	query := `SELECT ` + baselineColumns + ` FROM port_daily_baselines WHERE port_id = $1 AND day = $2`
	return scanBaseline(s.dbtx.QueryRow(ctx, query, portID, day))
}

// HistoryWindow returns the baseline rows in [day-30, day-1] for portID,
// ordered oldest first, used for the MIN_HISTORY_DAYS precondition and the
// completeness score.
func (s *Store) HistoryWindow(ctx context.Context, portID uuid.UUID, day time.Time) ([]Baseline, error) {
	query := `SELECT ` + baselineColumns + ` FROM port_daily_baselines
	WHERE port_id = $1 AND day >= $2 AND day < $3
	ORDER BY day ASC`
	rows, err := s.dbtx.Query(ctx, query, portID, day.AddDate(0, 0, -30), day)
	if err != nil {
		return nil, fmt.Errorf("listing baseline history: %w", err)
	}
	return scanBaselines(rows)
}

// PortsWithBaselineOnDay returns every port_id that has a baseline row for
// day, used when the signal engine has no explicit port_ids filter.
func (s *Store) PortsWithBaselineOnDay(ctx context.Context, day time.Time) ([]uuid.UUID, error) {
	query := `SELECT DISTINCT port_id FROM port_daily_baselines WHERE day = $1`
	rows, err := s.dbtx.Query(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("listing ports with baseline: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning port id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LatestDayWithAnyBaseline returns the most recent day having at least one
// baseline row, used when an alert candidate query omits an explicit day.
func (s *Store) LatestDayWithAnyBaseline(ctx context.Context) (time.Time, error) {
	query := `SELECT max(day) FROM port_daily_baselines`
	var day time.Time
	err := s.dbtx.QueryRow(ctx, query).Scan(&day)
	return day, err
}
