package baseline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Builder recomputes port_daily_baselines for a window of days via a single
// set-oriented query. Scheduling it every 24h and triggering the signal
// engine for the previous UTC day is done by Engine.
type Builder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewBuilder(pool *pgxpool.Pool, logger *slog.Logger) *Builder {
	return &Builder{pool: pool, logger: logger}
}

// Backfill computes and upserts baselines for every (port, day) pair in
// [from, to], inclusive, computing 30-day trailing moments via window
// functions. Re-running over the same window is idempotent: row counts and
// column values are unchanged (barring created_at/updated_at).
func (b *Builder) Backfill(ctx context.Context, from, to time.Time) error {
	const query = `
WITH days AS (
	SELECT generate_series($1::date, $2::date, interval '1 day')::date AS day
),
port_days AS (
	SELECT p.id AS port_id, d.day
	FROM ports p CROSS JOIN days d
),
daily AS (
	SELECT
		pd.port_id,
		pd.day,
		(SELECT count(*) FROM port_calls pc WHERE pc.port_id = pd.port_id
			AND pc.arrival_time >= pd.day AND pc.arrival_time < pd.day + 1) AS arrivals,
		(SELECT count(*) FROM port_calls pc WHERE pc.port_id = pd.port_id
			AND pc.departure_time >= pd.day AND pc.departure_time < pd.day + 1) AS departures,
		(SELECT count(DISTINCT pc.vessel_id) FROM port_calls pc WHERE pc.port_id = pd.port_id
			AND pc.arrival_time >= pd.day AND pc.arrival_time < pd.day + 1) AS unique_vessels,
		(SELECT avg(extract(epoch FROM pc.departure_time - pc.arrival_time) / 3600.0)
			FROM port_calls pc WHERE pc.port_id = pd.port_id
			AND pc.departure_time >= pd.day AND pc.departure_time < pd.day + 1) AS avg_dwell_hours,
		(SELECT count(*) FROM port_calls pc WHERE pc.port_id = pd.port_id
			AND pc.arrival_time < pd.day + 1
			AND (pc.departure_time IS NULL OR pc.departure_time >= pd.day + 1)) AS open_calls
	FROM port_days pd
),
windowed AS (
	SELECT
		*,
		avg(arrivals) OVER w30 AS arrivals_30d_avg,
		stddev_samp(arrivals) OVER w30 AS arrivals_30d_std,
		avg(avg_dwell_hours) OVER w30 AS dwell_30d_avg,
		stddev_samp(avg_dwell_hours) OVER w30 AS dwell_30d_std,
		avg(open_calls) OVER w30 AS open_calls_30d_avg
	FROM daily
	WINDOW w30 AS (PARTITION BY port_id ORDER BY day ROWS BETWEEN 30 PRECEDING AND 1 PRECEDING)
)
INSERT INTO port_daily_baselines (
	port_id, day, arrivals, departures, unique_vessels, avg_dwell_hours, open_calls,
	arrivals_30d_avg, arrivals_30d_std, dwell_30d_avg, dwell_30d_std, open_calls_30d_avg
)
SELECT
	port_id, day, arrivals, departures, unique_vessels, avg_dwell_hours, open_calls,
	arrivals_30d_avg, arrivals_30d_std, dwell_30d_avg, dwell_30d_std, open_calls_30d_avg
FROM windowed
ON CONFLICT (port_id, day) DO UPDATE SET
	arrivals            = EXCLUDED.arrivals,
	departures          = EXCLUDED.departures,
	unique_vessels      = EXCLUDED.unique_vessels,
	avg_dwell_hours     = EXCLUDED.avg_dwell_hours,
	open_calls          = EXCLUDED.open_calls,
	arrivals_30d_avg    = EXCLUDED.arrivals_30d_avg,
	arrivals_30d_std    = EXCLUDED.arrivals_30d_std,
	dwell_30d_avg       = EXCLUDED.dwell_30d_avg,
	dwell_30d_std       = EXCLUDED.dwell_30d_std,
	open_calls_30d_avg  = EXCLUDED.open_calls_30d_avg,
	updated_at          = now()
`

	tag, err := b.pool.Exec(ctx, query, from, to)
	if err != nil {
		return fmt.Errorf("backfilling baselines: %w", err)
	}
	b.logger.Info("baseline backfill complete", "from", from, "to", to, "rows", tag.RowsAffected())
	return nil
}

// BackfillDefaultWindow runs Backfill over [today-DefaultWindowDays, today].
func (b *Builder) BackfillDefaultWindow(ctx context.Context) error {
	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -DefaultWindowDays)
	return b.Backfill(ctx, from, to)
}
