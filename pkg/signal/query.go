package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veriscope/veriscope/internal/db"
)

// CandidateFilter parameters for the alert candidate query.
type CandidateFilter struct {
	Day         *time.Time
	EntityType  *string
	EntityID    *uuid.UUID
	SeverityMin *string
}

// CandidateQuery selects one representative signal per cluster_id, the
// member with the highest confidence_score (ties broken by created_at desc)
// within each cluster. Results are ordered by cluster_severity desc,
// confidence_score desc, created_at desc. If Day is nil, the latest day
// with any matching cluster is used.
type CandidateQuery struct {
	dbtx db.DBTX
}

func NewCandidateQuery(dbtx db.DBTX) *CandidateQuery {
	return &CandidateQuery{dbtx: dbtx}
}

func (q *CandidateQuery) Run(ctx context.Context, f CandidateFilter) ([]Signal, error) {
	where := "WHERE 1=1"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.EntityType != nil {
		where += " AND entity_type = " + arg(*f.EntityType)
	}
	if f.EntityID != nil {
		where += " AND entity_id = " + arg(*f.EntityID)
	}
	if f.SeverityMin != nil {
		where += " AND cluster_severity = ANY(" + arg(severitiesAtLeast(*f.SeverityMin)) + ")"
	}

	day := f.Day
	if day == nil {
		latestQuery := "SELECT max(day) FROM signals " + where
		var latest time.Time
		if err := q.dbtx.QueryRow(ctx, latestQuery, args...).Scan(&latest); err != nil {
			return nil, fmt.Errorf("finding latest candidate day: %w", err)
		}
		if latest.IsZero() {
			return nil, nil
		}
		day = &latest
	}
	where += " AND day = " + arg(*day)

	const severityRankSQL = `CASE cluster_severity WHEN 'CRITICAL' THEN 3 WHEN 'HIGH' THEN 2 WHEN 'MEDIUM' THEN 1 ELSE 0 END`

	query := `
SELECT ` + signalColumns + ` FROM (
	SELECT DISTINCT ON (cluster_id) ` + signalColumns + `
	FROM signals
	` + where + `
	ORDER BY cluster_id, confidence_score DESC, created_at DESC
) representatives
ORDER BY ` + severityRankSQL + ` DESC, confidence_score DESC, created_at DESC
`

	rows, err := q.dbtx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("running candidate query: %w", err)
	}
	return scanSignals(rows)
}
