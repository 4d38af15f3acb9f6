// Package dispatch runs one dispatcher pass: it loads enabled subscriptions,
// fetches alert candidates per subscription, and sends each past the
// confidence gate, rate limit, and dedupe check that survives it.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veriscope/veriscope/internal/db"
)

const (
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// Summary holds the per-run counters recorded on the terminal alert_runs row.
type Summary struct {
	CandidatesTotal       int `json:"candidates_total"`
	Subscriptions         int `json:"subscriptions"`
	MatchedTotal          int `json:"matched_total"`
	SentTotal             int `json:"sent_total"`
	SkippedDedupeTotal    int `json:"skipped_dedupe_total"`
	SkippedRateLimitTotal int `json:"skipped_rate_limit_total"`
	FailedTotal           int `json:"failed_total"`
}

type Run struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   uuid.UUID  `json:"tenant_id"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Summary    Summary    `json:"summary"`
	Error      *string    `json:"error,omitempty"`
}

type RunStore struct {
	dbtx db.DBTX
}

func NewRunStore(dbtx db.DBTX) *RunStore {
	return &RunStore{dbtx: dbtx}
}

const runColumns = `id, tenant_id, user_id, status, started_at, finished_at, summary, error`

func scanRun(row pgx.Row) (Run, error) {
	var r Run
	var summaryRaw []byte
	err := row.Scan(&r.ID, &r.TenantID, &r.UserID, &r.Status, &r.StartedAt, &r.FinishedAt, &summaryRaw, &r.Error)
	if err != nil {
		return r, err
	}
	if len(summaryRaw) > 0 {
		if err := json.Unmarshal(summaryRaw, &r.Summary); err != nil {
			return r, fmt.Errorf("unmarshaling run summary: %w", err)
		}
	}
	return r, nil
}

// Start opens a run row with an optimistic SUCCESS status, overwritten once
// the run actually finishes.
func (s *RunStore) Start(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, now time.Time) (Run, error) {
	query := `INSERT INTO alert_runs (tenant_id, user_id, status, started_at, summary)
		VALUES ($1, $2, $3, $4, '{}')
		RETURNING ` + runColumns
	row := s.dbtx.QueryRow(ctx, query, tenantID, userID, RunStatusSuccess, now)
	return scanRun(row)
}

// Finish writes the terminal status, summary, and optional error for a run.
func (s *RunStore) Finish(ctx context.Context, id uuid.UUID, status string, summary Summary, finishedAt time.Time, errMsg *string) (Run, error) {
	summaryRaw, err := json.Marshal(summary)
	if err != nil {
		return Run{}, fmt.Errorf("marshaling run summary: %w", err)
	}
	query := `UPDATE alert_runs SET status = $2, finished_at = $3, summary = $4, error = $5
		WHERE id = $1
		RETURNING ` + runColumns
	row := s.dbtx.QueryRow(ctx, query, id, status, finishedAt, summaryRaw, errMsg)
	return scanRun(row)
}
