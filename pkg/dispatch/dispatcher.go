package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/veriscope/veriscope/pkg/alertsub"
	"github.com/veriscope/veriscope/pkg/dedupe"
	"github.com/veriscope/veriscope/pkg/delivery"
	"github.com/veriscope/veriscope/pkg/signal"
)

var bandRank = map[string]int{signal.BandLow: 0, signal.BandMedium: 1, signal.BandHigh: 2}

func bandAtLeast(band, min string) bool {
	return bandRank[band] >= bandRank[min]
}

// subscriptionSource, candidateSource, signalSource, dedupeChecker, and
// deliverySink are the narrow slices of *alertsub.Store, *signal.CandidateQuery,
// *signal.Store, *dedupe.Checker, and *delivery.Service that pass() needs.
// Declaring them lets tests substitute fakes for the real Postgres/Redis-backed
// implementations without touching production wiring, which always passes the
// concrete types.
type subscriptionSource interface {
	Enabled(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID) ([]alertsub.Subscription, error)
}

type candidateSource interface {
	Run(ctx context.Context, f signal.CandidateFilter) ([]signal.Signal, error)
}

type signalSource interface {
	ForClusterOnDay(ctx context.Context, clusterID string) ([]signal.Signal, error)
}

type dedupeChecker interface {
	ShouldSend(ctx context.Context, tenantID uuid.UUID, clusterID, channel, endpoint string, ttlHours int, now time.Time) (bool, error)
	MarkSent(ctx context.Context, tenantID uuid.UUID, clusterID, channel, endpoint string, ttlHours int, now time.Time) error
}

type deliverySink interface {
	Send(ctx context.Context, runID uuid.UUID, sub alertsub.Subscription, clusterMembers []signal.Signal) (delivery.Delivery, error)
	RecordSkipped(ctx context.Context, runID uuid.UUID, sub alertsub.Subscription, clusterID, status string) (delivery.Delivery, error)
}

// Dispatcher runs one pass over every enabled subscription, sending each
// candidate cluster that clears the confidence gate, rate limit, and dedupe
// check.
type Dispatcher struct {
	runs       *RunStore
	subs       subscriptionSource
	candidates candidateSource
	signals    signalSource
	limiter    func() *dedupe.RunLimiter
	checker    dedupeChecker
	delivery   deliverySink
	ttlHours   int
	logger     *slog.Logger
}

func NewDispatcher(runs *RunStore, subs *alertsub.Store, candidates *signal.CandidateQuery, signals *signal.Store, rateLimitPerEndpoint int, checker *dedupe.Checker, svc *delivery.Service, dedupeTTLHours int, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		runs:       runs,
		subs:       subs,
		candidates: candidates,
		signals:    signals,
		limiter:    func() *dedupe.RunLimiter { return dedupe.NewRunLimiter(rateLimitPerEndpoint) },
		checker:    checker,
		delivery:   svc,
		ttlHours:   dedupeTTLHours,
		logger:     logger,
	}
}

// Run executes one full dispatcher pass for tenantID, optionally scoped to a
// single user's subscriptions, recording the terminal alert_runs row.
func (d *Dispatcher) Run(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID) (Run, error) {
	now := time.Now()
	run, err := d.runs.Start(ctx, tenantID, userID, now)
	if err != nil {
		return Run{}, fmt.Errorf("starting dispatch run: %w", err)
	}

	summary, runErr := d.pass(ctx, run.ID, tenantID, userID)

	status := RunStatusSuccess
	var errMsg *string
	if runErr != nil {
		status = RunStatusFailed
		msg := runErr.Error()
		errMsg = &msg
	}

	finished, err := d.runs.Finish(ctx, run.ID, status, summary, time.Now(), errMsg)
	if err != nil {
		return Run{}, fmt.Errorf("finishing dispatch run: %w", err)
	}
	return finished, nil
}

func (d *Dispatcher) pass(ctx context.Context, runID, tenantID uuid.UUID, userID *uuid.UUID) (Summary, error) {
	var summary Summary

	subs, err := d.subs.Enabled(ctx, tenantID, userID)
	if err != nil {
		return summary, fmt.Errorf("loading enabled subscriptions: %w", err)
	}
	summary.Subscriptions = len(subs)

	limiter := d.limiter()

	for _, sub := range subs {
		filter := signal.CandidateFilter{SeverityMin: &sub.SeverityMin}
		if sub.Scope == alertsub.ScopeEntity && sub.EntityType != nil {
			filter.EntityType = sub.EntityType
			filter.EntityID = sub.EntityID
		}

		candidates, err := d.candidates.Run(ctx, filter)
		if err != nil {
			d.logger.Error("fetching alert candidates", "error", err, "subscription_id", sub.ID)
			summary.FailedTotal++
			continue
		}
		summary.CandidatesTotal += len(candidates)

		for _, candidate := range candidates {
			if sub.ConfidenceMin != nil && !bandAtLeast(candidate.ConfidenceBand, *sub.ConfidenceMin) {
				continue
			}
			summary.MatchedTotal++

			if !limiter.Allow(sub.ID) {
				summary.SkippedRateLimitTotal++
				if _, err := d.delivery.RecordSkipped(ctx, runID, sub, candidate.ClusterID, delivery.StatusSkippedRateLimit); err != nil {
					d.logger.Error("recording rate-limit skip", "error", err, "subscription_id", sub.ID, "cluster_id", candidate.ClusterID)
				}
				continue
			}

			shouldSend, err := d.checker.ShouldSend(ctx, tenantID, candidate.ClusterID, sub.Channel, sub.Endpoint, d.ttlHours, time.Now())
			if err != nil {
				d.logger.Error("checking alert dedupe", "error", err, "subscription_id", sub.ID, "cluster_id", candidate.ClusterID)
				summary.FailedTotal++
				continue
			}
			if !shouldSend {
				summary.SkippedDedupeTotal++
				if _, err := d.delivery.RecordSkipped(ctx, runID, sub, candidate.ClusterID, delivery.StatusSkippedDedupe); err != nil {
					d.logger.Error("recording dedupe skip", "error", err, "subscription_id", sub.ID, "cluster_id", candidate.ClusterID)
				}
				continue
			}

			members, err := d.signals.ForClusterOnDay(ctx, candidate.ClusterID)
			if err != nil || len(members) == 0 {
				d.logger.Error("reloading cluster signals", "error", err, "cluster_id", candidate.ClusterID)
				summary.FailedTotal++
				continue
			}

			sent, err := d.delivery.Send(ctx, runID, sub, members)
			if err != nil {
				d.logger.Error("sending delivery", "error", err, "subscription_id", sub.ID, "cluster_id", candidate.ClusterID)
				summary.FailedTotal++
				continue
			}

			if sent.Status == delivery.StatusSent {
				summary.SentTotal++
				if err := d.checker.MarkSent(ctx, tenantID, candidate.ClusterID, sub.Channel, sub.Endpoint, d.ttlHours, time.Now()); err != nil {
					d.logger.Error("marking alert sent", "error", err, "subscription_id", sub.ID, "cluster_id", candidate.ClusterID)
				}
			} else {
				summary.FailedTotal++
			}
		}
	}

	return summary, nil
}
