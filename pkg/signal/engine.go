package signal

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/veriscope/veriscope/pkg/baseline"
)

// PortLister supplies the set of ports to evaluate when no explicit filter
// is given.
type PortLister func(ctx context.Context, day time.Time) ([]uuid.UUID, error)

// Engine evaluates the detectors against baselines for a target day and
// upserts the resulting signals, clustering co-triggering detections per
// port.
type Engine struct {
	baselines *baseline.Store
	signals   *Store
	ports     PortLister
	logger    *slog.Logger
}

func NewEngine(baselines *baseline.Store, signals *Store, ports PortLister, logger *slog.Logger) *Engine {
	return &Engine{baselines: baselines, signals: signals, ports: ports, logger: logger}
}

// Evaluate runs every detector for day D across portIDs (or every port with
// a baseline on D, if portIDs is empty).
func (e *Engine) Evaluate(ctx context.Context, day time.Time, portIDs []uuid.UUID) error {
	targets := portIDs
	if len(targets) == 0 {
		var err error
		targets, err = e.ports(ctx, day)
		if err != nil {
			return err
		}
	}

	for _, portID := range targets {
		if err := e.evaluatePort(ctx, portID, day); err != nil {
			e.logger.Error("signal engine: evaluating port failed", "port_id", portID, "day", day, "error", err)
		}
	}
	return nil
}

func (e *Engine) evaluatePort(ctx context.Context, portID uuid.UUID, day time.Time) error {
	history, err := e.baselines.HistoryWindow(ctx, portID, day)
	if err != nil {
		return err
	}
	if len(history) < MinHistoryDays {
		return nil
	}

	today, err := e.baselines.ForDay(ctx, portID, day)
	if err != nil {
		return nil // no baseline row for this port/day; nothing to evaluate
	}

	var results []DetectorResult
	if r, ok := DetectArrivalsAnomaly(today); ok {
		results = append(results, r)
	}
	if r, ok := DetectDwellSpike(today); ok {
		results = append(results, r)
	}
	if r, ok := DetectCongestionBuildup(today); ok {
		results = append(results, r)
	}
	if len(results) == 0 {
		return nil
	}

	clusterID := ClusterID(portID.String(), day)
	clusterKey := ClusterKey(portID.String(), day)
	clusterSeverity := ClusterSeverity(results)
	clusterSummary := ClusterSummary(results)

	for _, r := range results {
		score, b := AdjustForCompleteness(r.RawScore, completenessPctFor(len(history)))
		sig := Signal{
			SignalType:      r.SignalType,
			EntityType:      EntityTypePort,
			EntityID:        portID,
			Day:             day,
			Severity:        r.Severity,
			Value:           r.Value,
			Baseline:        r.Baseline,
			Stddev:          r.Stddev,
			ZScore:          r.ZScore,
			DeltaPct:        r.DeltaPct,
			ConfidenceScore: score,
			ConfidenceBand:  b,
			Method:          r.Method,
			ClusterID:       clusterID,
			ClusterKey:      clusterKey,
			ClusterType:     ClusterTypeDisruption,
			ClusterSeverity: clusterSeverity,
			ClusterSummary:  clusterSummary,
			Explanation:     Explain(r),
			Metadata:        BuildMetadata([]Driver{r.Driver}, len(history)),
		}
		if _, err := e.signals.Upsert(ctx, sig); err != nil {
			return err
		}
	}
	return nil
}

func completenessPctFor(historyDays int) int {
	pct, _ := Completeness(historyDays)
	return pct
}
