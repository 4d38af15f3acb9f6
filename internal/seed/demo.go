package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veriscope/veriscope/internal/config"
	"github.com/veriscope/veriscope/pkg/alertsub"
	"github.com/veriscope/veriscope/pkg/apikey"
	"github.com/veriscope/veriscope/pkg/baseline"
	"github.com/veriscope/veriscope/pkg/delivery"
	"github.com/veriscope/veriscope/pkg/dispatch"
	"github.com/veriscope/veriscope/pkg/port"
	"github.com/veriscope/veriscope/pkg/portcall"
	"github.com/veriscope/veriscope/pkg/signal"
	"github.com/veriscope/veriscope/pkg/vessel"
)

// demoTruncateTables lists every table this package writes to, in an order
// that respects foreign keys.
var demoTruncateTables = []string{
	"alert_dlq",
	"alert_delivery_attempts",
	"alert_deliveries",
	"alert_runs",
	"alert_dedupe",
	"alert_subscriptions",
	"api_keys",
	"signals",
	"port_daily_baselines",
	"port_calls",
	"vessel_positions",
	"vessels",
	"ports",
}

// RunDemo populates a rich demo scenario: a congested port with ten days of
// stable history followed by an arrivals spike large enough to trip a
// CRITICAL signal, a second quieter port whose evaluation day stays within
// its normal range and triggers nothing, two subscriptions filtering on
// different severity floors, and a
// delivery stuck in the dead-letter queue. It is destructive: every row
// this package manages is truncated and rebuilt from scratch.
func RunDemo(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config for seed-demo: %w", err)
	}
	tenantID, err := cfg.Tenant()
	if err != nil {
		return err
	}

	logger.Info("seed-demo: truncating existing demo data")
	for _, table := range demoTruncateTables {
		if _, err := pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("truncating %s: %w", table, err)
		}
	}

	ports := port.NewStore(pool)
	rotterdam, err := ports.Create(ctx, port.Port{
		UNLOCODE:         "NLRTM",
		Name:             "Port of Rotterdam",
		Lat:              51.9496,
		Lon:              4.1453,
		GeofenceRadiusKM: 12,
	})
	if err != nil {
		return fmt.Errorf("creating port Rotterdam: %w", err)
	}
	singapore, err := ports.Create(ctx, port.Port{
		UNLOCODE:         "SGSIN",
		Name:             "Port of Singapore",
		Lat:              1.2644,
		Lon:              103.8220,
		GeofenceRadiusKM: 15,
	})
	if err != nil {
		return fmt.Errorf("creating port Singapore: %w", err)
	}
	logger.Info("seed-demo: created ports", "rotterdam", rotterdam.ID, "singapore", singapore.ID)

	vessels := vessel.NewStore(pool)
	rotterdamVessels, err := seedVesselPool(ctx, vessels, "RTM", 26)
	if err != nil {
		return err
	}
	singaporeVessels, err := seedVesselPool(ctx, vessels, "SIN", 6)
	if err != nil {
		return err
	}
	logger.Info("seed-demo: created vessels", "rotterdam", len(rotterdamVessels), "singapore", len(singaporeVessels))

	calls := portcall.NewStore(pool)

	// day, the evaluation target, is "yesterday" UTC so it lines up with
	// the baseline engine's own daily tick.
	day := truncDay(time.Now()).AddDate(0, 0, -1)

	// Rotterdam: ten stable history days, then a sharp arrivals spike on day.
	rotterdamArrivals := []int{4, 5, 6, 5, 4, 6, 4, 5, 6, 5}
	if err := seedPortCallHistory(ctx, calls, rotterdam.ID, rotterdamVessels, day, rotterdamArrivals, 25); err != nil {
		return fmt.Errorf("seeding Rotterdam port-call history: %w", err)
	}

	// Singapore: nine history days and no spike. The backfill below writes a
	// baseline row for every port-day from its start, so Singapore still has
	// 11 rows and clears the minimum-history check; it stays silent because
	// zero arrivals on day sits within two standard deviations of its window.
	singaporeArrivals := []int{3, 2, 4, 3, 3, 2, 4, 3, 2}
	if err := seedPortCallHistory(ctx, calls, singapore.ID, singaporeVessels, day, singaporeArrivals, 0); err != nil {
		return fmt.Errorf("seeding Singapore port-call history: %w", err)
	}
	logger.Info("seed-demo: seeded port-call history", "day", day.Format("2006-01-02"))

	builder := baseline.NewBuilder(pool, logger)
	from := day.AddDate(0, 0, -len(rotterdamArrivals)-1)
	if err := builder.Backfill(ctx, from, day); err != nil {
		return fmt.Errorf("backfilling demo baselines: %w", err)
	}

	signalStore := signal.NewStore(pool)
	baselineStore := baseline.NewStore(pool)
	portLister := func(ctx context.Context, d time.Time) ([]uuid.UUID, error) {
		return baselineStore.PortsWithBaselineOnDay(ctx, d)
	}
	engine := signal.NewEngine(baselineStore, signalStore, portLister, logger)
	if err := engine.Evaluate(ctx, day, []uuid.UUID{rotterdam.ID, singapore.ID}); err != nil {
		return fmt.Errorf("evaluating demo signals: %w", err)
	}

	clusters, _, err := signalStore.List(ctx, signal.ListFilter{DayFrom: &day, DayTo: &day})
	if err != nil {
		return fmt.Errorf("listing demo signals: %w", err)
	}
	logger.Info("seed-demo: evaluated signals", "day", day.Format("2006-01-02"), "signals", len(clusters))

	userID := uuid.New()
	subs := alertsub.NewStore(pool)
	highSub, err := subs.Create(ctx, tenantID, userID, alertsub.CreateRequest{
		Scope:       alertsub.ScopeAll,
		SeverityMin: signal.SeverityHigh,
		Channel:     alertsub.ChannelWebhook,
		Endpoint:    "http://localhost:9000/hooks/veriscope-high",
		Secret:      strPtr("demo-webhook-secret-high"),
	})
	if err != nil {
		return fmt.Errorf("creating HIGH subscription: %w", err)
	}
	lowSub, err := subs.Create(ctx, tenantID, userID, alertsub.CreateRequest{
		Scope:       alertsub.ScopeAll,
		SeverityMin: signal.SeverityLow,
		Channel:     alertsub.ChannelEmail,
		Endpoint:    "ops@example.com",
	})
	if err != nil {
		return fmt.Errorf("creating LOW subscription: %w", err)
	}
	logger.Info("seed-demo: created subscriptions", "high_min", highSub.ID, "low_min", lowSub.ID)

	// A delivery that has exhausted its webhook retries and landed in the
	// DLQ, waiting on its first escalating backoff window, so the demo
	// database has something to inspect without running a real dispatcher
	// pass first.
	if err := seedStuckDelivery(ctx, pool, tenantID, userID, highSub.ID, clusters); err != nil {
		return fmt.Errorf("seeding stuck delivery: %w", err)
	}

	keys := apikey.NewService(pool, cfg.APIKeyPepper, logger)
	created, err := keys.Create(ctx, tenantID, apikey.CreateRequest{
		UserID:      userID,
		Description: "Demo seed key",
	})
	if err != nil {
		return fmt.Errorf("creating demo API key: %w", err)
	}
	logger.Info("seed-demo: created API key", "id", created.ID, "prefix", created.KeyPrefix, "raw_key", created.RawKey)

	logger.Info("seed-demo: completed successfully",
		"ports", 2,
		"vessels", len(rotterdamVessels)+len(singaporeVessels),
		"signals", len(clusters),
		"subscriptions", 2,
	)
	return nil
}

func seedVesselPool(ctx context.Context, vessels *vessel.Store, prefix string, n int) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		mmsi := fmt.Sprintf("2%s%06d", prefix[:1], 100000+i)
		v, err := vessels.Upsert(ctx, vessel.UpsertParams{
			MMSI:       mmsi,
			Name:       strPtr(fmt.Sprintf("%s DEMO %02d", prefix, i+1)),
			VesselType: strPtr("container"),
		})
		if err != nil {
			return nil, fmt.Errorf("seeding vessel %s: %w", mmsi, err)
		}
		ids = append(ids, v.ID)
	}
	return ids, nil
}

// seedPortCallHistory opens and closes one completed port call per vessel
// for each history day's arrival count, then does the same for spikeCount
// on day itself (skipped entirely when spikeCount is zero). Vessels are
// reused across days since each call is opened and closed same-day.
func seedPortCallHistory(ctx context.Context, calls *portcall.Store, portID uuid.UUID, vesselIDs []uuid.UUID, day time.Time, history []int, spikeCount int) error {
	historyStart := day.AddDate(0, 0, -len(history))
	for i, count := range history {
		if err := seedDayOfCalls(ctx, calls, portID, vesselIDs, historyStart.AddDate(0, 0, i), count); err != nil {
			return err
		}
	}
	if spikeCount > 0 {
		if err := seedDayOfCalls(ctx, calls, portID, vesselIDs, day, spikeCount); err != nil {
			return err
		}
	}
	return nil
}

func seedDayOfCalls(ctx context.Context, calls *portcall.Store, portID uuid.UUID, vesselIDs []uuid.UUID, day time.Time, count int) error {
	if count > len(vesselIDs) {
		count = len(vesselIDs)
	}
	for i := 0; i < count; i++ {
		arrival := day.Add(time.Duration(i%20) * time.Hour)
		departure := arrival.Add(4 * time.Hour)
		call, err := calls.Open(ctx, vesselIDs[i], portID, arrival)
		if err != nil {
			return fmt.Errorf("opening port call: %w", err)
		}
		if _, err := calls.Close(ctx, call.ID, arrival, departure); err != nil {
			return fmt.Errorf("closing port call: %w", err)
		}
	}
	return nil
}

// seedStuckDelivery inserts an alert_runs row, a FAILED delivery against the
// first seeded cluster (if any), and a DLQ entry awaiting its first
// re-drain, exactly as if a webhook endpoint had returned 500 three times in
// a row.
func seedStuckDelivery(ctx context.Context, pool *pgxpool.Pool, tenantID, userID, subscriptionID uuid.UUID, clusters []signal.Signal) error {
	if len(clusters) == 0 {
		return nil
	}

	runs := dispatch.NewRunStore(pool)
	now := time.Now().UTC()
	run, err := runs.Start(ctx, tenantID, &userID, now)
	if err != nil {
		return fmt.Errorf("starting demo run: %w", err)
	}
	summary := dispatch.Summary{CandidatesTotal: 1, Subscriptions: 1, MatchedTotal: 1, FailedTotal: 1}
	if _, err := runs.Finish(ctx, run.ID, dispatch.RunStatusSuccess, summary, now, nil); err != nil {
		return fmt.Errorf("finishing demo run: %w", err)
	}

	deliveries := delivery.NewStore(pool)
	httpStatus := 500
	latency := 1200
	errMsg := "webhook endpoint returned 500"
	d, err := deliveries.Create(ctx, delivery.Delivery{
		RunID:          run.ID,
		SubscriptionID: subscriptionID,
		ClusterID:      clusters[0].ClusterID,
		TenantID:       tenantID,
		UserID:         userID,
		Status:         delivery.StatusFailed,
		Attempts:       3,
		LastHTTPStatus: &httpStatus,
		LatencyMs:      &latency,
		Error:          &errMsg,
	})
	if err != nil {
		return fmt.Errorf("creating demo delivery: %w", err)
	}

	attempts := make([]delivery.DeliveryAttempt, 0, 3)
	for i := 1; i <= 3; i++ {
		attempts = append(attempts, delivery.DeliveryAttempt{
			DeliveryID: d.ID,
			AttemptNo:  i,
			Status:     delivery.StatusFailed,
			HTTPStatus: &httpStatus,
			LatencyMs:  &latency,
			Error:      &errMsg,
		})
	}
	if err := deliveries.RecordAttempts(ctx, d.ID, attempts); err != nil {
		return fmt.Errorf("recording demo delivery attempts: %w", err)
	}

	if _, err := deliveries.Enqueue(ctx, d.ID, now, errMsg, 10); err != nil {
		return fmt.Errorf("enqueuing demo dlq entry: %w", err)
	}
	return nil
}
