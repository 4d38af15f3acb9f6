// Package app wires storage, background engines, and the HTTP API together
// for each runtime mode (api, worker, seed, seed-demo, migrate).
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/veriscope/veriscope/internal/config"
	"github.com/veriscope/veriscope/internal/httpserver"
	"github.com/veriscope/veriscope/internal/opsalert"
	"github.com/veriscope/veriscope/internal/platform"
	"github.com/veriscope/veriscope/internal/seed"
	"github.com/veriscope/veriscope/internal/telemetry"

	"github.com/veriscope/veriscope/pkg/ais"
	"github.com/veriscope/veriscope/pkg/alertsub"
	"github.com/veriscope/veriscope/pkg/apikey"
	"github.com/veriscope/veriscope/pkg/baseline"
	"github.com/veriscope/veriscope/pkg/dedupe"
	"github.com/veriscope/veriscope/pkg/delivery"
	"github.com/veriscope/veriscope/pkg/dispatch"
	"github.com/veriscope/veriscope/pkg/port"
	"github.com/veriscope/veriscope/pkg/portcall"
	"github.com/veriscope/veriscope/pkg/position"
	"github.com/veriscope/veriscope/pkg/signal"
	"github.com/veriscope/veriscope/pkg/vessel"
)

// Run is the single entry point used by cmd/veriscope for every mode.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.APIKeyPepper == "" {
		logger.Warn("API_KEY_PEPPER is not set; API key hashes will not be peppered")
	}

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if cfg.Mode == "migrate" {
		logger.Info("migrations applied, exiting", "mode", "migrate")
		return nil
	}

	pool, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer rdb.Close()

	switch cfg.Mode {
	case "seed":
		return seed.Run(ctx, pool, logger)
	case "seed-demo":
		return seed.RunDemo(ctx, pool, logger)
	case "api":
		return runAPI(ctx, cfg, logger, pool, rdb)
	case "worker":
		return runWorker(ctx, cfg, logger, pool, rdb)
	default:
		return fmt.Errorf("app: unhandled mode %q", cfg.Mode)
	}
}

// deps bundles every store, engine, and service built from the database
// pool. Both the api and worker processes build one, so wiring only needs
// writing once.
type deps struct {
	tenantID uuid.UUID

	vessels  *vessel.Store
	ports    *port.Store
	posStore *position.Store

	portcallDetector *portcall.Detector
	baselineBuilder  *baseline.Builder
	baselineStore    *baseline.Store
	signalStore      *signal.Store
	signalEngine     *signal.Engine
	candidates       *signal.CandidateQuery

	apiKeys *apikey.Service
	subs    *alertsub.Store

	deliveryStore *delivery.Store
	deliverySvc   *delivery.Service
	dispatcher    *dispatch.Dispatcher

	aisQueue  *ais.Queue
	aisDedup  *ais.DedupSet
	aisSource aisSource

	ops *opsalert.Notifier
}

// aisSource abstracts over ais.Client and ais.Simulator: whichever is
// configured, app only needs Mode/IsHealthy/Run.
type aisSource interface {
	Mode() string
	IsHealthy() bool
	Run(ctx context.Context)
}

func newDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client) (*deps, error) {
	tenantID, err := cfg.Tenant()
	if err != nil {
		return nil, err
	}
	d := &deps{tenantID: tenantID}

	d.vessels = vessel.NewStore(pool)
	d.ports = port.NewStore(pool)
	d.posStore = position.NewStore(pool)

	portCalls := portcall.NewStore(pool)
	d.portcallDetector = portcall.NewDetector(portCalls, logger)
	if err := d.portcallDetector.LoadState(ctx); err != nil {
		return nil, fmt.Errorf("loading port-call detector state: %w", err)
	}

	d.baselineBuilder = baseline.NewBuilder(pool, logger)
	d.baselineStore = baseline.NewStore(pool)

	d.signalStore = signal.NewStore(pool)
	portLister := func(ctx context.Context, day time.Time) ([]uuid.UUID, error) {
		return d.baselineStore.PortsWithBaselineOnDay(ctx, day)
	}
	d.signalEngine = signal.NewEngine(d.baselineStore, d.signalStore, portLister, logger)
	d.candidates = signal.NewCandidateQuery(pool)

	d.apiKeys = apikey.NewService(pool, cfg.APIKeyPepper, logger)
	d.subs = alertsub.NewStore(pool)

	d.ops = opsalert.NewNotifier(cfg.SlackBotToken, cfg.SlackOpsChannel, logger)

	d.deliveryStore = delivery.NewStore(pool)
	entityName := func(ctx context.Context, entityType string, entityID uuid.UUID) (string, error) {
		if entityType != signal.EntityTypePort {
			return entityID.String(), nil
		}
		p, err := d.ports.GetByID(ctx, entityID)
		if err != nil {
			return entityID.String(), err
		}
		return p.Name, nil
	}
	webhookSender := delivery.NewWebhookSender(cfg.WebhookRetryAttempts, cfg.WebhookTimeoutMS)
	emailTransport := &delivery.StubEmailTransport{}
	d.deliverySvc = delivery.NewService(d.deliveryStore, d.signalStore, webhookSender, emailTransport, entityName, cfg.DLQMaxAttempts, logger)

	dedupeChecker := dedupe.NewChecker(pool, rdb)
	runStore := dispatch.NewRunStore(pool)
	d.dispatcher = dispatch.NewDispatcher(runStore, d.subs, d.candidates, d.signalStore, cfg.AlertRateLimitPerEndpoint, dedupeChecker, d.deliverySvc, cfg.AlertDedupeTTLHours, logger)

	d.aisQueue = ais.NewQueue(cfg.AISMaxQueueSize)
	d.aisDedup = ais.NewDedupSet(cfg.AISMaxHashSetSize)
	if cfg.AISUpstreamKey != "" {
		d.aisSource = ais.NewClient(cfg.AISUpstreamURL, cfg.AISUpstreamKey, d.aisQueue, d.aisDedup, logger)
	} else {
		lister := func(ctx context.Context) ([]ais.KnownPosition, error) {
			vs, err := d.vessels.List(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]ais.KnownPosition, 0, len(vs))
			for _, v := range vs {
				last, err := d.posStore.LatestByVessel(ctx, v.ID)
				if err != nil {
					continue
				}
				out = append(out, ais.KnownPosition{MMSI: v.MMSI, Lat: last.Lat, Lon: last.Lon})
			}
			return out, nil
		}
		d.aisSource = ais.NewSimulator(d.aisQueue, d.aisDedup, lister, logger)
	}

	return d, nil
}

// persistBatch upserts the vessel identified by each message, then records
// its position — the join point between AIS ingestion and the rest of the
// pipeline.
func (d *deps) persistBatch(vessels *vessel.Store) ais.PersistFunc {
	return func(ctx context.Context, batch []ais.Message) error {
		for _, m := range batch {
			v, err := vessels.Upsert(ctx, vessel.UpsertParams{MMSI: m.MMSI})
			if err != nil {
				return fmt.Errorf("upserting vessel %s: %w", m.MMSI, err)
			}
			pos := position.Position{
				VesselID:     v.ID,
				TimestampUTC: m.TimestampUTC,
				Lat:          m.Lat,
				Lon:          m.Lon,
				SOG:          m.SOG,
				COG:          m.COG,
				Heading:      m.Heading,
				NavStatus:    position.NavStatusFromAIS(m.NavStatus),
				Destination:  m.Destination,
				ETA:          m.ETA,
			}
			if !pos.Valid() {
				continue
			}
			if _, err := d.posStore.Insert(ctx, pos); err != nil {
				return fmt.Errorf("inserting position for vessel %s: %w", m.MMSI, err)
			}
		}
		return nil
	}
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client) error {
	d, err := newDeps(ctx, cfg, logger, pool, rdb)
	if err != nil {
		return fmt.Errorf("building dependencies: %w", err)
	}

	envIdentity := httpserver.Identity{TenantID: d.tenantID}
	if cfg.AlertsUserID != "" {
		if uid, err := uuid.Parse(cfg.AlertsUserID); err == nil {
			envIdentity.UserID = uid
		}
	}

	authenticate := func(ctx context.Context, rawKey string) (httpserver.Identity, error) {
		row, err := d.apiKeys.Authenticate(ctx, rawKey)
		if err != nil {
			return httpserver.Identity{}, err
		}
		return httpserver.Identity{TenantID: row.TenantID, UserID: row.UserID, KeyID: row.ID}, nil
	}

	metricsReg := telemetry.NewMetricsRegistry()
	srv := httpserver.NewServer(cfg, logger, pool, rdb, metricsReg, authenticate, envIdentity)

	deliveryHandler := delivery.NewHandler(logger, d.deliveryStore, d.deliverySvc, d.subs)
	subHandler := alertsub.NewHandler(logger, pool)
	apiKeyHandler := apikey.NewHandler(logger, pool, cfg.APIKeyPepper)

	srv.APIRouter.Mount("/alerts/deliveries", deliveryHandler.Routes())
	srv.APIRouter.Mount("/alert-subscriptions", subHandler.Routes())
	srv.APIRouter.Mount("/apikeys", apiKeyHandler.Routes())

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: srv,
	}

	go runBackgroundEngines(ctx, cfg, logger, d)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client) error {
	d, err := newDeps(ctx, cfg, logger, pool, rdb)
	if err != nil {
		return fmt.Errorf("building dependencies: %w", err)
	}
	runBackgroundEngines(ctx, cfg, logger, d)
	<-ctx.Done()
	logger.Info("worker shutting down")
	return nil
}

// runBackgroundEngines starts every long-lived task in its own goroutine and
// returns without waiting for them. Each task observes ctx directly, so
// cancellation fans out without an explicit join.
func runBackgroundEngines(ctx context.Context, cfg *config.Config, logger *slog.Logger, d *deps) {
	go d.aisSource.Run(ctx)

	drainer := ais.NewDrainer(d.aisQueue, cfg.AISBatchSize, d.persistBatch(d.vessels), logger)
	go drainer.Run(ctx)

	go ais.NewDedupCleaner(d.aisDedup).Run(ctx)

	loadPos := func(ctx context.Context) ([]portcall.VesselPosition, error) {
		latest, err := d.posStore.LatestAll(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]portcall.VesselPosition, 0, len(latest))
		for _, p := range latest {
			out = append(out, portcall.VesselPosition{VesselID: p.VesselID, Lat: p.Lat, Lon: p.Lon})
		}
		return out, nil
	}
	loadPorts := func(ctx context.Context) ([]portcall.PortGeofence, error) {
		all, err := d.ports.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]portcall.PortGeofence, 0, len(all))
		for _, p := range all {
			out = append(out, portcall.PortGeofence{ID: p.ID, Lat: p.Lat, Lon: p.Lon, RadiusKM: p.GeofenceRadiusKM})
		}
		return out, nil
	}
	portCallEngine := portcall.NewEngine(d.portcallDetector, loadPos, loadPorts, time.Duration(cfg.PortCallCheckIntervalSeconds)*time.Second, logger)
	go portCallEngine.Run(ctx)

	signalTrigger := func(ctx context.Context, day time.Time) {
		if err := d.signalEngine.Evaluate(ctx, day, nil); err != nil {
			logger.Error("signal engine evaluation failed", "day", day, "error", err)
		}
	}
	baselineEngine := baseline.NewEngine(d.baselineBuilder, signalTrigger, logger)
	go baselineEngine.Run(ctx)

	subLookup := func(ctx context.Context, id uuid.UUID) (alertsub.Subscription, error) {
		return d.subs.GetByID(ctx, d.tenantID, id)
	}
	dlqEngine := delivery.NewDLQEngine(d.deliverySvc, subLookup, time.Duration(cfg.DLQDrainIntervalSecs)*time.Second, cfg.DLQDrainBatchSize, logger)
	go dlqEngine.Run(ctx)

	go runDLQMonitor(ctx, d, cfg, logger)
	go runDispatcher(ctx, d, logger)
}

// runDLQMonitor pages ops whenever the dead-letter queue depth is at or above
// DLQBacklogThreshold, checked on the same cadence the drainer itself runs on.
func runDLQMonitor(ctx context.Context, d *deps, cfg *config.Config, logger *slog.Logger) {
	ticker := time.NewTicker(time.Duration(cfg.DLQDrainIntervalSecs) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := d.deliveryStore.Depth(ctx)
			if err != nil {
				logger.Error("dlq monitor: counting depth failed", "error", err)
				continue
			}
			if depth >= cfg.DLQBacklogThreshold {
				d.ops.DLQBacklog(ctx, depth, cfg.DLQBacklogThreshold)
			}
		}
	}
}

// runDispatcher drives the alert dispatcher on a fixed tick, notifying the
// ops channel whenever a run fails.
func runDispatcher(ctx context.Context, d *deps, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	tick := func() {
		run, err := d.dispatcher.Run(ctx, d.tenantID, nil)
		if err != nil {
			logger.Error("dispatcher run failed", "run_id", run.ID, "error", err)
			d.ops.DispatchRunFailed(ctx, run.ID.String(), err)
			return
		}
		if run.Status == dispatch.RunStatusFailed {
			reason := "run ended with status FAILED"
			if run.Error != nil {
				reason = *run.Error
			}
			d.ops.DispatchRunFailed(ctx, run.ID.String(), fmt.Errorf("%s", reason))
		}
		logger.Info("dispatcher run completed", "run_id", run.ID, "status", run.Status, "sent", run.Summary.SentTotal, "failed", run.Summary.FailedTotal)
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}
