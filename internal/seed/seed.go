// Package seed populates a freshly migrated database with enough sample
// data to exercise the ingestion, baseline, signal, and delivery pipelines
// without waiting on real AIS traffic.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veriscope/veriscope/internal/config"
	"github.com/veriscope/veriscope/pkg/apikey"
	"github.com/veriscope/veriscope/pkg/port"
	"github.com/veriscope/veriscope/pkg/vessel"
)

// Run populates a minimal, idempotent set of reference data: one port, a
// handful of vessels, and a development API key for the configured tenant.
// It is safe to run against an already-seeded database; if the reference
// port already exists it logs a message and returns nil.
func Run(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config for seed: %w", err)
	}
	tenantID, err := cfg.Tenant()
	if err != nil {
		return err
	}

	ports := port.NewStore(pool)
	existing, err := ports.List(ctx)
	if err != nil {
		return fmt.Errorf("checking for existing ports: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("seed: reference data already present, skipping", "ports", len(existing))
		return nil
	}

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
	logger.Info("seed: created port", "port", rotterdam.Name, "unlocode", rotterdam.UNLOCODE, "id", rotterdam.ID)

	vessels := vessel.NewStore(pool)
	seedVessels := []vessel.UpsertParams{
		{MMSI: "244660000", Name: strPtr("MSC ZOE"), Flag: strPtr("NL"), VesselType: strPtr("container")},
		{MMSI: "245123000", Name: strPtr("MAERSK EDMONTON"), Flag: strPtr("DK"), VesselType: strPtr("container")},
		{MMSI: "246789000", Name: strPtr("CMA CGM LYRA"), Flag: strPtr("FR"), VesselType: strPtr("container")},
	}
	for _, p := range seedVessels {
		v, err := vessels.Upsert(ctx, p)
		if err != nil {
			return fmt.Errorf("seeding vessel %s: %w", p.MMSI, err)
		}
		logger.Info("seed: created vessel", "mmsi", v.MMSI, "name", derefStr(v.Name), "id", v.ID)
	}

	keys := apikey.NewService(pool, cfg.APIKeyPepper, logger)
	created, err := keys.Create(ctx, tenantID, apikey.CreateRequest{
		UserID:      uuid.New(),
		Description: "Development seed key",
	})
	if err != nil {
		return fmt.Errorf("creating seed API key: %w", err)
	}
	logger.Info("seed: created API key", "id", created.ID, "prefix", created.KeyPrefix, "raw_key", created.RawKey)

	logger.Info("seed: completed successfully", "ports", 1, "vessels", len(seedVessels), "api_keys", 1)
	return nil
}

func strPtr(s string) *string { return &s }

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// truncDay truncates t to midnight UTC.
func truncDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
