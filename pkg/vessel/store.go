package vessel

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veriscope/veriscope/internal/db"
)

// Store provides database operations for vessels.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a vessel Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const vesselColumns = `id, mmsi, imo, name, flag, vessel_type, deadweight, created_at, updated_at`

func scanVessel(row pgx.Row) (Vessel, error) {
	var v Vessel
	err := row.Scan(
		&v.ID, &v.MMSI, &v.IMO, &v.Name, &v.Flag, &v.VesselType, &v.Deadweight,
		&v.CreatedAt, &v.UpdatedAt,
	)
	return v, err
}

func scanVessels(rows pgx.Rows) ([]Vessel, error) {
	defer rows.Close()
	var items []Vessel
	for rows.Next() {
		v, err := scanVessel(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning vessel row: %w", err)
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vessel rows: %w", err)
	}
	return items, nil
}

// GetByID fetches a vessel by ID.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (Vessel, error) {
	query := `SELECT ` + vesselColumns + ` FROM vessels WHERE id = $1`
	return scanVessel(s.dbtx.QueryRow(ctx, query, id))
}

// GetByMMSI fetches a vessel by MMSI.
func (s *Store) GetByMMSI(ctx context.Context, mmsi string) (Vessel, error) {
	query := `SELECT ` + vesselColumns + ` FROM vessels WHERE mmsi = $1`
	return scanVessel(s.dbtx.QueryRow(ctx, query, mmsi))
}

// List returns every known vessel, ordered by MMSI.
func (s *Store) List(ctx context.Context) ([]Vessel, error) {
	query := `SELECT ` + vesselColumns + ` FROM vessels ORDER BY mmsi`
	rows, err := s.dbtx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing vessels: %w", err)
	}
	return scanVessels(rows)
}

// Upsert creates a vessel on first sighting, or refreshes its metadata with
// any non-nil fields on subsequent sightings. Vessels are never deleted.
func (s *Store) Upsert(ctx context.Context, p UpsertParams) (Vessel, error) {
	query := `INSERT INTO vessels (mmsi, imo, name, flag, vessel_type, deadweight)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (mmsi) DO UPDATE SET
		imo          = COALESCE(EXCLUDED.imo, vessels.imo),
		name         = COALESCE(EXCLUDED.name, vessels.name),
		flag         = COALESCE(EXCLUDED.flag, vessels.flag),
		vessel_type  = COALESCE(EXCLUDED.vessel_type, vessels.vessel_type),
		deadweight   = COALESCE(EXCLUDED.deadweight, vessels.deadweight),
		updated_at   = now()
	RETURNING ` + vesselColumns

	row := s.dbtx.QueryRow(ctx, query, p.MMSI, p.IMO, p.Name, p.Flag, p.VesselType, p.Deadweight)
	return scanVessel(row)
}
