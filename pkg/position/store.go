package position

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veriscope/veriscope/internal/db"
)

// Store provides database operations for vessel positions.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a position Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const positionColumns = `id, vessel_id, timestamp_utc, lat, lon, sog, cog, heading, nav_status, destination, eta, created_at`

func scanPosition(row pgx.Row) (Position, error) {
	var p Position
	err := row.Scan(
		&p.ID, &p.VesselID, &p.TimestampUTC, &p.Lat, &p.Lon, &p.SOG, &p.COG,
		&p.Heading, &p.NavStatus, &p.Destination, &p.ETA, &p.CreatedAt,
	)
	return p, err
}

func scanPositions(rows pgx.Rows) ([]Position, error) {
	defer rows.Close()
	var items []Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning position row: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating position rows: %w", err)
	}
	return items, nil
}

// Insert appends a new position report.
func (s *Store) Insert(ctx context.Context, p Position) (Position, error) {
	query := `INSERT INTO vessel_positions (vessel_id, timestamp_utc, lat, lon, sog, cog, heading, nav_status, destination, eta)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING ` + positionColumns

	row := s.dbtx.QueryRow(ctx, query,
		p.VesselID, p.TimestampUTC, p.Lat, p.Lon, p.SOG, p.COG, p.Heading, p.NavStatus, p.Destination, p.ETA,
	)
	return scanPosition(row)
}

// LatestByVessel returns the most recent position for a vessel. Newest row
// wins when multiple positions exist for the same vessel.
func (s *Store) LatestByVessel(ctx context.Context, vesselID uuid.UUID) (Position, error) {
	query := `SELECT ` + positionColumns + ` FROM vessel_positions WHERE vessel_id = $1 ORDER BY timestamp_utc DESC, id DESC LIMIT 1`
	return scanPosition(s.dbtx.QueryRow(ctx, query, vesselID))
}

// LatestAll returns the most recent position for every vessel that has ever
// reported, driving the port-call detector's per-tick sweep.
func (s *Store) LatestAll(ctx context.Context) ([]Position, error) {
	query := `SELECT DISTINCT ON (vessel_id) ` + positionColumns + `
	FROM vessel_positions
	ORDER BY vessel_id, timestamp_utc DESC, id DESC`

	rows, err := s.dbtx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing latest positions: %w", err)
	}
	return scanPositions(rows)
}
