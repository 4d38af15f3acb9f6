package port

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veriscope/veriscope/internal/db"
)

// Store provides database operations for ports.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a port Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const portColumns = `id, unlocode, name, lat, lon, geofence_radius_km, created_at`

func scanPort(row pgx.Row) (Port, error) {
	var p Port
	err := row.Scan(&p.ID, &p.UNLOCODE, &p.Name, &p.Lat, &p.Lon, &p.GeofenceRadiusKM, &p.CreatedAt)
	return p, err
}

func scanPorts(rows pgx.Rows) ([]Port, error) {
	defer rows.Close()
	var items []Port
	for rows.Next() {
		p, err := scanPort(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning port row: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating port rows: %w", err)
	}
	return items, nil
}

// GetByID fetches a port by ID.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (Port, error) {
	query := `SELECT ` + portColumns + ` FROM ports WHERE id = $1`
	return scanPort(s.dbtx.QueryRow(ctx, query, id))
}

// List returns every registered port.
func (s *Store) List(ctx context.Context) ([]Port, error) {
	query := `SELECT ` + portColumns + ` FROM ports ORDER BY unlocode`
	rows, err := s.dbtx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing ports: %w", err)
	}
	return scanPorts(rows)
}

// Create inserts a new port.
func (s *Store) Create(ctx context.Context, p Port) (Port, error) {
	query := `INSERT INTO ports (unlocode, name, lat, lon, geofence_radius_km)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING ` + portColumns

	row := s.dbtx.QueryRow(ctx, query, p.UNLOCODE, p.Name, p.Lat, p.Lon, p.GeofenceRadiusKM)
	return scanPort(row)
}
