package portcall

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veriscope/veriscope/internal/db"
)

type Store struct {
	dbtx db.DBTX
}

func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const portCallColumns = `id, vessel_id, port_id, status, arrival_time, departure_time, berth_time_hours, created_at, updated_at`

func scanPortCall(row pgx.Row) (PortCall, error) {
	var pc PortCall
	err := row.Scan(&pc.ID, &pc.VesselID, &pc.PortID, &pc.Status, &pc.ArrivalTime, &pc.DepartureTime, &pc.BerthTimeHours, &pc.CreatedAt, &pc.UpdatedAt)
	return pc, err
}

func scanPortCalls(rows pgx.Rows) ([]PortCall, error) {
	defer rows.Close()
	var items []PortCall
	for rows.Next() {
		pc, err := scanPortCall(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning port call row: %w", err)
		}
		items = append(items, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating port call rows: %w", err)
	}
	return items, nil
}

// OpenCalls returns every port call currently in_port, used to rebuild the
// detector's in-memory per-vessel state at startup.
func (s *Store) OpenCalls(ctx context.Context) ([]PortCall, error) {
	query := `SELECT ` + portCallColumns + ` FROM port_calls WHERE status = '` + StatusInPort + `'`
	rows, err := s.dbtx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing open port calls: %w", err)
	}
	return scanPortCalls(rows)
}

// Open inserts a new in_port call for a vessel arriving at a port.
func (s *Store) Open(ctx context.Context, vesselID, portID uuid.UUID, arrivalTime time.Time) (PortCall, error) {
	query := `INSERT INTO port_calls (vessel_id, port_id, status, arrival_time)
	VALUES ($1, $2, '` + StatusInPort + `', $3)
	RETURNING ` + portCallColumns
	row := s.dbtx.QueryRow(ctx, query, vesselID, portID, arrivalTime)
	return scanPortCall(row)
}

// Close marks an open call departed, computing berth_time_hours from the
// elapsed wall-clock time since arrival.
func (s *Store) Close(ctx context.Context, id uuid.UUID, arrivalTime, departureTime time.Time) (PortCall, error) {
	berthHours := departureTime.Sub(arrivalTime).Hours()
	query := `UPDATE port_calls SET status = '` + StatusComplete + `', departure_time = $2, berth_time_hours = $3, updated_at = now()
	WHERE id = $1
	RETURNING ` + portCallColumns
	row := s.dbtx.QueryRow(ctx, query, id, departureTime, berthHours)
	return scanPortCall(row)
}

// CloseWithoutRecompute closes an open call at port P when the vessel has
// moved directly to a different port Q, without treating the transition as a
// departure-triggered berth-time event.
func (s *Store) CloseWithoutRecompute(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE port_calls SET status = '` + StatusComplete + `', departure_time = $2, updated_at = now() WHERE id = $1`
	_, err := s.dbtx.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("closing port call on port switch: %w", err)
	}
	return nil
}
