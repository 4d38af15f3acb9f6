// Package portcall decides, for each vessel's latest known position, whether
// it is currently berthed at a port, and records the resulting arrival and
// departure events.
package portcall

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusInPort   = "in_port"
	StatusComplete = "completed"
)

type PortCall struct {
	ID              uuid.UUID  `json:"id"`
	VesselID        uuid.UUID  `json:"vessel_id"`
	PortID          uuid.UUID  `json:"port_id"`
	Status          string     `json:"status"`
	ArrivalTime     time.Time  `json:"arrival_time"`
	DepartureTime   *time.Time `json:"departure_time,omitempty"`
	BerthTimeHours  *float64   `json:"berth_time_hours,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
