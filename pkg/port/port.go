// Package port holds the immutable geofence registry consulted by the
// port-call detector and baseline builder.
package port

import (
	"time"

	"github.com/google/uuid"
)

// Port is a geofenced berth location identified by its UN/LOCODE.
type Port struct {
	ID               uuid.UUID `json:"id"`
	UNLOCODE         string    `json:"unlocode"`
	Name             string    `json:"name"`
	Lat              float64   `json:"lat"`
	Lon              float64   `json:"lon"`
	GeofenceRadiusKM float64   `json:"geofence_radius_km"`
	CreatedAt        time.Time `json:"created_at"`
}
