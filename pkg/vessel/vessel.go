// Package vessel manages vessel identity: created on first sighting, never
// deleted, mutable metadata updated as better information arrives.
package vessel

import (
	"time"

	"github.com/google/uuid"
)

// Vessel is a tracked ship, identified by MMSI.
type Vessel struct {
	ID         uuid.UUID `json:"id"`
	MMSI       string    `json:"mmsi"`
	IMO        *string   `json:"imo,omitempty"`
	Name       *string   `json:"name,omitempty"`
	Flag       *string   `json:"flag,omitempty"`
	VesselType *string   `json:"vessel_type,omitempty"`
	Deadweight *int      `json:"deadweight,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UpsertParams describes the metadata known at a sighting. Only non-nil
// fields overwrite existing metadata on an update.
type UpsertParams struct {
	MMSI       string
	IMO        *string
	Name       *string
	Flag       *string
	VesselType *string
	Deadweight *int
}
