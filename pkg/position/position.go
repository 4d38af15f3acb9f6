// Package position holds the append-only vessel position time series and the
// AIS navigational-status enum it is recorded against.
package position

import (
	"time"

	"github.com/google/uuid"
)

// NavStatus is the normalized navigational status of a vessel.
type NavStatus string

const (
	NavUnderway           NavStatus = "underway"
	NavAnchored           NavStatus = "anchored"
	NavNotUnderCommand    NavStatus = "not_under_command"
	NavRestricted         NavStatus = "restricted"
	NavConstrainedByDraft NavStatus = "constrained_by_draft"
	NavMoored             NavStatus = "moored"
	NavAground            NavStatus = "aground"
	NavFishing            NavStatus = "fishing"
	NavUnderwaySailing    NavStatus = "underway_sailing"
	NavUnknown            NavStatus = "unknown"
)

// NavStatusFromAIS maps the raw AIS NavigationalStatus integer to NavStatus.
func NavStatusFromAIS(code int) NavStatus {
	switch code {
	case 0:
		return NavUnderway
	case 1:
		return NavAnchored
	case 2:
		return NavNotUnderCommand
	case 3:
		return NavRestricted
	case 4:
		return NavConstrainedByDraft
	case 5:
		return NavMoored
	case 6:
		return NavAground
	case 7:
		return NavFishing
	case 8:
		return NavUnderwaySailing
	default:
		return NavUnknown
	}
}

// Position is a single vessel position report.
type Position struct {
	ID           int64     `json:"id"`
	VesselID     uuid.UUID `json:"vessel_id"`
	TimestampUTC time.Time `json:"timestamp_utc"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	SOG          *float64  `json:"sog,omitempty"`
	COG          *float64  `json:"cog,omitempty"`
	Heading      *float64  `json:"heading,omitempty"`
	NavStatus    NavStatus `json:"nav_status"`
	Destination  *string   `json:"destination,omitempty"`
	ETA          *time.Time `json:"eta,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Valid reports whether the position satisfies the lat/lon invariant.
func (p Position) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}
