// Package baseline computes the rolling per-port daily statistics that the
// signal engine compares incoming days against.
package baseline

import (
	"time"

	"github.com/google/uuid"
)

type Baseline struct {
	ID              int64     `json:"id"`
	PortID          uuid.UUID `json:"port_id"`
	Day             time.Time `json:"day"`
	Arrivals        int       `json:"arrivals"`
	Departures      int       `json:"departures"`
	UniqueVessels   int       `json:"unique_vessels"`
	AvgDwellHours   *float64  `json:"avg_dwell_hours,omitempty"`
	OpenCalls       int       `json:"open_calls"`
	Arrivals30dAvg  *float64  `json:"arrivals_30d_avg,omitempty"`
	Arrivals30dStd  *float64  `json:"arrivals_30d_std,omitempty"`
	Dwell30dAvg     *float64  `json:"dwell_30d_avg,omitempty"`
	Dwell30dStd     *float64  `json:"dwell_30d_std,omitempty"`
	OpenCalls30dAvg *float64  `json:"open_calls_30d_avg,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultWindowDays is how far back a backfill run computes baselines for
// when the caller does not specify an explicit range.
const DefaultWindowDays = 35
