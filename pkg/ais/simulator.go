package ais

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/veriscope/veriscope/internal/telemetry"
)

var simulatedDestinations = []string{"ROTTERDAM", "SINGAPORE", "LOS ANGELES", "SHANGHAI", "HAMBURG", "NEW YORK"}

var simulatedNavStatuses = []int{0, 0, 0, 1, 1, 5}

// KnownPosition is the minimal per-vessel state the simulator needs to
// advance a random walk: identity plus last reported coordinates.
type KnownPosition struct {
	MMSI string
	Lat  float64
	Lon  float64
}

// VesselLister gives the simulator the latest known position of every
// vessel, so a synthetic feed only moves vessels the system already knows
// about rather than inventing new ones.
type VesselLister func(ctx context.Context) ([]KnownPosition, error)

// Simulator runs in place of Client when no upstream credential is
// configured. Every 30s it nudges each known vessel's last position by a
// small random walk and feeds the result through the same dedup/queue path
// a live connection would use.
type Simulator struct {
	queue  *Queue
	dedup  *DedupSet
	lister VesselLister
	logger *slog.Logger
}

func NewSimulator(queue *Queue, dedup *DedupSet, lister VesselLister, logger *slog.Logger) *Simulator {
	return &Simulator{queue: queue, dedup: dedup, lister: lister, logger: logger}
}

func (s *Simulator) Mode() string  { return "simulation" }
func (s *Simulator) IsHealthy() bool { return true }

func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Simulator) tick(ctx context.Context) {
	vessels, err := s.lister(ctx)
	if err != nil {
		s.logger.Warn("ais simulator: listing known vessels failed", "error", err)
		return
	}

	now := time.Now().UTC()
	for _, v := range vessels {
		lat := clampLat(v.Lat + (rand.Float64()*2-1)*0.001)
		lon := wrapLon(v.Lon + (rand.Float64()*2-1)*0.001)
		dest := simulatedDestinations[rand.Intn(len(simulatedDestinations))]
		nav := simulatedNavStatuses[rand.Intn(len(simulatedNavStatuses))]

		msg := Message{
			MMSI:         v.MMSI,
			TimestampUTC: now,
			Lat:          lat,
			Lon:          lon,
			NavStatus:    nav,
			Destination:  &dest,
		}

		telemetry.AISMessagesReceivedTotal.Inc()
		fp := fingerprint(v.MMSI, now.Format(time.RFC3339), lat, lon)
		if s.dedup.Seen(fp) {
			telemetry.AISDuplicatesFilteredTotal.Inc()
			continue
		}
		if s.queue.Enqueue(msg) {
			telemetry.AISMessagesDroppedTotal.Inc()
		}
	}
	telemetry.AISQueueSize.Set(float64(s.queue.Size()))
	telemetry.AISHashSetSize.Set(float64(s.dedup.Size()))
}

func clampLat(lat float64) float64 {
	if lat > 90 {
		return 90
	}
	if lat < -90 {
		return -90
	}
	return lat
}

func wrapLon(lon float64) float64 {
	if lon > 180 {
		return lon - 360
	}
	if lon < -180 {
		return lon + 360
	}
	return lon
}
