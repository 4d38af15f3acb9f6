package portcall

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// VesselPosition is the minimal snapshot the detector needs per vessel.
type VesselPosition struct {
	VesselID uuid.UUID
	Lat      float64
	Lon      float64
}

// PortGeofence is a port's location and radius, as consulted by the
// detector on every tick.
type PortGeofence struct {
	ID        uuid.UUID
	Lat       float64
	Lon       float64
	RadiusKM  float64
}

type vesselState struct {
	portID    uuid.UUID
	callID    uuid.UUID
	enteredAt time.Time
}

// Detector holds the in-memory accelerator over the authoritative open-call
// rows in the database. The map is rebuilt from those rows at startup and
// updated as arrivals/departures are observed; the database remains the
// source of truth at all times.
type Detector struct {
	mu     sync.Mutex
	state  map[uuid.UUID]vesselState
	store  *Store
	logger *slog.Logger
}

func NewDetector(store *Store, logger *slog.Logger) *Detector {
	return &Detector{state: make(map[uuid.UUID]vesselState), store: store, logger: logger}
}

// LoadState rebuilds the in-memory map by scanning currently open calls.
func (d *Detector) LoadState(ctx context.Context) error {
	open, err := d.store.OpenCalls(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = make(map[uuid.UUID]vesselState, len(open))
	for _, pc := range open {
		d.state[pc.VesselID] = vesselState{portID: pc.PortID, callID: pc.ID, enteredAt: pc.ArrivalTime}
	}
	return nil
}

// nearestPort returns the nearest port whose geofence contains pos, or false
// if none does. Ties resolve to minimum distance, then stable by port UUID.
func nearestPort(pos VesselPosition, ports []PortGeofence) (PortGeofence, bool) {
	candidates := make([]PortGeofence, 0, len(ports))
	dist := make(map[uuid.UUID]float64, len(ports))
	for _, p := range ports {
		d := HaversineKM(pos.Lat, pos.Lon, p.Lat, p.Lon)
		if d <= p.RadiusKM {
			candidates = append(candidates, p)
			dist[p.ID] = d
		}
	}
	if len(candidates) == 0 {
		return PortGeofence{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if dist[candidates[i].ID] != dist[candidates[j].ID] {
			return dist[candidates[i].ID] < dist[candidates[j].ID]
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})
	return candidates[0], true
}

// transition is the action Tick takes for a single vessel on a single pass,
// decided purely from its prior state and current geofence membership.
type transition int

const (
	transitionNone transition = iota
	transitionArrival
	transitionDeparture
	transitionPortSwitch
)

// decideTransition is the geofence state machine's pure core: given whether
// the vessel had an open call and which port (if any) it is inside now, it
// picks the one transition to apply. Kept separate from Tick so the four
// cases can be tested without a database.
func decideTransition(hadState bool, currentPortID uuid.UUID, inside bool, nearestPortID uuid.UUID) transition {
	switch {
	case !hadState && inside:
		return transitionArrival
	case hadState && !inside:
		return transitionDeparture
	case hadState && inside && currentPortID != nearestPortID:
		return transitionPortSwitch
	default:
		return transitionNone
	}
}

// Tick evaluates every vessel's latest position against every port's
// geofence and transitions state accordingly. DB write failures for a given
// vessel leave its in-memory state untouched so the next tick retries.
func (d *Detector) Tick(ctx context.Context, positions []VesselPosition, ports []PortGeofence) {
	now := time.Now().UTC()

	for _, pos := range positions {
		nearest, inside := nearestPort(pos, ports)

		d.mu.Lock()
		current, hadState := d.state[pos.VesselID]
		d.mu.Unlock()

		switch decideTransition(hadState, current.portID, inside, nearest.ID) {
		case transitionArrival:
			d.handleArrival(ctx, pos.VesselID, nearest.ID, now)
		case transitionDeparture:
			d.handleDeparture(ctx, pos.VesselID, current, now)
		case transitionPortSwitch:
			d.handlePortSwitch(ctx, pos.VesselID, current, nearest.ID, now)
		}
	}
}

func (d *Detector) handleArrival(ctx context.Context, vesselID, portID uuid.UUID, at time.Time) {
	pc, err := d.store.Open(ctx, vesselID, portID, at)
	if err != nil {
		d.logger.Warn("port call arrival write failed", "vessel_id", vesselID, "port_id", portID, "error", err)
		return
	}
	d.mu.Lock()
	d.state[vesselID] = vesselState{portID: portID, callID: pc.ID, enteredAt: at}
	d.mu.Unlock()
}

func (d *Detector) handleDeparture(ctx context.Context, vesselID uuid.UUID, current vesselState, at time.Time) {
	if _, err := d.store.Close(ctx, current.callID, current.enteredAt, at); err != nil {
		d.logger.Warn("port call departure write failed", "vessel_id", vesselID, "call_id", current.callID, "error", err)
		return
	}
	d.mu.Lock()
	delete(d.state, vesselID)
	d.mu.Unlock()
}

func (d *Detector) handlePortSwitch(ctx context.Context, vesselID uuid.UUID, current vesselState, newPortID uuid.UUID, at time.Time) {
	if err := d.store.CloseWithoutRecompute(ctx, current.callID, at); err != nil {
		d.logger.Warn("port call switch-close write failed", "vessel_id", vesselID, "call_id", current.callID, "error", err)
		return
	}
	pc, err := d.store.Open(ctx, vesselID, newPortID, at)
	if err != nil {
		d.logger.Warn("port call switch-open write failed", "vessel_id", vesselID, "port_id", newPortID, "error", err)
		return
	}
	d.mu.Lock()
	d.state[vesselID] = vesselState{portID: newPortID, callID: pc.ID, enteredAt: at}
	d.mu.Unlock()
}
