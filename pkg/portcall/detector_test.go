package portcall

import (
	"testing"

	"github.com/google/uuid"
)

func TestDecideTransition(t *testing.T) {
	portA := mustUUID("00000000-0000-0000-0000-0000000000a1")
	portB := mustUUID("00000000-0000-0000-0000-0000000000b2")

	cases := []struct {
		name          string
		hadState      bool
		currentPortID uuid.UUID
		inside        bool
		nearestPortID uuid.UUID
		want          transition
	}{
		{
			name:          "arrival: no open call, now inside a geofence",
			hadState:      false,
			inside:        true,
			nearestPortID: portA,
			want:          transitionArrival,
		},
		{
			name:          "departure: open call, no longer inside any geofence",
			hadState:      true,
			currentPortID: portA,
			inside:        false,
			want:          transitionDeparture,
		},
		{
			name:          "port switch: open call at A, now inside B's geofence",
			hadState:      true,
			currentPortID: portA,
			inside:        true,
			nearestPortID: portB,
			want:          transitionPortSwitch,
		},
		{
			name:          "steady state: open call at A, still inside A",
			hadState:      true,
			currentPortID: portA,
			inside:        true,
			nearestPortID: portA,
			want:          transitionNone,
		},
		{
			name:     "no-op: no open call, still outside every geofence",
			hadState: false,
			inside:   false,
			want:     transitionNone,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := decideTransition(c.hadState, c.currentPortID, c.inside, c.nearestPortID)
			if got != c.want {
				t.Errorf("decideTransition(%v, %s, %v, %s) = %v, want %v",
					c.hadState, c.currentPortID, c.inside, c.nearestPortID, got, c.want)
			}
		})
	}
}
