package portcall

import (
	"math"
	"testing"

	"github.com/google/uuid"
)

func mustUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func TestHaversineKMSamePoint(t *testing.T) {
	d := HaversineKM(51.9, 4.48, 51.9, 4.48)
	if d != 0 {
		t.Errorf("expected 0 distance for identical points, got %f", d)
	}
}

func TestHaversineKMKnownDistance(t *testing.T) {
	// Rotterdam to Singapore, roughly 10,500km great-circle.
	d := HaversineKM(51.9225, 4.47917, 1.3521, 103.8198)
	if d < 10000 || d > 11000 {
		t.Errorf("expected distance in [10000,11000]km, got %f", d)
	}
}

func TestNearestPortTieBreaksByDistanceThenUUID(t *testing.T) {
	pos := VesselPosition{Lat: 0, Lon: 0}
	ports := []PortGeofence{
		{ID: mustUUID("00000000-0000-0000-0000-000000000002"), Lat: 0, Lon: 0.01, RadiusKM: 50},
		{ID: mustUUID("00000000-0000-0000-0000-000000000001"), Lat: 0, Lon: 0.005, RadiusKM: 50},
	}

	nearest, ok := nearestPort(pos, ports)
	if !ok {
		t.Fatal("expected a matching port")
	}
	if nearest.ID.String() != "00000000-0000-0000-0000-000000000001" {
		t.Errorf("expected closer port to win, got %s", nearest.ID)
	}

	tied := []PortGeofence{
		{ID: mustUUID("00000000-0000-0000-0000-000000000002"), Lat: 0, Lon: 0.005, RadiusKM: 50},
		{ID: mustUUID("00000000-0000-0000-0000-000000000001"), Lat: 0, Lon: 0.005, RadiusKM: 50},
	}
	nearest, ok = nearestPort(pos, tied)
	if !ok {
		t.Fatal("expected a matching port")
	}
	if nearest.ID.String() != "00000000-0000-0000-0000-000000000001" {
		t.Errorf("expected lower UUID to win an equal-distance tie, got %s", nearest.ID)
	}
}

func TestNearestPortNoneWithinRadius(t *testing.T) {
	pos := VesselPosition{Lat: 0, Lon: 0}
	ports := []PortGeofence{{ID: mustUUID("00000000-0000-0000-0000-000000000001"), Lat: 10, Lon: 10, RadiusKM: 1}}

	_, ok := nearestPort(pos, ports)
	if ok {
		t.Error("expected no port match")
	}
}

func TestHaversineSymmetric(t *testing.T) {
	a := HaversineKM(10, 20, 30, 40)
	b := HaversineKM(30, 40, 10, 20)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("expected symmetric distance, got %f vs %f", a, b)
	}
}
