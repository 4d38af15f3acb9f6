package signal

import (
	"testing"

	"github.com/veriscope/veriscope/pkg/baseline"
)

func ptr(f float64) *float64 { return &f }

func TestDetectArrivalsAnomalyFiresOnSpike(t *testing.T) {
	today := baseline.Baseline{
		Arrivals:       25,
		Arrivals30dAvg: ptr(5),
		Arrivals30dStd: ptr(1),
	}

	r, ok := DetectArrivalsAnomaly(today)
	if !ok {
		t.Fatal("expected anomaly to fire")
	}
	if r.Severity != SeverityCritical {
		t.Errorf("expected CRITICAL severity for z=20, got %s", r.Severity)
	}
	if r.DeltaPct != 400 {
		t.Errorf("expected +400%% delta, got %f", r.DeltaPct)
	}
}

func TestDetectArrivalsAnomalyDoesNotFireWithinTwoStddev(t *testing.T) {
	today := baseline.Baseline{
		Arrivals:       6,
		Arrivals30dAvg: ptr(5),
		Arrivals30dStd: ptr(1),
	}

	_, ok := DetectArrivalsAnomaly(today)
	if ok {
		t.Error("expected no anomaly for z=1")
	}
}

func TestDetectArrivalsAnomalyDoesNotFireWithZeroStddev(t *testing.T) {
	today := baseline.Baseline{
		Arrivals:       25,
		Arrivals30dAvg: ptr(5),
		Arrivals30dStd: ptr(0),
	}

	_, ok := DetectArrivalsAnomaly(today)
	if ok {
		t.Error("expected no anomaly when 30d stddev is zero, regardless of spike size")
	}
}

func TestDetectCongestionBuildupRequiresMinimumBaseline(t *testing.T) {
	today := baseline.Baseline{OpenCalls: 20, OpenCalls30dAvg: ptr(3)}
	_, ok := DetectCongestionBuildup(today)
	if ok {
		t.Error("expected no signal when 30d avg open_calls < 5")
	}
}

func TestDetectCongestionBuildupFires(t *testing.T) {
	today := baseline.Baseline{OpenCalls: 20, OpenCalls30dAvg: ptr(5)}
	r, ok := DetectCongestionBuildup(today)
	if !ok {
		t.Fatal("expected congestion signal to fire")
	}
	if r.Severity != SeverityCritical {
		t.Errorf("expected CRITICAL for 4x multiplier, got %s", r.Severity)
	}
}
