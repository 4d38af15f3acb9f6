package signal

import "testing"

func TestZScoreConfidenceCaps(t *testing.T) {
	if got := ZScoreConfidence(20); got != 1 {
		t.Errorf("expected capped at 1, got %f", got)
	}
	if got := ZScoreConfidence(3); got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestAdjustForCompletenessHighAbove90(t *testing.T) {
	score, b := AdjustForCompleteness(0.9, 100)
	if score != 0.9 || b != BandHigh {
		t.Errorf("expected unchanged HIGH, got score=%f band=%s", score, b)
	}
}

func TestAdjustForCompletenessDemotesHighBetween85And90(t *testing.T) {
	score, b := AdjustForCompleteness(0.9, 87)
	if b != BandMedium {
		t.Errorf("expected HIGH demoted to MEDIUM, got %s", b)
	}
	if score != 0.9*0.75 {
		t.Errorf("expected score discounted by 0.75, got %f", score)
	}
}

func TestAdjustForCompletenessForcesLowBelow85(t *testing.T) {
	_, b := AdjustForCompleteness(0.95, 80)
	if b != BandLow {
		t.Errorf("expected band forced to LOW, got %s", b)
	}
}

func TestSeverityFromZThresholds(t *testing.T) {
	cases := []struct {
		z    float64
		want string
	}{
		{20, SeverityCritical},
		{5, SeverityCritical},
		{3, SeverityHigh},
		{2, SeverityMedium},
	}
	for _, c := range cases {
		if got := severityFromZ(c.z); got != c.want {
			t.Errorf("severityFromZ(%f) = %s, want %s", c.z, got, c.want)
		}
	}
}
