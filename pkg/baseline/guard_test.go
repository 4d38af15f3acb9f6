package baseline

import "testing"

func TestZScorePositive(t *testing.T) {
	z, ok := ZScore(25, 5, 1.0)
	if !ok {
		t.Fatal("expected ok")
	}
	if z != 20 {
		t.Errorf("expected z=20, got %f", z)
	}
}

func TestZScoreZeroStddevFails(t *testing.T) {
	_, ok := ZScore(25, 5, 0)
	if ok {
		t.Error("expected no score when stddev is zero")
	}
}

func TestZScoreNegativeStddevFails(t *testing.T) {
	_, ok := ZScore(25, 5, -1)
	if ok {
		t.Error("expected no score for a negative stddev")
	}
}
