package ais

import "testing"

func TestDedupSetSeenMarksSecondOccurrenceAsDuplicate(t *testing.T) {
	d := NewDedupSet(100)
	fp := fingerprint("244660000", "2026-01-01T00:00:00Z", 51.9, 4.1)

	if d.Seen(fp) {
		t.Fatal("expected first occurrence to report unseen")
	}
	if !d.Seen(fp) {
		t.Fatal("expected second occurrence to report seen")
	}
	if d.DuplicatesFiltered() != 1 {
		t.Errorf("expected 1 duplicate counted, got %d", d.DuplicatesFiltered())
	}
}

func TestDedupSetEvictsOldestFifthOverCap(t *testing.T) {
	d := NewDedupSet(10)
	for i := 0; i < 11; i++ {
		fp := fingerprint("244660000", "2026-01-01T00:00:00Z", float64(i), 0)
		d.Seen(fp)
	}

	if d.Size() > 10 {
		t.Errorf("expected size capped near maxSize, got %d", d.Size())
	}

	evictedFP := fingerprint("244660000", "2026-01-01T00:00:00Z", 0, 0)
	if d.Seen(evictedFP) {
		t.Error("expected the oldest fingerprint to have been evicted and treated as unseen again")
	}
}

func TestFingerprintIsStableAndPositionSensitive(t *testing.T) {
	a := fingerprint("244660000", "2026-01-01T00:00:00Z", 51.9, 4.1)
	b := fingerprint("244660000", "2026-01-01T00:00:00Z", 51.9, 4.1)
	if a != b {
		t.Error("expected identical inputs to produce identical fingerprints")
	}

	c := fingerprint("244660000", "2026-01-01T00:00:00Z", 51.91, 4.1)
	if a == c {
		t.Error("expected a different position to produce a different fingerprint")
	}
}
