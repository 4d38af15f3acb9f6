package delivery

import (
	"testing"
	"time"
)

func TestNextAttemptDelaySchedule(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Minute},
		{2, 15 * time.Minute},
		{3, time.Hour},
		{4, 6 * time.Hour},
		{5, 12 * time.Hour},
		{11, 12 * time.Hour},
	}
	for _, c := range cases {
		if got := NextAttemptDelay(c.attempt); got != c.want {
			t.Errorf("NextAttemptDelay(%d) = %s, want %s", c.attempt, got, c.want)
		}
	}
}
