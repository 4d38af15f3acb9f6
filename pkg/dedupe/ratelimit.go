package dedupe

import (
	"sync"

	"github.com/google/uuid"
)

// RunLimiter enforces ALERT_RATE_LIMIT_PER_ENDPOINT as an in-run, in-memory
// counter per subscription. It is intentionally not persistent: the limit
// resets with every new dispatcher run.
type RunLimiter struct {
	mu      sync.Mutex
	limit   int
	counts  map[uuid.UUID]int
}

func NewRunLimiter(limit int) *RunLimiter {
	return &RunLimiter{limit: limit, counts: make(map[uuid.UUID]int)}
}

// Allow increments the counter for subscriptionID and reports whether the
// subscription is still under its per-run limit.
func (l *RunLimiter) Allow(subscriptionID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts[subscriptionID]++
	return l.counts[subscriptionID] <= l.limit
}
