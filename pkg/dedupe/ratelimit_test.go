package dedupe

import (
	"testing"

	"github.com/google/uuid"
)

func TestRunLimiterAllowsUpToLimit(t *testing.T) {
	limiter := NewRunLimiter(2)
	sub := uuid.New()

	if !limiter.Allow(sub) {
		t.Fatal("expected first send to be allowed")
	}
	if !limiter.Allow(sub) {
		t.Fatal("expected second send to be allowed")
	}
	if limiter.Allow(sub) {
		t.Fatal("expected third send to be rejected at the limit")
	}
}

func TestRunLimiterIsPerSubscription(t *testing.T) {
	limiter := NewRunLimiter(1)
	a, b := uuid.New(), uuid.New()

	if !limiter.Allow(a) {
		t.Fatal("expected a's first send to be allowed")
	}
	if !limiter.Allow(b) {
		t.Fatal("expected b's first send to be allowed regardless of a's count")
	}
	if limiter.Allow(a) {
		t.Fatal("expected a's second send to be rejected")
	}
}
