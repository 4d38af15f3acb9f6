package delivery

import (
	"strings"
	"testing"
)

func TestIdempotencyKeyDeterministic(t *testing.T) {
	a := IdempotencyKey("sub-1", "PORT_DISRUPTION:port-1:2026-07-29", "2026-07-29")
	b := IdempotencyKey("sub-1", "PORT_DISRUPTION:port-1:2026-07-29", "2026-07-29")
	if a != b {
		t.Fatalf("expected deterministic key, got %s and %s", a, b)
	}
	if len(a) != 40 {
		t.Fatalf("expected a 40-char sha1 hex digest, got %d chars", len(a))
	}
}

func TestIdempotencyKeyDiffersByInput(t *testing.T) {
	a := IdempotencyKey("sub-1", "cluster-a", "2026-07-29")
	b := IdempotencyKey("sub-2", "cluster-a", "2026-07-29")
	if a == b {
		t.Fatalf("expected different keys for different subscriptions")
	}
}

func TestSignHasVersionPrefix(t *testing.T) {
	sig := Sign("secret", 1700000000, []byte(`{"a":1}`))
	if !strings.HasPrefix(sig, "v1=") {
		t.Fatalf("expected v1= prefix, got %s", sig)
	}
}

func TestSignDependsOnBodyAndSecret(t *testing.T) {
	base := Sign("secret", 1700000000, []byte(`{"a":1}`))
	diffBody := Sign("secret", 1700000000, []byte(`{"a":2}`))
	diffSecret := Sign("other", 1700000000, []byte(`{"a":1}`))
	if base == diffBody || base == diffSecret {
		t.Fatalf("expected signature to change with body or secret")
	}
}
