package ais

import (
	"log/slog"
	"testing"
)

func newTestClient() *Client {
	return NewClient("wss://example.test/stream", "key", NewQueue(10), NewDedupSet(10), slog.Default())
}

func TestClientIsHealthyWhileUnderAttemptBudget(t *testing.T) {
	c := newTestClient()
	c.attempts = maxReconnectAttempts - 1
	if !c.IsHealthy() {
		t.Error("expected healthy while attempts remain under the max")
	}
}

func TestClientIsHealthyWhenCurrentlyConnectedRegardlessOfAttempts(t *testing.T) {
	c := newTestClient()
	c.connected = true
	c.attempts = maxReconnectAttempts + 5
	if !c.IsHealthy() {
		t.Error("expected healthy whenever currently connected, even with a high historical attempt count")
	}
}

func TestClientIsUnhealthyOnceAttemptsExceedMaxWhileDisconnected(t *testing.T) {
	c := newTestClient()
	c.connected = false
	c.attempts = maxReconnectAttempts + 1
	if c.IsHealthy() {
		t.Error("expected unhealthy once disconnected and out of reconnect budget")
	}
}
