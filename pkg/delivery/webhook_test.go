package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestWebhookSenderSucceedsOnFirstAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Idempotency-Key") == "" {
			t.Errorf("expected Idempotency-Key header to be set")
		}
		if r.Header.Get("X-Veriscope-Signature") == "" {
			t.Errorf("expected signature header when secret is configured")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewWebhookSender(3, 2000)
	logs, err := sender.Send(context.Background(), srv.URL, "sekrit", WebhookPayload{
		EventType: EventType, EntityID: uuid.New(), IdempotencyKey: "idem-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected exactly 1 attempt logged, got %d", len(logs))
	}
	if logs[0].Status != "ok" {
		t.Errorf("expected ok status, got %s", logs[0].Status)
	}
}

func TestWebhookSenderRetriesThenFails(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sender := NewWebhookSender(3, 2000)
	logs, err := sender.Send(context.Background(), srv.URL, "", WebhookPayload{IdempotencyKey: "idem-2"})
	if err == nil {
		t.Fatalf("expected an error after exhausting retries")
	}
	sendErr, ok := err.(*WebhookSendError)
	if !ok {
		t.Fatalf("expected *WebhookSendError, got %T", err)
	}
	if sendErr.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", sendErr.Attempts)
	}
	if sendErr.LastStatus != http.StatusInternalServerError {
		t.Errorf("expected last status 500, got %d", sendErr.LastStatus)
	}
	if len(logs) != 3 {
		t.Errorf("expected 3 attempt logs, got %d", len(logs))
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected server to be hit 3 times, got %d", calls)
	}
}

func TestWebhookSenderSkipsSignatureWithoutSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Veriscope-Signature") != "" {
			t.Errorf("did not expect a signature header without a secret")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewWebhookSender(1, 2000)
	if _, err := sender.Send(context.Background(), srv.URL, "", WebhookPayload{IdempotencyKey: "idem-3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWebhookSenderRespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	sender := NewWebhookSender(3, 2000)
	_, err := sender.Send(ctx, srv.URL, "", WebhookPayload{IdempotencyKey: "idem-4"})
	if err == nil {
		t.Fatalf("expected an error when the context is cancelled mid-retry")
	}
}
