package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

var retryDelays = []time.Duration{0, 250 * time.Millisecond, 1000 * time.Millisecond}

// WebhookSender POSTs signed, idempotent alert payloads to subscriber
// endpoints with bounded retry.
type WebhookSender struct {
	client         *http.Client
	retryAttempts  int
	perAttemptTimeout time.Duration
}

func NewWebhookSender(retryAttempts int, timeoutMs int) *WebhookSender {
	return &WebhookSender{
		client:            &http.Client{},
		retryAttempts:     retryAttempts,
		perAttemptTimeout: time.Duration(timeoutMs) * time.Millisecond,
	}
}

// Send POSTs payload to endpoint, signing with secret if non-empty, retrying
// up to retryAttempts times with the fixed [0,250,1000]ms delay schedule.
// Returns the attempt log either way; err is a *WebhookSendError only when
// every attempt failed.
func (s *WebhookSender) Send(ctx context.Context, endpoint string, secret string, payload WebhookPayload) ([]DeliveryAttempt, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling webhook payload: %w", err)
	}

	var logs []DeliveryAttempt
	var lastStatus int

	attempts := s.retryAttempts
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if i > 0 {
			idx := i
			if idx >= len(retryDelays) {
				idx = len(retryDelays) - 1
			}
			delay := retryDelays[idx]
			select {
			case <-ctx.Done():
				return logs, ctx.Err()
			case <-time.After(delay):
			}
		}

		attemptNo := i + 1
		status, latencyMs, attemptErr := s.attempt(ctx, endpoint, secret, payload.IdempotencyKey, body)

		entry := DeliveryAttempt{AttemptNo: attemptNo, LatencyMs: &latencyMs}
		if attemptErr == nil && status >= 200 && status < 300 {
			entry.Status = "ok"
			entry.HTTPStatus = &status
			logs = append(logs, entry)
			return logs, nil
		}

		lastStatus = status
		entry.Status = "failed"
		if status != 0 {
			entry.HTTPStatus = &status
		}
		if attemptErr != nil {
			msg := attemptErr.Error()
			entry.Error = &msg
		}
		logs = append(logs, entry)
	}

	return logs, &WebhookSendError{Attempts: attempts, LastStatus: lastStatus, AttemptLogs: logs}
}

func (s *WebhookSender) attempt(ctx context.Context, endpoint, secret, idempotencyKey string, body []byte) (status int, latencyMs int, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.perAttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	if secret != "" {
		timestamp := time.Now().Unix()
		req.Header.Set("X-Veriscope-Timestamp", fmt.Sprintf("%d", timestamp))
		req.Header.Set("X-Veriscope-Signature", Sign(secret, timestamp, body))
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	latencyMs = int(time.Since(start).Milliseconds())
	if err != nil {
		return 0, latencyMs, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, latencyMs, nil
}
