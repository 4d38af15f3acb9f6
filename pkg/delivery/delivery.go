// Package delivery sends signal cluster alerts to subscriber endpoints
// (webhook or email), logs each attempt, and escalates exhausted retries to
// a dead-letter queue with a backoff-driven re-drain schedule.
package delivery

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusSent             = "SENT"
	StatusFailed           = "FAILED"
	StatusSkippedDedupe    = "SKIPPED_DEDUPE"
	StatusSkippedRateLimit = "SKIPPED_RATE_LIMIT"
	StatusPending          = "PENDING"

	PayloadVersion = "1.1"
	EventType      = "VERISCOPE_SIGNAL_CLUSTER"
)

type Delivery struct {
	ID             uuid.UUID  `json:"id"`
	RunID          uuid.UUID  `json:"run_id"`
	SubscriptionID uuid.UUID  `json:"subscription_id"`
	ClusterID      string     `json:"cluster_id"`
	TenantID       uuid.UUID  `json:"tenant_id"`
	UserID         uuid.UUID  `json:"user_id"`
	Status         string     `json:"status"`
	Attempts       int        `json:"attempts"`
	LastHTTPStatus *int       `json:"last_http_status,omitempty"`
	LatencyMs      *int       `json:"latency_ms,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	Error          *string    `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type DeliveryAttempt struct {
	ID         int64     `json:"id"`
	DeliveryID uuid.UUID `json:"delivery_id"`
	AttemptNo  int       `json:"attempt_no"`
	Status     string    `json:"status"`
	HTTPStatus *int      `json:"http_status,omitempty"`
	LatencyMs  *int      `json:"latency_ms,omitempty"`
	Error      *string   `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// DLQEntry tracks an exhausted delivery awaiting re-drain.
type DLQEntry struct {
	ID             uuid.UUID `json:"id"`
	DeliveryID     uuid.UUID `json:"delivery_id"`
	NextAttemptAt  time.Time `json:"next_attempt_at"`
	AttemptCount   int       `json:"attempt_count"`
	MaxAttempts    int       `json:"max_attempts"`
	LastError      *string   `json:"last_error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WebhookPayload is the JSON body POSTed to subscriber webhook endpoints.
type WebhookPayload struct {
	EventType       string         `json:"event_type"`
	Day             string         `json:"day"`
	EntityType      string         `json:"entity_type"`
	EntityID        uuid.UUID      `json:"entity_id"`
	ClusterID       string         `json:"cluster_id"`
	ClusterSeverity string         `json:"cluster_severity"`
	ConfidenceScore float64        `json:"confidence_score"`
	ConfidenceBand  string         `json:"confidence_band"`
	ClusterSummary  string         `json:"cluster_summary"`
	TopDrivers      any            `json:"top_drivers"`
	Impact          []string       `json:"impact"`
	Followups       []string       `json:"followups"`
	DataQuality     any            `json:"data_quality"`
	PayloadVersion  string         `json:"payload_version"`
	SentAt          string         `json:"sent_at"`
	IdempotencyKey  string         `json:"idempotency_key"`
}

// WebhookSendError is raised when every retry attempt of WebhookSender.Send fails.
type WebhookSendError struct {
	Attempts    int
	LastStatus  int
	AttemptLogs []DeliveryAttempt
}

func (e *WebhookSendError) Error() string {
	return "webhook delivery exhausted retries"
}
