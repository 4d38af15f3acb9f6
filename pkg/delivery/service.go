package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/veriscope/veriscope/pkg/alertsub"
	"github.com/veriscope/veriscope/pkg/signal"
)

// EntityNamer resolves an entity_id to a human-readable name for email
// subjects/bodies. Ports are the only entity type today.
type EntityNamer func(ctx context.Context, entityType string, entityID uuid.UUID) (string, error)

// Service sends one subscription's share of a dispatch run and records the
// outcome, escalating exhausted webhook retries to the DLQ.
type Service struct {
	store          *Store
	signals        *signal.Store
	webhookSend    *WebhookSender
	email          EmailTransport
	entityName     EntityNamer
	dlqMaxAttempts int
	logger         *slog.Logger
}

func NewService(store *Store, signals *signal.Store, webhookSend *WebhookSender, email EmailTransport, entityName EntityNamer, dlqMaxAttempts int, logger *slog.Logger) *Service {
	return &Service{
		store: store, signals: signals, webhookSend: webhookSend, email: email,
		entityName: entityName, dlqMaxAttempts: dlqMaxAttempts, logger: logger,
	}
}

// representative picks the cluster member with the highest confidence score
// to drive the email/webhook summary fields; cluster-level fields
// (severity, summary) are identical across members.
func representative(members []signal.Signal) signal.Signal {
	best := members[0]
	for _, m := range members[1:] {
		if m.ConfidenceScore > best.ConfidenceScore {
			best = m
		}
	}
	return best
}

func buildPayload(rep signal.Signal, idempotencyKey string, sentAt time.Time) WebhookPayload {
	drivers := make([]any, 0, len(rep.Metadata.Drivers))
	for _, d := range rep.Metadata.Drivers {
		drivers = append(drivers, d)
	}
	return WebhookPayload{
		EventType:       EventType,
		Day:             rep.Day.Format("2006-01-02"),
		EntityType:      rep.EntityType,
		EntityID:        rep.EntityID,
		ClusterID:       rep.ClusterID,
		ClusterSeverity: rep.ClusterSeverity,
		ConfidenceScore: rep.ConfidenceScore,
		ConfidenceBand:  rep.ConfidenceBand,
		ClusterSummary:  rep.ClusterSummary,
		TopDrivers:      drivers,
		Impact:          rep.Metadata.Impact,
		Followups:       rep.Metadata.RecommendedFollowups,
		DataQuality:     rep.Metadata.DataQuality,
		PayloadVersion:  PayloadVersion,
		SentAt:          sentAt.UTC().Format(time.RFC3339),
		IdempotencyKey:  idempotencyKey,
	}
}

// Send attempts delivery of clusterMembers to sub, recording a new delivery
// row plus its attempt log, and enqueuing the DLQ on failure.
func (s *Service) Send(ctx context.Context, runID uuid.UUID, sub alertsub.Subscription, clusterMembers []signal.Signal) (Delivery, error) {
	rep := representative(clusterMembers)
	now := time.Now()

	d, err := s.store.Create(ctx, Delivery{
		RunID:          runID,
		SubscriptionID: sub.ID,
		ClusterID:      rep.ClusterID,
		TenantID:       sub.TenantID,
		UserID:         sub.UserID,
		Status:         StatusPending,
	})
	if err != nil {
		return Delivery{}, fmt.Errorf("creating delivery record: %w", err)
	}

	idempotencyKey := IdempotencyKey(sub.ID.String(), rep.ClusterID, rep.Day.Format("2006-01-02"))
	status, attemptCount, lastHTTPStatus, latencyMs, errMsg := s.dispatch(ctx, d.ID, sub, rep, idempotencyKey, now)

	var sentAt *time.Time
	if status == StatusSent {
		sentAt = &now
	}
	updated, err := s.store.UpdateResult(ctx, d.ID, status, attemptCount, lastHTTPStatus, latencyMs, sentAt, errMsg)
	if err != nil {
		return Delivery{}, fmt.Errorf("updating delivery result: %w", err)
	}

	if status == StatusFailed {
		reason := ""
		if errMsg != nil {
			reason = *errMsg
		}
		if _, err := s.store.Enqueue(ctx, d.ID, now, reason, s.dlqMaxAttempts); err != nil {
			s.logger.Error("enqueuing dlq entry", "error", err, "delivery_id", d.ID)
		}
	}
	return updated, nil
}

// RecordSkipped persists a delivery row for a candidate that matched a
// subscription's filters but was not sent, so every (run, subscription,
// cluster_id) match leaves exactly one alert_deliveries row regardless of
// whether it was actually dispatched.
func (s *Service) RecordSkipped(ctx context.Context, runID uuid.UUID, sub alertsub.Subscription, clusterID, status string) (Delivery, error) {
	d, err := s.store.Create(ctx, Delivery{
		RunID:          runID,
		SubscriptionID: sub.ID,
		ClusterID:      clusterID,
		TenantID:       sub.TenantID,
		UserID:         sub.UserID,
		Status:         status,
	})
	if err != nil {
		return Delivery{}, fmt.Errorf("recording skipped delivery: %w", err)
	}
	return d, nil
}

// dispatch performs the actual channel send and reports the outcome without
// touching storage; callers persist the result.
func (s *Service) dispatch(ctx context.Context, deliveryID uuid.UUID, sub alertsub.Subscription, rep signal.Signal, idempotencyKey string, now time.Time) (status string, attempts int, lastHTTPStatus, latencyMs *int, errMsg *string) {
	switch sub.Channel {
	case alertsub.ChannelWebhook:
		secret := ""
		if sub.Secret != nil {
			secret = *sub.Secret
		}
		payload := buildPayload(rep, idempotencyKey, now)
		logs, sendErr := s.webhookSend.Send(ctx, sub.Endpoint, secret, payload)
		if err := s.store.RecordAttempts(ctx, deliveryID, logs); err != nil {
			s.logger.Error("recording delivery attempts", "error", err, "delivery_id", deliveryID)
		}
		attempts = len(logs)
		if len(logs) > 0 {
			last := logs[len(logs)-1]
			lastHTTPStatus = last.HTTPStatus
			latencyMs = last.LatencyMs
		}
		if sendErr != nil {
			msg := sendErr.Error()
			return StatusFailed, attempts, lastHTTPStatus, latencyMs, &msg
		}
		return StatusSent, attempts, lastHTTPStatus, latencyMs, nil

	case alertsub.ChannelEmail:
		entityName := rep.EntityID.String()
		if s.entityName != nil {
			if name, err := s.entityName(ctx, rep.EntityType, rep.EntityID); err == nil && name != "" {
				entityName = name
			}
		}
		subject := RenderEmailSubject(rep.ClusterSeverity, signal.ClusterTypeDisruption, entityName, rep.Day.Format("2006-01-02"))
		body := RenderEmailBody(rep.ClusterSummary, rep.Metadata.Impact, rep.Metadata.RecommendedFollowups, "")
		if err := s.email.Send(ctx, sub.Endpoint, subject, body); err != nil {
			msg := err.Error()
			return StatusFailed, 1, nil, nil, &msg
		}
		return StatusSent, 1, nil, nil, nil

	default:
		msg := fmt.Sprintf("unsupported delivery channel %q", sub.Channel)
		return StatusFailed, 0, nil, nil, &msg
	}
}

// RetryDeliveryByID re-attempts a previously failed delivery, reloading its
// cluster's signals so it can rebuild the payload from scratch.
func (s *Service) RetryDeliveryByID(ctx context.Context, tenantID, deliveryID uuid.UUID, sub alertsub.Subscription) (Delivery, error) {
	d, err := s.store.GetByID(ctx, tenantID, deliveryID)
	if err != nil {
		return Delivery{}, fmt.Errorf("loading delivery: %w", err)
	}

	members, err := s.signals.ForClusterOnDay(ctx, d.ClusterID)
	if err != nil {
		return Delivery{}, fmt.Errorf("reloading cluster signals: %w", err)
	}
	if len(members) == 0 {
		return Delivery{}, fmt.Errorf("no signals remain for cluster %s", d.ClusterID)
	}

	rep := representative(members)
	now := time.Now()
	idempotencyKey := IdempotencyKey(sub.ID.String(), rep.ClusterID, rep.Day.Format("2006-01-02"))
	status, attemptCount, lastHTTPStatus, latencyMs, errMsg := s.dispatch(ctx, d.ID, sub, rep, idempotencyKey, now)

	var sentAt *time.Time
	if status == StatusSent {
		sentAt = &now
	}
	return s.store.UpdateResult(ctx, d.ID, status, d.Attempts+attemptCount, lastHTTPStatus, latencyMs, sentAt, errMsg)
}

// DrainDue re-attempts every DLQ entry whose next_attempt_at has elapsed,
// resolving it on success and rescheduling per the backoff ladder on
// another failure, or leaving it terminally FAILED once max_attempts is hit.
func (s *Service) DrainDue(ctx context.Context, subLookup SubscriptionLookup, batchSize int) (int, error) {
	due, err := s.store.DueEntries(ctx, time.Now(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("listing due dlq entries: %w", err)
	}

	drained := 0
	for _, entry := range due {
		d, err := s.store.GetByIDUnscoped(ctx, entry.DeliveryID)
		if err != nil {
			s.logger.Error("loading dlq delivery", "error", err, "delivery_id", entry.DeliveryID)
			continue
		}
		sub, err := subLookup(ctx, d.SubscriptionID)
		if err != nil {
			s.logger.Error("loading dlq subscription", "error", err, "subscription_id", d.SubscriptionID)
			continue
		}

		retried, err := s.RetryDeliveryByID(ctx, d.TenantID, d.ID, sub)
		if err != nil {
			s.logger.Error("retrying dlq delivery", "error", err, "delivery_id", d.ID)
			continue
		}
		drained++

		if retried.Status == StatusSent {
			if err := s.store.Resolve(ctx, entry.ID); err != nil {
				s.logger.Error("resolving dlq entry", "error", err, "id", entry.ID)
			}
			continue
		}

		reason := ""
		if retried.Error != nil {
			reason = *retried.Error
		}
		updatedEntry, err := s.store.Enqueue(ctx, d.ID, time.Now(), reason, s.dlqMaxAttempts)
		if err != nil {
			s.logger.Error("rescheduling dlq entry", "error", err, "delivery_id", d.ID)
			continue
		}
		if updatedEntry.AttemptCount >= updatedEntry.MaxAttempts {
			if _, err := s.store.UpdateResult(ctx, d.ID, StatusFailed, retried.Attempts, retried.LastHTTPStatus, retried.LatencyMs, nil, &reason); err != nil {
				s.logger.Error("marking delivery terminally failed", "error", err, "delivery_id", d.ID)
			}
			if err := s.store.Resolve(ctx, updatedEntry.ID); err != nil {
				s.logger.Error("resolving exhausted dlq entry", "error", err, "id", updatedEntry.ID)
			}
		}
	}
	return drained, nil
}
