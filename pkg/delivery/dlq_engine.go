package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/veriscope/veriscope/pkg/alertsub"
)

// SubscriptionLookup resolves a subscription for the DLQ drainer, which
// needs a subscription's channel/endpoint/secret to re-attempt a send.
type SubscriptionLookup func(ctx context.Context, id uuid.UUID) (alertsub.Subscription, error)

// DLQEngine periodically drains due alert_dlq entries.
type DLQEngine struct {
	service   *Service
	subLookup SubscriptionLookup
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewDLQEngine(service *Service, subLookup SubscriptionLookup, interval time.Duration, batchSize int, logger *slog.Logger) *DLQEngine {
	return &DLQEngine{service: service, subLookup: subLookup, interval: interval, batchSize: batchSize, logger: logger}
}

func (e *DLQEngine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *DLQEngine) tick(ctx context.Context) {
	drained, err := e.service.DrainDue(ctx, e.subLookup, e.batchSize)
	if err != nil {
		e.logger.Error("dlq drain failed", "error", err)
		return
	}
	if drained > 0 {
		e.logger.Info("dlq drain complete", "drained", drained)
	}
}
