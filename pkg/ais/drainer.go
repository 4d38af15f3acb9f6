package ais

import (
	"context"
	"log/slog"
	"time"
)

// PersistFunc writes a drained batch of normalized messages to storage
// (vessel upsert plus position insert). It is supplied by the wiring layer
// so this package stays free of a direct database dependency.
type PersistFunc func(ctx context.Context, batch []Message) error

// Drainer pulls fixed-size batches off the queue on an interval and hands
// them to PersistFunc. On a persistence error the batch is pushed back onto
// the head of the queue so the next tick retries it.
type Drainer struct {
	queue     *Queue
	batchSize int
	interval  time.Duration
	persist   PersistFunc
	logger    *slog.Logger
}

func NewDrainer(queue *Queue, batchSize int, persist PersistFunc, logger *slog.Logger) *Drainer {
	return &Drainer{queue: queue, batchSize: batchSize, interval: time.Second, persist: persist, logger: logger}
}

func (d *Drainer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Drainer) tick(ctx context.Context) {
	batch := d.queue.DrainBatch(d.batchSize)
	if len(batch) == 0 {
		return
	}
	if err := d.persist(ctx, batch); err != nil {
		d.logger.Warn("ais batch persist failed, requeueing", "size", len(batch), "error", err)
		d.queue.Requeue(batch)
	}
}

// DedupCleaner periodically trims the dedup set so it never drifts far past
// its cap during a lull in upstream traffic.
type DedupCleaner struct {
	dedup    *DedupSet
	interval time.Duration
}

func NewDedupCleaner(dedup *DedupSet) *DedupCleaner {
	return &DedupCleaner{dedup: dedup, interval: 60 * time.Second}
}

func (c *DedupCleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.dedup.Trim()
		}
	}
}
