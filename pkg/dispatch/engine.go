package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Engine runs the dispatcher on a fixed interval, once on startup and then
// every tick thereafter.
type Engine struct {
	dispatcher *Dispatcher
	tenantID   uuid.UUID
	interval   time.Duration
	logger     *slog.Logger
}

func NewEngine(dispatcher *Dispatcher, tenantID uuid.UUID, interval time.Duration, logger *slog.Logger) *Engine {
	return &Engine{dispatcher: dispatcher, tenantID: tenantID, interval: interval, logger: logger}
}

func (e *Engine) Run(ctx context.Context) {
	e.tick(ctx)

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

func (e *Engine) tick(ctx context.Context) {
	run, err := e.dispatcher.Run(ctx, e.tenantID, nil)
	if err != nil {
		e.logger.Error("dispatch run failed", "error", err)
		return
	}
	e.logger.Info("dispatch run complete", "run_id", run.ID, "status", run.Status, "summary", run.Summary)
}
