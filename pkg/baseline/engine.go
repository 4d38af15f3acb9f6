package baseline

import (
	"context"
	"log/slog"
	"time"
)

// SignalTrigger is called with the previous UTC day once a backfill
// completes, so the signal engine can evaluate the day that just closed.
type SignalTrigger func(ctx context.Context, day time.Time)

// Engine runs the builder on startup and every 24h thereafter.
type Engine struct {
	builder *Builder
	trigger SignalTrigger
	logger  *slog.Logger
}

func NewEngine(builder *Builder, trigger SignalTrigger, logger *slog.Logger) *Engine {
	return &Engine{builder: builder, trigger: trigger, logger: logger}
}

func (e *Engine) Run(ctx context.Context) {
	e.tick(ctx)

	ticker := time.NewTicker(24 * time.Hour)
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
	if err := e.builder.BackfillDefaultWindow(ctx); err != nil {
		e.logger.Error("baseline builder tick failed", "error", err)
		return
	}
	yesterday := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	e.trigger(ctx, yesterday)
}
