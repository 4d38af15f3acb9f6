// Package opsalert posts operator-facing health messages to Slack. This is
// not a subscriber delivery channel (see pkg/delivery) — it exists so an
// operator watching an ops channel learns about failed dispatcher runs and
// DLQ backlog growth without tailing logs. AISUnhealthy has no caller in this
// repository: when the AIS client gives up reconnecting it only logs and
// sets its connection-health gauge to 0.
package opsalert

import (
	"context"
	"fmt"
	"log/slog"

	goslack "github.com/slack-go/slack"
)

// Notifier sends operator health messages to a single Slack channel.
type Notifier struct {
	client  *goslack.Client
	channel string
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. If botToken or channel is empty, the
// notifier is a noop that only logs, so ops alerting is optional in dev.
func NewNotifier(botToken, channel string, logger *slog.Logger) *Notifier {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &Notifier{client: client, channel: channel, logger: logger}
}

// Enabled reports whether the notifier has a usable Slack client.
func (n *Notifier) Enabled() bool {
	return n.client != nil && n.channel != ""
}

// AISUnhealthy reports that the AIS ingestor has exceeded its reconnect
// budget or lost its upstream connection.
func (n *Notifier) AISUnhealthy(ctx context.Context, reconnectAttempts int, lastErr error) {
	n.post(ctx, fmt.Sprintf(":rotating_light: AIS ingestor unhealthy after %d reconnect attempts: %v", reconnectAttempts, lastErr))
}

// DispatchRunFailed reports that a dispatcher run ended in FAILED status.
func (n *Notifier) DispatchRunFailed(ctx context.Context, runID string, reason error) {
	n.post(ctx, fmt.Sprintf(":x: dispatch run %s FAILED: %v", runID, reason))
}

// DLQBacklog reports that the dead-letter queue has grown past a threshold.
func (n *Notifier) DLQBacklog(ctx context.Context, depth, threshold int) {
	n.post(ctx, fmt.Sprintf(":warning: DLQ depth %d exceeds threshold %d", depth, threshold))
}

func (n *Notifier) post(ctx context.Context, text string) {
	if !n.Enabled() {
		n.logger.Debug("opsalert notifier disabled, skipping", "message", text)
		return
	}

	if _, _, err := n.client.PostMessageContext(ctx, n.channel, goslack.MsgOptionText(text, false)); err != nil {
		n.logger.Error("posting ops alert to slack", "error", err)
	}
}
