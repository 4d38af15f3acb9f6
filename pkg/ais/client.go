package ais

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"github.com/veriscope/veriscope/internal/telemetry"
)

const maxReconnectAttempts = 10

// Client owns the single logical connection to the upstream AIS feed. It is
// the only task that touches the socket; a separate batch drainer pulls
// normalized messages off the queue for persistence.
type Client struct {
	url       string
	apiKey    string
	queue     *Queue
	dedup     *DedupSet
	logger    *slog.Logger
	mode      string
	connected bool
	attempts  int
	backoff   *backoff.ExponentialBackOff
}

func NewClient(url, apiKey string, queue *Queue, dedup *DedupSet, logger *slog.Logger) *Client {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.MaxInterval = 60 * time.Second
	b.RandomizationFactor = 0
	return &Client{url: url, apiKey: apiKey, queue: queue, dedup: dedup, logger: logger, mode: "live", backoff: b}
}

func (c *Client) Mode() string { return c.mode }

func (c *Client) IsHealthy() bool { return c.connected || c.attempts < maxReconnectAttempts }

// Run owns the connect/read/reconnect loop until ctx is cancelled.
// connectAndRead resets the attempt counter as soon as the socket opens, so
// the reconnect budget reflects consecutive failures to connect rather than
// lifetime connection count; on close or error this loop schedules a
// reconnect with jittered exponential backoff, capping at
// maxReconnectAttempts before marking the subsystem unhealthy.
func (c *Client) Run(ctx context.Context) {
	for ctx.Err() == nil {
		pending, err := c.connectAndRead(ctx)
		if pending != nil {
			c.queue.Requeue(pending)
		}
		if ctx.Err() != nil {
			return
		}

		c.attempts++
		telemetry.AISReconnectAttempts.Set(float64(c.attempts))
		if c.attempts > maxReconnectAttempts {
			c.connected = false
			telemetry.AISConnectionHealthy.Set(0)
			c.logger.Error("ais ingestor unhealthy: exceeded max reconnect attempts", "attempts", c.attempts, "error", err)
			return
		}

		delay := c.backoff.NextBackOff() + time.Duration(rand.Float64()*float64(time.Second))
		c.logger.Warn("ais upstream connection lost, reconnecting", "attempt", c.attempts, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// connectAndRead dials once, subscribes, and reads until the socket closes
// or ctx is cancelled. The returned message slice is always nil: each
// message is deduplicated and enqueued in the same loop iteration that reads
// it, so nothing is left in hand when the socket fails.
func (c *Client) connectAndRead(ctx context.Context) ([]Message, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	sub := SubscribeRequest{APIKey: c.apiKey, BoundingBoxes: WorldBoundingBox(), FilterMessageTypes: []string{"PositionReport"}}
	if err := conn.WriteJSON(sub); err != nil {
		return nil, err
	}

	c.connected = true
	c.attempts = 0
	c.backoff.Reset()
	telemetry.AISConnectionHealthy.Set(1)
	c.logger.Info("ais upstream connected")

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.connected = false
			telemetry.AISConnectionHealthy.Set(0)
			return nil, err
		}

		var env upstreamEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.logger.Warn("ais message parse error", "error", err)
			continue
		}
		msg, err := toMessage(env)
		if err != nil {
			c.logger.Warn("ais message normalize error", "error", err)
			continue
		}

		telemetry.AISMessagesReceivedTotal.Inc()
		fp := fingerprint(env.MetaData.MMSI, env.MetaData.TimeUTC, msg.Lat, msg.Lon)
		if c.dedup.Seen(fp) {
			telemetry.AISDuplicatesFilteredTotal.Inc()
			continue
		}

		if c.queue.Enqueue(msg) {
			telemetry.AISMessagesDroppedTotal.Inc()
		}
		telemetry.AISQueueSize.Set(float64(c.queue.Size()))
		telemetry.AISHashSetSize.Set(float64(c.dedup.Size()))
	}
}
