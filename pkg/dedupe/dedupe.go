// Package dedupe prevents the same cluster from being re-delivered to the
// same subscription endpoint within a TTL window, and caps how many
// deliveries a single subscription can receive within one dispatcher run.
package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Checker answers shouldSendAlert/markAlertSent against the alert_dedupe
// table, fronted by a Redis cache so the hot path avoids a database round
// trip on the common case of "already sent recently".
type Checker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

func NewChecker(pool *pgxpool.Pool, rdb *redis.Client) *Checker {
	return &Checker{pool: pool, rdb: rdb}
}

func cacheKey(tenantID uuid.UUID, clusterID, channel, endpoint string) string {
	return fmt.Sprintf("alert_dedupe:%s:%s:%s:%s", tenantID, clusterID, channel, endpoint)
}

// ShouldSend reports whether a cluster may be (re-)delivered to a given
// channel/endpoint right now: true if no prior send is recorded, or the
// last one is older than ttlHours.
func (c *Checker) ShouldSend(ctx context.Context, tenantID uuid.UUID, clusterID, channel, endpoint string, ttlHours int, now time.Time) (bool, error) {
	key := cacheKey(tenantID, clusterID, channel, endpoint)

	if c.rdb != nil {
		if cached, err := c.rdb.Get(ctx, key).Result(); err == nil {
			lastSent, parseErr := time.Parse(time.RFC3339, cached)
			if parseErr == nil {
				return now.Sub(lastSent) >= time.Duration(ttlHours)*time.Hour, nil
			}
		} else if err != redis.Nil {
			// Redis unavailable: fall through to Postgres as the source of truth.
			_ = err
		}
	}

	query := `SELECT last_sent_at, ttl_hours FROM alert_dedupe WHERE tenant_id = $1 AND cluster_id = $2 AND channel = $3 AND endpoint = $4`
	var lastSentAt time.Time
	var storedTTL int
	err := c.pool.QueryRow(ctx, query, tenantID, clusterID, channel, endpoint).Scan(&lastSentAt, &storedTTL)
	if err == pgx.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking alert dedupe: %w", err)
	}

	if c.rdb != nil {
		c.rdb.Set(ctx, key, lastSentAt.Format(time.RFC3339), time.Duration(storedTTL)*time.Hour)
	}

	return now.Sub(lastSentAt) >= time.Duration(storedTTL)*time.Hour, nil
}

// MarkSent records that a cluster was just delivered, upserting
// last_sent_at and refreshing the Redis cache entry.
func (c *Checker) MarkSent(ctx context.Context, tenantID uuid.UUID, clusterID, channel, endpoint string, ttlHours int, now time.Time) error {
	query := `INSERT INTO alert_dedupe (tenant_id, cluster_id, channel, endpoint, last_sent_at, ttl_hours)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (tenant_id, cluster_id, channel, endpoint) DO UPDATE SET
		last_sent_at = EXCLUDED.last_sent_at,
		ttl_hours    = EXCLUDED.ttl_hours`

	if _, err := c.pool.Exec(ctx, query, tenantID, clusterID, channel, endpoint, now, ttlHours); err != nil {
		return fmt.Errorf("marking alert sent: %w", err)
	}

	if c.rdb != nil {
		key := cacheKey(tenantID, clusterID, channel, endpoint)
		c.rdb.Set(ctx, key, now.Format(time.RFC3339), time.Duration(ttlHours)*time.Hour)
	}
	return nil
}
