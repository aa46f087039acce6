// Package store provides optional persistence around the behavior core:
// a Redis verdict cache for recent-lookup and a Postgres audit trail.
// The core itself owns no I/O; both stores are plain callers of it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TryMightyAI/rampart/pkg/ml"
)

const (
	verdictKeyPrefix = "rampart:verdict:"
	recentKey        = "rampart:verdicts:recent"
	recentLimit      = 100
)

// VerdictCache keeps recent verdicts in Redis, keyed by verdict ID, with a
// bounded most-recent list for dashboards.
type VerdictCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewVerdictCache connects to Redis using a URL of the form
// redis://[:password@]host:port/db and verifies the connection.
func NewVerdictCache(ctx context.Context, url string, ttl time.Duration) (*VerdictCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &VerdictCache{client: client, ttl: ttl}, nil
}

// Put stores a verdict under its ID and pushes it onto the recent list.
func (c *VerdictCache) Put(ctx context.Context, v *ml.Verdict) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, verdictKeyPrefix+v.ID, data, c.ttl)
	pipe.LPush(ctx, recentKey, v.ID)
	pipe.LTrim(ctx, recentKey, 0, recentLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store verdict: %w", err)
	}
	return nil
}

// Get returns a cached verdict, or (nil, nil) when the ID is unknown or
// expired.
func (c *VerdictCache) Get(ctx context.Context, id string) (*ml.Verdict, error) {
	data, err := c.client.Get(ctx, verdictKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get verdict: %w", err)
	}

	var v ml.Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	return &v, nil
}

// RecentIDs returns up to n most-recent verdict IDs, newest first.
func (c *VerdictCache) RecentIDs(ctx context.Context, n int) ([]string, error) {
	if n <= 0 || n > recentLimit {
		n = recentLimit
	}
	ids, err := c.client.LRange(ctx, recentKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent verdicts: %w", err)
	}
	return ids, nil
}

// Close releases the underlying connection pool.
func (c *VerdictCache) Close() error {
	return c.client.Close()
}
