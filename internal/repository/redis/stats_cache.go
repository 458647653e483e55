package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/reviewhub/internal/insight"
)

const statsPrefix = "review-stats:"

// StatsCache implements repository.StatsCache using Redis.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache creates a Redis-backed stats cache whose entries live for ttl.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// Get returns the cached stats, or nil without error on a miss.
func (c *StatsCache) Get(ctx context.Context, productID string) (*insight.Stats, error) {
	data, err := c.client.Get(ctx, statsPrefix+productID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get stats: %w", err)
	}

	var stats insight.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("unmarshal stats: %w", err)
	}
	return &stats, nil
}

func (c *StatsCache) Set(ctx context.Context, productID string, stats insight.Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := c.client.Set(ctx, statsPrefix+productID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set stats: %w", err)
	}
	return nil
}

func (c *StatsCache) Invalidate(ctx context.Context, productID string) error {
	if err := c.client.Del(ctx, statsPrefix+productID).Err(); err != nil {
		return fmt.Errorf("redis del stats: %w", err)
	}
	return nil
}
