package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// LevelsCache keeps authorization levels hot in redis. Every gated command
// does a level lookup, so misses fall through to Postgres and are written back
// with a short TTL.
type LevelsCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewLevelsCache(client *goredis.Client, ttl time.Duration) *LevelsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &LevelsCache{client: client, ttl: ttl}
}

func levelKey(userID int64) string {
	return "admin_level:" + strconv.FormatInt(userID, 10)
}

// Get returns (level, found). A cache error is returned so the caller can
// decide whether to fall through or fail.
func (c *LevelsCache) Get(ctx context.Context, userID int64) (int, bool, error) {
	if c.client == nil {
		return 0, false, fmt.Errorf("redis client is nil")
	}

	value, err := c.client.Get(ctx, levelKey(userID)).Result()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get cached admin level: %w", err)
	}

	level, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("parse cached admin level: %w", err)
	}

	return level, true, nil
}

func (c *LevelsCache) Set(ctx context.Context, userID int64, level int) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := c.client.Set(ctx, levelKey(userID), strconv.Itoa(level), c.ttl).Err(); err != nil {
		return fmt.Errorf("cache admin level: %w", err)
	}

	return nil
}

// Invalidate drops the cached level after a roster change so the next check
// reads the fresh value.
func (c *LevelsCache) Invalidate(ctx context.Context, userID int64) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := c.client.Del(ctx, levelKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached admin level: %w", err)
	}

	return nil
}
