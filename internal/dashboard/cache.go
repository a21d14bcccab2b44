package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "dashboard:version"

// Cache stores summaries under a versioned key; Bump invalidates every entry.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(ctx context.Context) (string, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return "dashboard:summary:0", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("dashboard:summary:%d", ver), nil
}

// Fetch returns the cached summary or builds and stores it with load.
func (c *Cache) Fetch(ctx context.Context, load func(context.Context) (Summary, error)) (Summary, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}
	key, err := c.key(ctx)
	if err != nil {
		return load(ctx)
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var s Summary
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, nil
		}
	}
	s, err := load(ctx)
	if err != nil {
		return Summary{}, err
	}
	if payload, err := json.Marshal(s); err == nil {
		_ = c.client.Set(ctx, key, payload, c.ttl).Err()
	}
	return s, nil
}

// Bump moves every reader to a fresh key.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}
