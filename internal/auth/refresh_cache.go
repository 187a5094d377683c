package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedGrant is a refresh result shared between requests. ExpiresAt is unix millis.
type CachedGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// RefreshCache stores recent refresh results keyed by a refresh-token hash.
type RefreshCache interface {
	Get(ctx context.Context, key string) (CachedGrant, bool, error)
	Set(ctx context.Context, key string, grant CachedGrant, ttl time.Duration) error
}

type redisRefreshCache struct {
	client *redis.Client
	prefix string
}

// NewRedisRefreshCache returns a Redis-backed RefreshCache.
func NewRedisRefreshCache(client *redis.Client, prefix string) RefreshCache {
	if prefix == "" {
		prefix = "session:refresh:"
	}
	return &redisRefreshCache{client: client, prefix: prefix}
}

func (c *redisRefreshCache) Get(ctx context.Context, key string) (CachedGrant, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return CachedGrant{}, false, nil
	}
	if err != nil {
		return CachedGrant{}, false, err
	}
	var grant CachedGrant
	if err := json.Unmarshal(raw, &grant); err != nil {
		return CachedGrant{}, false, fmt.Errorf("decode cached grant: %w", err)
	}
	return grant, true, nil
}

func (c *redisRefreshCache) Set(ctx context.Context, key string, grant CachedGrant, ttl time.Duration) error {
	raw, err := json.Marshal(grant)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, raw, ttl).Err()
}
