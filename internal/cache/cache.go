// Package cache stores computed dashboard reports in Redis under versioned keys.
// Bumping the version invalidates every report at once.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecoroute/crm-api/internal/config"
	"github.com/redis/go-redis/v9"
)

const versionKey = "crm:reports:version"

// NewClient connects to Redis and verifies the connection
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	return client, nil
}

// Cache wraps Redis with version-scoped keys. A nil *Cache is a valid no-op cache.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates the cache helper
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Enabled reports whether reads and writes reach Redis
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Version returns the current cache version, initialising it when missing
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}

	ver, err := c.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) || (err == nil && ver <= 0) {
		// SETNX so concurrent initialisers agree on one value
		if err := c.client.SetNX(ctx, versionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, versionKey).Int64()
	}
	return ver, err
}

// BuildKey joins parts and appends the current version
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if !c.Enabled() {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", joined, ver), nil
}

// Get decodes a cached value into dest, reporting whether it was present
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores value as JSON for the cache TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Bump invalidates every cached report by incrementing the version
func (c *Cache) Bump(ctx context.Context) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	return c.client.Incr(ctx, versionKey).Result()
}
