// Package cache stores recent Google Fit fetch results in Redis so repeated
// dashboard loads do not hit the upstream API.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "calmtrack:fetch:"

// Cache is a JSON value cache over Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to addr and verifies the connection.
func New(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis %s: %w", addr, err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Key builds the cache key for login's window [start, end).
func Key(login string, start, end time.Time) string {
	return keyPrefix + login + ":" + start.Format("2006-01-02") + ":" + end.Format("2006-01-02")
}

// Get decodes the value at key into dst. It reports false on a miss.
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// Set stores v at key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Invalidate drops every cached window for login.
func (c *Cache) Invalidate(ctx context.Context, login string) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+login+":*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning cache for %s: %w", login, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidating cache for %s: %w", login, err)
	}
	return nil
}
