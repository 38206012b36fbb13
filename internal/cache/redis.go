package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when no cached render exists for a key.
var ErrMiss = errors.New("cache: miss")

// RenderCache stores provider output keyed by the exact generation inputs, so
// re-submitting the same cleaned sketch with the same prompt skips the paid
// vendor call entirely.
type RenderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRenderCache wires a render cache over an existing Redis client.
func NewRenderCache(client *redis.Client, ttl time.Duration) *RenderCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RenderCache{client: client, ttl: ttl}
}

// NewRedisClient dials Redis with the service's defaults.
func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})
}

// Key derives the cache key from everything that influences the render:
// the cleaned sketch bytes, the final prompt, the output size token, and the
// provider name.
func Key(sketch []byte, prompt, size, provider string) string {
	h := sha256.New()
	h.Write(sketch)
	fmt.Fprintf(h, "|%s|%s|%s", prompt, size, provider)
	return "render:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached render bytes, or ErrMiss.
func (c *RenderCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil || c.client == nil {
		return nil, ErrMiss
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache: get: %w", err)
	}
	return data, nil
}

// Set stores the render bytes under key for the configured TTL.
func (c *RenderCache) Set(ctx context.Context, key string, data []byte) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set: %w", err)
	}
	return nil
}
