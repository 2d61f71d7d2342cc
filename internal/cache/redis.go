// Package cache publishes the latest traffic light signal per camera to Redis
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SyedDaiam9101/tl-detector/internal/signal"
)

// Cache wraps a Redis client for signal publication
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a new Cache instance connected to the specified Redis address.
// If addr is empty, defaults to localhost:6379. Published signals expire after ttl.
func New(ctx context.Context, addr string, ttl time.Duration) (*Cache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive, got %v", ttl)
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Key returns the Redis key holding a camera's latest signal
func Key(cameraID string) string {
	return fmt.Sprintf("traffic_light:%s:state", cameraID)
}

// PublishSignal stores the signal's wire code for the camera with the configured TTL
func (c *Cache) PublishSignal(ctx context.Context, cameraID string, sig signal.Signal) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("cache client is nil")
	}
	if !sig.Valid() {
		return fmt.Errorf("refusing to publish invalid signal %v", sig)
	}

	err := c.client.Set(ctx, Key(cameraID), strconv.Itoa(int(sig)), c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to publish signal for camera %s: %w", cameraID, err)
	}
	return nil
}

// LastSignal retrieves a camera's latest signal. ok is false when none is stored or it expired.
func (c *Cache) LastSignal(ctx context.Context, cameraID string) (sig signal.Signal, ok bool, err error) {
	if c == nil || c.client == nil {
		return signal.Unknown, false, fmt.Errorf("cache client is nil")
	}

	data, err := c.client.Get(ctx, Key(cameraID)).Result()
	if err == redis.Nil {
		return signal.Unknown, false, nil
	}
	if err != nil {
		return signal.Unknown, false, fmt.Errorf("failed to get signal for camera %s: %w", cameraID, err)
	}

	code, err := strconv.Atoi(data)
	if err != nil || !signal.Signal(code).Valid() {
		return signal.Unknown, false, fmt.Errorf("corrupt signal %q for camera %s", data, cameraID)
	}
	return signal.Signal(code), true, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if c != nil && c.client != nil {
		return c.client.Close()
	}
	return nil
}
