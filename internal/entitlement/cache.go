// Package entitlement caches per-account premium status so every premium
// check does not hit the subscriptions table. Redis-backed when configured,
// with an in-memory fallback for single-node deployments.
package entitlement

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// TTL keeps a cached entitlement until the reconciler refreshes it
	TTL       = 5 * time.Minute
	keyPrefix = "godlykids:entitlement:"
)

// Cache stores premium flags per user ID
type Cache interface {
	Get(ctx context.Context, userID int64) (premium bool, found bool, err error)
	Set(ctx context.Context, userID int64, premium bool) error
	Invalidate(ctx context.Context, userID int64) error
}

// NewRedisClient connects to Redis with a few retries at startup
func NewRedisClient(ctx context.Context, host, port, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         host + ":" + port,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	for attempt := 1; attempt <= 5; attempt++ {
		if _, err := client.Ping(ctx).Result(); err == nil {
			log.Printf("Connected to Redis at %s:%s", host, port)
			return client, nil
		} else if attempt < 5 {
			delay := time.Duration(attempt) * time.Second
			log.Printf("Redis connection failed (attempt %d/5): %v, retrying in %v", attempt, err, delay)
			time.Sleep(delay)
		}
	}
	return nil, fmt.Errorf("failed to connect to Redis at %s:%s", host, port)
}

// RedisCache is the Redis-backed entitlement cache
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis-backed cache
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func makeKey(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

// Get retrieves a cached premium flag
func (c *RedisCache) Get(ctx context.Context, userID int64) (bool, bool, error) {
	value, err := c.client.Get(ctx, makeKey(userID)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to get entitlement: %w", err)
	}
	return value == "1", true, nil
}

// Set stores a premium flag with the cache TTL
func (c *RedisCache) Set(ctx context.Context, userID int64, premium bool) error {
	value := "0"
	if premium {
		value = "1"
	}
	if err := c.client.Set(ctx, makeKey(userID), value, TTL).Err(); err != nil {
		return fmt.Errorf("failed to set entitlement: %w", err)
	}
	return nil
}

// Invalidate drops a cached entitlement, forcing the next check to re-read
// the subscriptions table.
func (c *RedisCache) Invalidate(ctx context.Context, userID int64) error {
	if err := c.client.Del(ctx, makeKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate entitlement: %w", err)
	}
	return nil
}

// MemoryCache is the in-process fallback used when no Redis is configured
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[int64]memoryEntry
}

type memoryEntry struct {
	premium   bool
	expiresAt time.Time
}

// NewMemoryCache creates an in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[int64]memoryEntry)}
}

// Get retrieves a cached premium flag
func (c *MemoryCache) Get(_ context.Context, userID int64) (bool, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return false, false, nil
	}
	return entry.premium, true, nil
}

// Set stores a premium flag with the cache TTL
func (c *MemoryCache) Set(_ context.Context, userID int64, premium bool) error {
	c.mu.Lock()
	c.entries[userID] = memoryEntry{premium: premium, expiresAt: time.Now().Add(TTL)}
	c.mu.Unlock()
	return nil
}

// Invalidate drops a cached entitlement
func (c *MemoryCache) Invalidate(_ context.Context, userID int64) error {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
	return nil
}
